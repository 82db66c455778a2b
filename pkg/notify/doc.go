// Package notify delivers user-visible alerts and operator log lines for
// failed console interactions.
//
// A Notifier shows a blocking alert to the user. A Reporter pairs a
// Notifier with a structured logger so every failure is reported on both
// channels the same way:
//
//	r := notify.NewReporter(notify.NewWriter(os.Stderr), slog.Default())
//	r.Failure(ctx, "could not update device information value", err)
//
// which logs
//
//	could not update device information value: error occurred: {"error":"value out of range"}
//
// and alerts "Something went wrong!\nCheck logs for more information."
package notify
