// Package stepper implements the bounded numeric stepper controller.
//
// A stepper widget is an input holding value, min and max attributes and
// two boundary buttons (plus and minus) whose href is an update URL
// template containing a value placeholder. Pressing a button:
//
//  1. reads the state from the widget (malformed attributes abort with E100)
//  2. clamps the step to [min, max]; at a boundary nothing is sent
//  3. eagerly enables the opposite button, then recomputes both buttons
//     from the new value
//  4. writes the value back and PATCHes the substituted URL
//
// The write is speculative. On success the widget is resynchronized from
// the server; on failure it is reverted to the pre-press snapshot and the
// failure is reported. A newer press on the same widget cancels the older
// request, whose completion is then ignored.
//
//	c := stepper.New(client, stepper.WithResyncer(resync.NewHTTP(client, "/device/{id}/state")))
//	p, err := c.Press(ctx, w, stepper.Increment)
//	res, _ := p.Wait(ctx)
package stepper
