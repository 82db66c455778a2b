// Package homectl is the controller layer of the home-automation admin
// console.
//
// A Console wires the fragment transport, the optimistic stepper and
// toggle controllers, the modal controller and the widget registry from
// one configuration. Mounting a view registers every element that
// carries a data-role:
//
//	plus, minus      stepper buttons; data-target names the value input
//	toggle           on/off switch
//	new, edit, delete  modal affordances
//	confirm-delete   delete confirmation
//
// Usage:
//
//	cfg, err := config.LoadOrDefault(".")
//	console, err := homectl.New(*cfg, homectl.WithNotifier(notify.NewWriter(os.Stderr)))
//	if err := console.MountView(doc); err != nil {
//	    return err
//	}
//	act, err := console.Click(ctx, "plus-3")
//	outcome, err := act.Wait(ctx)
package homectl
