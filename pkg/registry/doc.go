// Package registry maps widget IDs to the handlers that service their
// activations.
//
// A registry is built when a view mounts and torn down when it unmounts.
// Every widget is registered explicitly under its element ID; activating
// an ID that was never mounted is an error rather than a silent no-op.
//
//	reg := registry.New(registry.WithMiddleware(middleware.Logging(logger)))
//	reg.Mount("plus-3", registry.HandlerFunc(func(ctx context.Context, ev registry.Event) error {
//	    _, err := steppers.Press(ctx, w, stepper.Increment)
//	    return err
//	}))
//	err := reg.Dispatch(ctx, registry.Event{Target: "plus-3", Kind: "plus"})
package registry
