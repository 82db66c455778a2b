package homectl

import (
	"context"
	"sync"

	"github.com/vango-dev/homectl/internal/errors"
	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/middleware"
	"github.com/vango-dev/homectl/pkg/modal"
	"github.com/vango-dev/homectl/pkg/registry"
	"github.com/vango-dev/homectl/pkg/stepper"
	"github.com/vango-dev/homectl/pkg/toggle"
)

// Activation is the eventual outcome of one Click.
type Activation struct {
	Widget string
	Kind   string

	mu   sync.Mutex
	wait func(ctx context.Context) (string, error)
}

// Wait blocks until the interaction settles and returns its outcome
// (committed, reverted, superseded, noop, shown, stale, failed,
// confirmed). The error is the failure reported to the user, if any.
func (a *Activation) Wait(ctx context.Context) (string, error) {
	a.mu.Lock()
	wait := a.wait
	a.mu.Unlock()
	if wait == nil {
		return "", nil
	}
	return wait(ctx)
}

func (a *Activation) settle(wait func(ctx context.Context) (string, error)) {
	a.mu.Lock()
	a.wait = wait
	a.mu.Unlock()
}

type activationKey struct{}

func withActivation(ctx context.Context, a *Activation) context.Context {
	return context.WithValue(ctx, activationKey{}, a)
}

// settle records how the activation in ctx resolves and feeds the outcome
// metric once it does.
func settle(ctx context.Context, kind string, wait func(ctx context.Context) (string, error)) {
	var (
		outcome string
		err     error
	)
	done := make(chan struct{})
	go func() {
		outcome, err = wait(context.Background())
		close(done)
		if outcome != "" {
			middleware.RecordOutcome(kind, outcome)
		}
	}()
	if a, ok := ctx.Value(activationKey{}).(*Activation); ok {
		a.settle(func(ctx context.Context) (string, error) {
			select {
			case <-done:
				return outcome, err
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})
	}
}

// handlerFor builds the registry handler for el. A nil handler means the
// role is not one the console services.
func (c *Console) handlerFor(doc *dom.Document, el *dom.Element, role string) (registry.Handler, error) {
	switch role {
	case RolePlus, RoleMinus:
		return c.stepperHandler(el, role)
	case RoleToggle:
		return c.toggleHandler(el), nil
	case RoleNew, RoleEdit, RoleDelete:
		return c.modalHandler(doc, el, modal.Intent(role)), nil
	case RoleConfirmDelete:
		return c.confirmHandler(doc, el), nil
	}
	return nil, nil
}

// buildSteppers binds every plus and minus button of doc to the stepper
// widget of its target input. Widgets are complete before any handler is
// mounted.
func (c *Console) buildSteppers(doc *dom.Document) error {
	for _, el := range doc.Elements() {
		role := el.AttrOr(dom.AttrRole, "")
		if role != RolePlus && role != RoleMinus {
			continue
		}
		target, ok := el.Attr(dom.AttrTarget)
		if !ok || target == "" {
			return errors.New("E100").WithDetailf("%s button %s has no %s", role, el.ID(), dom.AttrTarget)
		}
		w, ok := c.stepperW[target]
		if !ok {
			input := doc.ByID(target)
			if input == nil {
				return errors.New("E100").WithDetailf("%s button %s targets missing input %s", role, el.ID(), target)
			}
			w = &stepper.Widget{ID: target, Device: input.AttrOr(dom.AttrDevice, ""), Input: input}
			c.stepperW[target] = w
		}
		if role == RolePlus {
			w.Plus = el
		} else {
			w.Minus = el
		}
	}
	return nil
}

func (c *Console) stepperHandler(el *dom.Element, role string) (registry.Handler, error) {
	w := c.stepperW[el.AttrOr(dom.AttrTarget, "")]
	if w == nil {
		return nil, errors.New("E100").WithDetailf("%s button %s is not bound to a stepper", role, el.ID())
	}
	action, err := stepper.ParseAction(role)
	if err != nil {
		return nil, err
	}
	return registry.HandlerFunc(func(ctx context.Context, ev registry.Event) error {
		if w.Plus == nil || w.Minus == nil {
			return errors.New("E100").WithDetailf("stepper %s needs both plus and minus buttons", w.ID)
		}
		p, err := c.steppers.Press(ctx, w, action)
		if err != nil {
			return err
		}
		settle(ctx, ev.Kind, func(ctx context.Context) (string, error) {
			res, err := p.Wait(ctx)
			if err != nil {
				return "", err
			}
			return res.Status.String(), res.Err
		})
		return nil
	}), nil
}

func (c *Console) toggleHandler(el *dom.Element) registry.Handler {
	w := &toggle.Widget{ID: el.ID(), Device: el.AttrOr(dom.AttrDevice, ""), Element: el}
	c.toggleW[w.ID] = w
	return registry.HandlerFunc(func(ctx context.Context, ev registry.Event) error {
		p, err := c.toggles.Toggle(ctx, w)
		if err != nil {
			return err
		}
		settle(ctx, ev.Kind, func(ctx context.Context) (string, error) {
			res, err := p.Wait(ctx)
			if err != nil {
				return "", err
			}
			return res.Status.String(), res.Err
		})
		return nil
	})
}

func (c *Console) modalHandler(doc *dom.Document, el *dom.Element, intent modal.Intent) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, ev registry.Event) error {
		p, err := c.modals.Open(ctx, doc, intent, el.AttrOr(dom.AttrHref, ""))
		if err != nil {
			return err
		}
		settle(ctx, ev.Kind, func(ctx context.Context) (string, error) {
			res, err := p.Wait(ctx)
			if err != nil {
				return "", err
			}
			return res.Outcome.String(), res.Err
		})
		return nil
	})
}

func (c *Console) confirmHandler(doc *dom.Document, el *dom.Element) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, ev registry.Event) error {
		href := el.AttrOr(dom.AttrHref, "")
		if href == "" {
			id, ok := el.Attr("data-person")
			if !ok || id == "" {
				return errors.New("E100").WithDetailf("confirm button %s has no href", el.ID())
			}
			href = modal.ConfirmURL(id)
		}
		res := c.modals.Confirm(ctx, doc, href)
		outcome := "confirmed"
		if res.Err != nil {
			outcome = "failed"
		}
		settle(ctx, ev.Kind, func(context.Context) (string, error) {
			return outcome, res.Err
		})
		return nil
	})
}
