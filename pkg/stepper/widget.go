package stepper

import (
	"strconv"
	"strings"

	"github.com/vango-dev/homectl/internal/errors"
	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/resync"
)

// Widget binds a stepper to its page elements.
type Widget struct {
	// ID identifies the widget in the registry and for request sequencing.
	ID string

	// Device is the server-side device the widget edits.
	Device string

	Input *dom.Element
	Plus  *dom.Element
	Minus *dom.Element

	// confirmed is the last state known to match the server while presses
	// are unsettled. Guarded by the tracker's widget lock.
	confirmed *baseline
}

// baseline is the state a failed press reverts to.
type baseline struct {
	snap  Snapshot
	state State
}

// Read parses the widget's state. Malformed or inconsistent attributes
// return E100.
func (w *Widget) Read() (State, error) {
	value, err := intAttr(w.Input, dom.AttrValue)
	if err != nil {
		return State{}, err
	}
	lo, err := intAttr(w.Input, dom.AttrMin)
	if err != nil {
		return State{}, err
	}
	hi, err := intAttr(w.Input, dom.AttrMax)
	if err != nil {
		return State{}, err
	}
	s := State{Value: value, Min: lo, Max: hi}
	if err := s.Valid(); err != nil {
		return State{}, errors.New("E100").WithDetailf("widget %s", w.ID).Wrap(err)
	}
	return s, nil
}

func intAttr(el *dom.Element, name string) (int, error) {
	raw, ok := el.Attr(name)
	if !ok {
		return 0, errors.New("E100").WithDetailf("element %s has no %q attribute", el.ID(), name)
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.New("E100").
			WithDetailf("attribute %q of %s is %q", name, el.ID(), raw).
			Wrap(err)
	}
	return n, nil
}

// button returns the element for a.
func (w *Widget) button(a Action) *dom.Element {
	if a == Increment {
		return w.Plus
	}
	return w.Minus
}

// opposite returns the button on the other boundary from a.
func (w *Widget) opposite(a Action) *dom.Element {
	if a == Increment {
		return w.Minus
	}
	return w.Plus
}

// SetButtons sets both buttons from the state's boundaries.
func (w *Widget) SetButtons(s State) {
	w.Plus.SetEnabled(s.PlusEnabled())
	w.Minus.SetEnabled(s.MinusEnabled())
}

// Write writes the full state to the widget.
func (w *Widget) Write(s State) {
	w.Input.SetAttr(dom.AttrValue, strconv.Itoa(s.Value))
	w.Input.SetAttr(dom.AttrMin, strconv.Itoa(s.Min))
	w.Input.SetAttr(dom.AttrMax, strconv.Itoa(s.Max))
	w.SetButtons(s)
}

// Apply writes an authoritative server state to the widget.
func (w *Widget) Apply(st resync.State) State {
	s := State{Value: st.Value, Min: st.Min, Max: st.Max}
	w.Write(s)
	return s
}

// Snapshot is the presentation of a widget before a speculative write.
type Snapshot struct {
	value         string
	plusDisabled  bool
	minusDisabled bool
}

// Snapshot captures the widget's presentation.
func (w *Widget) Snapshot() Snapshot {
	return Snapshot{
		value:         w.Input.AttrOr(dom.AttrValue, ""),
		plusDisabled:  w.Plus.Disabled(),
		minusDisabled: w.Minus.Disabled(),
	}
}

// snapshotOf is the presentation of a settled state.
func snapshotOf(s State) Snapshot {
	return Snapshot{
		value:         strconv.Itoa(s.Value),
		plusDisabled:  !s.PlusEnabled(),
		minusDisabled: !s.MinusEnabled(),
	}
}

// Restore puts a snapshot back.
func (w *Widget) Restore(s Snapshot) {
	w.Input.SetAttr(dom.AttrValue, s.value)
	w.Plus.SetEnabled(!s.plusDisabled)
	w.Minus.SetEnabled(!s.minusDisabled)
}
