package pager

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// InputClassifier maps terminal events to semantic input events. The default
// implementation is the EventRegister below; hosts may replace the whole
// classifier through Pager.SetInputClassifier.
//
// ClassifyInput is called with the pager state locked; implementations may
// read it but must not retain it.
type InputClassifier interface {
	ClassifyInput(ev Event, ps *PagerState) (InputEvent, bool)
}

// ClassifyFunc is the callback associated with a binding. It receives the
// matched event and the locked pager state and produces the input event to
// apply.
type ClassifyFunc func(ev Event, ps *PagerState) InputEvent

// eventKey is the lookup key for a binding. It carries only the fields that
// matter for matching: mouse events match on the button regardless of
// position, and all resize events are a single key regardless of the new
// dimensions.
type eventKey struct {
	kind  EventKind
	key   rune
	mouse MouseButton
}

func keyOf(ev Event) eventKey {
	switch ev.Kind {
	case MouseEvent:
		return eventKey{kind: MouseEvent, mouse: ev.Mouse}
	case ResizeEvent:
		return eventKey{kind: ResizeEvent}
	}
	return eventKey{kind: KeyEvent, key: ev.Key}
}

// EventRegister is a keyed store of bindings: each event key maps to the
// callback to run when a matching event arrives. Lookup tries an exact match
// first, then the single optional wildcard entry.
type EventRegister struct {
	bindings map[eventKey]ClassifyFunc
	wild     ClassifyFunc
}

// NewEventRegister creates an empty register.
func NewEventRegister() *EventRegister {
	return &EventRegister{bindings: make(map[eventKey]ClassifyFunc)}
}

// ClassifyInput implements InputClassifier.
func (r *EventRegister) ClassifyInput(ev Event, ps *PagerState) (InputEvent, bool) {
	if cb, ok := r.bindings[keyOf(ev)]; ok {
		return cb(ev, ps), true
	}
	if r.wild != nil {
		return r.wild(ev, ps), true
	}
	return nil, false
}

// AddKeyEvents binds every key described in descs to cb. Descriptors use the
// names accepted by parseKeyDesc, e.g. "q", "Control-c", "page-down". An
// invalid descriptor is a programmer error and panics.
func (r *EventRegister) AddKeyEvents(descs []string, cb ClassifyFunc) {
	for _, d := range descs {
		key, err := parseKeyDesc(d)
		if err != nil {
			panic(err)
		}
		r.bindings[eventKey{kind: KeyEvent, key: key}] = cb
	}
}

// RemoveKeyEvents removes the bindings for every key described in descs.
func (r *EventRegister) RemoveKeyEvents(descs []string) {
	for _, d := range descs {
		key, err := parseKeyDesc(d)
		if err != nil {
			panic(err)
		}
		delete(r.bindings, eventKey{kind: KeyEvent, key: key})
	}
}

// AddMouseEvents binds the mouse actions described in descs ("scroll:up",
// "scroll:down") to cb.
func (r *EventRegister) AddMouseEvents(descs []string, cb ClassifyFunc) {
	for _, d := range descs {
		button, err := parseMouseDesc(d)
		if err != nil {
			panic(err)
		}
		r.bindings[eventKey{kind: MouseEvent, mouse: button}] = cb
	}
}

// AddResizeEvent binds terminal resize events to cb.
func (r *EventRegister) AddResizeEvent(cb ClassifyFunc) {
	r.bindings[eventKey{kind: ResizeEvent}] = cb
}

// InsertWildEventMatcher registers a callback for events no exact binding
// matched. Useful for catching whole groups of keys with equal importance,
// or for reacting to any stray key at all.
func (r *EventRegister) InsertWildEventMatcher(cb ClassifyFunc) {
	r.wild = cb
}

var namedKeys = map[string]rune{
	"backspace": KeyBackspace,
	"delete":    KeyDelete,
	"down":      KeyDown,
	"end":       KeyEnd,
	"enter":     KeyEnter,
	"escape":    KeyEscape,
	"home":      KeyHome,
	"left":      KeyLeft,
	"page-down": KeyPageDown,
	"page-up":   KeyPageUp,
	"right":     KeyRight,
	"space":     ' ',
	"up":        KeyUp,
}

// parseKeyDesc parses a key descriptor: an optional "Control-" and/or
// "Meta-" prefix followed by a named key or a single character. Control
// characters with a dedicated control code (Control-a through Control-z) are
// translated to that code, mirroring what the terminal sends.
func parseKeyDesc(desc string) (rune, error) {
	const (
		controlPrefix = "Control-"
		metaPrefix    = "Meta-"
	)

	var mods rune
	s := desc
	for len(s) > 0 {
		if strings.HasPrefix(s, controlPrefix) {
			if (mods & ModCtrl) != 0 {
				return utf8.RuneError, fmt.Errorf("pager: invalid key: %q", desc)
			}
			mods |= ModCtrl
			s = s[len(controlPrefix):]
			continue
		}
		if strings.HasPrefix(s, metaPrefix) {
			if (mods & ModAlt) != 0 {
				return utf8.RuneError, fmt.Errorf("pager: invalid key: %q", desc)
			}
			mods |= ModAlt
			s = s[len(metaPrefix):]
			continue
		}
		break
	}

	key := namedKeys[strings.ToLower(s)]
	if key == 0 {
		var l int
		key, l = utf8.DecodeRuneInString(s)
		if key == utf8.RuneError || l != len(s) {
			return utf8.RuneError, fmt.Errorf("pager: invalid key: %q", desc)
		}
	}

	// Translate Control-[a-z] into the control code the terminal sends.
	if (mods&ModCtrl) != 0 && key >= 'a' && key <= 'z' {
		key -= 0x60
		mods &^= ModCtrl
	}

	return key | mods, nil
}

func parseMouseDesc(desc string) (MouseButton, error) {
	switch desc {
	case "scroll:up":
		return MouseWheelUp, nil
	case "scroll:down":
		return MouseWheelDown, nil
	}
	return 0, fmt.Errorf("pager: invalid mouse event: %q", desc)
}

// DefaultEventRegister returns a register preloaded with the standard
// less(1) bindings:
//
//	j/Down      scroll down (takes a numeric prefix)
//	k/Up        scroll up (takes a numeric prefix)
//	d/u         half a screen down/up
//	PageDown/PageUp, Space  a full screen down/up
//	g/G         top / end
//	q/Control-c quit
//	Control-l   toggle line numbers
//	0-9         accumulate a numeric prefix
//	wheel       five rows up/down
//	/ and ?     search forward / backward
//	n and p     next / previous match (sign flipped in reverse mode)
func DefaultEventRegister() *EventRegister {
	r := NewEventRegister()

	r.AddKeyEvents([]string{"down", "j"}, func(_ Event, ps *PagerState) InputEvent {
		return UpdateUpperMark{To: ps.upperMark + ps.PrefixNum(1)}
	})
	r.AddKeyEvents([]string{"up", "k"}, func(_ Event, ps *PagerState) InputEvent {
		return UpdateUpperMark{To: max(0, ps.upperMark-ps.PrefixNum(1))}
	})
	r.AddKeyEvents([]string{"d"}, func(_ Event, ps *PagerState) InputEvent {
		return UpdateUpperMark{To: ps.upperMark + ps.rows/2}
	})
	r.AddKeyEvents([]string{"u"}, func(_ Event, ps *PagerState) InputEvent {
		return UpdateUpperMark{To: max(0, ps.upperMark-ps.rows/2)}
	})
	r.AddKeyEvents([]string{"page-down", "space"}, func(_ Event, ps *PagerState) InputEvent {
		return UpdateUpperMark{To: ps.upperMark + ps.rows - 1}
	})
	r.AddKeyEvents([]string{"page-up"}, func(_ Event, ps *PagerState) InputEvent {
		return UpdateUpperMark{To: max(0, ps.upperMark-(ps.rows-1))}
	})
	r.AddKeyEvents([]string{"g"}, func(_ Event, _ *PagerState) InputEvent {
		return UpdateUpperMark{To: 0}
	})
	r.AddKeyEvents([]string{"G"}, func(_ Event, _ *PagerState) InputEvent {
		return UpdateUpperMark{To: math.MaxInt / 2}
	})
	r.AddKeyEvents([]string{"q", "Control-c"}, func(_ Event, _ *PagerState) InputEvent {
		return Exit{}
	})
	r.AddKeyEvents([]string{"Control-l"}, func(_ Event, ps *PagerState) InputEvent {
		return UpdateLineNumbers{Mode: ps.lineNumbers.toggle()}
	})

	digitKeys := []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
	r.AddKeyEvents(digitKeys, func(ev Event, _ *PagerState) InputEvent {
		return Number{Digit: ev.Key}
	})

	r.AddMouseEvents([]string{"scroll:up"}, func(_ Event, ps *PagerState) InputEvent {
		return UpdateUpperMark{To: max(0, ps.upperMark-5)}
	})
	r.AddMouseEvents([]string{"scroll:down"}, func(_ Event, ps *PagerState) InputEvent {
		return UpdateUpperMark{To: ps.upperMark + 5}
	})

	r.AddResizeEvent(func(ev Event, _ *PagerState) InputEvent {
		return UpdateTermArea{Cols: ev.Width, Rows: ev.Height}
	})

	r.AddKeyEvents([]string{"/"}, func(_ Event, _ *PagerState) InputEvent {
		return StartSearch{Mode: SearchForward}
	})
	r.AddKeyEvents([]string{"?"}, func(_ Event, _ *PagerState) InputEvent {
		return StartSearch{Mode: SearchReverse}
	})
	r.AddKeyEvents([]string{"n"}, func(_ Event, ps *PagerState) InputEvent {
		if ps.searchState.mode == SearchReverse {
			return MoveToPrevMatch{N: ps.PrefixNum(1)}
		}
		return MoveToNextMatch{N: ps.PrefixNum(1)}
	})
	r.AddKeyEvents([]string{"p"}, func(_ Event, ps *PagerState) InputEvent {
		if ps.searchState.mode == SearchReverse {
			return MoveToNextMatch{N: ps.PrefixNum(1)}
		}
		return MoveToPrevMatch{N: ps.PrefixNum(1)}
	})

	return r
}
