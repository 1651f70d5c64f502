// Package input keeps the held-key table and modifier flags fed by key
// events. A release is the key name followed by " up".
package input

import (
	"strings"

	"golang.org/x/text/cases"
)

// UpSuffix marks a key release event.
const UpSuffix = " up"

// State is the held-key table. Keys never seen read as 0.
type State struct {
	held map[string]int
	fold cases.Caser

	Control, LeftControl, RightControl bool
	Shift, LeftShift, RightShift       bool
	Alt, LeftAlt, RightAlt             bool
}

func NewState() *State {
	return &State{
		held: make(map[string]int, 64),
		fold: cases.Fold(),
	}
}

// Normalize folds case so backends reporting "Shift" and "shift" agree.
func (s *State) Normalize(key string) string {
	return s.fold.String(key)
}

// Feed applies one key event and returns the base key and whether it is
// now held. Empty events are ignored and reported with an empty key.
func (s *State) Feed(key string) (string, bool) {
	base, up := strings.CutSuffix(s.Normalize(key), UpSuffix)
	base = strings.TrimSpace(base)
	if base == "" {
		return "", false
	}
	if up {
		s.held[base] = 0
	} else {
		s.held[base] = 1
	}
	s.syncModifiers()
	return base, !up
}

// Held returns the level of key, 0 when released or never pressed.
func (s *State) Held(key string) int {
	return s.held[s.Normalize(key)]
}

// HeldKeys returns every key currently held.
func (s *State) HeldKeys() []string {
	var out []string
	for k, v := range s.held {
		if v > 0 {
			out = append(out, k)
		}
	}
	return out
}

// Reset releases everything, e.g. when the window loses focus.
func (s *State) Reset() {
	clear(s.held)
	s.syncModifiers()
}

func (s *State) syncModifiers() {
	s.LeftControl = s.held["left control"] > 0
	s.RightControl = s.held["right control"] > 0
	s.Control = s.LeftControl || s.RightControl || s.held["control"] > 0

	s.LeftShift = s.held["left shift"] > 0
	s.RightShift = s.held["right shift"] > 0
	s.Shift = s.LeftShift || s.RightShift || s.held["shift"] > 0

	s.LeftAlt = s.held["left alt"] > 0
	s.RightAlt = s.held["right alt"] > 0
	s.Alt = s.LeftAlt || s.RightAlt || s.held["alt"] > 0
}
