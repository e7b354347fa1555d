package ir

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ActionKind tags an action variant.
type ActionKind string

const (
	ActionFilter   ActionKind = "filter"
	ActionLayout   ActionKind = "layout"
	ActionSnapshot ActionKind = "snapshot"
)

// Action is one step of an action sequence. Sealed: only FilterAction,
// LayoutAction and SnapshotAction implement it.
type Action interface {
	Kind() ActionKind
	serialize() IRArray
}

// FilterAction runs the named filter with params.
type FilterAction struct {
	Name   string
	Params IRObject
}

// Kind implements Action.
func (FilterAction) Kind() ActionKind { return ActionFilter }

func (a FilterAction) serialize() IRArray {
	return IRArray{IRString(ActionFilter), IRString(a.Name), paramsOrEmpty(a.Params)}
}

// LayoutAction lays out the current content with the layout matching Identifier.
type LayoutAction struct {
	Identifier string
	Params     IRObject
}

// Kind implements Action.
func (LayoutAction) Kind() ActionKind { return ActionLayout }

func (a LayoutAction) serialize() IRArray {
	return IRArray{IRString(ActionLayout), IRString(a.Identifier), paramsOrEmpty(a.Params)}
}

// SnapshotAction stores the current content under Names and writes it to Paths.
type SnapshotAction struct {
	Names []string
	Paths []string
}

// Kind implements Action.
func (SnapshotAction) Kind() ActionKind { return ActionSnapshot }

func (a SnapshotAction) serialize() IRArray {
	names := make(IRArray, len(a.Names))
	for i, n := range a.Names {
		names[i] = IRString(n)
	}
	paths := make(IRArray, len(a.Paths))
	for i, p := range a.Paths {
		paths[i] = IRString(p)
	}
	return IRArray{IRString(ActionSnapshot), names, paths}
}

func paramsOrEmpty(p IRObject) IRObject {
	if p == nil {
		return IRObject{}
	}
	return p
}

// ActionSequence is the ordered list of actions for one rep or layout.
// Values are immutable once built.
type ActionSequence struct {
	actions []Action
}

// NewActionSequence builds a sequence from actions as given (no compaction).
func NewActionSequence(actions ...Action) ActionSequence {
	return ActionSequence{actions: slices.Clone(actions)}
}

// Actions returns a copy of the actions.
func (s ActionSequence) Actions() []Action {
	return slices.Clone(s.actions)
}

// Len returns the number of actions.
func (s ActionSequence) Len() int {
	return len(s.actions)
}

// At returns the i-th action.
func (s ActionSequence) At(i int) Action {
	return s.actions[i]
}

// SnapshotNames returns every snapshot name in order of appearance.
func (s ActionSequence) SnapshotNames() []string {
	var names []string
	for _, a := range s.actions {
		if snap, ok := a.(SnapshotAction); ok {
			names = append(names, snap.Names...)
		}
	}
	return names
}

// HasSnapshot reports whether a snapshot with name exists.
func (s ActionSequence) HasSnapshot(name string) bool {
	return slices.Contains(s.SnapshotNames(), name)
}

// HasLayouts reports whether any layout action exists.
func (s ActionSequence) HasLayouts() bool {
	for _, a := range s.actions {
		if a.Kind() == ActionLayout {
			return true
		}
	}
	return false
}

// PathsBySnapshot maps every snapshot name to the paths of its action.
// Names of a compacted snapshot action share that action's paths.
func (s ActionSequence) PathsBySnapshot() map[string][]string {
	out := make(map[string][]string)
	for _, a := range s.actions {
		if snap, ok := a.(SnapshotAction); ok {
			for _, n := range snap.Names {
				out[n] = slices.Clone(snap.Paths)
			}
		}
	}
	return out
}

// Compact merges adjacent snapshot actions into one, unioning names and
// paths in order of first appearance.
func (s ActionSequence) Compact() ActionSequence {
	out := make([]Action, 0, len(s.actions))
	for _, a := range s.actions {
		snap, ok := a.(SnapshotAction)
		if ok && len(out) > 0 {
			if prev, prevOK := out[len(out)-1].(SnapshotAction); prevOK {
				out[len(out)-1] = SnapshotAction{
					Names: unionStrings(prev.Names, snap.Names),
					Paths: unionStrings(prev.Paths, snap.Paths),
				}
				continue
			}
		}
		out = append(out, a)
	}
	return ActionSequence{actions: out}
}

func unionStrings(a, b []string) []string {
	out := slices.Clone(a)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Serialize returns the structural form used for storage and comparison:
//
//	[["snapshot",["raw"],[]],["filter","tmpl",{}],["snapshot",["last"],["/a.html"]]]
func (s ActionSequence) Serialize() IRArray {
	out := make(IRArray, len(s.actions))
	for i, a := range s.actions {
		out[i] = a.serialize()
	}
	return out
}

// MarshalCanonical returns the canonical JSON of the serialized form.
func (s ActionSequence) MarshalCanonical() ([]byte, error) {
	return MarshalCanonical(s.Serialize())
}

// Checksum returns the structural checksum of the sequence.
func (s ActionSequence) Checksum() (string, error) {
	data, err := s.MarshalCanonical()
	if err != nil {
		return "", fmt.Errorf("action sequence checksum: %w", err)
	}
	return hashWithDomain(DomainActionSequence, data), nil
}

// Equal reports structural equality.
func (s ActionSequence) Equal(other ActionSequence) bool {
	a, errA := s.Checksum()
	b, errB := other.Checksum()
	return errA == nil && errB == nil && a == b
}

// UnmarshalActionSequence parses the serialized form produced by
// MarshalCanonical.
func UnmarshalActionSequence(data []byte) (ActionSequence, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ActionSequence{}, fmt.Errorf("unmarshal action sequence: %w", err)
	}

	actions := make([]Action, 0, len(raw))
	for i, r := range raw {
		var parts []json.RawMessage
		if err := json.Unmarshal(r, &parts); err != nil || len(parts) != 3 {
			return ActionSequence{}, fmt.Errorf("unmarshal action sequence: action %d malformed", i)
		}
		var kind string
		if err := json.Unmarshal(parts[0], &kind); err != nil {
			return ActionSequence{}, fmt.Errorf("unmarshal action sequence: action %d kind: %w", i, err)
		}

		switch ActionKind(kind) {
		case ActionFilter, ActionLayout:
			var name string
			var params IRObject
			if err := json.Unmarshal(parts[1], &name); err != nil {
				return ActionSequence{}, fmt.Errorf("unmarshal action sequence: action %d name: %w", i, err)
			}
			if err := json.Unmarshal(parts[2], &params); err != nil {
				return ActionSequence{}, fmt.Errorf("unmarshal action sequence: action %d params: %w", i, err)
			}
			if ActionKind(kind) == ActionFilter {
				actions = append(actions, FilterAction{Name: name, Params: params})
			} else {
				actions = append(actions, LayoutAction{Identifier: name, Params: params})
			}
		case ActionSnapshot:
			var names, paths []string
			if err := json.Unmarshal(parts[1], &names); err != nil {
				return ActionSequence{}, fmt.Errorf("unmarshal action sequence: action %d names: %w", i, err)
			}
			if err := json.Unmarshal(parts[2], &paths); err != nil {
				return ActionSequence{}, fmt.Errorf("unmarshal action sequence: action %d paths: %w", i, err)
			}
			actions = append(actions, SnapshotAction{Names: names, Paths: paths})
		default:
			return ActionSequence{}, fmt.Errorf("unmarshal action sequence: action %d has unknown kind %q", i, kind)
		}
	}
	return ActionSequence{actions: actions}, nil
}
