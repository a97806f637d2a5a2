package store

import (
	"math"
	"reflect"
)

func isContainer(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return true
	default:
		return false
	}
}

// shouldChange decides whether assigning v over old counts as a change.
// Containers (maps/slices) always count, regardless of identity — the
// port has no notion of reference equality for plain Go map/slice
// literals built fresh on every computed re-run, so treating any
// container assignment as a change is the only sound reading of spec.md's
// "object, identity-ignored" rule. Two NaN floats are treated as equal
// (not a change), matching IEEE-754-aware languages that special-case it;
// everything else uses Go's built-in comparison. Values whose type is not
// comparable (any map or slice, not only the two container shapes
// isContainer knows) are routed away from the `!=` on the last line first,
// so it does not panic on them.
func shouldChange(v, old interface{}) bool {
	if isContainer(v) {
		return true
	}
	if v != nil && !reflect.TypeOf(v).Comparable() {
		return true
	}
	if vf, ok := v.(float64); ok {
		if of, ok2 := old.(float64); ok2 && math.IsNaN(vf) && math.IsNaN(of) {
			return false
		}
	}
	return v != old
}

// setPending records a proposed write for property p, accumulating it
// into the in-flight pending/old buffers. It returns false (a no-op) when
// shouldChange rejects the write. old is read fresh from the live tree —
// safe for every caller except a deep, managed write, where the tree was
// already mutated in place by setPathOrUnmanaged before setPending runs;
// that caller must use setPendingWithOld instead so "old" reflects the
// value before its own mutation rather than after it.
func (s *Store) setPending(p string, v interface{}) bool {
	old, _ := Get(s.data, p)
	return s.setPendingWithOld(p, v, old)
}

// setPendingWithOld is setPending with old supplied by the caller, for the
// one case where the tree has already been mutated by the time this runs.
func (s *Store) setPendingWithOld(p string, v interface{}, old interface{}) bool {
	if !shouldChange(v, old) {
		return false
	}
	s.applyPending(p, v, old)
	return true
}

// forcePending unconditionally enqueues p=v, bypassing shouldChange. It
// backs NotifyPath: by the time it is called the value at p has typically
// already been mutated outside the store's own setters, so old and v
// often already read as equal — the whole point of a forced notification
// is to fire anyway rather than have shouldChange silently swallow it.
// NotifySplices goes through setPending instead; its splice record is a
// map and so always counts as a change.
func (s *Store) forcePending(p string, v interface{}, old interface{}) {
	s.applyPending(p, v, old)
}

func (s *Store) applyPending(p string, v interface{}, old interface{}) {
	if s.pending == nil {
		s.pending = map[string]interface{}{}
	}
	if s.old == nil {
		s.old = map[string]interface{}{}
	}
	if _, captured := s.old[p]; !captured {
		s.old[p] = old
	}

	s.data[p] = v
	s.pending[p] = v
	s.invalid = true
	s.recordChange(p, v)

	// A root property reassigned wholesale invalidates any cached
	// descendant flat entries, deleting (not merely nilling) them so Get
	// falls through to the new subtree instead of a stale shadow value.
	if isContainer(v) && Root(p) == p {
		for k := range s.data {
			if k != p && IsDescendant(p, k) {
				delete(s.data, k)
			}
		}
	}
}

// recordChange appends p to the in-flight cycle's change order the first
// time it is touched, and keeps its latest value for Stage 2/4 to read.
func (s *Store) recordChange(p string, v interface{}) {
	if s.changeSeen == nil {
		s.changeSeen = map[string]bool{}
		s.changeValues = map[string]interface{}{}
	}
	if !s.changeSeen[p] {
		s.changeSeen[p] = true
		s.changeOrder = append(s.changeOrder, p)
	}
	s.changeValues[p] = v
}

// setPropertyFromComputation lands a computed effect's result: routed
// through setPending when the target itself has effects (so its own
// dependents recompute), assigned directly otherwise.
func (s *Store) setPropertyFromComputation(target string, value interface{}) {
	if s.registry.HasEffect(target, EffectAny) {
		s.setPending(target, value)
		return
	}
	s.data[target] = value
}

// cloneValue deep-copies a map/slice container so two properties that
// mirror or alias the same value never share Go's underlying reference —
// otherwise mutating one's nested tree in place (e.g. a deep Set into
// "x.sub") would silently mutate the other's value too, outside the
// mirror mechanism that is supposed to be the only path between them.
// Non-container values are returned unchanged, since Go's plain scalars
// and strings already copy by value.
func cloneValue(v interface{}) interface{} {
	switch c := v.(type) {
	case map[string]interface{}:
		cp := make(map[string]interface{}, len(c))
		for k, val := range c {
			cp[k] = cloneValue(val)
		}
		return cp
	case []interface{}:
		cp := make([]interface{}, len(c))
		for i, val := range c {
			cp[i] = cloneValue(val)
		}
		return cp
	default:
		return v
	}
}
