package store

import "math"

// SpliceRecord is the notification payload emitted by every array mutator
// that changes length or moves elements.
type SpliceRecord struct {
	Index       int
	AddedCount  int
	Removed     []interface{}
	Object      string
	Type        string
}

// Get reads path against the live data tree. It returns (nil, false) the
// moment any segment is missing, mirroring PathOps.get's undefined result.
func (s *Store) Get(path string) (interface{}, bool) {
	path = Normalize(path)
	return Get(s.data, path)
}

// Set writes value at path. A read-only root property's public write is
// silently rejected, per contract. Array-bookkeeping sub-paths
// ("x.length", "x.splices") are ordinary properties from Set's point of
// view; use the dedicated array mutators to get splice notifications.
func (s *Store) Set(path string, value interface{}) {
	path = Normalize(path)
	root := Root(path)
	if s.registry.HasReadOnly(root) {
		return
	}
	// old must be captured before setPathOrUnmanaged, which for a deep
	// managed path writes the new value into the tree in place — reading
	// "old" afterward would see the value this same call just wrote.
	old, _ := Get(s.data, path)
	if normalized, managed := s.setPathOrUnmanaged(path, value); managed {
		s.setPendingWithOld(normalized, value, old)
	}
	s.scheduleFlush()
}

// SetRoot is a bare tree write with no pending/notification bookkeeping —
// the `root` escape hatch spec.md's set(path, value, root?) describes for
// bypassing the change cycle entirely (e.g. restoring serialized state).
func (s *Store) SetRoot(path string, value interface{}) {
	Set(s.data, Normalize(path), value)
}

// setPathOrUnmanaged is the AccessorLayer routing rule: a write to an
// unmanaged path (no effects on its root) or to a path deeper than the
// root goes straight into the tree; a write to a managed root is instead
// handed back to the caller to route through setPending. A path that is
// both managed and deep does both.
func (s *Store) setPathOrUnmanaged(path string, value interface{}) (string, bool) {
	root := Root(path)
	hasEffect := s.registry.HasEffect(root, EffectAny)
	deep := IsDeep(path)
	if !hasEffect || deep {
		Set(s.data, path, value)
	}
	return path, hasEffect
}

// PropertyValue is one entry of a SetProperties batch. A plain map would
// lose the assignment order Go needs to reproduce spec.md's deterministic
// observer-ordering guarantees, so batches are an ordered slice instead.
type PropertyValue struct {
	Name  string
	Value interface{}
}

// SetProperties batch-assigns every entry in values, in order, skipping
// read-only roots, and schedules a single flush for the whole batch.
func (s *Store) SetProperties(values []PropertyValue) {
	for _, pv := range values {
		path := Normalize(pv.Name)
		root := Root(path)
		if s.registry.HasReadOnly(root) {
			continue
		}
		old, _ := Get(s.data, path)
		if normalized, managed := s.setPathOrUnmanaged(path, pv.Value); managed {
			s.setPendingWithOld(normalized, pv.Value, old)
		}
	}
	s.scheduleFlush()
}

// Flush drains any buffered pending writes. Under the default synchronous
// mode this is a no-op (every public mutator already flushed); it exists
// for WithAsyncEffects(true) callers who defer draining to a point of
// their own choosing.
func (s *Store) Flush() {
	s.flush(false)
}

// scheduleFlush runs a flush immediately once the store is initialized
// (the synchronous-after-ready default); before Ready, writes stay
// buffered and the first flush happens when Ready is called.
func (s *Store) scheduleFlush() {
	if !s.initialized {
		return
	}
	if s.asyncEffects {
		return
	}
	s.flush(false)
}

// NotifyPath forces a notification for a leaf that was mutated outside
// the Store's own setters (e.g. a nested field mutated in place). If
// value is omitted (hasValue=false) the current value is read and used.
// Forced, not gated by shouldChange: by the time this is called the
// external mutation has typically already landed, so comparing against
// the "current" value would usually find no difference at all.
func (s *Store) NotifyPath(path string, value interface{}, hasValue bool) {
	path = Normalize(path)
	old, _ := Get(s.data, path)
	if !hasValue {
		value = old
	}
	s.forcePending(path, value, old)
	s.scheduleFlush()
}

// NotifySplices re-emits splice records for an array already mutated by
// the caller outside the normal mutator path.
func (s *Store) NotifySplices(path string, splices []SpliceRecord) {
	s.notifySplices(path, splices)
	s.scheduleFlush()
}

func (s *Store) notifySplices(path string, splices []SpliceRecord) {
	path = Normalize(path)
	s.setPending(path+".splices", map[string]interface{}{"indexSplices": splices})
	length := 0
	if arr, ok := Get(s.data, path); ok {
		if sl, ok := arr.([]interface{}); ok {
			length = len(sl)
		}
	}
	s.setPending(path+".length", length)
	// Null the just-enqueued record so a large splice payload does not
	// linger in data past the notification that carried it.
	s.data[path+".splices"] = map[string]interface{}{"indexSplices": nil}
}

func (s *Store) array(path string) ([]interface{}, bool) {
	v, ok := Get(s.data, path)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]interface{})
	return arr, ok
}

func (s *Store) setArray(path string, arr []interface{}) {
	Set(s.data, path, arr)
}

// Push appends values to the array at path and emits a splice record.
func (s *Store) Push(path string, values ...interface{}) int {
	path = Normalize(path)
	arr, _ := s.array(path)
	start := len(arr)
	arr = append(arr, values...)
	s.setArray(path, arr)
	s.notifySplices(path, []SpliceRecord{{
		Index: start, AddedCount: len(values), Removed: nil, Object: path, Type: "splice",
	}})
	s.scheduleFlush()
	return len(arr)
}

// Pop removes the last element of the array at path. It is a no-op on an
// empty or missing array.
func (s *Store) Pop(path string) (interface{}, bool) {
	path = Normalize(path)
	arr, ok := s.array(path)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	// The port preserves the source's documented quirk (spec.md §9): the
	// splice index recorded here is the pre-pop length, one past the
	// removed element's real position.
	preLen := len(arr)
	removed := arr[len(arr)-1]
	arr = arr[:len(arr)-1]
	s.setArray(path, arr)
	s.notifySplices(path, []SpliceRecord{{
		Index: preLen, AddedCount: 0, Removed: []interface{}{removed}, Object: path, Type: "splice",
	}})
	s.scheduleFlush()
	return removed, true
}

// Shift removes the first element of the array at path.
func (s *Store) Shift(path string) (interface{}, bool) {
	path = Normalize(path)
	arr, ok := s.array(path)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	removed := arr[0]
	arr = arr[1:]
	s.setArray(path, arr)
	s.notifySplices(path, []SpliceRecord{{
		Index: 0, AddedCount: 0, Removed: []interface{}{removed}, Object: path, Type: "splice",
	}})
	s.scheduleFlush()
	return removed, true
}

// Unshift prepends values to the array at path.
func (s *Store) Unshift(path string, values ...interface{}) int {
	path = Normalize(path)
	arr, _ := s.array(path)
	arr = append(append([]interface{}{}, values...), arr...)
	s.setArray(path, arr)
	s.notifySplices(path, []SpliceRecord{{
		Index: 0, AddedCount: len(values), Removed: nil, Object: path, Type: "splice",
	}})
	s.scheduleFlush()
	return len(arr)
}

// normalizeSpliceStart applies spec.md §4.7's start-index normalization:
// a falsy (zero-value int passed explicitly as 0) start stays 0; negative
// start counts back from the array end, floored at 0; fractional start is
// floored.
func normalizeSpliceStart(start float64, length int) int {
	if start < 0 {
		start = math.Max(0, float64(length)+math.Ceil(-start)*-1)
	}
	return int(math.Floor(start))
}

// Splice removes deleteCount elements at start and inserts items in their
// place, emitting a single splice record.
func (s *Store) Splice(path string, start float64, deleteCount int, items ...interface{}) []interface{} {
	path = Normalize(path)
	arr, _ := s.array(path)
	idx := normalizeSpliceStart(start, len(arr))
	if idx > len(arr) {
		idx = len(arr)
	}
	end := idx + deleteCount
	if end > len(arr) {
		end = len(arr)
	}
	removed := append([]interface{}{}, arr[idx:end]...)

	next := make([]interface{}, 0, len(arr)-len(removed)+len(items))
	next = append(next, arr[:idx]...)
	next = append(next, items...)
	next = append(next, arr[end:]...)
	s.setArray(path, next)

	if len(removed) > 0 || len(items) > 0 {
		s.notifySplices(path, []SpliceRecord{{
			Index: idx, AddedCount: len(items), Removed: removed, Object: path, Type: "splice",
		}})
	}
	s.scheduleFlush()
	return removed
}

// SpliceByValue removes the first occurrence of value from the array at
// path, if present, emitting a splice record.
func (s *Store) SpliceByValue(path string, value interface{}) bool {
	path = Normalize(path)
	arr, ok := s.array(path)
	if !ok {
		return false
	}
	for i, v := range arr {
		if v == value {
			s.Splice(path, float64(i), 1)
			return true
		}
	}
	return false
}

// LinkPaths aliases to and from so that, within a cycle, a write under
// either is mirrored to the other. Passing an empty from deletes the
// alias — the fixed-up behavior of a bug spec.md §9 flags in the source
// (which called linkedPaths(to) as a function in that branch).
func (s *Store) LinkPaths(to, from string) {
	if from == "" {
		delete(s.linkedPaths, to)
		return
	}
	s.linkedPaths[to] = from
}

// UnlinkPaths removes any alias registered for to.
func (s *Store) UnlinkPaths(to string) {
	delete(s.linkedPaths, to)
}

// AddClient registers c to receive a cascaded flush (Stage 3) the next
// time this Store's cycle completes Stage 2.
func (s *Store) AddClient(c flushable) {
	s.pendingClients[c] = true
}

// flushProperties implements the flushable capability so a Store can
// itself be a downstream client of another Store.
func (s *Store) flushProperties(fromAbove bool) {
	s.flush(fromAbove)
}
