package store

import "sort"

// maxComputeIterations bounds the Stage 1 fixpoint loop. Registration-time
// ValidateAcyclic already rejects a cyclic computed graph, so this bound
// is the documented defense-in-depth fallback spec.md §4.6 asks for
// ("detect them … or bound iterations"), not the primary defense.
const maxComputeIterations = 100

// flush runs one full change cycle to steady state: Stage 1's compute
// fixpoint, Stage 2's linked-path mirror, Stage 3's client cascade, and
// Stage 4's observer dispatch, then resets. fromAbove marks a cycle
// triggered by a parent's cascade; it is recorded on the Store for the
// cycle's duration and no stage reads it.
//
// Reentrancy: a write made from inside an observer calls setPending
// synchronously, which leaves fresh data in s.pending. Because s.inFlight
// is already true at that point, a nested call to flush is a no-op — it
// returns immediately, and the outer loop below notices s.pending is
// non-nil after dispatching observers and runs another round rather than
// resetting. The outermost call is always the one that commits Stage 6.
func (s *Store) flush(fromAbove bool) {
	if !s.initialized {
		return
	}
	if s.inFlight {
		return
	}
	if s.pending == nil {
		return
	}

	s.runID++
	s.inFlight = true
	s.fromAbove = fromAbove
	defer func() { s.inFlight = false }()

	for s.pending != nil {
		if err := s.runComputeFixpoint(); err != nil {
			s.resetCycleState()
			s.logger.Warnf("%v", err)
			return
		}

		s.mirrorLinkedPaths()
		s.cascadeClients()
		s.dispatchObservers()
	}

	s.resetCycleState()
}

// runComputeFixpoint is Stage 1: it repeatedly runs every COMPUTE effect
// whose trigger property changed, folding each pass's output into the
// next pass's input, until a pass produces no further pending writes.
// Every path touched, in every pass, is appended to s.changeOrder via
// setPending/recordChange so later stages dispatch in dependency order
// rather than map-iteration order.
func (s *Store) runComputeFixpoint() error {
	passInput := s.pending
	s.pending = nil

	for iteration := 0; len(passInput) > 0; iteration++ {
		if iteration >= maxComputeIterations {
			return NewComputedCycleError(nil)
		}

		s.passSeq++
		pass := s.passSeq

		roots := make([]string, 0, len(passInput))
		for p := range passInput {
			roots = append(roots, p)
		}
		sort.Strings(roots)

		for _, p := range roots {
			root := Root(p)
			for _, eff := range s.registry.EffectsFor(root, EffectCompute) {
				if eff.Info.LastRun == pass {
					continue
				}
				eff.Info.LastRun = pass

				result, err := s.evaluateComputed(eff.Info)
				if err != nil {
					return err
				}
				s.setPropertyFromComputation(eff.Info.ResultTarget, result)
			}
		}

		passInput = s.pending
		s.pending = nil
	}

	return nil
}

// evaluateComputed dispatches one COMPUTE effect: either a govaluate
// expression, or a named method called with a marshalled argument
// vector built from the paths changed so far this cycle (for wildcard
// args) and the current data tree (for plain path args).
func (s *Store) evaluateComputed(info *EffectInfo) (interface{}, error) {
	if info.Computed != nil {
		return info.Computed.Evaluate(s.data)
	}
	fn, ok := s.methods[info.MethodName]
	if !ok {
		s.logger.Warnf("missing method %q", info.MethodName)
		return nil, nil
	}
	return fn(s.marshalArgs(info.Args)...), nil
}

// marshalArgs builds the positional call arguments for a method-form
// effect: literals pass through verbatim, plain path args resolve against
// the live data tree, and wildcard args ("a.*") deliver every path that
// has changed so far this cycle under their base as a {path, value, base}
// descriptor.
func (s *Store) marshalArgs(args []ArgDesc) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		switch {
		case a.Literal:
			out[i] = a.Value
		case a.Wildcard:
			out[i] = s.wildcardDescriptors(a.Name)
		default:
			v, _ := Get(s.data, a.Name)
			out[i] = v
		}
	}
	return out
}

// WildcardEntry is the {path, value, base} descriptor delivered to a
// method-form effect for each changed entry under a wildcard argument.
type WildcardEntry struct {
	Path  string
	Value interface{}
	Base  string
}

func (s *Store) wildcardDescriptors(base string) []WildcardEntry {
	out := make([]WildcardEntry, 0, len(s.changeOrder))
	for _, p := range s.changeOrder {
		if IsDescendant(base, p) {
			out = append(out, WildcardEntry{Path: p, Value: s.changeValues[p], Base: base})
		}
	}
	return out
}

// mirrorLinkedPaths is Stage 2: every changed path under one side of a
// linked-path alias is mirrored to the equivalent path under the other
// side, both directions, within the same cycle.
func (s *Store) mirrorLinkedPaths() {
	if len(s.linkedPaths) == 0 {
		return
	}

	// Snapshot the order before mirroring appends new entries to it.
	paths := append([]string(nil), s.changeOrder...)

	for a, b := range s.linkedPaths {
		for _, p := range paths {
			v := s.changeValues[p]
			if IsDescendant(a, p) {
				q := Translate(a, b, p)
				s.data[q] = cloneValue(v)
				s.recordChange(q, v)
			}
			if IsDescendant(b, p) {
				q := Translate(b, a, p)
				s.data[q] = cloneValue(v)
				s.recordChange(q, v)
			}
		}
	}
}

// cascadeClients is Stage 3: every registered downstream client is given
// a chance to flush with fromAbove=true, then the set is cleared.
func (s *Store) cascadeClients() {
	if len(s.pendingClients) == 0 {
		return
	}
	for c := range s.pendingClients {
		c.flushProperties(true)
	}
	s.pendingClients = map[flushable]bool{}
}

// observerDispatchKey identifies one (effect, changed path) dispatch
// within a single flush, so a reentrant pass that re-walks an earlier
// entry in s.changeOrder does not re-invoke an observer whose property
// did not change again in the new pass.
type observerDispatchKey struct {
	info *EffectInfo
	path string
}

// dispatchObservers is Stage 4: every OBSERVE effect registered on a
// changed property is invoked, in change order, with either the simple
// (value, oldValue, path) signature or a marshalled argument vector for a
// method-form observer.
//
// A bare-name observer on an Array-typed property is additionally
// registered under the wildcard "<name>.*" (see registerObserver), so its
// one *EffectInfo is reachable both by its exact name and by Matches'
// wildcard branch for any sub-path write (".splices", ".length", a numeric
// index). Deduping by EffectInfo within a single changed path collapses a
// bulk replace of the whole array — which matches both registrations at
// once — back to a single call, while two distinct changed paths
// (".splices" and ".length" on one push, for instance) still each
// dispatch separately.
func (s *Store) dispatchObservers() {
	if s.dispatched == nil {
		s.dispatched = map[observerDispatchKey]bool{}
	}
	for _, p := range s.changeOrder {
		root := Root(p)
		firedThisPath := map[*EffectInfo]bool{}
		for _, eff := range s.registry.EffectsFor(root, EffectObserve) {
			if !Matches(eff.Path, p) || firedThisPath[eff.Info] {
				continue
			}
			firedThisPath[eff.Info] = true

			key := observerDispatchKey{info: eff.Info, path: p}
			if s.dispatched[key] {
				continue
			}
			s.dispatched[key] = true
			s.runObserver(eff.Info, p)
		}
	}
}

func (s *Store) runObserver(info *EffectInfo, path string) {
	fn, ok := s.methods[info.MethodName]
	if !ok {
		s.logger.Warnf("missing observer method %q", info.MethodName)
		return
	}
	if info.Simple {
		fn(s.data[path], s.old[path], path)
		return
	}
	fn(s.marshalArgs(info.Args)...)
}

// resetCycleState is Stage 6: clear every per-cycle buffer and mark the
// cycle no longer in flight.
func (s *Store) resetCycleState() {
	s.pending = nil
	s.old = nil
	s.invalid = false
	s.fromAbove = false
	s.changeOrder = nil
	s.changeSeen = nil
	s.changeValues = nil
	s.dispatched = nil
}
