package store

import "sort"

// EffectType buckets effects by how the pipeline dispatches them.
type EffectType int

const (
	// EffectAny is the union bucket: every effect registered for a
	// property, regardless of type, also lands here.
	EffectAny EffectType = iota
	EffectCompute
	EffectObserve
	EffectReadOnly
)

// EffectInfo carries the method-call metadata a COMPUTE or OBSERVE effect
// needs at dispatch time.
type EffectInfo struct {
	MethodName   string
	Args         []ArgDesc
	ResultTarget string
	// Computed is set instead of MethodName/Args for "=expr" form computed
	// properties.
	Computed *ComputedExpr
	// Simple marks an observer registered as a bare method name (no
	// signature): it is always called as fn(newValue, oldValue, path)
	// rather than with a marshalled argument vector.
	Simple bool
	// LastRun is the pass counter stamp that keeps Stage 1 from running
	// the same effect twice within one fixpoint pass.
	LastRun int
}

// Effect is one registered trigger→action binding.
type Effect struct {
	Type EffectType
	// Path is the path this effect is registered under (for COMPUTE, a
	// trigger: a dependency's root, the method name, or for "=expr" form
	// also the target itself; the target property for READ_ONLY; the
	// observed property for OBSERVE).
	Path string
	Info *EffectInfo
}

// EffectRegistry maps type → rootProperty → effect list, with a union
// bucket under EffectAny, mirroring the teacher project's OperatorRegistry
// shape. NewStoreFromBase clones a parent Store's registry copy-on-write so
// that per-instance effect additions never leak upward.
type EffectRegistry struct {
	byType map[EffectType]map[string][]*Effect
}

// NewEffectRegistry returns an empty registry.
func NewEffectRegistry() *EffectRegistry {
	return &EffectRegistry{
		byType: map[EffectType]map[string][]*Effect{
			EffectAny:      {},
			EffectCompute:  {},
			EffectObserve:  {},
			EffectReadOnly: {},
		},
	}
}

// AddEffect registers an effect on the root of path, under both its own
// type bucket and the ANY union bucket.
func (r *EffectRegistry) AddEffect(path string, t EffectType, info *EffectInfo) *Effect {
	root := Root(path)
	eff := &Effect{Type: t, Path: path, Info: info}
	r.byType[EffectAny][root] = append(r.byType[EffectAny][root], eff)
	if t != EffectAny {
		r.byType[t][root] = append(r.byType[t][root], eff)
	}
	return eff
}

// HasEffect reports whether property has any registered effect of type t.
func (r *EffectRegistry) HasEffect(property string, t EffectType) bool {
	return len(r.byType[t][property]) > 0
}

// HasReadOnly is a shortcut for HasEffect(property, EffectReadOnly).
func (r *EffectRegistry) HasReadOnly(property string) bool {
	return r.HasEffect(property, EffectReadOnly)
}

// HasCompute is a shortcut for HasEffect(property, EffectCompute).
func (r *EffectRegistry) HasCompute(property string) bool {
	return r.HasEffect(property, EffectCompute)
}

// EffectsFor returns the effects of type t registered under property's
// root, in registration order.
func (r *EffectRegistry) EffectsFor(property string, t EffectType) []*Effect {
	return r.byType[t][property]
}

// Clone performs a copy-on-write clone: every bucket map and effect slice
// is shallow-copied so that mutating the clone (adding an effect) never
// mutates the parent registry it was cloned from.
func (r *EffectRegistry) Clone() *EffectRegistry {
	clone := NewEffectRegistry()
	for t, buckets := range r.byType {
		nb := make(map[string][]*Effect, len(buckets))
		for root, effects := range buckets {
			cp := make([]*Effect, len(effects))
			copy(cp, effects)
			nb[root] = cp
		}
		clone.byType[t] = nb
	}
	return clone
}

// ValidateAcyclic walks the COMPUTE-effect subgraph — root property →
// root properties of its non-literal dependencies — with the same
// free-node-peeling (Kahn's algorithm) cycle check the teacher project's
// Evaluator.DataFlow runs over its operator data-flow graph, except this
// runs once at Store construction rather than once per flush. A cycle
// here surfaces immediately as ComputedCycle instead of waiting for Stage
// 1's iteration-bound fallback.
func (r *EffectRegistry) ValidateAcyclic() error {
	// A COMPUTE *EffectInfo is registered under several trigger roots (its
	// method name, or for "=expr" form its own ResultTarget, plus every
	// dependency root, so Stage 1 can find it
	// from whichever side changed); walking the registry bucket-by-bucket
	// would misread a dependency's own registration as if that
	// dependency's *trigger set* were its *dependency set*. Dedup by
	// EffectInfo pointer first and derive each edge from ResultTarget,
	// which names the one property this effect actually computes.
	seen := map[*EffectInfo]bool{}
	deps := map[string]map[string]bool{}
	for _, effects := range r.byType[EffectCompute] {
		for _, eff := range effects {
			if eff.Info == nil || seen[eff.Info] {
				continue
			}
			seen[eff.Info] = true
			root := eff.Info.ResultTarget
			if root == "" {
				continue
			}
			set := deps[root]
			if set == nil {
				set = map[string]bool{}
				deps[root] = set
			}
			for _, a := range eff.Info.Args {
				if !a.Literal && a.RootProperty != "" && a.RootProperty != root {
					set[a.RootProperty] = true
				}
			}
			if eff.Info.Computed != nil {
				for _, d := range eff.Info.Computed.Dependencies {
					if d != root {
						set[d] = true
					}
				}
			}
		}
	}

	nodes := map[string]bool{}
	for root, set := range deps {
		nodes[root] = true
		for d := range set {
			nodes[d] = true
		}
	}

	indegree := make(map[string]int, len(nodes))
	adj := map[string][]string{}
	for n := range nodes {
		indegree[n] = 0
	}
	for root, set := range deps {
		for d := range set {
			adj[d] = append(adj[d], root)
			indegree[root]++
		}
	}

	var free []string
	for n := range nodes {
		if indegree[n] == 0 {
			free = append(free, n)
		}
	}
	sort.Strings(free)

	visited := 0
	for len(free) > 0 {
		n := free[0]
		free = free[1:]
		visited++
		var unlocked []string
		for _, m := range adj[n] {
			indegree[m]--
			if indegree[m] == 0 {
				unlocked = append(unlocked, m)
			}
		}
		sort.Strings(unlocked)
		free = append(free, unlocked...)
	}

	if visited != len(nodes) {
		var cyclic []string
		for n, d := range indegree {
			if d > 0 {
				cyclic = append(cyclic, n)
			}
		}
		sort.Strings(cyclic)
		return NewComputedCycleError(cyclic)
	}
	return nil
}
