// Package store implements a reactive observable Store: a container of
// named properties wired together by computed expressions and observers,
// propagated through a single batched change cycle per flush.
package store

import (
	"strings"

	"github.com/IvanRave/propstore/internal/logx"
)

// Method is the callable shape every entry in a Store's method table has.
// Computed and method-form observer effects marshal their argument vector
// and call the method positionally; simple (bare-name) observers are
// always invoked as fn(newValue, oldValue, path).
type Method func(args ...interface{}) interface{}

// PropertyConfig is one property's declared metadata.
type PropertyConfig struct {
	// Type is an opaque type marker, carried for external consumers but
	// never interpreted by the store.
	Type string
	ReadOnly bool
	// Computed is either a "method(args...)" signature or, if it begins
	// with "=", a govaluate arithmetic/boolean expression over sibling
	// properties. Setting Computed forces ReadOnly.
	Computed string
	// Observer is the name of a method invoked on change: a bare name
	// calls fn(newValue, oldValue, path); a "method(args...)" signature
	// calls fn with a marshalled argument vector instead.
	Observer string
}

// PropertyDecl pairs a property name with its configuration. Properties is
// a slice rather than a map so that declaration order — which determines
// effect-registration order — is explicit and reproducible.
type PropertyDecl struct {
	Name string
	PropertyConfig
}

// Properties is an ordered list of property declarations.
type Properties []PropertyDecl

// Methods is the name→callable table passed to NewStore; its entries are
// copied onto the Store so method observers/computeds resolve by name.
type Methods map[string]Method

// flushable is the capability a downstream client must expose to receive
// a cascaded flush (Stage 3). It is the injection point spec.md's
// _flushClients leaves for host-framework child-component wiring.
type flushable interface {
	flushProperties(fromAbove bool)
}

// Store is a reactive property container: declared properties form a
// dependency graph through computed expressions and observers, and every
// public mutation is propagated to a steady state by a single flush.
type Store struct {
	registry *EffectRegistry
	methods  map[string]Method
	props    map[string]PropertyConfig
	// order is every declared property name in declaration order, used by
	// ToJSON/ToYAML to emit a deterministic, declaration-ordered document
	// instead of Go's randomized map iteration order.
	order []string

	// data holds the current value of every root property, plus a flat
	// entry for every deeper path written through the change cycle (reads
	// never add entries); nested
	// containers are map[string]interface{} / []interface{}.
	data map[string]interface{}

	pending map[string]interface{}
	old     map[string]interface{}

	invalid     bool
	initialized bool
	fromAbove   bool

	// linkedPaths maps to → from; Stage 2 treats every entry as a
	// symmetric alias pair and mirrors writes in both directions.
	linkedPaths map[string]string

	pendingClients map[flushable]bool

	// changeOrder/changeSeen/changeValues track every path that changed
	// during the in-flight cycle, in first-changed order, across every
	// Stage 1 pass and Stage 2's linked-path mirror. Stage 4 (observers)
	// dispatches in this order so that, e.g., a chain of computed
	// properties observes in dependency order rather than map-iteration
	// or alphabetical order.
	changeOrder  []string
	changeSeen   map[string]bool
	changeValues map[string]interface{}

	// dispatched records every (*EffectInfo, path) pair Stage 4 has already
	// invoked during the in-flight flush, across every reentrant pass —
	// changeOrder/changeSeen accumulate for the whole flush and are only
	// cleared at Stage 6, so without this a reentrant write that reopens
	// the outer loop would see dispatchObservers walk the same earlier
	// entries again with a fresh per-call dedup set and redispatch an
	// observer whose property never changed a second time.
	dispatched map[observerDispatchKey]bool

	// runID counts flush() calls that start a cycle. Go's call stack already gives
	// reentrancy its ordering for free — a write made inside an observer
	// calls setPending synchronously and flush() simply notices fresh
	// pending data once the in-progress cycle's observer stage returns —
	// so runID here is retained as a diagnostic/debug counter rather than
	// spec.md's interim/interimOld merge-buffer mechanism, which existed
	// to reassemble a cycle split across separate microtask turns: a
	// situation Go's synchronous, single-threaded flush loop never
	// produces.
	runID    int
	inFlight bool
	passSeq  int

	asyncEffects bool
	logger       logx.Logger
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithLogger overrides the default stderr diagnostic channel.
func WithLogger(l logx.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithAsyncEffects sets the asyncEffects flag; the scheduling decision
// itself (deferred vs immediate flush) is left to the embedding
// application, which is expected to call Flush() when it is ready to
// drain a deferred cycle. Synchronous (the default) flushes immediately
// on every public boundary once Ready has been called.
func WithAsyncEffects(async bool) Option {
	return func(s *Store) { s.asyncEffects = async }
}

// NewStore constructs a Store from a property declaration and a method
// table, registering effects in declaration order exactly as spec.md §4.8
// describes.
func NewStore(properties Properties, methods Methods, opts ...Option) (*Store, error) {
	s := &Store{
		registry:       NewEffectRegistry(),
		methods:        map[string]Method(methods),
		props:          map[string]PropertyConfig{},
		data:           map[string]interface{}{},
		linkedPaths:    map[string]string{},
		pendingClients: map[flushable]bool{},
		asyncEffects:   false,
		logger:         logx.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, decl := range properties {
		cfg := decl.PropertyConfig
		name := decl.Name

		if cfg.Computed != "" {
			cfg.ReadOnly = true
		}
		s.props[name] = cfg
		s.order = append(s.order, name)

		if cfg.Computed != "" && !s.registry.HasReadOnly(name) {
			if err := s.registerComputed(name, cfg.Computed); err != nil {
				return nil, err
			}
		}

		if cfg.ReadOnly && !s.registry.HasReadOnly(name) {
			s.registry.AddEffect(name, EffectReadOnly, &EffectInfo{})
		}

		if cfg.Observer != "" {
			if err := s.registerObserver(name, cfg.Observer, cfg.Type); err != nil {
				return nil, err
			}
		}
	}

	if err := s.registry.ValidateAcyclic(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreFromBase constructs a Store that inherits base's registry: it
// builds this Store's own registry from properties, then clones base's
// registry at construction time and appends this Store's effects to the
// clone, so base's effects are visible immediately and additions never
// leak back into base. This is the port's collapse of spec.md §9's
// "copy-on-write registry inheritance" design note onto Go's lack of a
// subclassing story — an eager clone rather than a kept base pointer.
func NewStoreFromBase(base *Store, properties Properties, methods Methods, opts ...Option) (*Store, error) {
	s, err := NewStore(properties, methods, opts...)
	if err != nil {
		return nil, err
	}
	merged := base.registry.Clone()
	for t, buckets := range s.registry.byType {
		for root, effects := range buckets {
			merged.byType[t][root] = append(merged.byType[t][root], effects...)
		}
	}
	s.registry = merged
	if err := s.registry.ValidateAcyclic(); err != nil {
		return nil, err
	}
	return s, nil
}

func capitalize(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// internalSetterName is the "_set<Name>" internal accessor spec.md §4.8
// prescribes for read-only, non-computed properties. Go has no dynamic
// per-instance method synthesis, so rather than fabricate one closure per
// property this name is purely documentary; SetInternal is the single
// generic entry point a trusted caller uses to bypass the read-only
// public-write rejection.
func internalSetterName(property string) string {
	return "_set" + capitalize(property)
}

func (s *Store) registerComputed(name, expr string) error {
	if strings.HasPrefix(expr, "=") {
		ce, err := ParseComputedExpr(expr)
		if err != nil {
			return err
		}
		info := &EffectInfo{Computed: ce, ResultTarget: name}
		s.registry.AddEffect(name, EffectCompute, info)
		for _, dep := range ce.Dependencies {
			if dep != name {
				s.registry.AddEffect(dep, EffectCompute, info)
			}
		}
		if ce.Static() {
			return s.runStaticComputed(name, info)
		}
		return nil
	}

	sig, err := ParseExpression(expr)
	if err != nil {
		return err
	}
	info := &EffectInfo{MethodName: sig.MethodName, Args: sig.Args, ResultTarget: name}
	for _, a := range sig.Args {
		if !a.Literal && a.RootProperty != "" && a.RootProperty != name {
			s.registry.AddEffect(a.RootProperty, EffectCompute, info)
		}
	}
	s.registry.AddEffect(sig.MethodName, EffectCompute, info)

	if sig.Static {
		return s.runStaticComputed(name, info)
	}
	return nil
}

func (s *Store) runStaticComputed(name string, info *EffectInfo) error {
	result, err := s.evaluateComputed(info)
	if err != nil {
		return err
	}
	s.data[name] = result
	return nil
}

func (s *Store) registerObserver(name, observer, typ string) error {
	if strings.Contains(observer, "(") {
		sig, err := ParseExpression(observer)
		if err != nil {
			return err
		}
		s.registry.AddEffect(name, EffectObserve, &EffectInfo{MethodName: sig.MethodName, Args: sig.Args})
		return nil
	}
	info := &EffectInfo{MethodName: observer, Simple: true}
	s.registry.AddEffect(name, EffectObserve, info)
	// spec.md §8 property 5 is explicit that a plain (non-wildcard)
	// observer does not fire on a.b writes — but an Array-typed property's
	// own index writes and its ".splices"/".length" bookkeeping (§4.7) are
	// exactly the "a.b writes" a wildcard observer on "a.*" is described as
	// covering. Registering the same EffectInfo under the wildcard form
	// too, for Array properties only, satisfies both halves of property 5
	// at once instead of weakening Matches' exact-path rule for every
	// property.
	if strings.EqualFold(typ, "Array") {
		s.registry.AddEffect(name+".*", EffectObserve, info)
	}
	return nil
}

// SetInternal bypasses the read-only public-write rejection by routing
// through setPropertyFromComputation, the same call computed effects use
// to land their result; it is exported for any trusted caller that needs
// to seed a read-only property directly.
func (s *Store) SetInternal(property string, value interface{}) {
	s.setPropertyFromComputation(property, value)
}

// InternalSetterName returns the documentary "_set<Name>" accessor name
// spec.md §4.8 prescribes for a read-only, non-computed property.
// SetInternal is the callable every such name ultimately refers to.
func (s *Store) InternalSetterName(property string) string {
	return internalSetterName(property)
}

// Ready marks the Store initialized. If writes were buffered before this
// call (the normal case for construction-time initial values), the first
// flush runs now.
func (s *Store) Ready() {
	s.initialized = true
	if s.pending != nil {
		s.flush(false)
	}
}
