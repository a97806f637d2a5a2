package store

import "testing"

func TestEffectRegistryAddAndLookup(t *testing.T) {
	r := NewEffectRegistry()
	info := &EffectInfo{MethodName: "_onChange"}
	r.AddEffect("firstName", EffectObserve, info)

	if !r.HasEffect("firstName", EffectObserve) {
		t.Errorf("expected an OBSERVE effect on firstName")
	}
	if !r.HasEffect("firstName", EffectAny) {
		t.Errorf("expected firstName to also appear in the ANY union bucket")
	}
	if r.HasEffect("lastName", EffectObserve) {
		t.Errorf("lastName should have no registered effect")
	}
	effects := r.EffectsFor("firstName", EffectObserve)
	if len(effects) != 1 || effects[0].Info != info {
		t.Fatalf("unexpected effects: %+v", effects)
	}
}

func TestEffectRegistryCloneIsCopyOnWrite(t *testing.T) {
	base := NewEffectRegistry()
	base.AddEffect("a", EffectReadOnly, &EffectInfo{})

	clone := base.Clone()
	clone.AddEffect("b", EffectReadOnly, &EffectInfo{})

	if base.HasReadOnly("b") {
		t.Errorf("mutating the clone must not leak back into base")
	}
	if !clone.HasReadOnly("a") {
		t.Errorf("clone should still see effects present at clone time")
	}
}

func TestValidateAcyclicAcceptsChain(t *testing.T) {
	r := NewEffectRegistry()
	// fullName depends on firstName,lastName; isNameValid depends on fullName.
	fullNameInfo := &EffectInfo{MethodName: "_computeFullName", ResultTarget: "fullName", Args: []ArgDesc{
		{Name: "firstName", RootProperty: "firstName"},
		{Name: "lastName", RootProperty: "lastName"},
	}}
	r.AddEffect("fullName", EffectCompute, fullNameInfo)
	r.AddEffect("firstName", EffectCompute, fullNameInfo)
	r.AddEffect("lastName", EffectCompute, fullNameInfo)

	validInfo := &EffectInfo{MethodName: "_computeIsNameValid", ResultTarget: "isNameValid", Args: []ArgDesc{
		{Name: "fullName", RootProperty: "fullName"},
	}}
	r.AddEffect("isNameValid", EffectCompute, validInfo)
	r.AddEffect("fullName", EffectCompute, validInfo)

	if err := r.ValidateAcyclic(); err != nil {
		t.Errorf("a dependency chain with no cycle should validate cleanly, got %v", err)
	}
}

func TestValidateAcyclicRejectsCycle(t *testing.T) {
	r := NewEffectRegistry()
	aInfo := &EffectInfo{ResultTarget: "a", Args: []ArgDesc{{Name: "b", RootProperty: "b"}}}
	bInfo := &EffectInfo{ResultTarget: "b", Args: []ArgDesc{{Name: "a", RootProperty: "a"}}}
	r.AddEffect("a", EffectCompute, aInfo)
	r.AddEffect("b", EffectCompute, aInfo)
	r.AddEffect("b", EffectCompute, bInfo)
	r.AddEffect("a", EffectCompute, bInfo)

	err := r.ValidateAcyclic()
	if err == nil {
		t.Fatal("a->b->a cycle should be rejected")
	}
	if KindOf(err) != KindComputedCycle {
		t.Errorf("error kind = %v, want %v", KindOf(err), KindComputedCycle)
	}
}

// TestValidateAcyclicDoesNotMisreadTriggerBuckets guards against a registry
// walk that reads a dependency's own trigger-bucket registration as if it
// were that dependency's dependency set. b is a's dependency but has no
// computed effect of its own, so registering a's EffectInfo under both
// roots must not fabricate an edge out of b.
func TestValidateAcyclicDoesNotMisreadTriggerBuckets(t *testing.T) {
	r := NewEffectRegistry()
	info := &EffectInfo{ResultTarget: "a", Args: []ArgDesc{{Name: "b", RootProperty: "b"}, {Name: "c", RootProperty: "c"}}}
	r.AddEffect("a", EffectCompute, info)
	r.AddEffect("b", EffectCompute, info)
	r.AddEffect("c", EffectCompute, info)

	if err := r.ValidateAcyclic(); err != nil {
		t.Errorf("single-effect multi-trigger registration should never look cyclic, got %v", err)
	}
}
