package store

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"a.b.c", "a.b.c"},
		{"a[2].b", "a.2.b"},
		{"tourists[0]", "tourists.0"},
		{"a[1][2]", "a.1.2"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRootAndIsDeep(t *testing.T) {
	if Root("a.b.c") != "a" {
		t.Errorf("Root: want a")
	}
	if Root("a") != "a" {
		t.Errorf("Root: want a for bare name")
	}
	if !IsDeep("a.b") || IsDeep("a") {
		t.Errorf("IsDeep mismatch")
	}
}

func TestIsDescendant(t *testing.T) {
	cases := []struct {
		parent, candidate string
		want              bool
	}{
		{"a", "a", true},
		{"a", "a.b", true},
		{"a", "a.b.c", true},
		{"a", "ab", false},
		{"a.b", "a", false},
	}
	for _, c := range cases {
		if got := IsDescendant(c.parent, c.candidate); got != c.want {
			t.Errorf("IsDescendant(%q,%q) = %v, want %v", c.parent, c.candidate, got, c.want)
		}
	}
}

// TestMatches covers testable property 5: a wildcard observer on a.* fires
// for both a.b writes and a subtree replacement at a; a plain observer on a
// fires on a writes but not on a.b writes.
func TestMatches(t *testing.T) {
	cases := []struct {
		effectPath, concretePath string
		want                     bool
	}{
		{"a", "a", true},
		{"a", "a.b", false},
		{"a.*", "a.b", true},
		{"a.*", "a", true},
		{"a.b", "a", true},
		{"a.b.c", "a", true},
		{"a", "a.b.c", false},
	}
	for _, c := range cases {
		if got := Matches(c.effectPath, c.concretePath); got != c.want {
			t.Errorf("Matches(%q,%q) = %v, want %v", c.effectPath, c.concretePath, got, c.want)
		}
	}
}

func TestTranslate(t *testing.T) {
	if got := Translate("x", "y", "x.sub"); got != "y.sub" {
		t.Errorf("Translate x.sub = %q, want y.sub", got)
	}
	if got := Translate("x", "y", "x"); got != "y" {
		t.Errorf("Translate x = %q, want y", got)
	}
	if got := Translate("x", "y", "z.sub"); got != "z.sub" {
		t.Errorf("Translate unrelated path should pass through unchanged, got %q", got)
	}
}

func TestGetSet(t *testing.T) {
	root := map[string]interface{}{
		"tourists": []interface{}{float64(234)},
		"nested":   map[string]interface{}{"a": 1},
	}

	if v, ok := Get(root, "nested.a"); !ok || v != 1 {
		t.Errorf("Get nested.a = %v,%v want 1,true", v, ok)
	}
	if _, ok := Get(root, "missing.a"); ok {
		t.Errorf("Get on missing root should report ok=false")
	}
	if _, ok := Get(root, "tourists.5"); ok {
		t.Errorf("Get on out-of-range index should report ok=false")
	}

	if path, ok := Set(root, "tourists.0", 99); !ok || path != "tourists.0" {
		t.Errorf("Set in-bounds index should succeed")
	}
	if v, _ := Get(root, "tourists.0"); v != 99 {
		t.Errorf("Set in-bounds index did not take effect, got %v", v)
	}

	// A stale/out-of-range array index write is a silent no-op, not a panic
	// — the natural resolution of the "stale array reference" open question.
	if _, ok := Set(root, "tourists.2", 1); ok {
		t.Errorf("Set out-of-range index should no-op")
	}
}
