package store

import (
	"fmt"
	"strconv"

	"github.com/starkandwayne/goutils/tree"
)

// Normalize accepts a path in either dotted (`a.2.b`) or bracketed
// (`a[2].b`) form and always re-emits dotted form. Parsing goes through
// goutils/tree's Cursor parser — the same parser the teacher project
// feeds every `(( grab a.b ))`/`(( concat a[2] ))` reference through
// before resolving it against a tree — so bracket normalization and
// dotted re-serialization are exactly what tree.ParseCursor/Cursor.String
// already do, not a hand-rolled regexp rewrite.
func Normalize(path string) string {
	c, err := tree.ParseCursor(path)
	if err != nil {
		return path
	}
	return c.String()
}

// NormalizePath joins already-split path parts with ".", via a Cursor
// built directly from the parts (not re-parsed, since a part may itself
// contain dots — e.g. from an array literal ["a.b", "c"] — and must be
// preserved as one node rather than re-split).
func NormalizePath(parts ...interface{}) string {
	segs := make([]string, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case string:
			segs[i] = v
		case int:
			segs[i] = strconv.Itoa(v)
		case float64:
			segs[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			segs[i] = fmt.Sprint(v)
		}
	}
	return (&tree.Cursor{Nodes: segs}).String()
}

// Root returns the first segment of a dotted path.
func Root(path string) string {
	c, err := tree.ParseCursor(path)
	if err != nil || len(c.Nodes) == 0 {
		return path
	}
	return c.Nodes[0]
}

// IsDeep reports whether path has more than one segment.
func IsDeep(path string) bool {
	c, err := tree.ParseCursor(path)
	return err == nil && c.Depth() > 1
}

// IsDescendant reports whether candidate is parent itself or nested under
// it. This is exactly Cursor.Contains's contract — graft's own
// parallel_evaluator.go decides whether two operator outputs overlap with
// the identical `path1.Contains(path2) || path2.Contains(path1)` idiom: a
// cursor "contains" another when the other's nodes are at least as long
// and share its own nodes as a prefix.
func IsDescendant(parent, candidate string) bool {
	pc, err1 := tree.ParseCursor(parent)
	cc, err2 := tree.ParseCursor(candidate)
	if err1 != nil || err2 != nil {
		return false
	}
	return pc.Contains(cc)
}

func splitWildcard(path string) (base string, wildcard bool) {
	if len(path) >= 2 && path[len(path)-2:] == ".*" {
		return path[:len(path)-2], true
	}
	return path, false
}

// Matches reports whether effectPath is triggered by a write observed at
// concretePath. Three cases satisfy it: exact equality; concretePath is an
// ancestor of effectPath (a bulk write to a subtree triggers every
// effect registered below it); or either path is a wildcard (`base.*`)
// whose base is an ancestor of (or equal to) the other path. Ancestry
// itself is decided by Cursor.Contains, not string prefix matching — once
// a path's wildcard suffix (if any) is stripped, its base is exactly the
// non-wildcard cursor Contains already knows how to compare.
func Matches(effectPath, concretePath string) bool {
	if effectPath == concretePath {
		return true
	}
	effBase, effWild := splitWildcard(effectPath)
	conBase, conWild := splitWildcard(concretePath)

	effC, err1 := tree.ParseCursor(effBase)
	conC, err2 := tree.ParseCursor(conBase)
	if err1 != nil || err2 != nil {
		return false
	}

	if effWild && effC.Contains(conC) {
		return true
	}
	if conWild && conC.Contains(effC) {
		return true
	}
	if !effWild && !conWild && conC.Contains(effC) {
		return true
	}
	return false
}

// Translate rewrites a leading fromPrefix in path to toPrefix, preserving
// trailing segments. Paths that do not fall under fromPrefix are returned
// unchanged.
func Translate(fromPrefix, toPrefix, path string) string {
	fromC, err1 := tree.ParseCursor(fromPrefix)
	toC, err2 := tree.ParseCursor(toPrefix)
	pathC, err3 := tree.ParseCursor(path)
	if err1 != nil || err2 != nil || err3 != nil || !fromC.Contains(pathC) {
		return path
	}
	nodes := append(append([]string{}, toC.Nodes...), pathC.Nodes[len(fromC.Nodes):]...)
	return (&tree.Cursor{Nodes: nodes}).String()
}

// step advances cur by one path segment, for Set's write-side walk below.
// Maps index by key; slices index numerically and never grow — an
// out-of-range index is a miss, not a panic, the same "missing
// intermediate segment" no-op spec.md prescribes for object traversal
// (and, incidentally, the natural resolution of the stale-array-reference
// open question: Go slices cannot grow via out-of-bounds index
// assignment, so such a write is simply refused).
func step(cur interface{}, seg string) (interface{}, bool) {
	switch c := cur.(type) {
	case map[string]interface{}:
		v, ok := c[seg]
		return v, ok
	case []interface{}:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}

// Get reads path against root, a tree of nested map[string]interface{} and
// []interface{} values keyed at the top level by property name. Structural
// resolution is delegated to Cursor.Resolve — the same call graft's
// op_calc_enhanced.go and op_grab.go make to read a reference out of the
// evaluated tree — so a missing map key or an out-of-range slice index is
// reported as Cursor's own NotFoundError rather than a hand-rolled miss.
//
// root may also hold flat entries whose key is itself a multi-segment
// path string — synthetic bookkeeping paths such as "tourists.splices"
// (not a real field of the tourists array) and linked-path mirror targets
// (store.mirrorLinkedPaths writes its translated path as a flat key,
// since the mirror's root container may not itself be a real nested
// map). A literal flat entry for the whole path always takes precedence
// over a Cursor-resolved structural walk.
//
// A nil value, whether from a genuinely missing segment or from a
// property explicitly assigned nil, is always reported as (nil, false):
// this collapses the source's undefined/null distinction into Go's single
// nil, there being no call in this domain for a value that is "present
// but nothing."
func Get(root map[string]interface{}, path string) (interface{}, bool) {
	if v, ok := root[path]; ok {
		if v == nil {
			return nil, false
		}
		return v, true
	}

	c, err := tree.ParseCursor(path)
	if err != nil {
		return nil, false
	}
	v, err := c.Resolve(root)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// Set walks all but the last segment of path, then assigns the leaf in
// place. Parsing the path into segments still goes through
// tree.ParseCursor, so bracket and dotted forms are accepted identically
// to every read — but the walk-and-assign itself is hand-rolled:
// goutils/tree's Cursor is a read-only navigational type (Resolve,
// Canonical and Glob all walk a tree; none of them mutate one). Graft's
// own mutable tree type, COWTree.setInternalNode in the teacher repo's
// copy_on_write_tree.go, hand-rolls this identical per-segment map/slice
// assignment rather than asking Cursor to do it, which is the precedent
// this function follows. It returns ("", false) the moment an
// intermediate segment is missing or a leaf container refuses the
// assignment (e.g. an out-of-range slice index); the caller treats that
// as a silent no-op.
func Set(root map[string]interface{}, path string, value interface{}) (string, bool) {
	c, err := tree.ParseCursor(path)
	if err != nil || len(c.Nodes) == 0 {
		return "", false
	}
	segs := c.Nodes
	if len(segs) == 1 {
		root[segs[0]] = value
		return path, true
	}
	cur, ok := root[segs[0]]
	if !ok {
		return "", false
	}
	for _, seg := range segs[1 : len(segs)-1] {
		cur, ok = step(cur, seg)
		if !ok {
			return "", false
		}
	}
	last := segs[len(segs)-1]
	switch c := cur.(type) {
	case map[string]interface{}:
		c[last] = value
		return path, true
	case []interface{}:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(c) {
			return "", false
		}
		c[idx] = value
		return path, true
	default:
		return "", false
	}
}
