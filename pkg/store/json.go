package store

import (
	"sort"

	ojson "github.com/virtuald/go-ordered-json"
	"gopkg.in/yaml.v3"
)

// snapshot builds an ordered view of the current data: declared
// properties first, in declaration order, followed by any array
// bookkeeping or deep-path cache entries, sorted, so a diff between two
// snapshots is stable.
func (s *Store) snapshot() *ojson.OrderedMap {
	om := ojson.NewOrderedMap()
	seen := map[string]bool{}
	for _, name := range s.order {
		om.Set(name, s.data[name])
		seen[name] = true
	}
	for _, extra := range sortedExtraKeys(s.data, seen) {
		om.Set(extra, s.data[extra])
	}
	return om
}

func sortedExtraKeys(data map[string]interface{}, seen map[string]bool) []string {
	var extra []string
	for k := range data {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}

// ToJSON snapshots the current data, in property declaration order, as
// ordered-JSON — grounded on the teacher project's document.go ToJSON,
// whose go-ordered-json usage this mirrors so property order survives
// round-tripping rather than scrambling under Go's map iteration.
func (s *Store) ToJSON() ([]byte, error) {
	return ojson.Marshal(s.snapshot())
}

// ToYAML renders the same ordered snapshot as YAML, built directly from
// the declaration-ordered (name, value) pairs rather than by round-
// tripping through ToJSON: go-ordered-json's OrderedMap keeps its
// key/value storage unexported, so decoding the JSON bytes back into a
// bare interface{} (as an earlier version of this function did) hands
// yaml.v3 a plain map with no ordering information left to preserve —
// the declared order captured by ToJSON's OrderedMap is already lost by
// the time yaml.Marshal sees it. Building a yaml.Node MappingNode by hand
// keeps the same Content-slice order snapshot() uses for JSON.
func (s *Store) ToYAML() ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	appendPair := func(key string, value interface{}) error {
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(value); err != nil {
			return err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			valueNode,
		)
		return nil
	}

	seen := map[string]bool{}
	for _, name := range s.order {
		if err := appendPair(name, s.data[name]); err != nil {
			return nil, err
		}
		seen[name] = true
	}
	for _, extra := range sortedExtraKeys(s.data, seen) {
		if err := appendPair(extra, s.data[extra]); err != nil {
			return nil, err
		}
	}

	return yaml.Marshal(node)
}
