package review

import "sort"

// Selection is the set of field keys an operator flagged for correction.
type Selection struct {
	keys map[string]struct{}
}

func NewSelection(keys ...string) *Selection {
	s := &Selection{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

// Toggle adds key if absent and removes it if present. It reports whether
// key is selected afterwards.
func (s *Selection) Toggle(key string) bool {
	if _, ok := s.keys[key]; ok {
		delete(s.keys, key)
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *Selection) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

func (s *Selection) Len() int {
	return len(s.keys)
}

func (s *Selection) Clear() {
	s.keys = make(map[string]struct{})
}

// Keys returns selected keys in catalog order; keys outside the catalog
// follow, sorted.
func (s *Selection) Keys() []string {
	out := make([]string, 0, len(s.keys))
	for _, f := range Catalog {
		if s.Has(f.Key) {
			out = append(out, f.Key)
		}
	}

	var extra []string
	for k := range s.keys {
		if _, ok := catalogIndex[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)

	return append(out, extra...)
}

// Labels maps the selection to rejection labels in catalog order.
func (s *Selection) Labels() []string {
	keys := s.Keys()
	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = Label(k)
	}
	return labels
}

func (s *Selection) Equal(other *Selection) bool {
	if s.Len() != other.Len() {
		return false
	}
	for k := range s.keys {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

func (s *Selection) Clone() *Selection {
	return NewSelection(s.Keys()...)
}
