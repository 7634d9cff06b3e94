// Package reference resolves user-supplied reference tokens to genome ids.
//
// Matching is deliberately loose: a token matches the first id, in universe
// order, that contains it as a substring. Tokens without a match are kept as
// warnings and never fail a run.
package reference

import "strings"

// Set is the resolved reference set for a run.
type Set struct {
	ids       map[string]struct{}
	order     []string
	matches   []Match
	unmatched []string
}

// Match records which id a token resolved to.
type Match struct {
	Token string `json:"token"`
	ID    string `json:"id"`
}

// Resolve maps tokens onto ids. When enabled is false the returned set is
// always empty, whatever tokens were supplied.
func Resolve(tokens []string, ids []string, enabled bool) *Set {
	s := &Set{ids: make(map[string]struct{})}
	if !enabled {
		return s
	}

	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		id, ok := firstContaining(ids, token)
		if !ok {
			s.unmatched = append(s.unmatched, token)
			continue
		}
		s.matches = append(s.matches, Match{Token: token, ID: id})
		s.add(id)
	}
	return s
}

// FromIDs builds a set directly from known ids.
func FromIDs(ids ...string) *Set {
	s := &Set{ids: make(map[string]struct{})}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func firstContaining(ids []string, token string) (string, bool) {
	for _, id := range ids {
		if strings.Contains(id, token) {
			return id, true
		}
	}
	return "", false
}

func (s *Set) add(id string) {
	if _, ok := s.ids[id]; ok {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

// Contains reports whether id is a reference. A nil set contains nothing.
func (s *Set) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of distinct reference ids.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// IDs returns the reference ids in resolution order.
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Matches returns each token and the id it resolved to.
func (s *Set) Matches() []Match {
	if s == nil {
		return nil
	}
	return s.matches
}

// Unmatched returns the tokens that matched no id.
func (s *Set) Unmatched() []string {
	if s == nil {
		return nil
	}
	return s.unmatched
}
