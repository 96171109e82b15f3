package analyzer

import (
	"sort"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// termMatcher finds which of a fixed list of lowercase terms occur in a
// text in a single pass. Blank and repeated terms are dropped. The underlying automaton keeps per-call state,
// so calls are serialised.
type termMatcher struct {
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	terms   []string
}

func newTermMatcher(terms []string) *termMatcher {
	normalized := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = normalizeTerm(term)
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		normalized = append(normalized, term)
	}

	tm := &termMatcher{terms: normalized}
	if len(normalized) > 0 {
		tm.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return tm
}

// find returns the indices of the terms present in text, ascending.
// text must already be lowercased.
func (tm *termMatcher) find(text string) []int {
	if tm.matcher == nil || text == "" {
		return nil
	}

	tm.mu.Lock()
	hits := tm.matcher.Match([]byte(text))
	tm.mu.Unlock()

	seen := make(map[int]struct{}, len(hits))
	indices := make([]int, 0, len(hits))
	for _, idx := range hits {
		if idx < 0 || idx >= len(tm.terms) {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	return indices
}

// any reports whether at least one term occurs in text.
func (tm *termMatcher) any(text string) bool {
	return len(tm.find(text)) > 0
}

func (tm *termMatcher) len() int {
	return len(tm.terms)
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
