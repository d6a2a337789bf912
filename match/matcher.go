package match

import (
	"github.com/pmezard/go-difflib/difflib"
)

const (
	// FuzzyThreshold is the minimum similarity ratio a fuzzy candidate needs
	FuzzyThreshold = 0.85

	// Keys this short or shorter never go through fuzzy lookup
	maxNoFuzzyKeyLength = 4
)

// MatchKind describes how a query was resolved
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExactCombined
	MatchExactTitle
	MatchFuzzyCombined
	MatchFuzzyTitle
)

func (k MatchKind) String() string {
	switch k {
	case MatchExactCombined:
		return "Exact (combined)"
	case MatchExactTitle:
		return "Exact (title)"
	case MatchFuzzyCombined:
		return "Fuzzy (combined)"
	case MatchFuzzyTitle:
		return "Fuzzy (title)"
	default:
		return "Not found"
	}
}

// Fuzzy reports whether the match came from similarity search
func (k MatchKind) Fuzzy() bool {
	return k == MatchFuzzyCombined || k == MatchFuzzyTitle
}

// Query is an artist/title pair taken from an external record. Either may be empty.
type Query struct {
	Artist string
	Title  string
}

// Result is the outcome of resolving a Query
type Result struct {
	ID    string
	Kind  MatchKind
	Key   string  // index key that matched
	Score float64 // similarity ratio, 1.0 for exact hits
}

// Resolved reports whether an item was found
func (r Result) Resolved() bool {
	return r.Kind != MatchNone
}

// Matcher resolves queries against a built Index
type Matcher struct {
	index     *Index
	threshold float64
}

// Option configures a Matcher
type Option func(*Matcher)

// WithThreshold overrides FuzzyThreshold. Values outside (0, 1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 1 {
			m.threshold = threshold
		}
	}
}

// NewMatcher creates a matcher over index
func NewMatcher(index *Index, opts ...Option) *Matcher {
	m := &Matcher{index: index, threshold: FuzzyThreshold}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type candidate struct {
	key   string
	exact MatchKind
	fuzzy MatchKind
}

// Resolve tries artist+title first and title alone second. Each candidate gets
// an exact lookup and then, if its key is longer than four characters, a fuzzy
// lookup. The first hit wins.
func (m *Matcher) Resolve(q Query) Result {
	var candidates []candidate

	if q.Artist != "" && q.Title != "" {
		candidates = append(candidates, candidate{
			key:   Normalize(q.Artist) + Normalize(q.Title),
			exact: MatchExactCombined,
			fuzzy: MatchFuzzyCombined,
		})
	}
	if q.Title != "" {
		candidates = append(candidates, candidate{
			key:   Normalize(q.Title),
			exact: MatchExactTitle,
			fuzzy: MatchFuzzyTitle,
		})
	}

	for _, c := range candidates {
		if c.key == "" {
			continue
		}

		if id, ok := m.index.Lookup(c.key); ok {
			return Result{ID: id, Kind: c.exact, Key: c.key, Score: 1.0}
		}

		if len(c.key) > maxNoFuzzyKeyLength {
			if key, score, ok := m.closestKey(c.key); ok {
				id, _ := m.index.Lookup(key)
				return Result{ID: id, Kind: c.fuzzy, Key: key, Score: score}
			}
		}
	}

	return Result{Kind: MatchNone}
}

// closestKey scans the whole key set for the best SequenceMatcher ratio at or
// above the threshold. Equal scores resolve to the lexicographically greatest
// key, independent of scan order.
func (m *Matcher) closestKey(key string) (string, float64, bool) {
	sm := difflib.NewMatcher(nil, splitChars(key))

	var best string
	var bestScore float64
	found := false

	for i, chars := range m.index.keyChars {
		sm.SetSeq1(chars)

		// cheap upper bounds first
		if sm.RealQuickRatio() < m.threshold || sm.QuickRatio() < m.threshold {
			continue
		}

		score := sm.Ratio()
		if score < m.threshold {
			continue
		}

		k := m.index.keys[i]
		if !found || score > bestScore || (score == bestScore && k > best) {
			best, bestScore, found = k, score, true
		}
	}

	return best, bestScore, found
}
