package textmatch

import (
	"slices"
	"strings"
)

// Tier is a match class. Lower non-zero values rank first.
type Tier uint8

const (
	NoMatch Tier = iota
	// Exact: the normalized text equals the normalized query.
	Exact
	// Substring: the normalized text contains the normalized query contiguously.
	Substring
	// Partial: every query keyword is a substring of some word of the text.
	Partial
)

func (t Tier) String() string {
	switch t {
	case Exact:
		return "exact"
	case Substring:
		return "substring"
	case Partial:
		return "partial"
	default:
		return "none"
	}
}

// Query is a normalized search query.
type Query struct {
	Text     string
	Keywords []string
}

// NewQuery lowercases s and splits it on whitespace.
func NewQuery(s string) Query {
	kw := strings.Fields(strings.ToLower(s))
	return Query{Text: strings.Join(kw, " "), Keywords: kw}
}

// Empty reports whether the query has no keywords. An empty query matches nothing.
func (q Query) Empty() bool { return len(q.Keywords) == 0 }

// Text is a pre-normalized searchable string, built once per indexed item.
type Text struct {
	Normalized string
	Words      []string
}

// NewText normalizes s the same way NewQuery does.
func NewText(s string) Text {
	words := strings.Fields(strings.ToLower(s))
	return Text{Normalized: strings.Join(words, " "), Words: words}
}

// Rank returns the best tier t reaches for q.
func (q Query) Rank(t Text) Tier {
	if q.Empty() {
		return NoMatch
	}
	if t.Normalized == q.Text {
		return Exact
	}
	if strings.Contains(t.Normalized, q.Text) {
		return Substring
	}
	for _, kw := range q.Keywords {
		if !slices.ContainsFunc(t.Words, func(w string) bool { return strings.Contains(w, kw) }) {
			return NoMatch
		}
	}
	return Partial
}

// RankBest returns the best tier across several texts, e.g. an alert header and
// its description.
func (q Query) RankBest(texts ...Text) Tier {
	best := NoMatch
	for _, t := range texts {
		if r := q.Rank(t); r != NoMatch && (best == NoMatch || r < best) {
			best = r
		}
	}
	return best
}

// Ranked pairs an item with the tier it matched.
type Ranked[T any] struct {
	Item T
	Tier Tier
}

// Filter ranks items against q in source order, drops non-matches and returns the
// rest ordered by tier. Items within the same tier keep their source order.
func Filter[T any](q Query, items []T, text func(T) Text) []Ranked[T] {
	if q.Empty() {
		return nil
	}
	out := make([]Ranked[T], 0)
	for _, it := range items {
		if tier := q.Rank(text(it)); tier != NoMatch {
			out = append(out, Ranked[T]{Item: it, Tier: tier})
		}
	}
	SortByTier(out)
	return out
}

// SortByTier stably orders ranked items by tier. Concatenating per-source results
// and sorting them with SortByTier yields tier-then-source order.
func SortByTier[T any](items []Ranked[T]) {
	slices.SortStableFunc(items, func(a, b Ranked[T]) int { return int(a.Tier) - int(b.Tier) })
}
