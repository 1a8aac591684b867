package analysis

import (
	"cmp"
	"slices"
)

// tally counts keys and remembers first-seen order so that equal counts
// rank deterministically.
type tally[K comparable] struct {
	counts map[K]int
	order  []K
}

func newTally[K comparable]() *tally[K] {
	return &tally[K]{counts: make(map[K]int)}
}

func (t *tally[K]) add(k K, n int) {
	if _, ok := t.counts[k]; !ok {
		t.order = append(t.order, k)
	}
	t.counts[k] += n
}

func (t *tally[K]) len() int { return len(t.order) }

type counted[K comparable] struct {
	key   K
	count int
}

// mostCommon returns up to n entries by count descending, ties in first-seen
// order. n <= 0 returns every entry.
func (t *tally[K]) mostCommon(n int) []counted[K] {
	out := make([]counted[K], 0, len(t.order))
	for _, k := range t.order {
		out = append(out, counted[K]{k, t.counts[k]})
	}
	slices.SortStableFunc(out, func(a, b counted[K]) int {
		return cmp.Compare(b.count, a.count)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
