// Package choice implements weighted selection over a reusable list of
// scored items.
package choice

import (
	"math"
	"sort"
)

type entry[T any] struct {
	item   T
	weight float64
}

// WeightedChoice collects (item, weight) pairs and picks one of them.
// The zero value is ready to use.
type WeightedChoice[T any] struct {
	entries []entry[T]
	order   []int
}

// Add registers an item with the given weight.
func (w *WeightedChoice[T]) Add(item T, weight float64) {
	w.entries = append(w.entries, entry[T]{item: item, weight: weight})
}

// Count returns the number of registered items.
func (w *WeightedChoice[T]) Count() int {
	return len(w.entries)
}

// Clear removes all items but keeps the allocated storage.
func (w *WeightedChoice[T]) Clear() {
	var zero entry[T]
	for i := range w.entries {
		w.entries[i] = zero
	}
	w.entries = w.entries[:0]
	w.order = w.order[:0]
}

// ChooseBest returns the item with the highest weight. Ties go to the item
// registered first. ok is false when no items are registered.
func (w *WeightedChoice[T]) ChooseBest() (item T, ok bool) {
	if len(w.entries) == 0 {
		return item, false
	}
	best := 0
	for i := 1; i < len(w.entries); i++ {
		if w.entries[i].weight > w.entries[best].weight {
			best = i
		}
	}
	return w.entries[best].item, true
}

// ChooseByQuantile picks an item using a uniform sample u in [0,1) and a
// quantile q in (0,1). Items are ranked by ascending weight. When u < 1-q the
// pick is uniform over the lowest q fraction of the ranking; otherwise it is
// uniform over the remaining top fraction. The top fraction always holds at
// least one item.
func (w *WeightedChoice[T]) ChooseByQuantile(u, q float64) (item T, ok bool) {
	n := len(w.entries)
	if n == 0 {
		return item, false
	}
	u = clamp(u, 0, math.Nextafter(1, 0))
	q = clamp(q, 0, 1)

	w.order = w.order[:0]
	for i := range w.entries {
		w.order = append(w.order, i)
	}
	sort.SliceStable(w.order, func(a, b int) bool {
		return w.entries[w.order[a]].weight < w.entries[w.order[b]].weight
	})

	nBottom := int(math.Floor(q * float64(n)))
	if nBottom > n-1 {
		nBottom = n - 1
	}
	nTop := n - nBottom

	var idx int
	low := 1 - q
	if nBottom > 0 && u < low {
		idx = int(u / low * float64(nBottom))
		idx = min(idx, nBottom-1)
	} else {
		frac := 0.0
		if q > 0 && u >= low {
			frac = (u - low) / q
		}
		idx = nBottom + min(int(frac*float64(nTop)), nTop-1)
	}
	return w.entries[w.order[idx]].item, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
