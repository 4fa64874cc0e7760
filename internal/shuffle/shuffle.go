// Package shuffle produces random permutations of slices.
package shuffle

import "math/rand"

// Shuffle returns a uniformly random permutation of a copy of items using
// Fisher-Yates. The input is never modified. A nil rnd uses the global source.
func Shuffle[T any](items []T, rnd *rand.Rand) []T {
	shuffled := make([]T, len(items))
	copy(shuffled, items)

	intn := rand.Intn
	if rnd != nil {
		intn = rnd.Intn
	}
	for i := len(shuffled) - 1; i > 0; i-- {
		j := intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// Sample returns n elements of items in random order. When n is out of
// range the whole shuffled slice is returned.
func Sample[T any](items []T, n int, rnd *rand.Rand) []T {
	shuffled := Shuffle(items, rnd)
	if n <= 0 || n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
