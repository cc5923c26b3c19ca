// Package similarity scores approximate string similarity between titles.
package similarity

// Winkler prefix parameters.
const (
	PrefixScale  = 0.1 // p: weight given to each shared prefix rune
	MaxPrefixLen = 4   // l is capped at this many runes
)

// JaroWinkler returns the Jaro-Winkler similarity of a and b in [0, 1].
// Either string empty yields 0; identical non-empty strings yield 1.
// The score is symmetric in its arguments.
func JaroWinkler(a, b string) float64 {
	s1, s2 := ordered([]rune(a), []rune(b))
	jaro := jaro(s1, s2)
	if jaro == 0 {
		return 0
	}

	l := 0
	for l < len(s1) && l < MaxPrefixLen && s1[l] == s2[l] {
		l++
	}
	return jaro + float64(l)*PrefixScale*(1-jaro)
}

// Jaro returns the plain Jaro similarity of a and b in [0, 1].
func Jaro(a, b string) float64 {
	s1, s2 := ordered([]rune(a), []rune(b))
	return jaro(s1, s2)
}

// ordered puts the shorter string first. Equal lengths are ordered
// lexically so that greedy matching sees the same input either way round.
func ordered(a, b []rune) ([]rune, []rune) {
	if len(a) > len(b) || (len(a) == len(b) && string(a) > string(b)) {
		return b, a
	}
	return a, b
}

// jaro computes the Jaro score with s1 no longer than s2.
func jaro(s1, s2 []rune) float64 {
	l1, l2 := len(s1), len(s2)
	if l1 == 0 {
		return 0
	}

	window := max(l2/2-1, 0)
	matched1 := make([]bool, l1)
	matched2 := make([]bool, l2)

	m := 0
	for i, r := range s1 {
		lo := max(i-window, 0)
		hi := min(i+window, l2-1)
		for j := lo; j <= hi; j++ {
			if !matched2[j] && s2[j] == r {
				matched1[i] = true
				matched2[j] = true
				m++
				break
			}
		}
	}
	if m == 0 {
		return 0
	}

	// Matched runes read in order from each side; every position where
	// they differ counts once.
	t := 0
	k := 0
	for i := range s1 {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if s1[i] != s2[k] {
			t++
		}
		k++
	}

	mf := float64(m)
	return (mf/float64(l1) + mf/float64(l2) + (mf-float64(t)/2)/mf) / 3
}
