package selector

import "sort"

// arrivalSelect returns the transactions in the order they were received.
var arrivalSelect = func(candidates []Candidate) []Candidate {
	final := make([]Candidate, len(candidates))
	copy(final, candidates)

	sort.Sort(byArrival(final))

	return final
}
