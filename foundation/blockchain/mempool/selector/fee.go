package selector

import "container/heap"

// feeSelect returns the transactions with the best fee first. Transactions
// paying the same fee keep the order they were received.
var feeSelect = func(candidates []Candidate) []Candidate {
	pq := make(priorityQueue, len(candidates))
	copy(pq, candidates)
	heap.Init(&pq)

	final := make([]Candidate, 0, len(candidates))
	for pq.Len() > 0 {
		final = append(final, heap.Pop(&pq).(Candidate))
	}

	return final
}

// =============================================================================

// priorityQueue implements heap.Interface ordering candidates by fee in
// descending order, then by sequence in ascending order.
type priorityQueue []Candidate

// Len returns the number of transactions in the queue.
func (pq priorityQueue) Len() int {
	return len(pq)
}

// Less places the candidate with the higher fee at the top of the heap.
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].Fee != pq[j].Fee {
		return pq[i].Fee > pq[j].Fee
	}
	return pq[i].Seq < pq[j].Seq
}

// Swap moves candidates around in the queue.
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

// Push adds a candidate to the end of the queue.
func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(Candidate))
}

// Pop removes the candidate at the end of the queue.
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	c := old[n-1]
	*pq = old[:n-1]
	return c
}
