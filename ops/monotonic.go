package ops

import "github.com/factorlab/factorexpr/ast"

// dequeEntry is one still-relevant candidate in a monotonic window deque,
// tagged with the absolute tick it arrived on.
type dequeEntry struct {
	tick int
	val  float64
}

// monotonicEvaluator backs TSMin, TSMax, TSArgMin and TSArgMax with a
// single monotonic deque: newer values that would never win the
// extremum evict older candidates from the back, and candidates that
// have aged out of the window are dropped from the front. Ties are
// broken toward the earliest tick still in the window — the back-side
// eviction only discards a candidate strictly worse than the incoming
// value, so an equal earlier value is kept in front of it.
type monotonicEvaluator struct {
	sticky
	child    Evaluator
	window   int
	deque    []dequeEntry
	call     int // total Next calls, including the child's own warm-up
	tick     int // ticks since the child itself became ready
	better   func(candidate, incoming float64) bool // true if candidate should be evicted in favor of incoming
	report   func(front dequeEntry, tick int) float64
}

func buildMonotonic(tree *ast.Node) (Evaluator, error) {
	child, err := Build(tree.Args[1])
	if err != nil {
		return nil, err
	}
	w := windowArg(tree)
	m := &monotonicEvaluator{child: child, window: w}
	switch tree.Name {
	case "TSMin":
		m.better = func(candidate, incoming float64) bool { return candidate > incoming }
		m.report = func(front dequeEntry, _ int) float64 { return front.val }
	case "TSMax":
		m.better = func(candidate, incoming float64) bool { return candidate < incoming }
		m.report = func(front dequeEntry, _ int) float64 { return front.val }
	case "TSArgMin":
		m.better = func(candidate, incoming float64) bool { return candidate > incoming }
		m.report = func(front dequeEntry, tick int) float64 { return float64(tick - front.tick) }
	case "TSArgMax":
		m.better = func(candidate, incoming float64) bool { return candidate < incoming }
		m.report = func(front dequeEntry, tick int) float64 { return float64(tick - front.tick) }
	}
	return m, nil
}

func (m *monotonicEvaluator) Next(row Row) float64 {
	v := m.child.Next(row)
	if m.call < m.child.ReadyOffset() {
		m.call++
		return nan()
	}
	m.call++
	tick := m.tick
	m.tick++

	for len(m.deque) > 0 && m.better(m.deque[len(m.deque)-1].val, v) {
		m.deque = m.deque[:len(m.deque)-1]
	}
	m.deque = append(m.deque, dequeEntry{tick: tick, val: v})

	windowStart := tick - m.window + 1
	for len(m.deque) > 0 && m.deque[0].tick < windowStart {
		m.deque = m.deque[1:]
	}

	if tick < m.window-1 {
		return nan()
	}
	return m.check(m.report(m.deque[0], tick))
}

func (m *monotonicEvaluator) ReadyOffset() int {
	return m.child.ReadyOffset() + m.window - 1
}
