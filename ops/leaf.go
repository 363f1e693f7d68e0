package ops

// constantEvaluator broadcasts a fixed value to every row. It never fails
// and never warms up.
type constantEvaluator struct {
	value float64
}

func newConstantEvaluator(v float64) Evaluator {
	return &constantEvaluator{value: v}
}

func (c *constantEvaluator) Next(Row) float64 { return c.value }
func (c *constantEvaluator) ReadyOffset() int { return 0 }
func (c *constantEvaluator) Failed() bool     { return false }

// columnEvaluator reads one named column out of each row. Like every node
// that embeds sticky it applies the sticky-failure rule to what it reads:
// a non-finite input value fails the whole factor from that row on, not
// just the rows that use it.
type columnEvaluator struct {
	sticky
	name string
}

func newColumnEvaluator(name string) Evaluator {
	return &columnEvaluator{name: name}
}

func (c *columnEvaluator) Next(row Row) float64 {
	v, ok := row.Get(c.name)
	if !ok {
		return c.check(nan())
	}
	return c.check(v)
}

func (c *columnEvaluator) ReadyOffset() int { return 0 }
