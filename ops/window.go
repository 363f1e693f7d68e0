package ops

import (
	"math"
	"sort"

	"github.com/factorlab/factorexpr/ast"
)

// rollingSumEvaluator backs TSSum and TSMean with an O(1)-per-tick running
// sum: push the new value, and once the ring is full, subtract the value
// falling out of the back before reporting.
type rollingSumEvaluator struct {
	sticky
	child  Evaluator
	window int
	buf    []float64
	pos    int
	filled int
	sum    float64
	mean   bool
}

func buildRollingSum(tree *ast.Node) (Evaluator, error) {
	child, err := Build(tree.Args[1])
	if err != nil {
		return nil, err
	}
	w := windowArg(tree)
	return &rollingSumEvaluator{
		child:  child,
		window: w,
		buf:    make([]float64, w),
		mean:   tree.Name == "TSMean",
	}, nil
}

func (r *rollingSumEvaluator) Next(row Row) float64 {
	v := r.child.Next(row)
	if math.IsNaN(v) && !r.child.Failed() {
		return nan()
	}
	if r.filled < r.window {
		r.buf[r.pos] = v
		r.sum += v
		r.filled++
		r.pos = (r.pos + 1) % r.window
		if r.filled < r.window {
			return nan()
		}
	} else {
		old := r.buf[r.pos]
		r.buf[r.pos] = v
		r.sum += v - old
		r.pos = (r.pos + 1) % r.window
	}
	if r.mean {
		return r.check(r.sum / float64(r.window))
	}
	return r.check(r.sum)
}

func (r *rollingSumEvaluator) ReadyOffset() int {
	return r.child.ReadyOffset() + r.window - 1
}

// rollingStdEvaluator keeps a running sum and sum-of-squares over the
// window, reporting sample standard deviation (denominator n-1) each tick
// it recomputes from those two running totals rather than from a full
// pass over the window.
type rollingStdEvaluator struct {
	sticky
	child        Evaluator
	window       int
	buf          []float64
	pos, filled  int
	sum, sumSq   float64
}

func buildRollingStd(tree *ast.Node) (Evaluator, error) {
	child, err := Build(tree.Args[1])
	if err != nil {
		return nil, err
	}
	w := windowArg(tree)
	return &rollingStdEvaluator{child: child, window: w, buf: make([]float64, w)}, nil
}

func (r *rollingStdEvaluator) Next(row Row) float64 {
	v := r.child.Next(row)
	if math.IsNaN(v) && !r.child.Failed() {
		return nan()
	}
	if r.filled < r.window {
		r.buf[r.pos] = v
		r.sum += v
		r.sumSq += v * v
		r.filled++
		r.pos = (r.pos + 1) % r.window
		if r.filled < r.window {
			return nan()
		}
	} else {
		old := r.buf[r.pos]
		r.buf[r.pos] = v
		r.sum += v - old
		r.sumSq += v*v - old*old
		r.pos = (r.pos + 1) % r.window
	}
	n := float64(r.window)
	mean := r.sum / n
	variance := (r.sumSq - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return r.check(math.Sqrt(variance))
}

func (r *rollingStdEvaluator) ReadyOffset() int {
	return r.child.ReadyOffset() + r.window - 1
}

// rollingSkewEvaluator keeps running sums of x, x^2 and x^3 to derive the
// bias-corrected sample skewness in O(1) per tick.
type rollingSkewEvaluator struct {
	sticky
	child               Evaluator
	window              int
	buf                 []float64
	pos, filled         int
	sum, sumSq, sumCube float64
}

func buildRollingSkew(tree *ast.Node) (Evaluator, error) {
	child, err := Build(tree.Args[1])
	if err != nil {
		return nil, err
	}
	w := windowArg(tree)
	return &rollingSkewEvaluator{child: child, window: w, buf: make([]float64, w)}, nil
}

func (r *rollingSkewEvaluator) Next(row Row) float64 {
	v := r.child.Next(row)
	if math.IsNaN(v) && !r.child.Failed() {
		return nan()
	}
	if r.filled < r.window {
		r.push(v)
		r.filled++
		if r.filled < r.window {
			return nan()
		}
	} else {
		old := r.buf[r.pos]
		r.sum += v - old
		r.sumSq += v*v - old*old
		r.sumCube += v*v*v - old*old*old
		r.buf[r.pos] = v
		r.pos = (r.pos + 1) % r.window
	}

	n := float64(r.window)
	mean := r.sum / n
	m2 := r.sumSq/n - mean*mean
	m3 := r.sumCube/n - 3*mean*r.sumSq/n + 2*mean*mean*mean
	if m2 <= 0 {
		return r.check(0)
	}
	g1 := m3 / math.Pow(m2, 1.5)
	correction := math.Sqrt(n*(n-1)) / (n - 2)
	return r.check(g1 * correction)
}

func (r *rollingSkewEvaluator) push(v float64) {
	r.sum += v
	r.sumSq += v * v
	r.sumCube += v * v * v
	r.buf[r.pos] = v
	r.pos = (r.pos + 1) % r.window
}

func (r *rollingSkewEvaluator) ReadyOffset() int {
	return r.child.ReadyOffset() + r.window - 1
}

// rollingCorrelationEvaluator keeps running sums of x, y, x^2, y^2 and xy,
// computing Pearson correlation from those five totals each tick. A
// window with zero variance in either series reports exactly 0 rather
// than dividing by zero.
type rollingCorrelationEvaluator struct {
	sticky
	x, y         Evaluator
	window       int
	bufX, bufY   []float64
	pos, filled  int
	sx, sy, sxx, syy, sxy float64
}

func buildRollingCorrelation(tree *ast.Node) (Evaluator, error) {
	x, err := Build(tree.Args[1])
	if err != nil {
		return nil, err
	}
	y, err := Build(tree.Args[2])
	if err != nil {
		return nil, err
	}
	w := windowArg(tree)
	return &rollingCorrelationEvaluator{
		x: x, y: y, window: w,
		bufX: make([]float64, w), bufY: make([]float64, w),
	}, nil
}

func (r *rollingCorrelationEvaluator) Next(row Row) float64 {
	xv := r.x.Next(row)
	yv := r.y.Next(row)
	if (math.IsNaN(xv) && !r.x.Failed()) || (math.IsNaN(yv) && !r.y.Failed()) {
		return nan()
	}
	if r.filled < r.window {
		r.bufX[r.pos], r.bufY[r.pos] = xv, yv
		r.sx += xv
		r.sy += yv
		r.sxx += xv * xv
		r.syy += yv * yv
		r.sxy += xv * yv
		r.filled++
		r.pos = (r.pos + 1) % r.window
		if r.filled < r.window {
			return nan()
		}
	} else {
		oldX, oldY := r.bufX[r.pos], r.bufY[r.pos]
		r.sx += xv - oldX
		r.sy += yv - oldY
		r.sxx += xv*xv - oldX*oldX
		r.syy += yv*yv - oldY*oldY
		r.sxy += xv*yv - oldX*oldY
		r.bufX[r.pos], r.bufY[r.pos] = xv, yv
		r.pos = (r.pos + 1) % r.window
	}

	n := float64(r.window)
	covXY := r.sxy/n - (r.sx/n)*(r.sy/n)
	varX := r.sxx/n - (r.sx/n)*(r.sx/n)
	varY := r.syy/n - (r.sy/n)*(r.sy/n)
	denom := math.Sqrt(varX * varY)
	if denom == 0 {
		return r.check(0)
	}
	return r.check(covXY / denom)
}

func (r *rollingCorrelationEvaluator) ReadyOffset() int {
	return maxInt(r.x.ReadyOffset(), r.y.ReadyOffset()) + r.window - 1
}

// rankEntry is one still-live value in a TSRank window, tagged with the
// absolute tick it arrived on so ties break in arrival order.
type rankEntry struct {
	tick int
	val  float64
}

// rankEvaluator keeps the window's values in a slice sorted by value (ties
// broken by arrival order), inserting the newest and evicting the oldest
// each tick via binary search. Reported rank is 0-based ascending. No
// pack dependency exposes an order-statistic container, so this is one of
// the few operators built directly on the standard library (sort.Search).
type rankEvaluator struct {
	sticky
	child       Evaluator
	window      int
	live        []rankEntry // insertion-order ring, for eviction
	sorted      []rankEntry // value-order, for rank lookup
	pos, filled int
	tick        int
}

func buildRank(tree *ast.Node) (Evaluator, error) {
	child, err := Build(tree.Args[1])
	if err != nil {
		return nil, err
	}
	w := windowArg(tree)
	return &rankEvaluator{child: child, window: w, live: make([]rankEntry, w)}, nil
}

func (r *rankEvaluator) Next(row Row) float64 {
	v := r.child.Next(row)
	if math.IsNaN(v) && !r.child.Failed() {
		return nan()
	}
	entry := rankEntry{tick: r.tick, val: v}
	r.tick++

	if r.filled == r.window {
		r.evict(r.live[r.pos])
	}
	r.live[r.pos] = entry
	r.insert(entry)
	r.pos = (r.pos + 1) % r.window
	if r.filled < r.window {
		r.filled++
		if r.filled < r.window {
			return nan()
		}
	}

	rank := sort.Search(len(r.sorted), func(i int) bool {
		return !less(r.sorted[i], entry)
	})
	return r.check(float64(rank))
}

func less(a, b rankEntry) bool {
	if a.val != b.val {
		return a.val < b.val
	}
	return a.tick < b.tick
}

func (r *rankEvaluator) insert(e rankEntry) {
	i := sort.Search(len(r.sorted), func(i int) bool { return !less(r.sorted[i], e) })
	r.sorted = append(r.sorted, rankEntry{})
	copy(r.sorted[i+1:], r.sorted[i:])
	r.sorted[i] = e
}

func (r *rankEvaluator) evict(e rankEntry) {
	i := sort.Search(len(r.sorted), func(i int) bool { return !less(r.sorted[i], e) })
	for i < len(r.sorted) && r.sorted[i] != e {
		i++
	}
	r.sorted = append(r.sorted[:i], r.sorted[i+1:]...)
}

func (r *rankEvaluator) ReadyOffset() int {
	return r.child.ReadyOffset() + r.window - 1
}

// delayEvaluator and logReturnEvaluator both look w ticks into the past,
// which needs a ring of capacity w: slot pos holds the value pushed w
// ticks ago, so each tick reads that slot before overwriting it with the
// value just computed.
type delayEvaluator struct {
	sticky
	child       Evaluator
	window      int
	buf         []float64
	pos, filled int
}

func buildDelay(tree *ast.Node) (Evaluator, error) {
	child, err := Build(tree.Args[1])
	if err != nil {
		return nil, err
	}
	w := windowArg(tree)
	return &delayEvaluator{child: child, window: w, buf: make([]float64, w)}, nil
}

func (d *delayEvaluator) Next(row Row) float64 {
	v := d.child.Next(row)
	if math.IsNaN(v) && !d.child.Failed() {
		return nan()
	}
	ready := d.filled == d.window
	out := nan()
	if ready {
		out = d.buf[d.pos]
	} else {
		d.filled++
	}
	d.buf[d.pos] = v
	d.pos = (d.pos + 1) % d.window
	if !ready {
		return nan()
	}
	return d.check(out)
}

func (d *delayEvaluator) ReadyOffset() int {
	return d.child.ReadyOffset() + d.window
}

type logReturnEvaluator struct {
	sticky
	child       Evaluator
	window      int
	buf         []float64
	pos, filled int
}

func buildLogReturn(tree *ast.Node) (Evaluator, error) {
	child, err := Build(tree.Args[1])
	if err != nil {
		return nil, err
	}
	w := windowArg(tree)
	return &logReturnEvaluator{child: child, window: w, buf: make([]float64, w)}, nil
}

func (l *logReturnEvaluator) Next(row Row) float64 {
	v := l.child.Next(row)
	if math.IsNaN(v) && !l.child.Failed() {
		return nan()
	}
	ready := l.filled == l.window
	out := nan()
	if ready {
		old := l.buf[l.pos]
		if old > 0 && v > 0 {
			out = math.Log(v / old)
		}
	} else {
		l.filled++
	}
	l.buf[l.pos] = v
	l.pos = (l.pos + 1) % l.window
	if !ready {
		return nan()
	}
	return l.check(out)
}

func (l *logReturnEvaluator) ReadyOffset() int {
	return l.child.ReadyOffset() + l.window
}
