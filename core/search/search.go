package search

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/ecas/core/cp"
)

const eps = 1e-9

type stopReason int32

const (
	running stopReason = iota
	stopDeadline
	stopCanceled
	stopNodes
	stopClosed
)

// shared is the state common to all workers of one solve.
type shared struct {
	ctx        context.Context
	nodes      atomic.Int64
	nodeLimit  int64
	checkEvery int64
	reason     atomic.Int32
	bound      float64

	bestBits atomic.Uint64
	mu       sync.Mutex
	found    bool
	best     *cp.Solution
}

func newShared(ctx context.Context, nodeLimit int64, checkEvery int, bound float64) *shared {
	sh := &shared{ctx: ctx, nodeLimit: nodeLimit, checkEvery: int64(checkEvery), bound: bound}
	sh.bestBits.Store(math.Float64bits(math.Inf(1)))
	return sh
}

func (sh *shared) incumbent() float64 {
	return math.Float64frombits(sh.bestBits.Load())
}

func (sh *shared) stop(r stopReason) {
	sh.reason.CompareAndSwap(int32(running), int32(r))
}

func (sh *shared) stopped() bool {
	return stopReason(sh.reason.Load()) != running
}

// offer records a new incumbent when it improves on the current one.
func (sh *shared) offer(total float64, build func() *cp.Solution) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if total >= sh.incumbent()-eps {
		return
	}
	sh.found = true
	sh.best = build()
	sh.bestBits.Store(math.Float64bits(total))
	if total <= sh.bound+eps {
		sh.stop(stopClosed)
	}
}

// tick counts one node and reports whether the search must stop.
func (sh *shared) tick() bool {
	n := sh.nodes.Add(1)
	if sh.nodeLimit > 0 && n > sh.nodeLimit {
		sh.stop(stopNodes)
	}
	if n%sh.checkEvery == 0 {
		switch sh.ctx.Err() {
		case nil:
		case context.DeadlineExceeded:
			sh.stop(stopDeadline)
		default:
			sh.stop(stopCanceled)
		}
	}
	return sh.stopped()
}

// worker holds the partial assignment explored by one goroutine.
type worker struct {
	p    *problem
	sh   *shared
	load [][]int
	busy [][]int
	used []int
	head []int
	pick [][]int
	cost float64
}

func newWorker(p *problem, sh *shared) *worker {
	w := &worker{p: p, sh: sh}
	w.load = make([][]int, len(p.cums))
	for i := range w.load {
		w.load[i] = make([]int, p.slots)
	}
	w.busy = make([][]int, len(p.fns))
	for i, f := range p.fns {
		w.busy[i] = make([]int, f.horizon)
	}
	w.used = make([]int, len(p.fns))
	w.head = make([]int, len(p.chains))
	w.pick = make([][]int, len(p.chains))
	for i, ch := range p.chains {
		w.pick[i] = make([]int, len(ch.links))
	}
	return w
}

func (w *worker) fits(c *candidate, s, e int) bool {
	for _, pu := range c.pulses {
		capacity := w.p.cums[pu.cum].capacity
		row := w.load[pu.cum]
		for t := s; t < e; t++ {
			if row[t]+pu.height > capacity {
				return false
			}
		}
	}
	return true
}

func (w *worker) place(c *candidate, s, e int) {
	for _, pu := range c.pulses {
		row := w.load[pu.cum]
		for t := s; t < e; t++ {
			row[t] += pu.height
		}
	}
	for _, fn := range c.fns {
		row := w.busy[fn]
		for t := s; t < e; t++ {
			if row[t] == 0 {
				w.used[fn]++
			}
			row[t]++
		}
	}
}

func (w *worker) unplace(c *candidate, s, e int) {
	for _, pu := range c.pulses {
		row := w.load[pu.cum]
		for t := s; t < e; t++ {
			row[t] -= pu.height
		}
	}
	for _, fn := range c.fns {
		row := w.busy[fn]
		for t := s; t < e; t++ {
			row[t]--
			if row[t] == 0 {
				w.used[fn]--
			}
		}
	}
}

func (w *worker) windowBound() float64 {
	var v float64
	for i := range w.p.fns {
		v += w.p.fns[i].windowBound(w.used[i])
	}
	return v
}

// chainFrom branches on the head start of chain ci.
func (w *worker) chainFrom(ci int) {
	if ci == len(w.p.chains) {
		w.leaf()
		return
	}
	ch := &w.p.chains[ci]
	base := w.cost + w.p.constant + w.windowBound() + w.p.suffix[ci+1]
	for _, h := range ch.heads {
		if w.sh.stopped() {
			return
		}
		// heads are ordered by their bound
		if base+ch.headLB[h] >= w.sh.incumbent()-eps {
			return
		}
		w.head[ci] = h
		w.linkFrom(ci, 0)
	}
}

// linkFrom branches on the candidate of link k of chain ci.
func (w *worker) linkFrom(ci, k int) {
	ch := &w.p.chains[ci]
	if k == len(ch.links) {
		w.chainFrom(ci + 1)
		return
	}
	l := &ch.links[k]
	s := w.head[ci] + ch.offset[k]
	e := s + l.length
	rest := w.p.suffix[ci+1] + ch.rest(k+1, w.head[ci]) + w.p.constant
	for _, c := range l.order[s-l.startMin] {
		if w.sh.tick() {
			return
		}
		cand := &l.cands[c]
		if !w.fits(cand, s, e) {
			continue
		}
		v := l.cost[c][s-l.startMin]
		w.place(cand, s, e)
		if w.cost+v+rest+w.windowBound() < w.sh.incumbent()-eps {
			w.pick[ci][k] = c
			w.cost += v
			w.linkFrom(ci, k+1)
			w.cost -= v
		}
		w.unplace(cand, s, e)
		if w.sh.stopped() {
			return
		}
	}
}

// leaf derives the power windows of a complete placement and offers it.
func (w *worker) leaf() {
	total := w.cost + w.p.constant
	inc := w.sh.incumbent()
	wins := make([][]window, len(w.p.fns))
	for i := range w.p.fns {
		f := &w.p.fns[i]
		if !f.spanned || w.used[i] == 0 {
			continue
		}
		c, ws, ok := f.derive(w.busy[i], w.p.windowCost(f))
		if !ok {
			return
		}
		total += c
		if total >= inc-eps {
			return
		}
		wins[i] = ws
	}
	w.sh.offer(total, func() *cp.Solution { return w.solution(wins) })
}

func (w *worker) solution(wins [][]window) *cp.Solution {
	m := w.p.model
	sol := cp.NewSolution(m)
	for ci, ch := range w.p.chains {
		for k, l := range ch.links {
			s := w.head[ci] + ch.offset[k]
			sol.Set(l.master, s, s+l.length)
			sol.Set(l.cands[w.pick[ci][k]].id, s, s+l.length)
		}
	}
	for i, ws := range wins {
		for k, win := range ws {
			sol.Set(w.p.fns[i].windows[k], win.start, win.end)
		}
	}
	sol.Objective = m.Evaluate(sol)
	return sol
}

// run explores the whole tree. The head starts of the first chain are split
// over a pool of at most threads goroutines.
func (p *problem) run(sh *shared, threads int) {
	if len(p.chains) == 0 {
		newWorker(p, sh).leaf()
		return
	}
	first := &p.chains[0]
	if threads <= 1 {
		newWorker(p, sh).chainFrom(0)
		return
	}
	var g errgroup.Group
	g.SetLimit(threads)
	for _, h := range first.heads {
		if sh.stopped() {
			break
		}
		h := h
		g.Go(func() error {
			if sh.stopped() {
				return nil
			}
			w := newWorker(p, sh)
			base := p.constant + p.suffix[1] + first.headLB[h]
			if base >= sh.incumbent()-eps {
				return nil
			}
			w.head[0] = h
			w.linkFrom(0, 0)
			return nil
		})
	}
	_ = g.Wait()
}
