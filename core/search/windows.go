package search

import "math"

// window is a derived ON run [start, end).
type window struct {
	start, end int
}

type segment struct {
	start, end int
}

// segmentsOf returns the maximal busy runs.
func segmentsOf(busy []int) []segment {
	var segs []segment
	for t := 0; t < len(busy); {
		if busy[t] == 0 {
			t++
			continue
		}
		s := t
		for t < len(busy) && busy[t] > 0 {
			t++
		}
		segs = append(segs, segment{start: s, end: t})
	}
	return segs
}

type dpBack struct {
	i, s, prevEnd int
}

// derive computes the cheapest set of windows covering every busy slot. A
// window covers a consecutive group of busy segments and may extend into the
// idle gaps around it when that lowers its cost; windows are separated by at
// least delay slots and never contain a forbidden slot. Windows covering no
// busy slot are never useful since window costs are non-negative.
//
// It returns false when no window set satisfies the limits.
func (f *powerFn) derive(busy []int, cost func(s, e int) float64) (float64, []window, bool) {
	segs := segmentsOf(busy)
	n := len(segs)
	if n == 0 {
		return 0, nil, true
	}
	k := min(f.maxWindows, n)
	if k == 0 {
		return 0, nil, false
	}
	endLimit := min(f.endMax, f.horizon)
	inf := math.Inf(1)
	width := f.horizon + 1

	newLayer := func() ([][]float64, [][]dpBack) {
		dp := make([][]float64, n)
		bp := make([][]dpBack, n)
		for j := range dp {
			dp[j] = make([]float64, width)
			bp[j] = make([]dpBack, width)
			for e := range dp[j] {
				dp[j][e] = inf
			}
		}
		return dp, bp
	}

	// layers[c] holds the best cost covering segments 0..j with c+1 windows,
	// the last one ending at e.
	var layers [][][]float64
	var backs [][][]dpBack
	// prefix[c][j][x] is the minimum of layers[c][j][e] over e <= x.
	var prefix [][][]float64
	var argPrefix [][][]int

	for c := 0; c < k; c++ {
		dp, bp := newLayer()
		for j := 0; j < n; j++ {
			eLo := segs[j].end
			eHi := endLimit
			if j+1 < n {
				eHi = min(eHi, segs[j+1].start-f.delay)
			}
			if eHi < eLo {
				continue
			}
			for i := 0; i <= j; i++ {
				// c windows must cover segments 0..i-1
				if (c == 0) != (i == 0) || (c > 0 && c > i) {
					continue
				}
				sLo := f.startMin
				if i > 0 {
					sLo = max(sLo, segs[i-1].end+f.delay)
				}
				sLo = max(sLo, 0)
				for s := segs[i].start; s >= sLo; s-- {
					if f.forbiddenIn(s, eLo) {
						break
					}
					base, prevEnd := 0.0, -1
					if c > 0 {
						x := s - f.delay
						if x < 0 {
							continue
						}
						base, prevEnd = prefix[c-1][i-1][x], argPrefix[c-1][i-1][x]
						if math.IsInf(base, 1) {
							continue
						}
					}
					for e := eLo; e <= eHi; e++ {
						if e > eLo && f.forbidden[e-1] {
							break
						}
						l := e - s
						if l > f.lenMax {
							break
						}
						if l < f.lenMin {
							continue
						}
						v := base + cost(s, e)
						if v < dp[j][e] {
							dp[j][e] = v
							bp[j][e] = dpBack{i: i, s: s, prevEnd: prevEnd}
						}
					}
				}
			}
		}
		pre := make([][]float64, n)
		arg := make([][]int, n)
		for j := range dp {
			pre[j] = make([]float64, width)
			arg[j] = make([]int, width)
			best, at := inf, -1
			for e := 0; e < width; e++ {
				if dp[j][e] < best {
					best, at = dp[j][e], e
				}
				pre[j][e], arg[j][e] = best, at
			}
		}
		layers = append(layers, dp)
		backs = append(backs, bp)
		prefix = append(prefix, pre)
		argPrefix = append(argPrefix, arg)
	}

	best, bc, be := inf, -1, -1
	for c := range layers {
		if v, e := prefix[c][n-1][width-1], argPrefix[c][n-1][width-1]; v < best {
			best, bc, be = v, c, e
		}
	}
	if bc < 0 {
		return 0, nil, false
	}

	out := make([]window, bc+1)
	j, e := n-1, be
	for c := bc; c >= 0; c-- {
		b := backs[c][j][e]
		out[c] = window{start: b.s, end: e}
		j, e = b.i-1, b.prevEnd
	}
	return best, out, true
}

// windowCost evaluates the objective contribution of one window of f.
func (p *problem) windowCost(f *powerFn) func(s, e int) float64 {
	return func(s, e int) float64 {
		v := f.presence
		for _, t := range f.terms {
			v += p.model.EnergyCost(t, s, e)
		}
		return v
	}
}
