package search

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

type lpColumn struct {
	chain, link, cand, head int
}

// relaxation builds the time-indexed linear relaxation of the placement
// problem in standard form: one column per (chain, head) choosing the head
// start, one per (chain, link, candidate, head) choosing the machine, and one
// slack per contested capacity row. Power windows are left out so the optimum
// is a valid lower bound.
func (p *problem) relaxation(maxVars int) (c []float64, a *mat.Dense, b []float64, ok bool) {
	var cols []lpColumn
	for ci, ch := range p.chains {
		for hi, h := range ch.heads {
			cols = append(cols, lpColumn{chain: ci, link: -1, cand: -1, head: hi})
			for k := range ch.links {
				l := &ch.links[k]
				for _, cand := range l.order[h+ch.offset[k]-l.startMin] {
					cols = append(cols, lpColumn{chain: ci, link: k, cand: cand, head: hi})
				}
			}
		}
	}

	type cell struct{ cum, t int }
	demand := make(map[cell][]int) // columns loading the cell
	potential := make(map[cell]int)
	for ci, ch := range p.chains {
		for k := range ch.links {
			l := &ch.links[k]
			peak := make(map[cell]int)
			for j, col := range cols {
				if col.chain != ci || col.link != k {
					continue
				}
				s := ch.heads[col.head] + ch.offset[k]
				for _, pu := range l.cands[col.cand].pulses {
					for t := s; t < s+l.length; t++ {
						key := cell{pu.cum, t}
						if d := demand[key]; len(d) == 0 || d[len(d)-1] != j {
							demand[key] = append(d, j)
						}
						peak[key] = max(peak[key], pu.height)
					}
				}
			}
			for key, v := range peak {
				potential[key] += v
			}
		}
	}
	var rows []cell
	for key, v := range potential {
		if v > p.cums[key.cum].capacity {
			rows = append(rows, key)
		}
	}

	nx := len(cols)
	n := nx + len(rows)
	if n == 0 || n > maxVars {
		return nil, nil, nil, false
	}

	eqRows := 0
	for _, ch := range p.chains {
		eqRows += 1 + len(ch.heads)*len(ch.links)
	}
	m := eqRows + len(rows)
	a = mat.NewDense(m, n, nil)
	b = make([]float64, m)
	c = make([]float64, n)

	// row index of sum_h y = 1 per chain, and of sum_c x - y = 0 per
	// (chain, head, link)
	chainRow := make([]int, len(p.chains))
	linkRow := make([][]int, len(p.chains))
	r := 0
	for ci, ch := range p.chains {
		chainRow[ci] = r
		b[r] = 1
		r++
		linkRow[ci] = make([]int, len(ch.heads)*len(ch.links))
		for i := range linkRow[ci] {
			linkRow[ci][i] = r
			r++
		}
	}
	for j, col := range cols {
		ch := &p.chains[col.chain]
		if col.link < 0 {
			a.Set(chainRow[col.chain], j, 1)
			for k := range ch.links {
				a.Set(linkRow[col.chain][col.head*len(ch.links)+k], j, -1)
			}
			continue
		}
		l := &ch.links[col.link]
		a.Set(linkRow[col.chain][col.head*len(ch.links)+col.link], j, 1)
		c[j] = l.costAt(col.cand, ch.heads[col.head]+ch.offset[col.link])
	}
	for i, key := range rows {
		row := eqRows + i
		for _, j := range demand[key] {
			col := cols[j]
			for _, pu := range p.chains[col.chain].links[col.link].cands[col.cand].pulses {
				if pu.cum == key.cum {
					a.Set(row, j, a.At(row, j)+float64(pu.height))
				}
			}
		}
		a.Set(row, nx+i, 1)
		b[row] = float64(p.cums[key.cum].capacity)
	}
	return c, a, b, true
}

// lpSolve points to the simplex routine. Tests override it to simulate
// failures.
var lpSolve = func(c []float64, a mat.Matrix, b []float64) (float64, error) {
	opt, _, err := lp.Simplex(c, a, b, 1e-9, nil)
	return opt, err
}

// lpBound returns the root relaxation bound. Failures of the relaxation are
// never taken as proof of infeasibility, only as a missing bound.
func (p *problem) lpBound(maxVars int) (bound float64, ok bool, err error) {
	c, a, b, built := p.relaxation(maxVars)
	if !built {
		return 0, false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			bound, ok, err = 0, false, fmt.Errorf("simplex panic: %v", r)
		}
	}()
	opt, err := lpSolve(c, a, b)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(opt) || math.IsInf(opt, 0) {
		return 0, false, fmt.Errorf("simplex returned %v", opt)
	}
	return opt + p.constant, true, nil
}
