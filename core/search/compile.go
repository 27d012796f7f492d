package search

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/kilianp07/ecas/core/cp"
)

// ErrUnsupported is returned for model constructs the engine cannot search.
var ErrUnsupported = errors.New("unsupported model construct")

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))
}

type role int

const (
	roleFree role = iota
	roleMaster
	roleCandidate
	roleWindow
)

type pulseRef struct {
	cum    int
	height int
}

type candidate struct {
	id     cp.IntervalID
	fns    []int
	pulses []pulseRef
	terms  []cp.EnergyTerm
	fixed  float64
}

// link is one master interval of a chain together with its candidates.
type link struct {
	master   cp.IntervalID
	length   int
	startMin int
	startMax int
	terms    []cp.EnergyTerm
	cands    []candidate
	// cost[c][s-startMin] is the cost of candidate c at start s, +Inf when
	// the placement is never feasible.
	cost [][]float64
	// best[s-startMin] is the minimum over candidates.
	best []float64
	// order[s-startMin] lists candidates by increasing cost.
	order [][]int
}

func (l *link) costAt(c, s int) float64 {
	if s < l.startMin || s > l.startMax {
		return math.Inf(1)
	}
	return l.cost[c][s-l.startMin]
}

func (l *link) bestAt(s int) float64 {
	if s < l.startMin || s > l.startMax {
		return math.Inf(1)
	}
	return l.best[s-l.startMin]
}

// chain is a sequence of masters linked end to start. Fixing the head start
// fixes every link start.
type chain struct {
	links   []link
	offset  []int
	heads   []int
	headLB  map[int]float64
	minCost float64
}

func (c *chain) rest(k, head int) float64 {
	var sum float64
	for ; k < len(c.links); k++ {
		sum += c.links[k].bestAt(head + c.offset[k])
	}
	return sum
}

// powerFn is a state function together with the windows spanning its ON runs.
type powerFn struct {
	id         cp.StateFnID
	horizon    int
	forbidden  []bool
	prefix     []int
	windows    []cp.IntervalID
	startMin   int
	endMax     int
	lenMin     int
	lenMax     int
	delay      int
	terms      []cp.EnergyTerm
	presence   float64
	minPrice   []float64
	spanned    bool
	maxWindows int
}

func (f *powerFn) forbiddenIn(s, e int) bool {
	if s < 0 || e > f.horizon {
		return true
	}
	return f.prefix[e]-f.prefix[s] > 0
}

type cumulative struct {
	name     string
	capacity int
}

// problem is the compiled, search-ready view of a model.
type problem struct {
	model    *cp.Model
	chains   []chain
	fns      []powerFn
	cums     []cumulative
	slots    int
	constant float64
	// suffix[i] is the sum of the minimum costs of chains i and later.
	suffix []float64
}

func compile(m *cp.Model) (*problem, error) {
	p := &problem{model: m, constant: m.Objective.Constant}
	n := len(m.Intervals)
	roles := make([]role, n)
	linkOf := make([]int, n) // alternative index for masters and candidates
	candIdx := make([]int, n)
	fnOf := make([]int, n)

	for i := range m.Intervals {
		iv := m.Intervals[i]
		if iv.EndMax+1 > p.slots {
			p.slots = iv.EndMax + 1
		}
	}
	for _, sf := range m.StateFunctions {
		if sf.Horizon+1 > p.slots {
			p.slots = sf.Horizon + 1
		}
	}

	links := make([]link, len(m.Alternatives))
	for a, alt := range m.Alternatives {
		master := m.Intervals[alt.Parent]
		if roles[alt.Parent] != roleFree {
			return nil, unsupported("interval %s used by several alternatives", master.Name)
		}
		if master.Optional {
			return nil, unsupported("optional alternative parent %s", master.Name)
		}
		length, ok := master.FixedLength()
		if !ok {
			return nil, unsupported("variable length interval %s", master.Name)
		}
		roles[alt.Parent] = roleMaster
		linkOf[alt.Parent] = a
		l := link{master: alt.Parent, length: length, startMin: master.StartMin, startMax: master.EndMax - length}
		for c, id := range alt.Candidates {
			iv := m.Intervals[id]
			if roles[id] != roleFree {
				return nil, unsupported("interval %s used by several alternatives", iv.Name)
			}
			if !iv.Optional {
				return nil, unsupported("alternative candidate %s is not optional", iv.Name)
			}
			if cl, fixed := iv.FixedLength(); !fixed || cl != length {
				return nil, unsupported("candidate %s length differs from %s", iv.Name, master.Name)
			}
			roles[id] = roleCandidate
			linkOf[id] = a
			candIdx[id] = c
			l.cands = append(l.cands, candidate{id: id})
		}
		links[a] = l
	}

	p.fns = make([]powerFn, len(m.StateFunctions))
	for i, sf := range m.StateFunctions {
		p.fns[i] = powerFn{id: sf.ID, horizon: sf.Horizon, forbidden: make([]bool, sf.Horizon), delay: 1}
	}
	for _, b := range m.StateBounds {
		if b.Value != cp.Off {
			return nil, unsupported("state bound forcing %s", b.Value)
		}
		f := &p.fns[b.Function]
		for t := max(b.From, 0); t < min(b.To, f.horizon); t++ {
			f.forbidden[t] = true
		}
	}
	for i := range p.fns {
		f := &p.fns[i]
		f.prefix = make([]int, f.horizon+1)
		for t, fb := range f.forbidden {
			f.prefix[t+1] = f.prefix[t]
			if fb {
				f.prefix[t+1]++
			}
		}
	}
	for _, sp := range m.Spans {
		if sp.Value != cp.On {
			return nil, unsupported("spans with value %s", sp.Value)
		}
		f := &p.fns[sp.Function]
		if f.spanned {
			return nil, unsupported("several spans on %s", m.StateFunctions[sp.Function].Name)
		}
		f.spanned = true
		f.windows = append([]cp.IntervalID(nil), sp.Windows...)
		f.maxWindows = len(sp.Windows)
		for k, id := range sp.Windows {
			iv := m.Intervals[id]
			if roles[id] != roleFree {
				return nil, unsupported("window %s has several roles", iv.Name)
			}
			if !iv.Optional {
				return nil, unsupported("window %s is not optional", iv.Name)
			}
			roles[id] = roleWindow
			fnOf[id] = int(sp.Function)
			if k == 0 {
				f.startMin, f.endMax, f.lenMin, f.lenMax = iv.StartMin, iv.EndMax, iv.LengthMin, iv.LengthMax
			} else if iv.StartMin != f.startMin || iv.EndMax != f.endMax || iv.LengthMin != f.lenMin || iv.LengthMax != f.lenMax {
				return nil, unsupported("windows of %s have different domains", m.StateFunctions[sp.Function].Name)
			}
		}
	}

	for _, iv := range m.Intervals {
		if roles[iv.ID] == roleFree && !iv.Optional {
			return nil, unsupported("interval %s is not placed by any alternative", iv.Name)
		}
	}

	// forEachCand applies fn to the candidates an interval stands for.
	forEachCand := func(id cp.IntervalID, what string, fn func(*candidate)) error {
		switch roles[id] {
		case roleCandidate:
			fn(&links[linkOf[id]].cands[candIdx[id]])
		case roleMaster:
			l := &links[linkOf[id]]
			for c := range l.cands {
				fn(&l.cands[c])
			}
		default:
			return unsupported("%s on interval %s", what, m.Intervals[id].Name)
		}
		return nil
	}

	for _, ae := range m.AlwaysEquals {
		if ae.Value != cp.On {
			return nil, unsupported("alwaysEqual with value %s", ae.Value)
		}
		fn := int(ae.Function)
		if err := forEachCand(ae.Interval, "alwaysEqual", func(c *candidate) { c.fns = append(c.fns, fn) }); err != nil {
			return nil, err
		}
	}
	for ci, cum := range m.Cumulatives {
		p.cums = append(p.cums, cumulative{name: cum.Name, capacity: cum.Capacity})
		for _, pu := range cum.Pulses {
			if pu.Height <= 0 {
				continue
			}
			ref := pulseRef{cum: ci, height: pu.Height}
			if err := forEachCand(pu.Interval, "pulse", func(c *candidate) { c.pulses = append(c.pulses, ref) }); err != nil {
				return nil, err
			}
		}
	}

	windowTerms := make(map[cp.IntervalID][]cp.EnergyTerm)
	windowPresence := make(map[cp.IntervalID]float64)
	for _, t := range m.Objective.Energy {
		id := t.Interval
		switch roles[id] {
		case roleMaster:
			l := &links[linkOf[id]]
			l.terms = append(l.terms, t)
		case roleCandidate:
			c := &links[linkOf[id]].cands[candIdx[id]]
			c.terms = append(c.terms, t)
		case roleWindow:
			// compared across windows, so drop the interval reference
			t.Interval = 0
			windowTerms[id] = append(windowTerms[id], t)
		default:
			if m.Intervals[id].Optional {
				continue
			}
			return nil, unsupported("energy term on %s", m.Intervals[id].Name)
		}
	}
	for _, t := range m.Objective.Presence {
		switch roles[t.Interval] {
		case roleMaster:
			p.constant += t.Cost
		case roleCandidate:
			links[linkOf[t.Interval]].cands[candIdx[t.Interval]].fixed += t.Cost
		case roleWindow:
			windowPresence[t.Interval] += t.Cost
		default:
			if m.Intervals[t.Interval].Optional {
				continue
			}
			p.constant += t.Cost
		}
	}
	for i := range p.fns {
		f := &p.fns[i]
		if !f.spanned {
			continue
		}
		for k, id := range f.windows {
			terms, presence := windowTerms[id], windowPresence[id]
			if k == 0 {
				f.terms, f.presence = terms, presence
				continue
			}
			if !slices.Equal(terms, f.terms) || presence != f.presence {
				return nil, unsupported("windows of %s have different costs", m.StateFunctions[f.id].Name)
			}
		}
		if f.presence < 0 {
			return nil, unsupported("negative window presence cost on %s", m.StateFunctions[f.id].Name)
		}
		f.minPrice = make([]float64, len(f.terms))
		for j, t := range f.terms {
			if t.Power < 0 {
				return nil, unsupported("negative window power on %s", m.StateFunctions[f.id].Name)
			}
			lo := math.Inf(1)
			for _, v := range m.StepFunctions[t.Prices].Values {
				if v < 0 {
					return nil, unsupported("negative price in %s", m.StepFunctions[t.Prices].Name)
				}
				lo = min(lo, v)
			}
			if math.IsInf(lo, 1) {
				lo = 0
			}
			f.minPrice[j] = lo
		}
	}

	for _, im := range m.Implications {
		then := m.Intervals[im.Then]
		if !then.Optional {
			continue
		}
		if roles[im.If] == roleWindow && roles[im.Then] == roleWindow && fnOf[im.If] == fnOf[im.Then] {
			continue
		}
		return nil, unsupported("presence implication %s => %s", m.Intervals[im.If].Name, then.Name)
	}
	for _, eb := range m.EndBeforeStarts {
		if roles[eb.Before] == roleWindow && roles[eb.After] == roleWindow && fnOf[eb.Before] == fnOf[eb.After] {
			if eb.Delay < 1 {
				return nil, unsupported("windows of %s may touch", m.StateFunctions[fnOf[eb.Before]].Name)
			}
			f := &p.fns[fnOf[eb.Before]]
			f.delay = max(f.delay, eb.Delay)
			continue
		}
		return nil, unsupported("precedence %s before %s", m.Intervals[eb.Before].Name, m.Intervals[eb.After].Name)
	}

	for i := range links {
		p.tabulate(&links[i])
	}
	chains, err := chainLinks(m, links, roles, linkOf)
	if err != nil {
		return nil, err
	}
	p.chains = chains
	p.rank()
	return p, nil
}

// tabulate fills the cost tables of a link, marking placements that can
// never be feasible on their own with +Inf.
func (p *problem) tabulate(l *link) {
	m := p.model
	width := max(l.startMax-l.startMin+1, 0)
	l.cost = make([][]float64, len(l.cands))
	l.best = make([]float64, width)
	l.order = make([][]int, width)
	for i := range l.best {
		l.best[i] = math.Inf(1)
	}
	for c, cand := range l.cands {
		iv := m.Intervals[cand.id]
		l.cost[c] = make([]float64, width)
		for i := 0; i < width; i++ {
			s := l.startMin + i
			e := s + l.length
			if !p.placeable(cand, iv, s, e) {
				l.cost[c][i] = math.Inf(1)
				continue
			}
			v := cand.fixed
			for _, t := range l.terms {
				v += m.EnergyCost(t, s, e)
			}
			for _, t := range cand.terms {
				v += m.EnergyCost(t, s, e)
			}
			l.cost[c][i] = v
			l.best[i] = min(l.best[i], v)
		}
	}
	for i := 0; i < width; i++ {
		ord := make([]int, 0, len(l.cands))
		for c := range l.cands {
			if !math.IsInf(l.cost[c][i], 1) {
				ord = append(ord, c)
			}
		}
		sort.SliceStable(ord, func(a, b int) bool { return l.cost[ord[a]][i] < l.cost[ord[b]][i] })
		l.order[i] = ord
	}
}

func (p *problem) placeable(c candidate, iv cp.Interval, s, e int) bool {
	if s < iv.StartMin || e > iv.EndMax {
		return false
	}
	for _, fn := range c.fns {
		if p.fns[fn].forbiddenIn(s, e) {
			return false
		}
	}
	for _, pu := range c.pulses {
		if pu.height > p.cums[pu.cum].capacity {
			return false
		}
	}
	return true
}

func chainLinks(m *cp.Model, links []link, roles []role, linkOf []int) ([]chain, error) {
	next := make([]int, len(links))
	hasPrev := make([]bool, len(links))
	for i := range next {
		next[i] = -1
	}
	for _, ea := range m.EndAtStarts {
		if roles[ea.Before] != roleMaster || roles[ea.After] != roleMaster {
			return nil, unsupported("endAtStart between %s and %s", m.Intervals[ea.Before].Name, m.Intervals[ea.After].Name)
		}
		a, b := linkOf[ea.Before], linkOf[ea.After]
		if next[a] >= 0 || hasPrev[b] {
			return nil, unsupported("branching endAtStart at %s", m.Intervals[ea.Before].Name)
		}
		next[a] = b
		hasPrev[b] = true
	}
	var chains []chain
	seen := 0
	for head := range links {
		if hasPrev[head] {
			continue
		}
		var ch chain
		off := 0
		for i := head; i >= 0; i = next[i] {
			ch.links = append(ch.links, links[i])
			ch.offset = append(ch.offset, off)
			off += links[i].length
			seen++
		}
		chains = append(chains, ch)
	}
	if seen != len(links) {
		return nil, unsupported("cyclic endAtStart")
	}
	return chains, nil
}

// rank computes the feasible head starts of every chain, orders them by
// lower bound and sorts chains so the tightest ones are branched first.
func (p *problem) rank() {
	for i := range p.chains {
		ch := &p.chains[i]
		lo, hi := math.MinInt, math.MaxInt
		for k, l := range ch.links {
			lo = max(lo, l.startMin-ch.offset[k])
			hi = min(hi, l.startMax-ch.offset[k])
		}
		ch.headLB = make(map[int]float64)
		ch.minCost = math.Inf(1)
		for h := lo; h <= hi; h++ {
			v := ch.rest(0, h)
			if math.IsInf(v, 1) {
				continue
			}
			ch.heads = append(ch.heads, h)
			ch.headLB[h] = v
			ch.minCost = min(ch.minCost, v)
		}
		sort.SliceStable(ch.heads, func(a, b int) bool { return ch.headLB[ch.heads[a]] < ch.headLB[ch.heads[b]] })
	}
	sort.SliceStable(p.chains, func(a, b int) bool {
		return len(p.chains[a].heads) < len(p.chains[b].heads)
	})
	p.suffix = make([]float64, len(p.chains)+1)
	for i := len(p.chains) - 1; i >= 0; i-- {
		p.suffix[i] = p.suffix[i+1] + p.chains[i].minCost
	}
}

// windowBound is a lower bound on the window cost of a function with used
// busy slots.
func (f *powerFn) windowBound(used int) float64 {
	if !f.spanned || used == 0 {
		return 0
	}
	v := f.presence
	for j, t := range f.terms {
		if t.PerLength {
			v += t.Power * float64(used) * f.minPrice[j]
		} else {
			v += t.Power * f.minPrice[j]
		}
	}
	return v
}
