package sync

// idPair is an ordered pair of point ids (by X), used to key the slope
// tables low_slopes/high_slopes of spec.md §4.5.
type idPair struct {
	First, Second pointID
}

// miniPruner implements C6: incremental pruning of the lower and upper
// point sets. A point survives cleanup iff it is an endpoint of the current
// tight pair or a vertex of a monotone chain built over its side. The low
// chain pops the middle point of a candidate triple (A, M, P) whenever
// slope(A,M) < slope(M,P), leaving the upper convex hull of the low points;
// the high chain pops when slope(A,M) > slope(M,P), leaving the lower
// convex hull of the high points. Points collinear with their chain
// neighbours are kept.
//
// On convex, concave and mixed point sets this matches the literal rule
// "a low point Pj survives iff there exist i<j<k with slope(i,j) >
// slope(j,k)" (high points: slope(i,j) < slope(j,k))
// (original_source/src/libminisyncpp/minisync.cpp, Algorithms::MiniSync::cleanup),
// but not in general: a low point strictly above some chord yet below the
// upper hull, such as (2,1) among (0,0),(1,5),(2,1),(3,5),(4,0), is kept by
// the literal rule and dropped by the chain.
//
// lowSlopes and highSlopes hold the adjacent-chain slopes from the most
// recent cleanup, for inspection and for the store-consistency tests of
// spec.md §8 ("evicting a point removes every slope that references it").
// They are rebuilt from scratch on every cleanup rather than patched in
// place: the surviving point set stays small in practice, so a fresh
// O(n) scan costs no more than incremental maintenance would, and it
// keeps the tables trivially consistent with whichever points survived.
type miniPruner struct {
	lowSlopes  map[idPair]float64
	highSlopes map[idPair]float64
}

func newMiniPruner() *miniPruner {
	return &miniPruner{
		lowSlopes:  make(map[idPair]float64),
		highSlopes: make(map[idPair]float64),
	}
}

func (m *miniPruner) cleanup(s *Store, winner pair) {
	lowerKeep, lowSlopes := retainedChain(s.lowerOrder, s.lowerByID, func(slopeAM, slopeMP float64) bool {
		return slopeAM < slopeMP // pop M when it lies below chord A-P: keeps the upper hull of the low points
	})
	upperKeep, highSlopes := retainedChain(s.upperOrder, s.upperByID, func(slopeAM, slopeMP float64) bool {
		return slopeAM > slopeMP // symmetric, reversed comparison
	})

	lowerKeep[winner.LC.LowerID] = true
	lowerKeep[winner.UC.LowerID] = true
	upperKeep[winner.LC.UpperID] = true
	upperKeep[winner.UC.UpperID] = true

	s.retain(
		func(id pointID, _ Point) bool { return lowerKeep[id] },
		func(id pointID, _ Point) bool { return upperKeep[id] },
	)

	m.lowSlopes = lowSlopes
	m.highSlopes = highSlopes
}

// retainedChain runs a single monotone-chain pass over order (already
// sorted ascending by X) and returns the surviving ids plus the slopes
// between chain-adjacent pairs. pop(slopeAM, slopeMP) decides whether the
// middle point of a candidate triple (A, M, P) is interior and should be
// dropped from the chain.
func retainedChain(order []pointID, byID map[pointID]Point, pop func(slopeAM, slopeMP float64) bool) (map[pointID]bool, map[idPair]float64) {
	chain := make([]pointID, 0, len(order))
	for _, id := range order {
		p := byID[id]
		for len(chain) >= 2 {
			aID, mID := chain[len(chain)-2], chain[len(chain)-1]
			a, m := byID[aID], byID[mID]
			if pop(slope(a, m), slope(m, p)) {
				chain = chain[:len(chain)-1]
				continue
			}
			break
		}
		chain = append(chain, id)
	}

	keep := make(map[pointID]bool, len(chain))
	slopes := make(map[idPair]float64, len(chain))
	for i, id := range chain {
		keep[id] = true
		if i+1 < len(chain) {
			slopes[idPair{id, chain[i+1]}] = slope(byID[id], byID[chain[i+1]])
		}
	}
	return keep, slopes
}

func slope(a, b Point) float64 {
	return (b.Y - a.Y) / (b.X - a.X)
}
