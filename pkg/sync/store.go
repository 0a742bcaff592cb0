package sync

import "sort"

// pairKey identifies a constraint by its originating (lower, upper) point
// id pair. Pair equality rides on pointID equality, which rides on point
// coordinate equality via the index maps below — the same (lower, upper)
// coordinate pair always produces the same pairKey.
type pairKey struct {
	LowerID pointID
	UpperID pointID
}

// pair is the tightest constraint pair: one lower constraint, one upper
// constraint, chosen to minimize (A_lc - A_uc) * (B_uc - B_lc).
type pair struct {
	LC, UC Constraint
}

// Store holds the lower and upper point sets and the constraint maps built
// from every non-degenerate pairing between them. It is the arena of
// Design Notes §9: points live in id-keyed maps, constraints key on id
// pairs, and eviction is a single pass over those maps rather than a
// traversal of object graphs.
type Store struct {
	nextID pointID

	lowerByID  map[pointID]Point
	upperByID  map[pointID]Point
	lowerIndex map[Point]pointID // dedups identical lower samples
	upperIndex map[Point]pointID
	lowerOrder []pointID // ascending by X
	upperOrder []pointID // ascending by X

	lc      map[pairKey]Constraint // L.X < U.X
	lcOrder []pairKey
	uc      map[pairKey]Constraint // L.X > U.X
	ucOrder []pairKey
}

func newStore() *Store {
	return &Store{
		lowerByID:  make(map[pointID]Point),
		upperByID:  make(map[pointID]Point),
		lowerIndex: make(map[Point]pointID),
		upperIndex: make(map[Point]pointID),
		lc:         make(map[pairKey]Constraint),
		uc:         make(map[pairKey]Constraint),
	}
}

// addLower inserts p into L_points, filing a constraint against every point
// currently in U_points with a distinct X. Returns the existing id and
// false if p was already present — duplicate triples are a no-op per the
// spec's set semantics.
func (s *Store) addLower(p Point) (pointID, bool) {
	p.Polarity = Lower
	if id, ok := s.lowerIndex[p]; ok {
		return id, false
	}
	id := s.nextID
	s.nextID++
	s.lowerByID[id] = p
	s.lowerIndex[p] = id
	s.lowerOrder = insertSorted(s.lowerOrder, id, p.X, s.lowerByID)

	for _, uID := range s.upperOrder {
		s.link(id, p, uID, s.upperByID[uID])
	}
	return id, true
}

// addUpper is addLower's symmetric counterpart for U_points.
func (s *Store) addUpper(p Point) (pointID, bool) {
	p.Polarity = Upper
	if id, ok := s.upperIndex[p]; ok {
		return id, false
	}
	id := s.nextID
	s.nextID++
	s.upperByID[id] = p
	s.upperIndex[p] = id
	s.upperOrder = insertSorted(s.upperOrder, id, p.X, s.upperByID)

	for _, lID := range s.lowerOrder {
		s.link(lID, s.lowerByID[lID], id, p)
	}
	return id, true
}

// link files the constraint between a lower and upper point, if any, into
// LC or UC by the sign of L.X - U.X. Degenerate pairs (L.X == U.X) are
// silently dropped, matching spec.md's DegenerateConstraint handling.
func (s *Store) link(lowerID pointID, lower Point, upperID pointID, upper Point) {
	c, ok := newConstraint(lowerID, lower, upperID, upper)
	if !ok {
		return
	}
	key := pairKey{LowerID: lowerID, UpperID: upperID}
	if lower.X < upper.X {
		if _, exists := s.lc[key]; !exists {
			s.lcOrder = append(s.lcOrder, key)
		}
		s.lc[key] = c
	} else {
		if _, exists := s.uc[key]; !exists {
			s.ucOrder = append(s.ucOrder, key)
		}
		s.uc[key] = c
	}
}

// tightestPair walks LC x UC in stable, deterministic order and returns the
// pair minimizing (A_lc - A_uc) * (B_uc - B_lc). ok is false when either
// side is empty.
func (s *Store) tightestPair() (best pair, ok bool) {
	bestD := 0.0
	for _, lk := range s.lcOrder {
		lc := s.lc[lk]
		for _, uk := range s.ucOrder {
			uc := s.uc[uk]
			d := (lc.A - uc.A) * (uc.B - lc.B)
			if !ok || d < bestD {
				best = pair{LC: lc, UC: uc}
				bestD = d
				ok = true
			}
		}
	}
	return best, ok
}

// retain drops every lower point for which keepLower returns false, every
// upper point for which keepUpper returns false, and every constraint that
// referenced a dropped point.
func (s *Store) retain(keepLower, keepUpper func(pointID, Point) bool) {
	for _, id := range append([]pointID(nil), s.lowerOrder...) {
		if !keepLower(id, s.lowerByID[id]) {
			s.evictLower(id)
		}
	}
	for _, id := range append([]pointID(nil), s.upperOrder...) {
		if !keepUpper(id, s.upperByID[id]) {
			s.evictUpper(id)
		}
	}
}

func (s *Store) evictLower(id pointID) {
	p, ok := s.lowerByID[id]
	if !ok {
		return
	}
	delete(s.lowerByID, id)
	delete(s.lowerIndex, p)
	s.lowerOrder = removeID(s.lowerOrder, id)

	s.lcOrder = s.dropConstraints(s.lc, s.lcOrder, func(k pairKey) bool { return k.LowerID == id })
	s.ucOrder = s.dropConstraints(s.uc, s.ucOrder, func(k pairKey) bool { return k.LowerID == id })
}

func (s *Store) evictUpper(id pointID) {
	p, ok := s.upperByID[id]
	if !ok {
		return
	}
	delete(s.upperByID, id)
	delete(s.upperIndex, p)
	s.upperOrder = removeID(s.upperOrder, id)

	s.lcOrder = s.dropConstraints(s.lc, s.lcOrder, func(k pairKey) bool { return k.UpperID == id })
	s.ucOrder = s.dropConstraints(s.uc, s.ucOrder, func(k pairKey) bool { return k.UpperID == id })
}

func (s *Store) dropConstraints(m map[pairKey]Constraint, order []pairKey, match func(pairKey) bool) []pairKey {
	kept := order[:0:0]
	for _, k := range order {
		if match(k) {
			delete(m, k)
			continue
		}
		kept = append(kept, k)
	}
	return kept
}

func insertSorted(order []pointID, id pointID, x float64, byID map[pointID]Point) []pointID {
	i := sort.Search(len(order), func(i int) bool { return byID[order[i]].X >= x })
	order = append(order, 0)
	copy(order[i+1:], order[i:])
	order[i] = id
	return order
}

func removeID(order []pointID, id pointID) []pointID {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
