package sync

// Constraint is the line C(L, U) through one lower point and one upper
// point with distinct X coordinates.
//
//	A = (U.Y - L.Y) / (U.X - L.X)   slope
//	B = L.Y - A*L.X                 intercept
//
// A lower constraint has L.X < U.X: its slope upper-bounds the true drift
// and its intercept lower-bounds the true offset. An upper constraint has
// L.X > U.X, with both bounds reversed. Classification is implicit in which
// map of the Store a Constraint ends up in; the struct itself only carries
// the geometry and the originating point ids.
type Constraint struct {
	A, B    float64
	LowerID pointID
	UpperID pointID
}

// newConstraint builds the line through lower and upper. It reports false
// without error when lower.X == upper.X — the spec's DegenerateConstraint
// case is a silent skip, never a user-visible failure.
func newConstraint(lowerID pointID, lower Point, upperID pointID, upper Point) (Constraint, bool) {
	if lower.X == upper.X {
		return Constraint{}, false
	}
	a := (upper.Y - lower.Y) / (upper.X - lower.X)
	b := lower.Y - a*lower.X
	return Constraint{A: a, B: b, LowerID: lowerID, UpperID: upperID}, true
}
