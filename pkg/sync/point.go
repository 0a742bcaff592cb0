package sync

// Polarity tags a Point as the send-side or receive-side sample of a beacon
// round.
type Polarity int

const (
	// Lower marks a sample (T_b, T_o): remote timestamp paired with the
	// local send time.
	Lower Polarity = iota
	// Upper marks a sample (T_b, T_r): remote timestamp paired with the
	// local receive time.
	Upper
)

func (p Polarity) String() string {
	if p == Upper {
		return "upper"
	}
	return "lower"
}

// Point is an immutable 2-D timing sample. X is the remote timestamp T_b;
// Y is a local timestamp (T_o for a lower point, T_r for an upper point).
// Point is comparable, so equal coordinates collapse to the same value
// regardless of how many times they are observed.
type Point struct {
	X, Y     float64
	Polarity Polarity
}

// pointID is a stable, small-integer handle for a Point held in a Store.
// Constraints and slope tables key on pointID pairs rather than on Point
// values directly, so evicting a point is a single "free this id" operation
// instead of walking every structure that might reference it by value.
type pointID uint64
