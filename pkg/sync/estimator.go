package sync

import "time"

// Estimate is a value with its derived error bound, returned by Drift and
// Offset.
type Estimate struct {
	Value float64
	Error float64
}

// Estimator is C4, the shared base behind both TinySync and MiniSync. It
// ingests timestamp triples, maintains the tightest constraint pair, and
// answers drift/offset/adjusted-time queries. The two algorithms differ
// only in the pruner they install (Design Notes §9); everything else here
// is common.
//
// An Estimator is built for single-writer use: one goroutine calling
// AddSample, any number of readers calling Drift/Offset/AdjustedNow, with
// no internal synchronization (spec.md §5). A host that shares one
// Estimator across goroutines must serialize access itself.
type Estimator struct {
	store  *Store
	pruner pruner

	processed int
	pair      pair
	havePair  bool

	drift  Estimate
	offset Estimate
}

// Algorithm selects the pruning strategy a new Estimator uses.
type Algorithm string

const (
	// Tiny retains only the current tight pair's four endpoints: O(1)
	// memory, error bounds that can loosen again over time.
	Tiny Algorithm = "tiny"
	// Mini retains every point that could still contribute to a future
	// tighter pair: O(hull size) memory, empirically non-increasing
	// error bounds.
	Mini Algorithm = "mini"
)

// New creates an Estimator in its neutral state: drift 1.0, offset 0, both
// errors 0, processed 0. Neutral reads are identical for both algorithms
// until AddSample has been called at least twice.
func New(algo Algorithm) *Estimator {
	var p pruner
	switch algo {
	case Mini:
		p = newMiniPruner()
	default:
		p = tinyPruner{}
	}
	return &Estimator{
		store:  newStore(),
		pruner: p,
		drift:  Estimate{Value: 1.0},
		offset: Estimate{},
	}
}

// AddSample ingests one (T_o, T_b, T_r) triple: local send time, remote
// timestamp, local receive time, all in microseconds. It builds the lower
// point (T_b, T_o) and upper point (T_b, T_r), extends the constraint
// store, and — once at least two samples have been processed — searches
// for the new tightest pair and recomputes the estimate.
//
// It returns ErrNonMonotoneDrift if the recomputed drift would be <= 0;
// the estimate from before this call is left in place.
func (e *Estimator) AddSample(tSent, tRemote, tRecv float64) error {
	lowerID, _ := e.store.addLower(Point{X: tRemote, Y: tSent, Polarity: Lower})
	upperID, _ := e.store.addUpper(Point{X: tRemote, Y: tRecv, Polarity: Upper})
	_, _ = lowerID, upperID

	e.processed++
	if e.processed < 2 {
		return nil
	}

	winner, found := e.store.tightestPair()
	if !found {
		return nil
	}
	e.pair = winner
	e.havePair = true
	e.pruner.cleanup(e.store, winner)

	drift := Estimate{
		Value: (winner.LC.A + winner.UC.A) / 2,
		Error: (winner.LC.A - winner.UC.A) / 2,
	}
	offset := Estimate{
		Value: (winner.LC.B + winner.UC.B) / 2,
		Error: (winner.UC.B - winner.LC.B) / 2,
	}

	if drift.Value <= 0 {
		return ErrNonMonotoneDrift
	}
	e.drift = drift
	e.offset = offset
	return nil
}

// Drift returns the current drift estimate and its error bound. On an
// Empty or Seeded estimator (processed < 2) it returns the neutral default
// (1.0, 0).
func (e *Estimator) Drift() (value, errBound float64) {
	return e.drift.Value, e.drift.Error
}

// Offset returns the current offset estimate, in microseconds, and its
// error bound. On an Empty or Seeded estimator it returns the neutral
// default (0, 0).
func (e *Estimator) Offset() (value, errBound float64) {
	return e.offset.Value, e.offset.Error
}

// AdjustedNow converts the local wall clock into the peer's estimated
// clock: drift.value * now + offset.value, with now expressed in
// microseconds since its epoch.
func (e *Estimator) AdjustedNow() float64 {
	return Adjust(e.drift.Value, e.offset.Value, nowMicros())
}

// Adjust applies an affine drift/offset estimate to a raw microsecond
// timestamp. It is exported so callers (and tests) can apply an estimate
// to an arbitrary timestamp without routing through the wall clock.
func Adjust(driftValue, offsetValue, atMicros float64) float64 {
	return driftValue*atMicros + offsetValue
}

// Processed reports how many samples have been ingested.
func (e *Estimator) Processed() int {
	return e.processed
}

func nowMicros() float64 {
	return float64(time.Now().UnixNano()) / 1000.0
}
