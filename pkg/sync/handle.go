package sync

// Handle is the common surface C7 exposes regardless of which pruning
// strategy backs it. Host code that only needs to drive an estimator —
// not inspect its internals — should depend on Handle rather than
// *Estimator, so it stays agnostic to the tiny/mini choice.
type Handle interface {
	AddSample(tSent, tRemote, tRecv float64) error
	Drift() (value, errBound float64)
	Offset() (value, errBound float64)
	AdjustedNow() float64
}

var _ Handle = (*Estimator)(nil)
