package sync

import "errors"

// ErrNonMonotoneDrift is returned by AddSample when a recomputed estimate
// would have drift.value <= 0. The estimator keeps whatever estimate it
// held before the call; the caller decides whether to retry, drop the
// sample, or otherwise adapt (spec.md §7).
var ErrNonMonotoneDrift = errors.New("sync: recomputed drift is not positive")
