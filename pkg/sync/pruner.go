package sync

// pruner is the single dispatch point separating TinySync from MiniSync
// (Design Notes §9: a tagged variant rather than virtual-method
// inheritance). The base Estimator owns the store and the tight-pair
// search; only the eviction policy after a recompute differs by variant.
type pruner interface {
	// cleanup runs after winner has been promoted to the current tight
	// pair. It must leave winner's four endpoint points, and the
	// constraints between them, in the store.
	cleanup(s *Store, winner pair)
}

// tinyPruner implements C5: constant memory, two points retained per side.
type tinyPruner struct{}

func (tinyPruner) cleanup(s *Store, winner pair) {
	keepLower := map[pointID]bool{winner.LC.LowerID: true, winner.UC.LowerID: true}
	keepUpper := map[pointID]bool{winner.LC.UpperID: true, winner.UC.UpperID: true}
	s.retain(
		func(id pointID, _ Point) bool { return keepLower[id] },
		func(id pointID, _ Point) bool { return keepUpper[id] },
	)
}
