// ABOUTME: Online clock drift/offset estimation package
// ABOUTME: Implements the TinySync and MiniSync constraint-based estimators
// Package sync estimates the relative drift and offset between a
// synchronizing node's clock and a reference node's clock from one-way
// timing observations carried over a best-effort link.
//
// Each observation is a triple (sent, received-remote, received-local) in
// microseconds. Every triple tightens a pair of linear constraints on the
// affine relationship local = drift*remote + offset; TinySync keeps the
// pair and nothing else, MiniSync keeps every point that could still
// contribute to a tighter future pair.
//
// Example:
//
//	est := sync.New(sync.Mini)
//	err := est.AddSample(tSent, tRemote, tRecv)
//	drift, driftErr := est.Drift()
//	offset, offsetErr := est.Offset()
package sync
