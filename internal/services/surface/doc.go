// Package surface builds a smooth implied-volatility surface from scattered
// (strike, time-to-expiry, implied-vol) observations.
//
// What:
//
//   - Store keeps validated samples with a duplicate policy (reject or average).
//   - Triangulate builds a Delaunay mesh of the sample positions.
//   - EstimateGradients fits a weighted least-squares plane around every node.
//   - Interpolant evaluates a C¹ Clough–Tocher cubic inside the convex hull.
//   - Engine ties them together: mutations mark the surface stale, the next
//     query rebuilds it once and publishes it atomically for lock-free reads.
//
// Positions are mapped onto the unit square before triangulation, since
// strikes and expiries live on very different scales. Queries outside the
// convex hull of the samples yield an outside-domain Result, never an error.
//
// Errors:
//
//   - ErrInvalidSample: rejected by range validation.
//   - ErrDuplicateSample: exact (strike, time) match under DuplicateReject.
//   - ErrDegenerateDomain: fewer than three samples or all collinear.
//   - ErrInsufficientNeighbors: a node without a usable 1-ring.
//   - ErrInvalidResolution: grid steps below one.
package surface
