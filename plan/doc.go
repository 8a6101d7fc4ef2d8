// Package plan holds a minimal logical plan and the pass that pushes LIMIT
// and COUNT into remote scans.
//
// The pass runs once per query during planning, before the scans produce
// data. It only calls the PushdownTarget methods of a scan; projection and
// filters are handed to the scan later by the engine.
//
// A Limit node is left in place after its limit is pushed. The remote is
// asked for LIMIT limit+offset rows without an OFFSET and the node applies
// the offset and limit to them, which stays correct when the scan later
// drops the limit because its filters could not be pushed exactly.
//
//	opt := plan.New(logger)
//	root, stats, err := opt.Optimize(root)
package plan
