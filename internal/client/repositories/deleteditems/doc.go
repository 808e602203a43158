// Package deleteditems stores tombstones: one row per (deleted item, sync
// target) that still has to be applied remotely. Rows are appended on delete
// and drained once the target has processed them.
package deleteditems
