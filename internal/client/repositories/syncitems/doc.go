// Package syncitems stores per-target synchronization state: when an item
// was last pushed to a target, and whether the target rejected it for good.
//
// There is at most one row per (sync_target, item_id).
package syncitems
