package models

// SyncItem is the per-(item, target) synchronization state.
type SyncItem struct {
	ItemType           ItemType
	ItemID             string
	SyncTarget         int
	SyncTime           int64
	SyncDisabled       bool
	SyncDisabledReason string
}

// DeletedItem is a tombstone: a deletion that still has to be propagated to
// one sync target.
type DeletedItem struct {
	ID          int64
	ItemType    ItemType
	ItemID      string
	DeletedTime int64
	SyncTarget  int
}

// DisabledItem is a sync-disabled row joined with its live item.
type DisabledItem struct {
	SyncItem
	Item Item
}

// NoteResource links a note to a resource referenced from its body.
type NoteResource struct {
	NoteID     string
	ResourceID string
}
