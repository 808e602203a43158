package common

// Item id length: a 128-bit value rendered as lowercase hex.
const IDLength = 32

// SourceApplication is written into master keys generated by this engine.
const SourceApplication = "net.gophnotes.engine"

// Metadata keys persisted in the key/value store.
const (
	MetadataActiveMasterKey = "encryption.activeMasterKeyId"
	MetadataLastSyncPrefix  = "sync.lastSyncTime."
)
