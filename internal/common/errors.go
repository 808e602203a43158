// Package common defines shared constants and sentinel errors used across
// the gophnotes engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound   = errors.New("not found")
	ErrDuplicateID  = errors.New("an item with this id already exists")
	ErrInvalidField = errors.New("invalid field")

	// Registry misuse. These are programming errors and are never retried.
	ErrUnknownType         = errors.New("unknown item type")
	ErrMissingDiscriminant = errors.New("item does not have a type_ property")
	ErrConflictingHandler  = errors.New("item type already bound to a different handler")
	ErrUnboundVariant      = errors.New("item variant has no handler")

	// Interchange format errors. Multi-item passes turn these into warnings.
	ErrParse  = errors.New("invalid property format")
	ErrSchema = errors.New("missing required property")

	// Encryption state preconditions.
	ErrNotEncrypted        = errors.New("item is not encrypted")
	ErrImmutableEncrypted  = errors.New("encrypted items cannot be modified")
	ErrMissingCipherText   = errors.New("encrypted item has no cipher text")
	ErrNoActiveMasterKey   = errors.New("no active master key")
	ErrMasterKeyNotLoaded  = errors.New("master key is not loaded")
	ErrInvalidPassword     = errors.New("invalid master key password")
	ErrInvalidCipherFormat = errors.New("invalid cipher text format")

	// Resource and folder validation.
	ErrTooLarge       = errors.New("resource is too large")
	ErrNoUniqueTitle  = errors.New("cannot find unique title")
	ErrFolderCycle    = errors.New("folder cannot be moved into one of its own descendants")
	ErrParentNotFound = errors.New("parent folder does not exist")
)
