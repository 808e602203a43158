// Package models defines the polymorphic item model persisted and synced by
// the engine: notes, folders, resources and master keys, plus the
// bookkeeping rows used for synchronization.
package models

import (
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// ItemType is the discriminant stored in the type_ property. Values match
// the interchange format and must never change.
type ItemType int

const (
	TypeNote      ItemType = 1
	TypeFolder    ItemType = 2
	TypeResource  ItemType = 4
	TypeMasterKey ItemType = 9
)

func (t ItemType) String() string {
	switch t {
	case TypeNote:
		return "note"
	case TypeFolder:
		return "folder"
	case TypeResource:
		return "resource"
	case TypeMasterKey:
		return "master_key"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// FieldKind tells storage and serialization code how to convert a field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindInt
	KindBool
	KindTime
)

// FieldSpec describes one persisted field of a variant.
type FieldSpec struct {
	Name string
	Kind FieldKind
}

// Field names shared by several variants.
const (
	FieldID                   = "id"
	FieldType                 = "type_"
	FieldTitle                = "title"
	FieldBody                 = "body"
	FieldParentID             = "parent_id"
	FieldCreatedTime          = "created_time"
	FieldUpdatedTime          = "updated_time"
	FieldUserCreatedTime      = "user_created_time"
	FieldUserUpdatedTime      = "user_updated_time"
	FieldEncryptionApplied    = "encryption_applied"
	FieldEncryptionCipherText = "encryption_cipher_text"
)

// Item is implemented by the four variants only.
//
// Values and Assign are keyed by field name; values are string for text
// fields, int64 for int and time fields, bool for bool fields.
type Item interface {
	Type() ItemType
	Base() *BaseItem
	Schema() []FieldSpec
	Values() map[string]any
	Assign(name string, value any) error
	isItem()
}

// BaseItem carries the properties common to every variant.
type BaseItem struct {
	ID                   string
	Title                string
	CreatedTime          int64
	UpdatedTime          int64
	UserCreatedTime      int64
	UserUpdatedTime      int64
	EncryptionApplied    bool
	EncryptionCipherText string
}

func (b *BaseItem) Base() *BaseItem { return b }

func (b *BaseItem) isItem() {}

var baseSchema = []FieldSpec{
	{FieldID, KindText},
	{FieldTitle, KindText},
	{FieldCreatedTime, KindTime},
	{FieldUpdatedTime, KindTime},
	{FieldUserCreatedTime, KindTime},
	{FieldUserUpdatedTime, KindTime},
	{FieldEncryptionCipherText, KindText},
	{FieldEncryptionApplied, KindBool},
}

func (b *BaseItem) values() map[string]any {
	return map[string]any{
		FieldID:                   b.ID,
		FieldTitle:                b.Title,
		FieldCreatedTime:          b.CreatedTime,
		FieldUpdatedTime:          b.UpdatedTime,
		FieldUserCreatedTime:      b.UserCreatedTime,
		FieldUserUpdatedTime:      b.UserUpdatedTime,
		FieldEncryptionCipherText: b.EncryptionCipherText,
		FieldEncryptionApplied:    b.EncryptionApplied,
	}
}

// assign sets a base field. ok is false when name is not a base field.
func (b *BaseItem) assign(name string, v any) (ok bool, err error) {
	switch name {
	case FieldID:
		b.ID, err = asString(name, v)
	case FieldTitle:
		b.Title, err = asString(name, v)
	case FieldCreatedTime:
		b.CreatedTime, err = asInt(name, v)
	case FieldUpdatedTime:
		b.UpdatedTime, err = asInt(name, v)
	case FieldUserCreatedTime:
		b.UserCreatedTime, err = asInt(name, v)
	case FieldUserUpdatedTime:
		b.UserUpdatedTime, err = asInt(name, v)
	case FieldEncryptionCipherText:
		b.EncryptionCipherText, err = asString(name, v)
	case FieldEncryptionApplied:
		b.EncryptionApplied, err = asBool(name, v)
	default:
		return false, nil
	}
	return true, err
}

func asString(name string, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%w: %s expects text, got %T", common.ErrInvalidField, name, v)
}

func asInt(name string, v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s expects integer, got %T", common.ErrInvalidField, name, v)
}

func asBool(name string, v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case int:
		return x != 0, nil
	case nil:
		return false, nil
	}
	return false, fmt.Errorf("%w: %s expects bool, got %T", common.ErrInvalidField, name, v)
}

func joinSchema(extra ...FieldSpec) []FieldSpec {
	out := make([]FieldSpec, 0, len(baseSchema)+len(extra))
	out = append(out, baseSchema...)
	return append(out, extra...)
}

// IsPrivateField reports whether name is internal bookkeeping that must not
// leave the process. The discriminant is the one exception to the trailing
// underscore convention.
func IsPrivateField(name string) bool {
	return name != FieldType && len(name) > 0 && name[len(name)-1] == '_'
}

// ParentID returns the parent folder id of notes and folders, "" otherwise.
func ParentID(it Item) string {
	switch x := it.(type) {
	case *Note:
		return x.ParentID
	case *Folder:
		return x.ParentID
	}
	return ""
}

// DisplayTitle is the user-facing label: encrypted items do not expose
// their title.
func DisplayTitle(it Item) string {
	if it == nil {
		return ""
	}
	if it.Base().EncryptionApplied {
		return "🔑 Encrypted"
	}
	return it.Base().Title
}
