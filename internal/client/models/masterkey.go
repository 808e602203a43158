package models

// MasterKey field names.
const (
	FieldSourceApplication = "source_application"
	FieldEncryptionMethod  = "encryption_method"
	FieldChecksum          = "checksum"
	FieldContent           = "content"
)

// MasterKey holds a data key wrapped with a password-derived key. It has no
// title and is never encrypted itself.
type MasterKey struct {
	BaseItem
	SourceApplication string
	EncryptionMethod  int64
	Checksum          string
	Content           string
}

var masterKeySchema = []FieldSpec{
	{FieldID, KindText},
	{FieldCreatedTime, KindTime},
	{FieldUpdatedTime, KindTime},
	{FieldSourceApplication, KindText},
	{FieldEncryptionMethod, KindInt},
	{FieldChecksum, KindText},
	{FieldContent, KindText},
}

func (m *MasterKey) Type() ItemType { return TypeMasterKey }

func (m *MasterKey) Schema() []FieldSpec { return masterKeySchema }

func (m *MasterKey) Values() map[string]any {
	return map[string]any{
		FieldID:                m.ID,
		FieldCreatedTime:       m.CreatedTime,
		FieldUpdatedTime:       m.UpdatedTime,
		FieldSourceApplication: m.SourceApplication,
		FieldEncryptionMethod:  m.EncryptionMethod,
		FieldChecksum:          m.Checksum,
		FieldContent:           m.Content,
	}
}

func (m *MasterKey) Assign(name string, value any) (err error) {
	switch name {
	case FieldID:
		m.ID, err = asString(name, value)
	case FieldCreatedTime:
		m.CreatedTime, err = asInt(name, value)
	case FieldUpdatedTime:
		m.UpdatedTime, err = asInt(name, value)
	case FieldSourceApplication:
		m.SourceApplication, err = asString(name, value)
	case FieldEncryptionMethod:
		m.EncryptionMethod, err = asInt(name, value)
	case FieldChecksum:
		m.Checksum, err = asString(name, value)
	case FieldContent:
		m.Content, err = asString(name, value)
	}
	return err
}
