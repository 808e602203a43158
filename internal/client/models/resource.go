package models

// Resource field names.
const (
	FieldMime                    = "mime"
	FieldFilename                = "filename"
	FieldFileExtension           = "file_extension"
	FieldEncryptionBlobEncrypted = "encryption_blob_encrypted"
)

// Resource describes a binary attachment. The blob itself lives on disk and
// is never part of the text serialization.
type Resource struct {
	BaseItem
	Mime                    string
	Filename                string
	FileExtension           string
	EncryptionBlobEncrypted bool
}

var resourceSchema = joinSchema(
	FieldSpec{FieldMime, KindText},
	FieldSpec{FieldFilename, KindText},
	FieldSpec{FieldFileExtension, KindText},
	FieldSpec{FieldEncryptionBlobEncrypted, KindBool},
)

func (r *Resource) Type() ItemType { return TypeResource }

func (r *Resource) Schema() []FieldSpec { return resourceSchema }

func (r *Resource) Values() map[string]any {
	v := r.BaseItem.values()
	v[FieldMime] = r.Mime
	v[FieldFilename] = r.Filename
	v[FieldFileExtension] = r.FileExtension
	v[FieldEncryptionBlobEncrypted] = r.EncryptionBlobEncrypted
	return v
}

func (r *Resource) Assign(name string, value any) (err error) {
	if ok, err := r.BaseItem.assign(name, value); ok {
		return err
	}
	switch name {
	case FieldMime:
		r.Mime, err = asString(name, value)
	case FieldFilename:
		r.Filename, err = asString(name, value)
	case FieldFileExtension:
		r.FileExtension, err = asString(name, value)
	case FieldEncryptionBlobEncrypted:
		r.EncryptionBlobEncrypted, err = asBool(name, value)
	}
	return err
}
