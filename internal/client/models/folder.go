package models

// Folder groups notes. An empty ParentID means the folder is at the root.
type Folder struct {
	BaseItem
	ParentID string
}

var folderSchema = joinSchema(
	FieldSpec{FieldParentID, KindText},
)

func (f *Folder) Type() ItemType { return TypeFolder }

func (f *Folder) Schema() []FieldSpec { return folderSchema }

func (f *Folder) Values() map[string]any {
	v := f.BaseItem.values()
	v[FieldParentID] = f.ParentID
	return v
}

func (f *Folder) Assign(name string, value any) (err error) {
	if ok, err := f.BaseItem.assign(name, value); ok {
		return err
	}
	if name == FieldParentID {
		f.ParentID, err = asString(name, value)
	}
	return err
}
