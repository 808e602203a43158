package models

// Note field names.
const (
	FieldIsConflict    = "is_conflict"
	FieldIsTodo        = "is_todo"
	FieldTodoCompleted = "todo_completed"
	FieldSourceURL     = "source_url"
	FieldAuthor        = "author"
)

// Note is a rich-text note. Body may link other items with :/<id>.
type Note struct {
	BaseItem
	ParentID      string
	Body          string
	IsConflict    bool
	IsTodo        bool
	TodoCompleted int64
	SourceURL     string
	Author        string
}

var noteSchema = joinSchema(
	FieldSpec{FieldParentID, KindText},
	FieldSpec{FieldBody, KindText},
	FieldSpec{FieldIsConflict, KindBool},
	FieldSpec{FieldAuthor, KindText},
	FieldSpec{FieldSourceURL, KindText},
	FieldSpec{FieldIsTodo, KindBool},
	FieldSpec{FieldTodoCompleted, KindTime},
)

func (n *Note) Type() ItemType { return TypeNote }

func (n *Note) Schema() []FieldSpec { return noteSchema }

func (n *Note) Values() map[string]any {
	v := n.BaseItem.values()
	v[FieldParentID] = n.ParentID
	v[FieldBody] = n.Body
	v[FieldIsConflict] = n.IsConflict
	v[FieldAuthor] = n.Author
	v[FieldSourceURL] = n.SourceURL
	v[FieldIsTodo] = n.IsTodo
	v[FieldTodoCompleted] = n.TodoCompleted
	return v
}

func (n *Note) Assign(name string, value any) (err error) {
	if ok, err := n.BaseItem.assign(name, value); ok {
		return err
	}
	switch name {
	case FieldParentID:
		n.ParentID, err = asString(name, value)
	case FieldBody:
		n.Body, err = asString(name, value)
	case FieldIsConflict:
		n.IsConflict, err = asBool(name, value)
	case FieldAuthor:
		n.Author, err = asString(name, value)
	case FieldSourceURL:
		n.SourceURL, err = asString(name, value)
	case FieldIsTodo:
		n.IsTodo, err = asBool(name, value)
	case FieldTodoCompleted:
		n.TodoCompleted, err = asInt(name, value)
	}
	return err
}
