package registry

import (
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

type itemHandler struct {
	tag     models.ItemType
	table   string
	factory func() models.Item
	names   []string
	kinds   map[string]models.FieldKind
}

// NewHandler builds a Handler whose schema is taken from a zero item made
// by factory.
func NewHandler(tag models.ItemType, table string, factory func() models.Item) Handler {
	schema := factory().Schema()
	h := &itemHandler{
		tag:     tag,
		table:   table,
		factory: factory,
		names:   make([]string, 0, len(schema)),
		kinds:   make(map[string]models.FieldKind, len(schema)),
	}
	for _, f := range schema {
		h.names = append(h.names, f.Name)
		h.kinds[f.Name] = f.Kind
	}
	return h
}

func (h *itemHandler) Type() models.ItemType { return h.tag }

func (h *itemHandler) TableName() string { return h.table }

func (h *itemHandler) FieldNames() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

func (h *itemHandler) FieldType(name string) (models.FieldKind, bool) {
	k, ok := h.kinds[name]
	return k, ok
}

func (h *itemHandler) New() models.Item { return h.factory() }

var (
	NoteHandler      = NewHandler(models.TypeNote, "notes", func() models.Item { return &models.Note{} })
	FolderHandler    = NewHandler(models.TypeFolder, "folders", func() models.Item { return &models.Folder{} })
	ResourceHandler  = NewHandler(models.TypeResource, "resources", func() models.Item { return &models.Resource{} })
	MasterKeyHandler = NewHandler(models.TypeMasterKey, "master_keys", func() models.Item { return &models.MasterKey{} })
)

// Default returns a registry with the built-in handler for every variant.
func Default() (*Registry, error) {
	b := NewBuilder()
	for _, h := range []Handler{NoteHandler, FolderHandler, ResourceHandler, MasterKeyHandler} {
		if err := b.Register(h.Type(), h); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
