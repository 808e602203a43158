// Package repositories bundles the SQLite repositories of the local store so
// services can build the whole set over a *sql.DB or inside a transaction.
package repositories

import (
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/deleteditems"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/items"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/noteresources"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/syncitems"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

type Repositories struct {
	Items         items.Repository
	SyncItems     syncitems.Repository
	DeletedItems  deleteditems.Repository
	NoteResources noteresources.Repository
	Metadata      metadata.Repository
}

func New(db dbx.DBTX, reg *registry.Registry) *Repositories {
	return &Repositories{
		Items:         items.NewSQLiteRepository(db, reg),
		SyncItems:     syncitems.NewSQLiteRepository(db),
		DeletedItems:  deleteditems.NewSQLiteRepository(db),
		NoteResources: noteresources.NewSQLiteRepository(db),
		Metadata:      metadata.NewSQLiteRepository(db),
	}
}
