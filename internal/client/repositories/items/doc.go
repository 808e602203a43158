// Package items persists every item variant in its own SQLite table.
//
// # Overview
//
// The Repository works on models.Item values. Table and column names come
// from the registry handler of each variant, so one implementation serves
// notes, folders, resources and master keys. SQLiteRepository runs over a
// dbx.DBTX; build it on a *sql.Tx to take part in a transaction.
//
// # Conventions
//
// Booleans are stored as 0/1 integers and timestamps as epoch milliseconds.
// Reads of a missing row return common.ErrorNotFound.
//
// Typical Usage
//
//	repo := items.NewSQLiteRepository(db, reg)
//	_ = repo.Insert(ctx, note)
//	it, _ := repo.Find(ctx, id)
//	batch, _ := repo.NeedDecryption(ctx, models.TypeNote, excluded, 10)
package items
