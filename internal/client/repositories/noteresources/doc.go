// Package noteresources keeps the note to resource link table in sync with
// the resource ids referenced from note bodies.
package noteresources
