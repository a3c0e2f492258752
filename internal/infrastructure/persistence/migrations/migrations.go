// Package migrations holds the schema revisions of the application database.
// Each revision file registers itself from init; Registry orders them.
package migrations

import (
	"github.com/orris-inc/userschema/internal/infrastructure/migration"
)

var revisions []*migration.Revision

func register(rev *migration.Revision) {
	revisions = append(revisions, rev)
}

// Registry returns the validated revision chain.
func Registry() (*migration.Registry, error) {
	return migration.NewRegistry(revisions...)
}
