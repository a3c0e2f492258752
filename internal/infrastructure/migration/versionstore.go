package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/userschema/internal/shared/errors"
)

type versionRow struct {
	VersionNum string `gorm:"column:version_num;primaryKey;size:32"`
}

// VersionStore keeps the applied revision in a single-row table.
type VersionStore struct {
	table string
}

func NewVersionStore(table string) *VersionStore {
	return &VersionStore{table: table}
}

// Ensure creates the version table when it is missing.
func (s *VersionStore) Ensure(db *gorm.DB) error {
	if err := db.Table(s.table).AutoMigrate(&versionRow{}); err != nil {
		return fmt.Errorf("failed to create version table %s: %w", s.table, err)
	}
	return nil
}

// Current returns the recorded revision, or "" when none is recorded.
func (s *VersionStore) Current(db *gorm.DB) (string, error) {
	var versions []string
	if err := db.Table(s.table).Pluck("version_num", &versions).Error; err != nil {
		return "", fmt.Errorf("failed to read version table %s: %w", s.table, err)
	}

	switch len(versions) {
	case 0:
		return "", nil
	case 1:
		return versions[0], nil
	default:
		return "", errors.NewInternalError("version table holds more than one revision", s.table)
	}
}

// Set replaces the recorded revision. An empty version clears the table.
func (s *VersionStore) Set(db *gorm.DB, version string) error {
	if err := db.Table(s.table).Where("1 = 1").Delete(&versionRow{}).Error; err != nil {
		return fmt.Errorf("failed to clear version table %s: %w", s.table, err)
	}
	if version == "" {
		return nil
	}
	if err := db.Table(s.table).Create(&versionRow{VersionNum: version}).Error; err != nil {
		return fmt.Errorf("failed to record version %s: %w", version, err)
	}
	return nil
}
