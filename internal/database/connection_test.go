package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/licensing-portal/internal/config"
	"github.com/javajoker/licensing-portal/internal/models"
)

func TestRunMigrationsOnSQLite(t *testing.T) {
	db, err := Initialize(config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "migrate.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	require.NoError(t, RunMigrations(db))
	// Migrations are re-run on every start.
	require.NoError(t, RunMigrations(db))

	assert.True(t, db.Migrator().HasColumn(&models.Application{}, "attachment_keys"))
	assert.True(t, db.Migrator().HasTable(&models.TransitionEvent{}))

	now := time.Now().UTC()
	app := models.Application{
		UID:                 uuid.New(),
		ApplicantName:       "Jane Doe",
		ApplicantNationalID: "A123456789",
		FirearmID:           "SN-0001",
		OfficerIdentity:     "officer@police.example",
		DealerIdentity:      "dealer@guns.example",
		AttachmentKeys:      models.StringArray{"attachments/dealer_guns.example/a.pdf", "attachments/dealer_guns.example/b,c.png"},
		Status:              models.StatusAssignedToOfficer,
		Revision:            2,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	require.NoError(t, db.Create(&app).Error)

	var got models.Application
	require.NoError(t, db.Where("uid = ?", app.UID).First(&got).Error)
	assert.Equal(t, app.AttachmentKeys, got.AttachmentKeys)
}
