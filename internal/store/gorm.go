package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/licensing-portal/internal/database"
	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/utils"
)

var applicationSortFields = []string{"created_at", "updated_at", "status"}

// GormStore keeps applications and events in a relational database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetApplication(ctx context.Context, uid uuid.UUID) (*models.Application, error) {
	return getApplication(s.db.WithContext(ctx), uid)
}

func (s *GormStore) ListEvents(ctx context.Context, uid uuid.UUID) ([]models.TransitionEvent, error) {
	return listEvents(s.db.WithContext(ctx), uid)
}

func (s *GormStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error) {
	return listApplications(s.db.WithContext(ctx), filter)
}

// WithinTx runs fn inside a database transaction. A cancelled context rolls
// the transaction back.
func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

// Snapshot runs fn in a read-only transaction. Postgres gets repeatable
// read; a SQLite read transaction already sees a single snapshot.
func (s *GormStore) Snapshot(ctx context.Context, fn func(r Reader) error) error {
	opts := &sql.TxOptions{ReadOnly: true}
	if s.db.Dialector.Name() == "postgres" {
		opts.Isolation = sql.LevelRepeatableRead
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	}, opts)
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) GetApplication(ctx context.Context, uid uuid.UUID) (*models.Application, error) {
	return getApplication(t.db.WithContext(ctx), uid)
}

func (t *gormTx) ListEvents(ctx context.Context, uid uuid.UUID) ([]models.TransitionEvent, error) {
	return listEvents(t.db.WithContext(ctx), uid)
}

func (t *gormTx) ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error) {
	return listApplications(t.db.WithContext(ctx), filter)
}

func (t *gormTx) InsertApplication(ctx context.Context, app *models.Application) error {
	if err := t.db.WithContext(ctx).Create(app).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert application %s: %w", app.UID, ErrConflict)
		}
		return fmt.Errorf("insert application %s: %w", app.UID, err)
	}
	return nil
}

func (t *gormTx) UpdateApplicationStatus(ctx context.Context, uid uuid.UUID, expected models.Status, expectedRevision int64, next models.Status, at time.Time) error {
	result := t.db.WithContext(ctx).Model(&models.Application{}).
		Where("uid = ? AND status = ? AND revision = ?", uid, expected, expectedRevision).
		Updates(map[string]interface{}{
			"status":     next,
			"revision":   expectedRevision + 1,
			"updated_at": at,
		})
	if result.Error != nil {
		return fmt.Errorf("update application %s status: %w", uid, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update application %s from %s@%d: %w", uid, expected, expectedRevision, ErrConflict)
	}
	return nil
}

func (t *gormTx) InsertEvent(ctx context.Context, event *models.TransitionEvent) error {
	if err := t.db.WithContext(ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert event for %s revision %d: %w", event.ApplicationUID, event.Revision, ErrConflict)
		}
		return fmt.Errorf("insert event for %s: %w", event.ApplicationUID, err)
	}
	return nil
}

func getApplication(db *gorm.DB, uid uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := db.Where("uid = ?", uid).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get application %s: %w", uid, err)
	}
	return &app, nil
}

func listEvents(db *gorm.DB, uid uuid.UUID) ([]models.TransitionEvent, error) {
	var events []models.TransitionEvent
	if err := db.Where("application_uid = ?", uid).
		Order("created_at ASC").Order("id ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events of %s: %w", uid, err)
	}
	return events, nil
}

func listApplications(db *gorm.DB, filter ApplicationFilter) ([]models.Application, int64, error) {
	query := db.Model(&models.Application{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OfficerIdentity != "" {
		query = query.Where("officer_identity = ?", filter.OfficerIdentity)
	}
	if filter.DealerIdentity != "" {
		query = query.Where("dealer_identity = ?", filter.DealerIdentity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	params := filter.PaginationParams.Normalize()
	query = utils.ApplySort(query, params, applicationSortFields).Order("uid " + params.Order)
	query = utils.ApplyPagination(query, params)

	var apps []models.Application
	if err := query.Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch applications: %w", err)
	}
	return apps, total, nil
}
