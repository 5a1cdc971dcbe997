package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/workflow"
)

// MemoryStore keeps everything in process. Transactions are serialized by a
// single lock and staged on a copy, so a failed transaction leaves nothing
// behind.
type MemoryStore struct {
	mu     sync.RWMutex
	apps   map[uuid.UUID]models.Application
	events map[uuid.UUID][]models.TransitionEvent
	nextID uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		apps:   make(map[uuid.UUID]models.Application),
		events: make(map[uuid.UUID][]models.TransitionEvent),
	}
}

func (s *MemoryStore) GetApplication(ctx context.Context, uid uuid.UUID) (*models.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getMemoryApplication(s.apps, uid)
}

func (s *MemoryStore) ListEvents(ctx context.Context, uid uuid.UUID) ([]models.TransitionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMemoryEvents(s.events, uid), nil
}

func (s *MemoryStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	apps, total := listMemoryApplications(s.apps, filter)
	return apps, total, nil
}

// WithinTx runs fn against a staged copy of the store and publishes it only
// if fn succeeds and ctx is still live.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		memoryView: memoryView{
			apps:   make(map[uuid.UUID]models.Application, len(s.apps)),
			events: make(map[uuid.UUID][]models.TransitionEvent, len(s.events)),
		},
		nextID: s.nextID,
	}
	for k, v := range s.apps {
		tx.apps[k] = v
	}
	for k, v := range s.events {
		tx.events[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.apps = tx.apps
	s.events = tx.events
	s.nextID = tx.nextID
	return nil
}

// Snapshot runs fn under the read lock, so no transaction commits while fn
// is reading.
func (s *MemoryStore) Snapshot(ctx context.Context, fn func(r Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memoryView{apps: s.apps, events: s.events})
}

// memoryView reads one set of maps without locking.
type memoryView struct {
	apps   map[uuid.UUID]models.Application
	events map[uuid.UUID][]models.TransitionEvent
}

func (v *memoryView) GetApplication(ctx context.Context, uid uuid.UUID) (*models.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return getMemoryApplication(v.apps, uid)
}

func (v *memoryView) ListEvents(ctx context.Context, uid uuid.UUID) ([]models.TransitionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return listMemoryEvents(v.events, uid), nil
}

func (v *memoryView) ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	apps, total := listMemoryApplications(v.apps, filter)
	return apps, total, nil
}

type memoryTx struct {
	memoryView
	nextID uint64
}

func (t *memoryTx) InsertApplication(ctx context.Context, app *models.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := t.apps[app.UID]; exists {
		return fmt.Errorf("insert application %s: %w", app.UID, ErrConflict)
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = app.CreatedAt
	}
	t.apps[app.UID] = cloneApplication(*app)
	return nil
}

func (t *memoryTx) UpdateApplicationStatus(ctx context.Context, uid uuid.UUID, expected models.Status, expectedRevision int64, next models.Status, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	app, exists := t.apps[uid]
	if !exists || app.Status != expected || app.Revision != expectedRevision {
		return fmt.Errorf("update application %s from %s@%d: %w", uid, expected, expectedRevision, ErrConflict)
	}
	app.Status = next
	app.Revision = expectedRevision + 1
	app.UpdatedAt = at
	t.apps[uid] = app
	return nil
}

func (t *memoryTx) InsertEvent(ctx context.Context, event *models.TransitionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	existing := t.events[event.ApplicationUID]
	for _, ev := range existing {
		if ev.Revision == event.Revision {
			return fmt.Errorf("insert event for %s revision %d: %w", event.ApplicationUID, event.Revision, ErrConflict)
		}
	}
	t.nextID++
	event.ID = t.nextID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	// Copy on append: the committed slice may share its backing array.
	updated := make([]models.TransitionEvent, len(existing), len(existing)+1)
	copy(updated, existing)
	t.events[event.ApplicationUID] = append(updated, *event)
	return nil
}

func getMemoryApplication(apps map[uuid.UUID]models.Application, uid uuid.UUID) (*models.Application, error) {
	app, ok := apps[uid]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneApplication(app)
	return &out, nil
}

func listMemoryEvents(events map[uuid.UUID][]models.TransitionEvent, uid uuid.UUID) []models.TransitionEvent {
	out := make([]models.TransitionEvent, len(events[uid]))
	copy(out, events[uid])
	workflow.SortEvents(out)
	return out
}

func listMemoryApplications(apps map[uuid.UUID]models.Application, filter ApplicationFilter) ([]models.Application, int64) {
	var matched []models.Application
	for _, app := range apps {
		if filter.Status != nil && app.Status != *filter.Status {
			continue
		}
		if filter.OfficerIdentity != "" && app.OfficerIdentity != filter.OfficerIdentity {
			continue
		}
		if filter.DealerIdentity != "" && app.DealerIdentity != filter.DealerIdentity {
			continue
		}
		matched = append(matched, cloneApplication(app))
	}

	params := filter.PaginationParams.Normalize()
	sort.SliceStable(matched, func(i, j int) bool {
		if params.Order == "desc" {
			return lessApplication(matched[j], matched[i], params.Sort)
		}
		return lessApplication(matched[i], matched[j], params.Sort)
	})

	total := int64(len(matched))
	offset := (params.Page - 1) * params.Limit
	if offset >= len(matched) {
		return []models.Application{}, total
	}
	end := offset + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total
}

func lessApplication(a, b models.Application, field string) bool {
	switch field {
	case "updated_at":
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
	case "status":
		if a.Status != b.Status {
			return a.Status < b.Status
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	return strings.Compare(a.UID.String(), b.UID.String()) < 0
}

func cloneApplication(app models.Application) models.Application {
	if app.AttachmentKeys != nil {
		keys := make(models.StringArray, len(app.AttachmentKeys))
		copy(keys, app.AttachmentKeys)
		app.AttachmentKeys = keys
	}
	return app
}
