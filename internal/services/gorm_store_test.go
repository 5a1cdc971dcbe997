package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/licensing-portal/internal/config"
	"github.com/javajoker/licensing-portal/internal/database"
	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/store"
	"github.com/javajoker/licensing-portal/internal/workflow"
)

func TestEngineOnSQLite(t *testing.T) {
	db, err := database.Initialize(config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "engine.db") + "?_pragma=busy_timeout(5000)",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		MaxLifetime:  60,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.RunMigrations(db))

	st := store.NewGormStore(db)
	apps := NewApplicationService(st, nil, nil, nil, config.WorkflowConfig{OperationTimeout: 5 * time.Second})
	timeline := NewTimelineService(st, nil, nil)
	ctx := context.Background()

	app, err := apps.SubmitApplication(ctx, dealer, newSubmitRequest())
	require.NoError(t, err)

	_, err = apps.ApplyTransition(ctx, officer, &TransitionRequest{ApplicationUID: app.UID.String(), Action: "APPROVE"})
	require.ErrorIs(t, err, workflow.ErrIllegalTransition)

	_, err = apps.ApplyTransition(ctx, officer, &TransitionRequest{ApplicationUID: app.UID.String(), Action: "START_REVIEW"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		action := "APPROVE"
		if i%2 == 1 {
			action = "REJECT"
		}
		wg.Add(1)
		go func(i int, action string) {
			defer wg.Done()
			_, errs[i] = apps.ApplyTransition(ctx, officer, &TransitionRequest{ApplicationUID: app.UID.String(), Action: action})
		}(i, action)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Contains(t, []workflow.Kind{workflow.KindIllegalTransition, workflow.KindPersistence}, workflow.KindOf(err))
	}
	assert.Equal(t, 1, succeeded)

	tl, err := timeline.GetTimeline(ctx, app.UID.String())
	require.NoError(t, err)
	require.Len(t, tl.Events, 4)
	assert.True(t, tl.Application.Status.IsTerminal())
	assert.Equal(t, []string{"attachments/dealer_guns.example/permit.pdf"}, []string(tl.Application.AttachmentKeys))
	for i, ev := range tl.Events {
		assert.Equal(t, int64(i+1), ev.Revision)
	}
	assert.Equal(t, models.ActionStartReview, tl.Events[2].Action)

	report, err := timeline.VerifyIntegrity(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Empty(t, report.Failures)
}
