// internal/services/timeline_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/javajoker/licensing-portal/internal/metrics"
	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/store"
	"github.com/javajoker/licensing-portal/internal/utils"
	"github.com/javajoker/licensing-portal/internal/workflow"
)

// Timeline is an application snapshot plus its reconciled event history.
type Timeline struct {
	Application *models.Application      `json:"application"`
	Events      []models.TransitionEvent `json:"events"`
}

// IntegrityReport lists applications whose history failed reconciliation.
type IntegrityReport struct {
	Checked  int                `json:"checked"`
	Failures []IntegrityFailure `json:"failures"`
}

type IntegrityFailure struct {
	ApplicationUID uuid.UUID `json:"application_uid"`
	Reason         string    `json:"reason"`
}

// TimelineService is the read side: timelines, role-scoped queues and the
// operator integrity scan. It never writes.
type TimelineService struct {
	store   store.SnapshotReader
	table   *workflow.Table
	metrics *metrics.Metrics
}

func NewTimelineService(st store.SnapshotReader, table *workflow.Table, m *metrics.Metrics) *TimelineService {
	if table == nil {
		table = workflow.DefaultTable()
	}
	return &TimelineService{store: st, table: table, metrics: m}
}

// GetTimeline returns the application and its events ordered by created_at,
// then id. Both are read from one snapshot, so any mismatch between them is
// an integrity failure rather than a concurrent commit.
func (s *TimelineService) GetTimeline(ctx context.Context, applicationUID string) (*Timeline, error) {
	uid, err := parseUID(applicationUID)
	if err != nil {
		return nil, err
	}

	var (
		app    *models.Application
		events []models.TransitionEvent
	)
	err = s.store.Snapshot(ctx, func(r store.Reader) error {
		var err error
		if app, err = r.GetApplication(ctx, uid); err != nil {
			return err
		}
		events, err = r.ListEvents(ctx, uid)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err, "failed to load application timeline")
	}

	reconciled, err := workflow.Reconcile(app, events)
	if err != nil {
		s.metrics.IncrementIntegrityFailure()
		logrus.WithError(err).WithFields(logrus.Fields{
			"application_uid": uid,
			"status":          app.Status,
			"revision":        app.Revision,
			"events":          len(events),
		}).Error("Application timeline failed reconciliation")
		return nil, err
	}

	return &Timeline{Application: app, Events: reconciled}, nil
}

// ViewTimeline is GetTimeline for a portal user. Dealers see what they
// submitted, officers what is assigned to them, oversight everything.
// Anything else reads as not found.
func (s *TimelineService) ViewTimeline(ctx context.Context, actor workflow.Actor, applicationUID string) (*Timeline, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	timeline, err := s.GetTimeline(ctx, applicationUID)
	if err != nil {
		return nil, err
	}
	if !canView(timeline.Application, actor) {
		return nil, workflow.NotFound("application not found")
	}
	return timeline, nil
}

// AvailableActions lists the actions actor may request on the application
// in its current status.
func (s *TimelineService) AvailableActions(ctx context.Context, actor workflow.Actor, applicationUID string) ([]models.Action, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	uid, err := parseUID(applicationUID)
	if err != nil {
		return nil, err
	}

	app, err := s.store.GetApplication(ctx, uid)
	if err != nil {
		return nil, translateStoreError(err, "failed to load application")
	}
	if !canView(app, actor) {
		return nil, workflow.NotFound("application not found")
	}

	actions := s.table.ActionsFor(app, actor)
	if actions == nil {
		actions = []models.Action{}
	}
	return actions, nil
}

// ListApplications returns the actor's queue.
func (s *TimelineService) ListApplications(ctx context.Context, actor workflow.Actor, params utils.PaginationParams, status string) ([]models.Application, int64, error) {
	if err := validateActor(actor); err != nil {
		return nil, 0, err
	}

	filter := store.ApplicationFilter{PaginationParams: params.Normalize()}
	if status = strings.TrimSpace(status); status != "" {
		st := models.Status(strings.ToLower(status))
		if !st.Valid() {
			return nil, 0, workflow.Validation("unknown status", workflow.FieldError{
				Field:   "status",
				Tag:     "oneof",
				Message: fmt.Sprintf("%s is not an application status", status),
			})
		}
		filter.Status = &st
	}

	switch actor.Role {
	case models.RoleDealer:
		filter.DealerIdentity = actor.Identity
	case models.RoleOfficer:
		filter.OfficerIdentity = actor.Identity
	}

	apps, total, err := s.store.ListApplications(ctx, filter)
	if err != nil {
		return nil, 0, translateStoreError(err, "failed to list applications")
	}
	return apps, total, nil
}

// VerifyIntegrity reconciles every stored application. At most concurrency
// timelines are checked at once. Integrity failures are collected into the
// report; any other failure aborts the scan.
func (s *TimelineService) VerifyIntegrity(ctx context.Context, concurrency int) (*IntegrityReport, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	report := &IntegrityReport{Failures: []IntegrityFailure{}}
	params := utils.PaginationParams{Page: 1, Limit: utils.MaxPageLimit, Sort: "created_at", Order: "asc"}

	for {
		apps, _, err := s.store.ListApplications(ctx, store.ApplicationFilter{PaginationParams: params})
		if err != nil {
			return nil, translateStoreError(err, "failed to list applications")
		}
		if len(apps) == 0 {
			break
		}

		reasons := make([]string, len(apps))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i := range apps {
			i := i
			g.Go(func() error {
				_, err := s.GetTimeline(gctx, apps[i].UID.String())
				switch {
				case err == nil:
				case errors.Is(err, workflow.ErrIntegrity):
					reasons[i] = err.Error()
				case errors.Is(err, workflow.ErrNotFound):
					// deleted between list and read
				default:
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i, reason := range reasons {
			if reason != "" {
				report.Failures = append(report.Failures, IntegrityFailure{ApplicationUID: apps[i].UID, Reason: reason})
			}
		}
		report.Checked += len(apps)

		if len(apps) < params.Limit {
			break
		}
		params.Page++
	}

	return report, nil
}

func canView(app *models.Application, actor workflow.Actor) bool {
	switch actor.Role {
	case models.RoleOversight:
		return true
	case models.RoleOfficer:
		return app.OfficerIdentity == actor.Identity
	case models.RoleDealer:
		return app.DealerIdentity == actor.Identity
	}
	return false
}

func parseUID(raw string) (uuid.UUID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, workflow.Validation("application uid is invalid", workflow.FieldError{
			Field:   "application_uid",
			Tag:     "uuid",
			Message: "application_uid must be a valid UUID",
		})
	}
	return uid, nil
}
