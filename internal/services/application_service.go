// internal/services/application_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/licensing-portal/internal/config"
	"github.com/javajoker/licensing-portal/internal/metrics"
	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/store"
	"github.com/javajoker/licensing-portal/internal/workflow"
)

// Notifier is told about committed changes. It never takes part in the
// transaction; a failing notifier cannot undo a transition.
type Notifier interface {
	ApplicationAssigned(ctx context.Context, app *models.Application) error
	ApplicationTransitioned(ctx context.Context, app *models.Application, event *models.TransitionEvent) error
}

// ApplicationService is the transition engine: the only writer of
// applications and their events.
type ApplicationService struct {
	store    store.Store
	table    *workflow.Table
	notifier Notifier
	metrics  *metrics.Metrics
	config   config.WorkflowConfig
	now      func() time.Time
}

// TransitionResult is the state after an accepted transition.
type TransitionResult struct {
	Application *models.Application     `json:"application"`
	Event       *models.TransitionEvent `json:"event"`
}

func NewApplicationService(st store.Store, table *workflow.Table, notifier Notifier, m *metrics.Metrics, cfg config.WorkflowConfig) *ApplicationService {
	if table == nil {
		table = workflow.DefaultTable()
	}
	return &ApplicationService{
		store:    st,
		table:    table,
		notifier: notifier,
		metrics:  m,
		config:   cfg,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// SubmitApplication creates the application together with its CREATE and
// ASSIGN_TO_OFFICER events in one transaction. On a PersistenceError nothing
// was written and the whole submission may be retried.
func (s *ApplicationService) SubmitApplication(ctx context.Context, actor workflow.Actor, req *SubmitApplicationRequest) (*models.Application, error) {
	app, err := s.submitApplication(ctx, actor, req)
	s.metrics.IncrementSubmission(outcomeOf(err))
	if err != nil {
		logFailure(err, logrus.Fields{"operation": "submit", "actor": actor.Identity, "role": actor.Role})
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"application_uid": app.UID,
		"officer":         app.OfficerIdentity,
		"dealer":          app.DealerIdentity,
	}).Info("Application submitted")

	s.notifyAssigned(ctx, app)
	return app, nil
}

func (s *ApplicationService) submitApplication(ctx context.Context, actor workflow.Actor, req *SubmitApplicationRequest) (*models.Application, error) {
	if req == nil {
		return nil, workflow.Validation("request body is required")
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	req.normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !roleIn(actor.Role, workflow.SubmissionRoles) {
		return nil, workflow.Forbidden(fmt.Sprintf("role %q may not submit applications", actor.Role))
	}
	for i, key := range req.AttachmentKeys {
		if !OwnsKey(actor.Identity, key) {
			return nil, workflow.Validation("attachment does not belong to the dealer", workflow.FieldError{
				Field:   fmt.Sprintf("attachment_keys[%d]", i),
				Tag:     "owner",
				Message: "attachment_keys must reference uploads made by the submitting dealer",
			})
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	uid := uuid.New()
	app := &models.Application{
		UID:                 uid,
		ApplicantName:       req.ApplicantName,
		ApplicantNationalID: req.ApplicantNationalID,
		ApplicantEmail:      req.ApplicantEmail,
		ApplicantPhone:      req.ApplicantPhone,
		ApplicantAddress:    req.ApplicantAddress,
		FirearmID:           req.FirearmID,
		FirearmDescription:  req.FirearmDescription,
		OfficerIdentity:     req.OfficerIdentity,
		DealerIdentity:      actor.Identity,
		AttachmentKeys:      models.StringArray(req.AttachmentKeys),
		Status:              workflow.InitialStatus,
		Revision:            2,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	events := []*models.TransitionEvent{
		{
			ApplicationUID: uid,
			Revision:       1,
			FromStatus:     nil,
			ToStatus:       models.StatusCreated,
			Action:         models.ActionCreate,
			ActorIdentity:  actor.Identity,
			ActorRole:      actor.Role,
			CreatedAt:      now,
		},
		{
			ApplicationUID: uid,
			Revision:       2,
			FromStatus:     models.StatusPtr(models.StatusCreated),
			ToStatus:       workflow.InitialStatus,
			Action:         models.ActionAssignToOfficer,
			ActorIdentity:  actor.Identity,
			ActorRole:      actor.Role,
			Note:           "assigned to " + req.OfficerIdentity,
			CreatedAt:      now,
		},
	}

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertApplication(ctx, app); err != nil {
			return err
		}
		for _, ev := range events {
			if err := tx.InsertEvent(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err, "failed to submit application")
	}

	return app, nil
}

// ApplyTransition runs the read-check-write for one action in a single
// transaction. The status update is conditional on the status and revision
// that were read, so of two racing calls at most one commits.
func (s *ApplicationService) ApplyTransition(ctx context.Context, actor workflow.Actor, req *TransitionRequest) (*TransitionResult, error) {
	start := time.Now()
	result, err := s.applyTransition(ctx, actor, req)

	action := unknownActionLabel
	if req != nil {
		action = req.Action
	}
	label := s.actionLabel(action)
	s.metrics.IncrementTransition(label, outcomeOf(err))
	s.metrics.ObserveTransitionLatency(label, time.Since(start))

	if err != nil {
		logFailure(err, logrus.Fields{
			"operation": "transition",
			"action":    action,
			"actor":     actor.Identity,
			"role":      actor.Role,
		})
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"application_uid": result.Application.UID,
		"action":          result.Event.Action,
		"from":            *result.Event.FromStatus,
		"to":              result.Event.ToStatus,
		"actor":           actor.Identity,
		"role":            actor.Role,
	}).Info("Application transitioned")

	s.notifyTransitioned(ctx, result)
	return result, nil
}

func (s *ApplicationService) applyTransition(ctx context.Context, actor workflow.Actor, req *TransitionRequest) (*TransitionResult, error) {
	if req == nil {
		return nil, workflow.Validation("request body is required")
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	req.normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	uid := uuid.MustParse(req.ApplicationUID)
	action := models.Action(req.Action)
	if workflow.IsSubmissionAction(action) {
		return nil, workflow.IllegalTransition(fmt.Sprintf("%s is only recorded at submission", action))
	}
	if !s.table.Knows(action) {
		return nil, workflow.Validation("unknown action", workflow.FieldError{
			Field:   "action",
			Tag:     "action_name",
			Message: fmt.Sprintf("%s is not a workflow action", action),
		})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *TransitionResult
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		app, err := tx.GetApplication(ctx, uid)
		if err != nil {
			return err
		}

		rule, ok := s.table.Lookup(app.Status, action)
		if !ok {
			return workflow.IllegalTransition(fmt.Sprintf("%s is not allowed from %s", action, app.Status))
		}
		if !rule.Permits(app, actor) {
			return workflow.Forbidden(fmt.Sprintf("%s %q may not %s this application", actor.Role, actor.Identity, action))
		}

		at := s.now()
		// Keep created_at non-decreasing along the chain even if clocks drift.
		if at.Before(app.UpdatedAt) {
			at = app.UpdatedAt
		}

		if err := tx.UpdateApplicationStatus(ctx, uid, app.Status, app.Revision, rule.To, at); err != nil {
			return err
		}

		event := &models.TransitionEvent{
			ApplicationUID: uid,
			Revision:       app.Revision + 1,
			FromStatus:     models.StatusPtr(app.Status),
			ToStatus:       rule.To,
			Action:         action,
			ActorIdentity:  actor.Identity,
			ActorRole:      actor.Role,
			Note:           req.Note,
			CreatedAt:      at,
		}
		if err := tx.InsertEvent(ctx, event); err != nil {
			return err
		}

		app.Status = rule.To
		app.Revision = event.Revision
		app.UpdatedAt = at
		result = &TransitionResult{Application: app, Event: event}
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err, "failed to apply transition")
	}

	return result, nil
}

// unknownActionLabel replaces action names that are not in the table, so
// client input cannot create new metric series.
const unknownActionLabel = "unknown"

func (s *ApplicationService) actionLabel(action string) string {
	normalized := models.Action(strings.ToUpper(strings.TrimSpace(action)))
	if !s.table.Knows(normalized) && !workflow.IsSubmissionAction(normalized) {
		return unknownActionLabel
	}
	return string(normalized)
}

func (s *ApplicationService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.OperationTimeout)
}

func (s *ApplicationService) notifyAssigned(ctx context.Context, app *models.Application) {
	if s.notifier == nil || !s.config.NotificationsEnabled {
		return
	}
	snapshot := *app
	go func() {
		if err := s.notifier.ApplicationAssigned(context.WithoutCancel(ctx), &snapshot); err != nil {
			logrus.WithError(err).WithField("application_uid", snapshot.UID).Warn("Failed to send assignment notification")
		}
	}()
}

func (s *ApplicationService) notifyTransitioned(ctx context.Context, result *TransitionResult) {
	if s.notifier == nil || !s.config.NotificationsEnabled {
		return
	}
	app, event := *result.Application, *result.Event
	go func() {
		if err := s.notifier.ApplicationTransitioned(context.WithoutCancel(ctx), &app, &event); err != nil {
			logrus.WithError(err).WithField("application_uid", app.UID).Warn("Failed to send transition notification")
		}
	}()
}

// translateStoreError maps store and context failures onto the workflow
// taxonomy. Workflow errors raised inside a transaction pass through.
func translateStoreError(err error, msg string) error {
	var we *workflow.Error
	switch {
	case errors.As(err, &we):
		return we
	case errors.Is(err, store.ErrNotFound):
		return workflow.NotFound("application not found")
	case errors.Is(err, store.ErrConflict):
		return workflow.Persistence("application was modified concurrently", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return workflow.Persistence("operation was cancelled before it committed", err)
	default:
		return workflow.Persistence(msg, err)
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := workflow.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func logFailure(err error, fields logrus.Fields) {
	entry := logrus.WithError(err).WithFields(fields)
	switch workflow.KindOf(err) {
	case workflow.KindPersistence, workflow.KindIntegrity, "":
		entry.Error("Workflow operation failed")
	default:
		entry.Info("Workflow operation rejected")
	}
}

func roleIn(role models.Role, roles []models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
