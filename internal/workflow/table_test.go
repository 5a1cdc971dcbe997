package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/licensing-portal/internal/models"
)

var (
	dealer    = Actor{Identity: "dealer@guns.example", Role: models.RoleDealer}
	officer   = Actor{Identity: "officer@police.example", Role: models.RoleOfficer}
	oversight = Actor{Identity: "chief@police.example", Role: models.RoleOversight}
)

func application(status models.Status) *models.Application {
	return &models.Application{
		Status:          status,
		OfficerIdentity: officer.Identity,
		DealerIdentity:  dealer.Identity,
	}
}

func TestDefaultTableLookup(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		from   models.Status
		action models.Action
		to     models.Status
		ok     bool
	}{
		{models.StatusAssignedToOfficer, models.ActionStartReview, models.StatusUnderReview, true},
		{models.StatusAssignedToOfficer, models.ActionApprove, "", false},
		{models.StatusUnderReview, models.ActionApprove, models.StatusApproved, true},
		{models.StatusPendingOversight, models.ActionApprove, models.StatusApproved, true},
		{models.StatusPendingOversight, models.ActionReturnToOfficer, models.StatusUnderReview, true},
		{models.StatusAwaitingInformation, models.ActionWithdraw, models.StatusWithdrawn, true},
		{models.StatusPendingOversight, models.ActionWithdraw, "", false},
		{models.StatusApproved, models.ActionReject, "", false},
		{models.StatusCreated, models.ActionAssignToOfficer, "", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.from, tt.action), func(t *testing.T) {
			rule, ok := table.Lookup(tt.from, tt.action)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.to, rule.To)
			}
		})
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, rule := range DefaultTable().Rules() {
		assert.False(t, rule.From.IsTerminal(), "rule %s leaves terminal status %s", rule.Action, rule.From)
		assert.False(t, IsSubmissionAction(rule.Action))
	}
}

func TestKnows(t *testing.T) {
	table := DefaultTable()
	assert.True(t, table.Knows(models.ActionEscalate))
	assert.False(t, table.Knows(models.ActionCreate))
	assert.False(t, table.Knows("TELEPORT"))
}

func TestRulePermits(t *testing.T) {
	table := DefaultTable()
	app := application(models.StatusUnderReview)

	approve, ok := table.Lookup(models.StatusUnderReview, models.ActionApprove)
	require.True(t, ok)
	assert.True(t, approve.Permits(app, officer))
	assert.False(t, approve.Permits(app, Actor{Identity: "someone@police.example", Role: models.RoleOfficer}))
	assert.False(t, approve.Permits(app, oversight))
	assert.False(t, approve.Permits(app, dealer))

	withdraw, ok := table.Lookup(models.StatusUnderReview, models.ActionWithdraw)
	require.True(t, ok)
	assert.True(t, withdraw.Permits(app, dealer))
	assert.False(t, withdraw.Permits(app, Actor{Identity: "other@guns.example", Role: models.RoleDealer}))

	oversightApprove, ok := table.Lookup(models.StatusPendingOversight, models.ActionApprove)
	require.True(t, ok)
	assert.True(t, oversightApprove.Permits(application(models.StatusPendingOversight), oversight))
	assert.False(t, oversightApprove.Permits(application(models.StatusPendingOversight), officer))
}

func TestActionsFor(t *testing.T) {
	table := DefaultTable()

	assert.Equal(t,
		[]models.Action{models.ActionApprove, models.ActionEscalate, models.ActionReject, models.ActionRequestInformation},
		table.ActionsFor(application(models.StatusUnderReview), officer))
	assert.Equal(t, []models.Action{models.ActionWithdraw}, table.ActionsFor(application(models.StatusUnderReview), dealer))
	assert.Equal(t,
		[]models.Action{models.ActionApprove, models.ActionReject, models.ActionReturnToOfficer},
		table.ActionsFor(application(models.StatusPendingOversight), oversight))
	assert.Empty(t, table.ActionsFor(application(models.StatusApproved), oversight))
}

func TestNewTableLaterRuleWins(t *testing.T) {
	table := NewTable(
		Rule{From: models.StatusUnderReview, Action: models.ActionApprove, To: models.StatusApproved, Roles: []models.Role{models.RoleOfficer}},
		Rule{From: models.StatusUnderReview, Action: models.ActionApprove, To: models.StatusPendingOversight, Roles: []models.Role{models.RoleOfficer}},
	)

	rule, ok := table.Lookup(models.StatusUnderReview, models.ActionApprove)
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingOversight, rule.To)
	assert.Len(t, table.Rules(), 1)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("submit: %w", Persistence("failed to submit application", cause))

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrIntegrity)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(cause))

	var we *Error
	require.True(t, errors.As(err, &we))
	assert.True(t, we.Retryable)
	assert.False(t, Integrity("broken").Retryable)
}
