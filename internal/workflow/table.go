// Package workflow holds the licensing state machine: the transition table
// that decides which action may move an application from one status to the
// next, who may request it, and the error kinds the workflow reports.
package workflow

import (
	"sort"

	"github.com/javajoker/licensing-portal/internal/models"
)

// Rule is one entry of the transition table.
type Rule struct {
	From   models.Status `json:"from_status"`
	Action models.Action `json:"action"`
	To     models.Status `json:"to_status"`
	Roles  []models.Role `json:"roles"`
	// AssigneeOnly restricts officer actions to the assigned officer and
	// dealer actions to the submitting dealer.
	AssigneeOnly bool `json:"assignee_only"`
}

// Allows reports whether role is in the rule's authorized set.
func (r Rule) Allows(role models.Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Permits applies both the role check and, when the rule requires it, the
// assignee check against the application.
func (r Rule) Permits(app *models.Application, actor Actor) bool {
	if !r.Allows(actor.Role) {
		return false
	}
	if !r.AssigneeOnly || app == nil {
		return true
	}
	switch actor.Role {
	case models.RoleOfficer:
		return app.OfficerIdentity == actor.Identity
	case models.RoleDealer:
		return app.DealerIdentity == actor.Identity
	}
	return true
}

type ruleKey struct {
	from   models.Status
	action models.Action
}

// Table maps (current status, action) to a Rule.
type Table struct {
	rules   map[ruleKey]Rule
	actions map[models.Action]struct{}
	ordered []Rule
}

// NewTable builds a table from rules. A later rule for the same
// (from, action) pair replaces an earlier one.
func NewTable(rules ...Rule) *Table {
	t := &Table{
		rules:   make(map[ruleKey]Rule, len(rules)),
		actions: make(map[models.Action]struct{}),
	}
	for _, r := range rules {
		k := ruleKey{from: r.From, action: r.Action}
		if _, exists := t.rules[k]; !exists {
			t.ordered = append(t.ordered, r)
		} else {
			for i := range t.ordered {
				if t.ordered[i].From == r.From && t.ordered[i].Action == r.Action {
					t.ordered[i] = r
				}
			}
		}
		t.rules[k] = r
		t.actions[r.Action] = struct{}{}
	}
	return t
}

// Lookup returns the rule for action from the given status.
func (t *Table) Lookup(from models.Status, action models.Action) (Rule, bool) {
	r, ok := t.rules[ruleKey{from: from, action: action}]
	return r, ok
}

// Knows reports whether action appears anywhere in the table.
func (t *Table) Knows(action models.Action) bool {
	_, ok := t.actions[action]
	return ok
}

// Rules returns a copy of the table in declaration order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// ActionsFor lists the actions actor may take on app in its current status,
// sorted by name.
func (t *Table) ActionsFor(app *models.Application, actor Actor) []models.Action {
	var actions []models.Action
	for _, r := range t.ordered {
		if r.From != app.Status {
			continue
		}
		if r.Permits(app, actor) {
			actions = append(actions, r.Action)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// Submission rules are only produced by SubmitApplication. They are kept out
// of the table so applyTransition can never replay them.
var (
	SubmissionRoles = []models.Role{models.RoleDealer}
	InitialStatus   = models.StatusAssignedToOfficer
)

// DefaultTable is the licensing review workflow: officer review, optional
// information requests, escalation to oversight, and a dealer withdrawal
// path while the case is still open.
func DefaultTable() *Table {
	officer := []models.Role{models.RoleOfficer}
	oversight := []models.Role{models.RoleOversight}
	dealer := []models.Role{models.RoleDealer}

	return NewTable(
		Rule{From: models.StatusAssignedToOfficer, Action: models.ActionStartReview, To: models.StatusUnderReview, Roles: officer, AssigneeOnly: true},
		Rule{From: models.StatusUnderReview, Action: models.ActionRequestInformation, To: models.StatusAwaitingInformation, Roles: officer, AssigneeOnly: true},
		Rule{From: models.StatusAwaitingInformation, Action: models.ActionProvideInformation, To: models.StatusUnderReview, Roles: dealer, AssigneeOnly: true},
		Rule{From: models.StatusUnderReview, Action: models.ActionEscalate, To: models.StatusPendingOversight, Roles: officer, AssigneeOnly: true},
		Rule{From: models.StatusUnderReview, Action: models.ActionApprove, To: models.StatusApproved, Roles: officer, AssigneeOnly: true},
		Rule{From: models.StatusUnderReview, Action: models.ActionReject, To: models.StatusRejected, Roles: officer, AssigneeOnly: true},
		Rule{From: models.StatusPendingOversight, Action: models.ActionApprove, To: models.StatusApproved, Roles: oversight},
		Rule{From: models.StatusPendingOversight, Action: models.ActionReject, To: models.StatusRejected, Roles: oversight},
		Rule{From: models.StatusPendingOversight, Action: models.ActionReturnToOfficer, To: models.StatusUnderReview, Roles: oversight},
		Rule{From: models.StatusAssignedToOfficer, Action: models.ActionWithdraw, To: models.StatusWithdrawn, Roles: dealer, AssigneeOnly: true},
		Rule{From: models.StatusUnderReview, Action: models.ActionWithdraw, To: models.StatusWithdrawn, Roles: dealer, AssigneeOnly: true},
		Rule{From: models.StatusAwaitingInformation, Action: models.ActionWithdraw, To: models.StatusWithdrawn, Roles: dealer, AssigneeOnly: true},
	)
}

// IsSubmissionAction reports whether action is one of the two synthetic
// actions recorded by submission.
func IsSubmissionAction(action models.Action) bool {
	return action == models.ActionCreate || action == models.ActionAssignToOfficer
}
