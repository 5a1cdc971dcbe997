// internal/models/common.go
package models

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Enums
type Status string

const (
	StatusCreated             Status = "created"
	StatusAssignedToOfficer   Status = "assigned_to_officer"
	StatusUnderReview         Status = "under_review"
	StatusAwaitingInformation Status = "awaiting_information"
	StatusPendingOversight    Status = "pending_oversight"
	StatusApproved            Status = "approved"
	StatusRejected            Status = "rejected"
	StatusWithdrawn           Status = "withdrawn"
)

// IsTerminal reports whether no further transitions may leave the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusAssignedToOfficer, StatusUnderReview, StatusAwaitingInformation,
		StatusPendingOversight, StatusApproved, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// StatusPtr is used for nullable from_status columns.
func StatusPtr(s Status) *Status {
	return &s
}

type Action string

const (
	ActionCreate             Action = "CREATE"
	ActionAssignToOfficer    Action = "ASSIGN_TO_OFFICER"
	ActionStartReview        Action = "START_REVIEW"
	ActionRequestInformation Action = "REQUEST_INFORMATION"
	ActionProvideInformation Action = "PROVIDE_INFORMATION"
	ActionEscalate           Action = "ESCALATE"
	ActionApprove            Action = "APPROVE"
	ActionReject             Action = "REJECT"
	ActionReturnToOfficer    Action = "RETURN_TO_OFFICER"
	ActionWithdraw           Action = "WITHDRAW"
)

type Role string

const (
	RoleDealer    Role = "dealer"
	RoleOfficer   Role = "officer"
	RoleOversight Role = "oversight"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDealer, RoleOfficer, RoleOversight:
		return true
	}
	return false
}

// StringArray is a text[] column on Postgres and a text column holding the
// same array literal elsewhere.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	return pq.StringArray(a).Value()
}

func (a *StringArray) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*a = StringArray(arr)
	return nil
}

func (StringArray) GormDataType() string {
	return "text"
}

func (StringArray) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
