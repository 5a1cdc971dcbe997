// internal/services/requests.go
package services

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/javajoker/licensing-portal/internal/utils"
	"github.com/javajoker/licensing-portal/internal/workflow"
)

type SubmitApplicationRequest struct {
	ApplicantName       string   `json:"applicant_name" validate:"required,max=255"`
	ApplicantNationalID string   `json:"applicant_national_id" validate:"required,national_id"`
	ApplicantEmail      string   `json:"applicant_email,omitempty" validate:"omitempty,email,max=255"`
	ApplicantPhone      string   `json:"applicant_phone,omitempty" validate:"omitempty,max=32"`
	ApplicantAddress    string   `json:"applicant_address,omitempty" validate:"omitempty,max=1000"`
	FirearmID           string   `json:"firearm_id" validate:"required,max=128"`
	FirearmDescription  string   `json:"firearm_description,omitempty" validate:"omitempty,max=2000"`
	OfficerIdentity     string   `json:"officer_identity" validate:"required,email,max=255"`
	AttachmentKeys      []string `json:"attachment_keys,omitempty" validate:"omitempty,max=20,dive,required,max=512"`
}

func (r *SubmitApplicationRequest) normalize() {
	r.ApplicantName = strings.TrimSpace(r.ApplicantName)
	r.ApplicantNationalID = strings.TrimSpace(r.ApplicantNationalID)
	r.ApplicantEmail = strings.TrimSpace(r.ApplicantEmail)
	r.ApplicantPhone = strings.TrimSpace(r.ApplicantPhone)
	r.ApplicantAddress = strings.TrimSpace(r.ApplicantAddress)
	r.FirearmID = strings.TrimSpace(r.FirearmID)
	r.FirearmDescription = strings.TrimSpace(r.FirearmDescription)
	r.OfficerIdentity = strings.ToLower(strings.TrimSpace(r.OfficerIdentity))
	for i, key := range r.AttachmentKeys {
		r.AttachmentKeys[i] = strings.TrimSpace(key)
	}
}

type TransitionRequest struct {
	ApplicationUID string `json:"-" validate:"required,uuid"`
	Action         string `json:"action" validate:"required,max=48,action_name"`
	Note           string `json:"note,omitempty" validate:"omitempty,max=4000"`
}

func (r *TransitionRequest) normalize() {
	r.ApplicationUID = strings.TrimSpace(r.ApplicationUID)
	r.Action = strings.ToUpper(strings.TrimSpace(r.Action))
	r.Note = strings.TrimSpace(r.Note)
}

type actorSchema struct {
	Identity string `validate:"required,max=255"`
	Role     string `validate:"required,role"`
}

func validateActor(actor workflow.Actor) error {
	return validateRequest(&actorSchema{
		Identity: strings.TrimSpace(actor.Identity),
		Role:     string(actor.Role),
	})
}

// validateRequest runs the struct tags and converts failures into a
// ValidationError carrying field details.
func validateRequest(req interface{}) error {
	err := utils.ValidateStruct(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return workflow.Validation(err.Error())
	}

	fields := make([]workflow.FieldError, 0, len(validationErrs))
	for _, e := range utils.GetValidationErrors(validationErrs) {
		fields = append(fields, workflow.FieldError{Field: e.Field, Tag: e.Tag, Message: e.Message})
	}
	return workflow.Validation("request is invalid", fields...)
}
