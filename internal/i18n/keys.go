// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"
	KeyForbidden        = "auth.forbidden"

	// Applications
	KeyApplicationSubmitted = "application.submitted"
	KeyApplicationNotFound  = "application.not_found"
	KeyTransitionApplied    = "application.transition_applied"
	KeyIllegalTransition    = "application.illegal_transition"

	// Attachments
	KeyAttachmentPresigned   = "attachment.presigned"
	KeyAttachmentUnavailable = "attachment.unavailable"

	// Failures
	KeyTryAgain       = "error.try_again"
	KeyContactSupport = "error.contact_support"
	KeyRateLimited    = "error.rate_limited"

	// Validation
	KeyValidationInvalid = "validation.invalid"
)
