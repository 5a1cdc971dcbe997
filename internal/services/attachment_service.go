// internal/services/attachment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/javajoker/licensing-portal/internal/config"
	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/workflow"
)

// AllowedAttachmentTypes maps accepted extensions to their content type.
var AllowedAttachmentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// ErrAttachmentsUnavailable is returned when no bucket credentials are set.
var ErrAttachmentsUnavailable = errors.New("attachment storage is not configured")

// AttachmentService hands dealers presigned S3 URLs. Uploads go straight to
// the bucket; applications only carry the object keys.
type AttachmentService struct {
	s3Client *s3.S3
	config   *config.Config
	now      func() time.Time
}

type PresignRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"omitempty,max=100"`
}

type PresignResult struct {
	UploadURL   string    `json:"upload_url"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewAttachmentService(config *config.Config) (*AttachmentService, error) {
	s := &AttachmentService{config: config, now: time.Now}
	if config.AWS.AccessKeyID == "" {
		return s, nil
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	}
	if config.AWS.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.AWS.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	s.s3Client = s3.New(sess)
	return s, nil
}

// Enabled reports whether presigning is possible.
func (s *AttachmentService) Enabled() bool {
	return s.s3Client != nil
}

// PresignUpload returns a PUT URL for one attachment of the calling dealer.
func (s *AttachmentService) PresignUpload(ctx context.Context, actor workflow.Actor, req *PresignRequest) (*PresignResult, error) {
	if req == nil {
		return nil, workflow.Validation("request body is required")
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	req.Filename = strings.TrimSpace(req.Filename)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleDealer {
		return nil, workflow.Forbidden("only dealers upload attachments")
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	contentType, ok := AllowedAttachmentTypes[ext]
	if !ok {
		return nil, workflow.Validation("file type is not allowed", workflow.FieldError{
			Field:   "filename",
			Tag:     "file_type",
			Message: fmt.Sprintf("file type %q is not allowed", ext),
		})
	}
	if req.ContentType != "" && !strings.EqualFold(req.ContentType, contentType) {
		return nil, workflow.Validation("content type does not match file type", workflow.FieldError{
			Field:   "content_type",
			Tag:     "content_type",
			Message: fmt.Sprintf("expected %s for %s files", contentType, ext),
		})
	}

	if !s.Enabled() {
		return nil, ErrAttachmentsUnavailable
	}

	key := s.generateKey(actor.Identity, ext)
	ttl := time.Duration(s.config.AWS.PresignTTL) * time.Minute
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	putReq, _ := s.s3Client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.config.AWS.S3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	putReq.SetContext(ctx)

	url, err := putReq.Presign(ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &PresignResult{
		UploadURL:   url,
		Key:         key,
		ContentType: contentType,
		ExpiresAt:   s.now().Add(ttl).UTC(),
	}, nil
}

// OwnsKey reports whether key lives under the dealer's attachment prefix.
func OwnsKey(dealerIdentity, key string) bool {
	return strings.HasPrefix(key, attachmentPrefix(dealerIdentity))
}

func (s *AttachmentService) generateKey(dealerIdentity, ext string) string {
	return attachmentPrefix(dealerIdentity) + uuid.New().String() + ext
}

func attachmentPrefix(dealerIdentity string) string {
	owner := unsafeKeyChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(dealerIdentity)), "_")
	return "attachments/" + owner + "/"
}
