package usecase

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/template"
	"time"

	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/apperror"
	"go-healthcare-frontdesk/pkg/metrics"
	"go-healthcare-frontdesk/pkg/security"
	"go-healthcare-frontdesk/pkg/security/antivirus"

	"github.com/go-playground/validator/v10"
)

const defaultSendTimeout = 20 * time.Second

// SubmissionConfig holds the relay settings that come from config.Config
type SubmissionConfig struct {
	Recipient         string
	SendTimeout       time.Duration
	StrictAttachments bool
}

type submissionUsecase struct {
	mailer   domain.Mailer
	scanner  antivirus.Scanner
	validate *validator.Validate
	cfg      SubmissionConfig
}

// NewSubmissionUsecase creates the relay usecase. A nil scanner disables malware scanning.
func NewSubmissionUsecase(mailer domain.Mailer, scanner antivirus.Scanner, validate *validator.Validate, cfg SubmissionConfig) domain.SubmissionUsecase {
	if scanner == nil {
		scanner = antivirus.NewNoOpScanner()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return &submissionUsecase{
		mailer:   mailer,
		scanner:  scanner,
		validate: validate,
		cfg:      cfg,
	}
}

var bodyTemplate = template.Must(template.New("submission").Parse(`{{.Label}} received from the website

Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}

Message:
{{.Message}}
`))

type bodyData struct {
	Label   string
	Name    string
	Email   string
	Phone   string
	Message string
}

// Submit validates the request and relays it to the operator mailbox.
// There is exactly one send attempt; the caller owns att and removes it afterwards.
func (uc *submissionUsecase) Submit(ctx context.Context, kind domain.SubmissionKind, req *domain.SubmissionRequest, att *domain.Attachment) error {
	metrics.SubmissionsReceived.Add(1)

	if req == nil {
		metrics.SubmissionsRejected.Add(1)
		return apperror.BadRequest(domain.MsgMissingFields)
	}
	if err := uc.validate.Struct(req); err != nil {
		metrics.SubmissionsRejected.Add(1)
		return apperror.New(http.StatusBadRequest, domain.MsgMissingFields, err)
	}

	data := bodyData{
		Label:   kind.Subject(),
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Message: strings.TrimSpace(req.Message),
	}

	var body strings.Builder
	if err := bodyTemplate.Execute(&body, data); err != nil {
		return apperror.New(http.StatusInternalServerError, domain.MsgSendFailed, fmt.Errorf("failed to render email body: %w", err))
	}

	msg := &domain.OutboundMessage{
		FromName: data.Name + " via website",
		ReplyTo:  data.Email,
		To:       []string{uc.cfg.Recipient},
		Subject:  kind.Subject(),
		Body:     body.String(),
	}

	if att != nil {
		mailAtt, err := uc.prepareAttachment(ctx, att)
		if err != nil {
			return err
		}
		msg.Attachments = append(msg.Attachments, *mailAtt)
	}

	sendCtx, cancel := context.WithTimeout(ctx, uc.cfg.SendTimeout)
	defer cancel()

	if err := uc.mailer.Send(sendCtx, msg); err != nil {
		metrics.MailFailures.Add(1)
		return apperror.New(http.StatusInternalServerError, domain.MsgSendFailed, fmt.Errorf("failed to send %s submission: %w", kind, err))
	}

	metrics.MailDelivered.Add(1)
	return nil
}

func (uc *submissionUsecase) prepareAttachment(ctx context.Context, att *domain.Attachment) (*domain.MailAttachment, error) {
	data, err := os.ReadFile(att.Path)
	if err != nil {
		return nil, apperror.New(http.StatusInternalServerError, domain.MsgParseFailed, fmt.Errorf("failed to read spooled attachment: %w", err))
	}

	info := security.InspectAttachment(att.Filename, data)
	if uc.cfg.StrictAttachments && !info.Allowed {
		metrics.AttachmentsBlocked.Add(1)
		return nil, apperror.New(http.StatusBadRequest, domain.MsgAttachmentRejected, fmt.Errorf("attachment %q: %s", info.Filename, info.Reason))
	}

	scan := uc.scanner.Scan(ctx, info.Filename, data)
	if scan.Error != nil {
		// Unverified files are never forwarded
		return nil, apperror.New(http.StatusInternalServerError, domain.MsgSendFailed, fmt.Errorf("%s scan failed: %w", scan.ScannerName, scan.Error))
	}
	if scan.Infected {
		metrics.AttachmentsBlocked.Add(1)
		return nil, apperror.New(http.StatusBadRequest, domain.MsgAttachmentRejected, fmt.Errorf("attachment %q flagged by %s: %s", info.Filename, scan.ScannerName, scan.ThreatName))
	}

	return &domain.MailAttachment{
		Filename:    info.Filename,
		ContentType: info.ContentType,
		Data:        data,
	}, nil
}
