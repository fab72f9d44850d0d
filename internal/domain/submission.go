package domain

import (
	"context"
	"fmt"
	"strings"
)

// SubmissionKind identifies which public form a submission came from.
type SubmissionKind string

const (
	SubmissionAppointment SubmissionKind = "appointment"
	SubmissionApplication SubmissionKind = "application"
	SubmissionHelpline    SubmissionKind = "helpline"
)

// Subject returns the fixed mail subject used for the kind.
func (k SubmissionKind) Subject() string {
	switch k {
	case SubmissionAppointment:
		return "New Appointment Request"
	case SubmissionApplication:
		return "New Job Application"
	case SubmissionHelpline:
		return "Compliance Helpline Report"
	default:
		return "New Website Submission"
	}
}

func (k SubmissionKind) Valid() bool {
	switch k {
	case SubmissionAppointment, SubmissionApplication, SubmissionHelpline:
		return true
	}
	return false
}

func ParseSubmissionKind(s string) (SubmissionKind, error) {
	k := SubmissionKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown submission kind %q", s)
	}
	return k, nil
}

// SubmissionRequest is one form submission. It lives only for the duration of a request.
type SubmissionRequest struct {
	Name    string `form:"name" validate:"not_blank"`
	Email   string `form:"email" validate:"not_blank"`
	Phone   string `form:"phone" validate:"not_blank"`
	Message string `form:"message" validate:"not_blank"`
}

// Attachment points at a spooled upload. Path is removed by whoever spooled it.
type Attachment struct {
	Filename string
	Path     string
	Size     int64
}

// OutboundMessage is what gets handed to the mail transport.
type OutboundMessage struct {
	From        string
	FromName    string
	ReplyTo     string
	To          []string
	Subject     string
	Body        string
	Attachments []MailAttachment
}

type MailAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Mailer is the outbound mail transport. A nil error means the message was accepted.
type Mailer interface {
	Send(ctx context.Context, msg *OutboundMessage) error
	IsConfigured() bool
}

type SubmissionUsecase interface {
	// Submit validates the request and relays it to the operator mailbox in a single attempt.
	Submit(ctx context.Context, kind SubmissionKind, req *SubmissionRequest, att *Attachment) error
}

// Client-facing relay outcomes. Internal details never go beyond these strings.
const (
	MsgEmailSent          = "Email sent successfully"
	MsgMissingFields      = "Missing required fields"
	MsgParseFailed        = "Error parsing form data"
	MsgSendFailed         = "Error sending email"
	MsgAttachmentRejected = "Unsupported attachment type"
	MsgMethodNotAllowed   = "Method Not Allowed"
)
