// Package formclient submits the public website forms to the relay endpoints.
package formclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"go-healthcare-frontdesk/pkg/validation"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation       = errors.New("missing required fields")
	ErrSubmissionFailed = errors.New("submission failed")
)

// DefaultAttachmentField is the multipart field the relay reads first
const DefaultAttachmentField = "resume"

const (
	msgSuccess    = "Thank you! Your submission has been sent."
	msgFailure    = "Something went wrong. Please try again."
	msgIncomplete = "Please fill in all required fields."
)

// Doer sends HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is what the form shows the user after a Submit
type Notification struct {
	Kind NotificationKind
	Text string
}

// Fields holds the user-entered values
type Fields struct {
	Name    string `yaml:"name" validate:"not_blank"`
	Email   string `yaml:"email" validate:"not_blank,contains=@"`
	Phone   string `yaml:"phone" validate:"not_blank"`
	Message string `yaml:"message" validate:"not_blank"`
}

type Attachment struct {
	Filename string
	Data     []byte
}

// Form is a single submission form bound to one relay endpoint
type Form struct {
	Endpoint        string
	AttachmentField string
	Fields          Fields
	Attachment      *Attachment

	client       Doer
	validate     *validator.Validate
	notification *Notification
}

func New(endpoint string, client Doer) *Form {
	if client == nil {
		client = http.DefaultClient
	}
	return &Form{
		Endpoint:        endpoint,
		AttachmentField: DefaultAttachmentField,
		client:          client,
		validate:        validation.New(),
	}
}

// Notification returns the outcome of the last Submit, if any
func (f *Form) Notification() (Notification, bool) {
	if f.notification == nil {
		return Notification{}, false
	}
	return *f.notification, true
}

// Reset clears the entered values and the attachment
func (f *Form) Reset() {
	f.Fields = Fields{}
	f.Attachment = nil
}

// Submit validates locally and then sends exactly one request.
// On success the form is reset; on failure the entered values are kept.
func (f *Form) Submit(ctx context.Context) error {
	if err := f.validate.Struct(f.Fields); err != nil {
		f.notify(NotifyError, msgIncomplete)
		return fmt.Errorf("%w: %v", ErrValidation, validation.FormatValidationErrors(err))
	}

	req, err := f.newRequest(ctx)
	if err != nil {
		f.notify(NotifyError, msgFailure)
		return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.notify(NotifyError, msgFailure)
		return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.notify(NotifyError, msgFailure)
		return fmt.Errorf("%w: %s", ErrSubmissionFailed, describe(resp))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	f.notify(NotifySuccess, msgSuccess)
	f.Reset()
	return nil
}

func (f *Form) notify(kind NotificationKind, text string) {
	f.notification = &Notification{Kind: kind, Text: text}
}

func (f *Form) newRequest(ctx context.Context) (*http.Request, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := []struct{ key, value string }{
		{"name", f.Fields.Name},
		{"email", f.Fields.Email},
		{"phone", f.Fields.Phone},
		{"message", f.Fields.Message},
	}
	for _, field := range fields {
		if err := mw.WriteField(field.key, field.value); err != nil {
			return nil, err
		}
	}

	if f.Attachment != nil {
		name := f.AttachmentField
		if name == "" {
			name = DefaultAttachmentField
		}
		fw, err := mw.CreateFormFile(name, f.Attachment.Filename)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(f.Attachment.Data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// describe summarises a failed response using the envelope message when present
func describe(resp *http.Response) string {
	var env struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &env) == nil && env.Message != "" {
		return fmt.Sprintf("%d %s", resp.StatusCode, env.Message)
	}
	return resp.Status
}
