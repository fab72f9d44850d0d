package formclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDoer answers every request with a fixed status and remembers what it saw
type recordingDoer struct {
	status   int
	body     string
	err      error
	requests []*http.Request
	forms    []map[string][]string
	files    []string
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)
	if err := req.ParseMultipartForm(1 << 20); err == nil {
		d.forms = append(d.forms, req.MultipartForm.Value)
		for field, fhs := range req.MultipartForm.File {
			for _, fh := range fhs {
				d.files = append(d.files, field+"="+fh.Filename)
			}
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	rec := httptest.NewRecorder()
	rec.WriteHeader(d.status)
	_, _ = io.WriteString(rec, d.body)
	return rec.Result(), nil
}

func filledForm(d Doer) *Form {
	f := New("https://api.clinic.test/v1/appointments", d)
	f.Fields = Fields{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Phone:   "555-0100",
		Message: "Annual checkup",
	}
	return f
}

func TestSubmitRejectsIncompleteForm(t *testing.T) {
	blanks := map[string]func(*Fields){
		"name":           func(f *Fields) { f.Name = "" },
		"email":          func(f *Fields) { f.Email = "" },
		"email no at":    func(f *Fields) { f.Email = "jane.example.com" },
		"phone":          func(f *Fields) { f.Phone = "  " },
		"message":        func(f *Fields) { f.Message = "" },
		"all whitespace": func(f *Fields) { *f = Fields{Name: " ", Email: " ", Phone: " ", Message: " "} },
	}
	for name, blank := range blanks {
		t.Run(name, func(t *testing.T) {
			doer := &recordingDoer{status: http.StatusOK}
			form := filledForm(doer)
			blank(&form.Fields)
			before := form.Fields

			err := form.Submit(context.Background())

			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, doer.requests, "no request for invalid input")
			assert.Equal(t, before, form.Fields)
			n, ok := form.Notification()
			require.True(t, ok)
			assert.Equal(t, NotifyError, n.Kind)
		})
	}
}

func TestSubmitSuccessResetsForm(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `{"success":true,"message":"Email sent successfully"}`}
	form := filledForm(doer)
	form.Attachment = &Attachment{Filename: "referral.pdf", Data: []byte("%PDF-1.4")}

	require.NoError(t, form.Submit(context.Background()))

	require.Len(t, doer.requests, 1)
	assert.Equal(t, http.MethodPost, doer.requests[0].Method)
	require.Len(t, doer.forms, 1)
	assert.Equal(t, []string{"Jane Doe"}, doer.forms[0]["name"])
	assert.Equal(t, []string{"Annual checkup"}, doer.forms[0]["message"])
	assert.Equal(t, []string{"resume=referral.pdf"}, doer.files)

	assert.Equal(t, Fields{}, form.Fields)
	assert.Nil(t, form.Attachment)
	n, ok := form.Notification()
	require.True(t, ok)
	assert.Equal(t, NotifySuccess, n.Kind)
}

func TestSubmitFailureKeepsFields(t *testing.T) {
	cases := map[string]*recordingDoer{
		"server error": {status: http.StatusInternalServerError, body: `{"success":false,"message":"Error sending email"}`},
		"bad request":  {status: http.StatusBadRequest, body: `{"success":false,"message":"Missing required fields"}`},
		"network":      {err: errors.New("connection reset by peer")},
	}
	for name, doer := range cases {
		t.Run(name, func(t *testing.T) {
			form := filledForm(doer)
			before := form.Fields

			err := form.Submit(context.Background())

			assert.ErrorIs(t, err, ErrSubmissionFailed)
			assert.Len(t, doer.requests, 1, "exactly one attempt, no retry")
			assert.Equal(t, before, form.Fields)
			n, ok := form.Notification()
			require.True(t, ok)
			assert.Equal(t, NotifyError, n.Kind)
		})
	}
}

func TestSubmitIsNotDeduplicated(t *testing.T) {
	doer := &recordingDoer{status: http.StatusServiceUnavailable}
	form := filledForm(doer)

	_ = form.Submit(context.Background())
	_ = form.Submit(context.Background())

	assert.Len(t, doer.requests, 2)
}

func TestSubmitAgainstServer(t *testing.T) {
	var gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = r.FormValue("name")
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	form := filledForm(srv.Client())
	form.Endpoint = srv.URL
	require.NoError(t, form.Submit(context.Background()))
	assert.Equal(t, "Jane Doe", gotName)
}
