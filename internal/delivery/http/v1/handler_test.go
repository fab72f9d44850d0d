package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"go-healthcare-frontdesk/config"
	v1 "go-healthcare-frontdesk/internal/delivery/http/v1"
	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/internal/repository/memory"
	"go-healthcare-frontdesk/internal/usecase"
	"go-healthcare-frontdesk/pkg/auth"
	"go-healthcare-frontdesk/pkg/storage"
	"go-healthcare-frontdesk/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockMailer) IsConfigured() bool {
	return true
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

type testServer struct {
	router   *gin.Engine
	mailer   *MockMailer
	carts    *memory.CartRegistry
	spoolDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		FrontendURL:                  "https://clinic.test",
		MaxUploadBytes:               64 << 10,
		RateLimitWindowSeconds:       60,
		RateLimitGlobalThreshold:     1000,
		RateLimitSubmissionThreshold: 1000,
	}

	mailer := new(MockMailer)
	spoolDir := t.TempDir()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	carts := memory.NewCartRegistry(v1.CartSessionTTL, nil)

	router := v1.NewRouter(v1.RouterDeps{
		SubmissionUC: usecase.NewSubmissionUsecase(mailer, nil, validation.New(), usecase.SubmissionConfig{
			Recipient:   "frontdesk@clinic.test",
			SendTimeout: time.Second,
		}),
		CartUC:       usecase.NewCartUsecase(carts),
		HealthUC:     usecase.NewHealthUsecase(mailer, nil),
		AuthProvider: auth.NewSimulatedProvider(tokens),
		Tokens:       tokens,
		Spool:        storage.NewSpool(spoolDir),
		Config:       cfg,
	})

	return &testServer{router: router, mailer: mailer, carts: carts, spoolDir: spoolDir}
}

func (s *testServer) do(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (s *testServer) spoolIsEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.spoolDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "spool directory should be empty after the request")
}

func formFields() map[string]string {
	return map[string]string{
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"phone":   "555-0100",
		"message": "Please call me back about a cardiology appointment.",
	}
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileField, fileName string, fileData []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmissionEndpoint(t *testing.T) {
	t.Run("Missing name is rejected without sending", func(t *testing.T) {
		s := newTestServer(t)
		fields := formFields()
		fields["name"] = ""

		w, env := s.do(multipartRequest(t, "/v1/appointments", fields, "", "", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing required fields", env.Message)
		assert.False(t, env.Success)
		s.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Valid submission is relayed", func(t *testing.T) {
		s := newTestServer(t)
		var sent *domain.OutboundMessage
		s.mailer.On("Send", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sent = args.Get(1).(*domain.OutboundMessage) }).
			Return(nil).Once()

		w, env := s.do(multipartRequest(t, "/v1/appointments", formFields(), "", "", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Email sent successfully", env.Message)
		assert.True(t, env.Success)
		require.NotNil(t, sent)
		for _, v := range formFields() {
			assert.Contains(t, sent.Body, v)
		}
		assert.Equal(t, "New Appointment Request", sent.Subject)
		s.mailer.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("URL-encoded bodies are accepted", func(t *testing.T) {
		s := newTestServer(t)
		s.mailer.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

		values := url.Values{}
		for k, v := range formFields() {
			values.Set(k, v)
		}
		req := httptest.NewRequest(http.MethodPost, "/v1/compliance/reports", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		w, env := s.do(req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Email sent successfully", env.Message)
	})

	t.Run("Attachment is forwarded and spool cleaned", func(t *testing.T) {
		s := newTestServer(t)
		var sent *domain.OutboundMessage
		s.mailer.On("Send", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sent = args.Get(1).(*domain.OutboundMessage) }).
			Return(nil).Once()

		pdf := []byte("%PDF-1.4\n% resume\n")
		w, _ := s.do(multipartRequest(t, "/v1/careers/applications", formFields(), "resume", "C:\\Users\\jane\\resume.pdf", pdf))

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, sent)
		require.Len(t, sent.Attachments, 1)
		assert.Equal(t, "resume.pdf", sent.Attachments[0].Filename)
		assert.Equal(t, pdf, sent.Attachments[0].Data)
		assert.Equal(t, "New Job Application", sent.Subject)
		s.spoolIsEmpty(t)
	})

	t.Run("Transport failure returns 500 and cleans spool", func(t *testing.T) {
		s := newTestServer(t)
		s.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("dial tcp: connection refused")).Once()

		w, env := s.do(multipartRequest(t, "/v1/careers/applications", formFields(), "attachment", "cv.txt", []byte("plain text cv")))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Error sending email", env.Message)
		assert.NotContains(t, w.Body.String(), "connection refused")
		s.spoolIsEmpty(t)
	})

	t.Run("Oversized upload is a parse error", func(t *testing.T) {
		s := newTestServer(t)
		big := bytes.Repeat([]byte("a"), 128<<10)

		w, env := s.do(multipartRequest(t, "/v1/careers/applications", formFields(), "resume", "big.txt", big))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Error parsing form data", env.Message)
		s.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		s.spoolIsEmpty(t)
	})

	t.Run("Other methods get 405 with Allow header", func(t *testing.T) {
		s := newTestServer(t)
		methods := []string{
			http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete,
			http.MethodTrace, http.MethodConnect, http.MethodOptions, "PURGE",
		}
		for _, path := range []string{"/v1/appointments", "/v1/careers/applications", "/v1/compliance/reports"} {
			for _, method := range methods {
				w, env := s.do(httptest.NewRequest(method, path, nil))
				assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method+" "+path)
				assert.Equal(t, "POST", w.Header().Get("Allow"), method+" "+path)
				assert.Equal(t, "Method Not Allowed", env.Message, method+" "+path)
			}
		}

		w, _ := s.do(httptest.NewRequest(http.MethodHead, "/v1/compliance/reports", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "POST", w.Header().Get("Allow"))
		s.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Allow lists the methods registered for the path", func(t *testing.T) {
		s := newTestServer(t)

		w, _ := s.do(httptest.NewRequest(http.MethodPut, "/v1/cart", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "GET", w.Header().Get("Allow"))

		w, _ = s.do(httptest.NewRequest(http.MethodPut, "/v1/cart/items/5", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "DELETE", w.Header().Get("Allow"))

		w, _ = s.do(httptest.NewRequest(http.MethodPost, "/v1/nowhere", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCartEndpoints(t *testing.T) {
	s := newTestServer(t)

	var cookie *http.Cookie
	send := func(method, path, body string) (*httptest.ResponseRecorder, []domain.CartItem) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if cookie != nil {
			req.AddCookie(cookie)
		}
		w, env := s.do(req)
		for _, c := range w.Result().Cookies() {
			if c.Name == "cart_session" {
				cookie = c
			}
		}
		var items []domain.CartItem
		if len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, &items)
		}
		return w, items
	}

	w, items := send(http.MethodDelete, "/v1/cart/items/999", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, items)
	assert.Nil(t, cookie, "reads do not start a cart session")

	_, items = send(http.MethodPost, "/v1/cart/items", `{"id":1,"name":"Dr. Rivera","price":"120.00"}`)
	assert.Len(t, items, 1)
	require.NotNil(t, cookie, "first add issues a cart session cookie")

	_, items = send(http.MethodPost, "/v1/cart/items", `{"id":2,"name":"Dr. Chen","price":"95.50"}`)
	assert.Len(t, items, 2)

	w, items = send(http.MethodDelete, "/v1/cart/items/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)

	_, items = send(http.MethodGet, "/v1/cart", "")
	require.Len(t, items, 1)
	assert.Equal(t, "95.5", items[0].Price.String())

	w, _ = send(http.MethodDelete, "/v1/cart/items/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = send(http.MethodPost, "/v1/cart/items", `{"id":3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, items = send(http.MethodPost, "/v1/cart/items", `{"id":0,"name":"Walk-in triage"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, s.carts.Len())
}

func TestCartReadsWithoutCookieDoNotGrowRegistry(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 200; i++ {
		w, env := s.do(httptest.NewRequest(http.MethodGet, "/v1/cart", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, string(env.Data))
		assert.Empty(t, w.Result().Cookies())
	}
	assert.Equal(t, 0, s.carts.Len())
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	body := `{"full_name":"Jane Doe","email":"jane@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w, env := s.do(req)
	require.Equal(t, http.StatusCreated, w.Code)

	var session domain.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.Token)

	req = httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	w, env = s.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "jane@example.com")

	req = httptest.NewRequest(http.MethodGet, "/v1/debug/vars", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	w, _ = s.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "frontdesk_submissions_received_total")

	w, _ = s.do(httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/auth/signup", strings.NewReader(`{"email":"not-an-email","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ = s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"mail":"configured"`)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, w.Header().Get("X-Request-ID"))

	w, _ = s.do(httptest.NewRequest(http.MethodGet, "/v1/debug/vars", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "counters need a session token")
	assert.NotContains(t, w.Body.String(), "memstats")

	req := httptest.NewRequest(http.MethodOptions, "/v1/appointments", nil)
	req.Header.Set("Origin", "https://clinic.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w, _ = s.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://clinic.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/v1/appointments", nil)
	req.Header.Set("Origin", "https://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w, _ = s.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodOptions, "/v1/appointments", nil)
	req.Header.Set("Origin", "https://clinic.test")
	w, _ = s.do(req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code, "OPTIONS without a preflight method is not CORS")
	assert.Equal(t, "POST", w.Header().Get("Allow"))
}
