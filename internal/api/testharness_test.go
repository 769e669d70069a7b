package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jpcc/flock/internal/auth"
	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/store"
)

const (
	testAccessSecret  = "access-secret-for-tests-0123456789abcdef"
	testRefreshSecret = "refresh-secret-for-tests-0123456789abcdef"
	testPassword      = "correct horse battery"
)

// TestHarness wraps a full Server with a real HTTP listener for integration tests.
type TestHarness struct {
	t       *testing.T
	Server  *Server
	Store   *store.DB
	Issuer  *auth.Issuer
	BaseURL string
	client  *http.Client
	httpSrv *httptest.Server
}

// newTestHarness creates a TestHarness backed by an in-memory store.
func newTestHarness(t *testing.T, opts ...func(*Config)) *TestHarness {
	t.Helper()

	st, err := store.Open(context.Background(), store.Config{Driver: store.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	issuer, err := auth.NewIssuer(testAccessSecret, testRefreshSecret, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	cfg := Config{
		RateLimitLogin: 100000,
		ListenAddr:     ":0",
		UploadDir:      t.TempDir(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := NewServer(cfg, st, issuer)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	httpSrv := httptest.NewServer(srv.Handler())
	jar, _ := cookiejar.New(nil)

	h := &TestHarness{
		t:       t,
		Server:  srv,
		Store:   st,
		Issuer:  issuer,
		BaseURL: httpSrv.URL,
		client:  &http.Client{Jar: jar},
		httpSrv: httpSrv,
	}

	t.Cleanup(func() {
		httpSrv.Close()
		srv.rateLimiter.Stop()
		st.Close()
	})

	return h
}

// Do sends an HTTP request and returns the response.
// Caller must close resp.Body unless using assertion helpers (AssertStatus,
// AssertErrorResponse, ReadJSON) which close it automatically.
func (h *TestHarness) Do(method, path, token string, body any) *http.Response {
	h.t.Helper()

	var rd io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		rd = &buf
	}

	req, err := http.NewRequest(method, h.BaseURL+path, rd)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.t.Fatalf("do request %s %s: %v", method, path, err)
	}
	return resp
}

// DoJSON sends an HTTP request and decodes the JSON response into out.
// Fatals if the response status is >= 400 or if JSON decoding fails.
func (h *TestHarness) DoJSON(method, path, token string, body any, out any) *http.Response {
	h.t.Helper()

	resp := h.Do(method, path, token, body)
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		h.t.Fatalf("DoJSON %s %s: expected success, got %d: %s", method, path, resp.StatusCode, respBody)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		h.t.Fatalf("decode response: %v", err)
	}
	return resp
}

// Upload posts a multipart form with one file field plus extra fields.
func (h *TestHarness) Upload(path, token, field, filename string, content []byte, fields map[string]string) *http.Response {
	h.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			h.t.Fatalf("write field: %v", err)
		}
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			h.t.Fatalf("create form file: %v", err)
		}
		fw.Write(content)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, h.BaseURL+path, &buf)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.t.Fatalf("upload %s: %v", path, err)
	}
	return resp
}

// CreateUser creates an account with the given role and returns it with an access token.
func (h *TestHarness) CreateUser(email string, role models.Role) (*models.User, string) {
	h.t.Helper()

	user, err := h.Store.CreateUser(context.Background(), email, testPassword, role)
	if err != nil {
		h.t.Fatalf("create user: %v", err)
	}
	tok, _, err := h.Issuer.IssueAccess(user)
	if err != nil {
		h.t.Fatalf("issue access: %v", err)
	}
	return user, tok
}

// Token returns an access token for a fresh user holding role.
func (h *TestHarness) Token(role models.Role) string {
	h.t.Helper()
	_, tok := h.CreateUser(string(role)+"@example.org", role)
	return tok
}

// CreateMember inserts a member directly through the store.
func (h *TestHarness) CreateMember(in models.MemberInput) *models.Member {
	h.t.Helper()
	m, err := h.Store.CreateMember(context.Background(), in)
	if err != nil {
		h.t.Fatalf("create member: %v", err)
	}
	return m
}

// --- Response assertion helpers ---

// AssertStatus checks the HTTP status code matches expected. Reads and closes the body on failure.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, string(body))
	}
}

// AssertErrorResponse checks the response has the expected status and error code.
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedCode string) APIError {
	t.Helper()
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != expectedStatus {
		t.Fatalf("expected status %d, got %d: %s", expectedStatus, resp.StatusCode, string(body))
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Error.Code != expectedCode {
		t.Fatalf("expected error code %q, got %q: %s", expectedCode, errResp.Error.Code, errResp.Error.Message)
	}
	return errResp.Error
}

// ReadJSON decodes the response body into out and closes it.
func ReadJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
