package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"edrs-docstore/internal/audit"
	"edrs-docstore/internal/auth"
	"edrs-docstore/internal/config"
	"edrs-docstore/internal/documents"
	"edrs-docstore/internal/domain/document"
	"edrs-docstore/internal/domain/user"
	"edrs-docstore/internal/gateway"
	"edrs-docstore/internal/http/handler"
	"edrs-docstore/internal/rbac"
	"edrs-docstore/internal/rbac/presets"
	"edrs-docstore/internal/storage/s3"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "k9Q2v7Lm4xT8wZ1rB6nH3jF5sD0pY8cA"
	testKey    = "rejlers-abudhabi/process-engineers/5/projects/haradh_expansion/pid-diagrams/2025/11/PID-001.pdf"
)

type fakeUsers struct {
	mu          sync.Mutex
	users       map[int64]*user.User
	provisioned []*user.User
}

func (f *fakeUsers) Lookup(_ context.Context, id int64) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.Unauthorized("unknown user")
	}
	return u, nil
}

func (f *fakeUsers) Provision(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provisioned = append(f.provisioned, u)
	return nil
}

type fakeDocuments struct {
	mu      sync.Mutex
	err     error
	doc     *document.Document
	uploads []documents.UploadInput
	bodies  []string
	signed  []string
	browsed []documents.BrowseInput
}

func (f *fakeDocuments) Upload(_ context.Context, p user.Principal, in documents.UploadInput) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(in.Body)
	f.uploads = append(f.uploads, in)
	f.bodies = append(f.bodies, string(body))
	if f.err != nil {
		return nil, f.err
	}
	return &document.Document{
		ID:          uuid.New(),
		OwnerID:     p.ID,
		ProjectName: in.ProjectName,
		Type:        document.TypePIDDiagram,
		StorageKey:  testKey,
		Filename:    in.Filename,
		SizeBytes:   in.Size,
	}, nil
}

func (f *fakeDocuments) AttachAnalysis(_ context.Context, _ user.Principal, _ documents.AnalysisInput) (*document.Document, error) {
	return f.doc, f.err
}

func (f *fakeDocuments) Get(_ context.Context, _ user.Principal, _ uuid.UUID) (*document.Document, error) {
	return f.doc, f.err
}

func (f *fakeDocuments) List(_ context.Context, _ user.Principal, _ document.ListFilter) ([]*document.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*document.Document{f.doc}, nil
}

func (f *fakeDocuments) SignKey(_ context.Context, _ user.Principal, key string) (*gateway.SignedURL, error) {
	f.mu.Lock()
	f.signed = append(f.signed, key)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.SignedURL{URL: "https://signed.example/" + key, Key: key, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeDocuments) SignDocument(ctx context.Context, p user.Principal, _ uuid.UUID) (*gateway.SignedURL, *document.Document, error) {
	signed, err := f.SignKey(ctx, p, f.doc.StorageKey)
	return signed, f.doc, err
}

func (f *fakeDocuments) Browse(_ context.Context, _ user.Principal, in documents.BrowseInput) (*s3.Listing, error) {
	f.mu.Lock()
	f.browsed = append(f.browsed, in)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &s3.Listing{Prefix: in.Prefix, Folders: []string{}, Objects: []s3.ObjectInfo{}}, nil
}

func (f *fakeDocuments) Stats(_ context.Context, _ user.Principal, _ *int64) (*document.Stats, error) {
	return &document.Stats{TotalDocuments: 1, TotalBytes: 5}, f.err
}

type recordedAudit struct {
	action audit.Action
	status audit.Status
}

type fakeAudit struct {
	mu     sync.Mutex
	events []recordedAudit
}

func (f *fakeAudit) Record(_ echo.Context, _ audit.Target, action audit.Action, status audit.Status, _ map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedAudit{action: action, status: status})
}

func (f *fakeAudit) RecordError(_ echo.Context, _ audit.Target, action audit.Action, status audit.Status, _ error) {
	f.Record(nil, audit.Target{}, action, status, nil)
}

func (f *fakeAudit) Query(_ context.Context, _ audit.QueryFilter) ([]*audit.Event, error) {
	return []*audit.Event{}, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testServer struct {
	server *Server
	docs   *fakeDocuments
	users  *fakeUsers
	audit  *fakeAudit
	jwt    *auth.JWTService
}

func newTestServer(t *testing.T, checks map[string]handler.Pinger) *testServer {
	t.Helper()
	return newTestServerWith(t, checks, func(*config.Config) {})
}

func newTestServerWith(t *testing.T, checks map[string]handler.Pinger, configure func(*config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server:    config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second},
		Storage:   config.StorageConfig{MaxUploadSize: 1 << 20},
		RateLimit: config.RateLimitConfig{RPS: 1000, Burst: 1000},
		App:       config.AppConfig{PageSize: 50},
	}
	configure(cfg)
	users := &fakeUsers{users: map[int64]*user.User{
		5:  {ID: 5, Role: user.RoleProcessEngineer, IsActive: true},
		6:  {ID: 6, Role: user.RoleDesignEngineer, IsActive: true},
		99: {ID: 99, Role: user.RoleAdministrator, IsActive: true},
	}}
	docs := &fakeDocuments{doc: &document.Document{
		ID:         uuid.New(),
		OwnerID:    5,
		Type:       document.TypePIDDiagram,
		StorageKey: testKey,
		Filename:   "PID-001.pdf",
	}}
	auditLog := &fakeAudit{}
	jwtService := auth.NewJWTService(testSecret, "", time.Hour)

	srv := NewServer(&ServerDependencies{
		Config:         cfg,
		Documents:      docs,
		Storage:        docs,
		Users:          users,
		AuditLogger:    auditLog,
		AuditEvents:    auditLog,
		HealthChecks:   checks,
		AuthMiddleware: auth.NewMiddleware(jwtService, users),
		RBACMiddleware: auth.NewRBACMiddleware(rbac.MustNew(presets.EDRS())),
	})
	return &testServer{server: srv, docs: docs, users: users, audit: auditLog, jwt: jwtService}
}

func (ts *testServer) do(t *testing.T, req *http.Request, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	if userID > 0 {
		token, err := ts.jwt.Generate(userID)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, map[string]handler.Pinger{"postgres": pinger{}, "s3": pinger{}})
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok","s3":"ok"}}`, rec.Body.String())

	ts = newTestServer(t, map[string]handler.Pinger{"postgres": pinger{}, "s3": pinger{err: errors.New("unreachable")}})
	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), 0)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"fail","checks":{"postgres":"ok","s3":"fail"}}`, rec.Body.String())
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/documents", nil), 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "UNAUTHORIZED", body.Code)
	assert.NotEmpty(t, body.RequestID)
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), body.RequestID)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/documents", nil), 404)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpload_Multipart(t *testing.T) {
	ts := newTestServer(t, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("project_name", "Haradh Expansion"))
	part, err := w.CreateFormFile("file", "PID-001.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := ts.do(t, req, 5)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, ts.docs.uploads, 1)
	assert.Equal(t, "Haradh Expansion", ts.docs.uploads[0].ProjectName)
	assert.Equal(t, "PID-001.pdf", ts.docs.uploads[0].Filename)
	assert.Equal(t, int64(5), ts.docs.uploads[0].Size)
	assert.Equal(t, "%PDF-", ts.docs.bodies[0])

	var resp handler.DocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testKey, resp.StorageKey)
	assert.Equal(t, []recordedAudit{{audit.ActionUpload, audit.StatusSuccess}}, ts.audit.events)
}

func TestUpload_MissingProjectIsValidationError(t *testing.T) {
	ts := newTestServer(t, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "PID-001.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := ts.do(t, req, 5)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", decodeError(t, rec).Code)
	assert.Empty(t, ts.docs.uploads)
}

func TestUpload_InvalidPartContentTypeIsValidationError(t *testing.T) {
	ts := newTestServer(t, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("project_name", "Haradh Expansion"))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="PID-001.pdf"`)
	header.Set("Content-Type", "not a type;;")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := ts.do(t, req, 5)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "content_type failed on 'contenttype'")
	assert.Empty(t, ts.docs.uploads)
}

func TestUpload_UnknownTypeNamesTheValidTypes(t *testing.T) {
	ts := newTestServer(t, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("project_name", "Haradh Expansion"))
	require.NoError(t, w.WriteField("document_type", "blueprints"))
	part, err := w.CreateFormFile("file", "PID-001.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := ts.do(t, req, 5)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	msg := decodeError(t, rec).Error
	assert.Contains(t, msg, "pid-diagrams, images, documents, archives, analysis-results")
}

func TestListAndStats_DenialIsAudited(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.docs.err = apperrors.Permission("documents of other users are restricted to administrators")

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/documents?owner_id=6", nil), 5)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/storage/stats?owner_id=6", nil), 5)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Equal(t, []recordedAudit{
		{audit.ActionList, audit.StatusDenied},
		{audit.ActionStats, audit.StatusDenied},
	}, ts.audit.events)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"path traversal", apperrors.PathTraversal("path traversal attempt detected"), http.StatusBadRequest, "VALIDATION", "path traversal attempt detected"},
		{"validation", apperrors.Validation("bad key"), http.StatusBadRequest, "VALIDATION", "bad key"},
		{"permission", apperrors.Permission("not yours"), http.StatusForbidden, "PERMISSION_DENIED", "not yours"},
		{"not found", apperrors.NotFound("document not found"), http.StatusNotFound, "NOT_FOUND", "document not found"},
		{"storage down", apperrors.StorageUnavailable("storage unavailable", errors.New("dial tcp")), http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage unavailable"},
		{"configuration", apperrors.Configuration("role has no folder"), http.StatusInternalServerError, "CONFIGURATION", "Internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "", "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.docs.err = tc.err

			rec := ts.do(t, jsonRequest(http.MethodPost, "/api/documents/download-url", `{"storage_key":"`+testKey+`"}`), 5)
			assert.Equal(t, tc.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.message, body.Error)
		})
	}
}

func TestDownloadURLByKey(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, jsonRequest(http.MethodPost, "/api/documents/download-url", `{"storage_key":"`+testKey+`"}`), 5)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.DownloadURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testKey, resp.StorageKey)
	assert.Equal(t, []string{testKey}, ts.docs.signed)
	assert.Equal(t, []recordedAudit{{audit.ActionSign, audit.StatusSuccess}}, ts.audit.events)
}

func TestDownloadURLByKey_RejectsMalformedBodies(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, jsonRequest(http.MethodPost, "/api/documents/download-url", `{"storage_key":"a","extra":1}`), 5)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, jsonRequest(http.MethodPost, "/api/documents/download-url", `{}`), 5)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/documents/download-url", strings.NewReader(`storage_key=a`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec = ts.do(t, req, 5)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	assert.Empty(t, ts.docs.signed)
}

func TestGetDocument(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+ts.docs.doc.ID.String(), nil), 5)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"document_type":"pid-diagrams"`)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/not-a-uuid", nil), 5)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocument_DenialIsAudited(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.docs.err = apperrors.Permission("access denied")

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+uuid.NewString(), nil), 6)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []recordedAudit{{audit.ActionRead, audit.StatusDenied}}, ts.audit.events)
}

func TestAttachAnalysis_RequiresAnalysisWrite(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/documents/"+uuid.NewString()+"/analysis-results", nil), 6)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "PERMISSION_DENIED", decodeError(t, rec).Code)
}

func TestBrowse(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/storage/browse?prefix=rejlers-abudhabi/process-engineers/5/&page_size=20", nil), 5)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.docs.browsed, 1)
	assert.Equal(t, 20, ts.docs.browsed[0].PageSize)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/storage/browse?page_size=5000", nil), 5)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.docs.err = apperrors.Permission("prefix outside your storage area")
	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/storage/browse?prefix=rejlers-abudhabi/", nil), 5)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []recordedAudit{{audit.ActionBrowse, audit.StatusDenied}}, ts.audit.events)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	body := `{"username":"m.yusuf","email":"m.yusuf@example.com","role":"qa-qc-engineer"}`

	rec := ts.do(t, jsonRequest(http.MethodPut, "/api/admin/users/12", body), 5)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, ts.users.provisioned)

	rec = ts.do(t, jsonRequest(http.MethodPut, "/api/admin/users/12", body), 99)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, ts.users.provisioned, 1)
	assert.Equal(t, user.RoleQAQCEngineer, ts.users.provisioned[0].Role)
	assert.True(t, ts.users.provisioned[0].IsActive)

	rec = ts.do(t, jsonRequest(http.MethodPut, "/api/admin/users/12", `{"username":"x","role":"astronaut"}`), 99)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/audit-events?action=sign", nil), 99)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestBodyLimit(t *testing.T) {
	assert.Equal(t, "2048K", bodyLimit(1<<20))
	assert.Equal(t, "52224K", bodyLimit(50<<20))
}

func TestRateLimit_ForwardedForDoesNotMintNewIdentities(t *testing.T) {
	ts := newTestServerWith(t, nil, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RPS: 1, Burst: 1}
	})

	send := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		req.RemoteAddr = "203.0.113.10:40000"
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
		req.Header.Set(echo.HeaderXRealIP, forwardedFor)
		return ts.do(t, req, 0).Code
	}

	assert.Equal(t, http.StatusUnauthorized, send("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.2"))
}

func TestRateLimit_TrustedProxyForwardsClientIP(t *testing.T) {
	ts := newTestServerWith(t, nil, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RPS: 1, Burst: 1}
		cfg.Server.TrustProxyHeaders = true
	})

	send := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		req.RemoteAddr = "10.0.0.2:40000"
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
		return ts.do(t, req, 0).Code
	}

	assert.Equal(t, http.StatusUnauthorized, send("198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, send("198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.1"))
}
