package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/auth"
	"github.com/bestflix/backend/internal/media"
	"github.com/bestflix/backend/internal/middleware"
	"github.com/bestflix/backend/internal/movies"
	"github.com/bestflix/backend/internal/repositories/sqlite"
	"github.com/bestflix/backend/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type recordingMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links == nil {
		m.links = make(map[string]string)
	}
	m.links[to] = link
	return nil
}

type testServer struct {
	handler http.Handler
	objects *storage.MemoryStorage
	mailer  *recordingMailer
	codec   *auth.Codec
}

func newTestServer(t *testing.T, opts ...func(*Dependencies)) *testServer {
	t.Helper()

	store, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	users := store.Users()
	codec := auth.NewCodec([]byte(testSecret), time.Hour)
	hasher := auth.NewHasher(bcrypt.MinCost)
	mailer := &recordingMailer{}
	objects := storage.NewMemoryStorage()

	deps := Dependencies{
		Auth:             auth.NewAuthenticator(users, codec, hasher),
		Resets:           auth.NewResetManager(users, store.ResetTokens(), mailer, hasher, auth.ResetOptions{LinkBaseURL: "http://127.0.0.1:5500/reset.html"}),
		Movies:           movies.NewService(users, store.Movies(), media.NewStore(objects)),
		Database:         store,
		RequireAuth:      middleware.Authenticate(codec, users),
		ExposeResetToken: true,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	mux := http.NewServeMux()
	RegisterRoutes(mux, deps)

	return &testServer{handler: mux, objects: objects, mailer: mailer, codec: codec}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postJSON(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

func (s *testServer) register(t *testing.T, username, password, email string) {
	t.Helper()
	rec := s.postJSON(t, "/register", map[string]string{"username": username, "password": password, "email": email})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201 got %d: %s", username, rec.Code, rec.Body.String())
	}
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.postJSON(t, "/login", map[string]string{"username": username, "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200 got %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) apperr.Body {
	t.Helper()
	var body apperr.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

type filePart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// multipartRequest builds a movie form. A nil movie omits the metadata part.
func multipartRequest(t *testing.T, method, target, token string, fields map[string]string, movie any, files ...filePart) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if movie != nil {
		raw, err := json.Marshal(movie)
		if err != nil {
			t.Fatalf("marshal movie: %v", err)
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="movie"; filename="movie.json"`)
		header.Set("Content-Type", "application/json")
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create movie part: %v", err)
		}
		if _, err := part.Write(raw); err != nil {
			t.Fatalf("write movie part: %v", err)
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		header.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(f.data)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
