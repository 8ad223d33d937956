package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/printshelf/printshelf/internal/cache"
	"github.com/printshelf/printshelf/internal/gateway/memory"
	"github.com/printshelf/printshelf/internal/service"
	"github.com/printshelf/printshelf/internal/session"
)

const testJWTSecret = "handler-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type fixture struct {
	router  http.Handler
	store   *memory.Store
	session session.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New("")
	svc := service.New(memory.NewProvider(store), cache.New(time.Minute), logger)
	sessions := session.NewMemoryStore(session.DefaultTTL)

	router := NewRouter(Deps{
		Auth:      NewAuthHandler(nil, sessions, testJWTSecret, false, "http://localhost:5173", logger),
		Files:     NewFileHandler(svc, logger),
		Groups:    NewGroupHandler(svc, logger),
		Store:     sessions,
		JWTSecret: testJWTSecret,
		Logger:    logger,
	})

	return &fixture{router: router, store: store, session: sessions}
}

// login creates a session and returns the signed cookie a browser would hold.
func (f *fixture) login(t *testing.T) *http.Cookie {
	t.Helper()

	sess, err := f.session.Create(context.Background(), "user@example.com", "token-123")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	signed, err := SignSessionToken(sess, testJWTSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return &http.Cookie{Name: CookieName, Value: signed}
}

func (f *fixture) do(t *testing.T, method, path string, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestProtectedEndpointsRejectUnauthenticated(t *testing.T) {
	f := newFixture(t)
	f.store.PutModel("part.3mf", []byte("model"))

	endpoints := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/files/3mf"},
		{http.MethodGet, "/api/files/3mf/part.3mf"},
		{http.MethodDelete, "/api/files/3mf/part.3mf"},
		{http.MethodPatch, "/api/files/3mf/part.3mf"},
		{http.MethodGet, "/api/files/images"},
		{http.MethodGet, "/api/files/image/part/back.png"},
		{http.MethodDelete, "/api/files/image/part/back.png"},
		{http.MethodPost, "/api/groups"},
	}

	for _, ep := range endpoints {
		rec := f.do(t, ep.method, ep.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: got status %d, want 401", ep.method, ep.path, rec.Code)
		}
		env := decodeEnvelope(t, rec)
		if env.Success || env.Error != "Unauthorized" {
			t.Errorf("%s %s: got envelope %+v", ep.method, ep.path, env)
		}
	}

	if f.store.ListModelsCalls != 0 {
		t.Errorf("storage was touched by unauthenticated requests: %d list calls", f.store.ListModelsCalls)
	}
	if got := f.store.ModelNames(); len(got) != 1 {
		t.Errorf("model bucket changed: %v", got)
	}
}

func TestGarbageCookieIsUnauthorized(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/files/3mf", "", &http.Cookie{Name: CookieName, Value: "not-a-jwt"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestListModelsEnvelope(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	f.store.PutModel("widget.3mf", []byte("data"))

	rec := f.do(t, http.MethodGet, "/api/files/3mf", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("got envelope %+v", env)
	}

	var files []struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
	if err := json.Unmarshal(env.Data, &files); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(files) != 1 || files[0].Name != "widget.3mf" || files[0].Size != 4 {
		t.Errorf("got files %+v", files)
	}
}

func TestListModelsEmptyIsArray(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	rec := f.do(t, http.MethodGet, "/api/files/3mf", "", cookie)
	env := decodeEnvelope(t, rec)
	if string(env.Data) != "[]" {
		t.Errorf("empty listing serialized as %s, want []", env.Data)
	}
}

func TestStreamModel(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	f.store.PutModel("widget.3mf", []byte("3mf-bytes"))

	rec := f.do(t, http.MethodGet, "/api/files/3mf/widget.3mf", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("got content type %q", got)
	}
	if rec.Body.String() != "3mf-bytes" {
		t.Errorf("got body %q", rec.Body.String())
	}
}

func TestStreamModelMissing(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	rec := f.do(t, http.MethodGet, "/api/files/3mf/nope.3mf", "", cookie)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Success {
		t.Errorf("got envelope %+v", env)
	}
}

func TestDeleteModel(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	f.store.PutModel("widget.3mf", []byte("data"))
	f.store.PutOutput("widget/widget.3mf", []byte("data"))

	rec := f.do(t, http.MethodDelete, "/api/files/3mf/widget.3mf", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if got := f.store.ModelNames(); len(got) != 0 {
		t.Errorf("model bucket after delete: %v", got)
	}
	if got := f.store.OutputNames(); len(got) != 0 {
		t.Errorf("output bucket after delete: %v", got)
	}
}

func TestRenameModel(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	f.store.PutModel("old.3mf", []byte("data"))

	rec := f.do(t, http.MethodPatch, "/api/files/3mf/old.3mf", `{"newName":"new.3mf"}`, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := f.store.ModelNames(); len(got) != 1 || got[0] != "new.3mf" {
		t.Errorf("model bucket after rename: %v", got)
	}
}

func TestRenameModelMissingNewName(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	f.store.PutModel("old.3mf", []byte("data"))

	for _, body := range []string{"", "{}", `{"newName":""}`} {
		rec := f.do(t, http.MethodPatch, "/api/files/3mf/old.3mf", body, cookie)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: got status %d, want 400", body, rec.Code)
		}
	}
	if got := f.store.ModelNames(); len(got) != 1 || got[0] != "old.3mf" {
		t.Errorf("model bucket changed: %v", got)
	}
}

func TestImageRoutesAcceptSlashes(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	f.store.PutImage("shoots/2024/back.png", []byte("png-bytes"))

	rec := f.do(t, http.MethodGet, "/api/files/image/shoots/2024/back.png", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("stream: got status %d, want 200", rec.Code)
	}
	if rec.Body.String() != "png-bytes" {
		t.Errorf("got body %q", rec.Body.String())
	}

	rec = f.do(t, http.MethodDelete, "/api/files/image/shoots/2024/back.png", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: got status %d, want 200", rec.Code)
	}
	if got := f.store.ImageNames(); len(got) != 0 {
		t.Errorf("image bucket after delete: %v", got)
	}
}

func TestListImages(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	f.store.PutImage("front.jpg", []byte("a"))
	f.store.PutImage("notes.txt", []byte("b"))

	rec := f.do(t, http.MethodGet, "/api/files/images", "", cookie)
	env := decodeEnvelope(t, rec)

	var files []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(env.Data, &files); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(files) != 1 || files[0].Name != "front.jpg" {
		t.Errorf("got files %+v", files)
	}
}

func TestGroupCommit(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	f.store.PutModel("part.3mf", []byte("model"))
	f.store.PutImage("img1.png", []byte("one"))
	f.store.PutImage("img2.jpg", []byte("two"))

	body := `{"threeMfName":"part.3mf","images":[{"originalName":"img1.png","newName":"back"},{"originalName":"img2.jpg","newName":"front"}]}`
	rec := f.do(t, http.MethodPost, "/api/groups", body, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var msg string
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if msg != "Created group: part" {
		t.Errorf("got message %q", msg)
	}

	want := []string{"part/back.png", "part/front.jpg", "part/part.3mf"}
	got := f.store.OutputNames()
	if len(got) != len(want) {
		t.Fatalf("output bucket: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("output[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
	if left := f.store.ModelNames(); len(left) != 0 {
		t.Errorf("model bucket not drained: %v", left)
	}
	if left := f.store.ImageNames(); len(left) != 0 {
		t.Errorf("image bucket not drained: %v", left)
	}
}

func TestGroupCommitMissingModelName(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	rec := f.do(t, http.MethodPost, "/api/groups", `{"images":[]}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestAuthCheck(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/auth/check", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var data struct {
		Authenticated bool   `json:"authenticated"`
		Email         string `json:"email"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Authenticated {
		t.Error("unauthenticated check reported authenticated")
	}

	cookie := f.login(t)
	rec = f.do(t, http.MethodGet, "/api/auth/check", "", cookie)
	env = decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !data.Authenticated || data.Email != "user@example.com" {
		t.Errorf("got check data %+v", data)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	rec := f.do(t, http.MethodPost, "/api/auth/logout", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie was not cleared")
	}

	// The same cookie no longer authenticates.
	rec = f.do(t, http.MethodGet, "/api/files/3mf", "", cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout: got status %d, want 401", rec.Code)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}

	var payload struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if payload.Status != "ok" {
		t.Errorf("got status %q", payload.Status)
	}
	if _, err := time.Parse(time.RFC3339, payload.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", payload.Timestamp, err)
	}
}
