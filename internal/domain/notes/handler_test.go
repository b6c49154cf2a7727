package notes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinscribe/clinscribe/internal/platform/ai"
	"github.com/clinscribe/clinscribe/internal/platform/auth"
)

func newTestServer(f *fixture) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	h := NewHandler(f.svc)
	api := e.Group("/api/v1", auth.DevAuthMiddleware())
	h.RegisterRoutes(api)
	return e
}

func doJSON(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const createBody = `{"title":"Visit","raw_text":"Patient reports mild headache for two days, vitals stable.","note_type":"SOAP"}`

func TestHandlerCreateNote(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)

	rec := doJSON(e, http.MethodPost, "/api/v1/notes", createBody, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var note ClinicalNote
	if err := json.Unmarshal(rec.Body.Bytes(), &note); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if note.ID == uuid.Nil || note.Status != StatusDraft {
		t.Errorf("note = %+v", note)
	}
}

func TestHandlerCreateIdempotencyHeader(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)
	headers := map[string]string{"Idempotency-Key": "op-42"}

	first := doJSON(e, http.MethodPost, "/api/v1/notes", createBody, headers)
	second := doJSON(e, http.MethodPost, "/api/v1/notes", createBody, headers)
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("statuses = %d, %d", first.Code, second.Code)
	}

	var a, b ClinicalNote
	json.Unmarshal(first.Body.Bytes(), &a)
	json.Unmarshal(second.Body.Bytes(), &b)
	if a.ID != b.ID {
		t.Errorf("replay returned a different note: %s != %s", a.ID, b.ID)
	}
}

func TestHandlerCreateReservedKeyConflict(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)
	headers := map[string]string{"Idempotency-Key": "op-9"}

	created := doJSON(e, http.MethodPost, "/api/v1/notes", createBody, headers)
	var note ClinicalNote
	json.Unmarshal(created.Body.Bytes(), &note)
	doJSON(e, http.MethodDelete, "/api/v1/notes/"+note.ID.String(), "", nil)

	rec := doJSON(e, http.MethodPost, "/api/v1/notes", createBody, headers)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandlerUpdateStructuredContent(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)

	created := doJSON(e, http.MethodPost, "/api/v1/notes", createBody, nil)
	var note ClinicalNote
	json.Unmarshal(created.Body.Bytes(), &note)

	update := `{"structured_content":{"subjective":"resolved","objective":"o","assessment":"a","plan":"p"}}`
	rec := doJSON(e, http.MethodPatch, "/api/v1/notes/"+note.ID.String(), update, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated ClinicalNote
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.StructuredContent["subjective"] != "resolved" {
		t.Errorf("structured content = %+v", updated.StructuredContent)
	}
}

func TestHandlerCreateUnsafeText(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)
	body := `{"title":"Visit","raw_text":"I recommend the patient should start aspirin therapy."}`

	rec := doJSON(e, http.MethodPost, "/api/v1/notes", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "reasons") {
		t.Errorf("body = %s, want violation reasons", rec.Body.String())
	}
}

func TestHandlerCreateProviderDown(t *testing.T) {
	f := newFixture()
	f.structurer.err = ai.ErrProviderUnavailable
	e := newTestServer(f)

	rec := doJSON(e, http.MethodPost, "/api/v1/notes", createBody, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if strings.Contains(strings.ToLower(rec.Body.String()), "provider") {
		t.Errorf("body leaks internals: %s", rec.Body.String())
	}
}

func TestHandlerGetNote(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)

	note, err := f.svc.CreateAndStructureNote(context.Background(),
		auth.UserIDFromContext(devContext()), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := doJSON(e, http.MethodGet, "/api/v1/notes/"+note.ID.String(), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/notes/"+uuid.NewString(), "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing note status = %d, want 404", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/notes/not-a-uuid", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestHandlerUpdateAndHistory(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)

	created := doJSON(e, http.MethodPost, "/api/v1/notes", createBody, nil)
	var note ClinicalNote
	json.Unmarshal(created.Body.Bytes(), &note)

	update := `{"raw_text":"Patient symptoms resolved at follow-up, vitals remain stable."}`
	rec := doJSON(e, http.MethodPatch, "/api/v1/notes/"+note.ID.String(), update, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/notes/"+note.ID.String()+"/history", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var versions []*NoteVersion
	if err := json.Unmarshal(rec.Body.Bytes(), &versions); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("versions = %d, want 1", len(versions))
	}
}

func TestHandlerFinalizeAndDelete(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)

	created := doJSON(e, http.MethodPost, "/api/v1/notes", createBody, nil)
	var note ClinicalNote
	json.Unmarshal(created.Body.Bytes(), &note)

	rec := doJSON(e, http.MethodPost, "/api/v1/notes/"+note.ID.String()+"/finalize", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize status = %d", rec.Code)
	}
	var finalized ClinicalNote
	json.Unmarshal(rec.Body.Bytes(), &finalized)
	if finalized.Status != StatusFinalized {
		t.Errorf("status = %q", finalized.Status)
	}

	rec = doJSON(e, http.MethodDelete, "/api/v1/notes/"+note.ID.String(), "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(e, http.MethodGet, "/api/v1/notes/"+note.ID.String(), "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted note status = %d, want 404", rec.Code)
	}
}

func TestHandlerSearchRequiresQuery(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)

	rec := doJSON(e, http.MethodGet, "/api/v1/notes/search", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	rec = doJSON(e, http.MethodGet, "/api/v1/notes/search?q=chest+pain", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandlerSanitize(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)

	rec := doJSON(e, http.MethodPost, "/api/v1/notes/sanitize",
		`{"text":"Patient should take rest."}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !strings.Contains(resp["text"], "Patient to take") {
		t.Errorf("sanitized = %q", resp["text"])
	}
}

func TestHandlerListWithPagination(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)

	for i := 0; i < 3; i++ {
		doJSON(e, http.MethodPost, "/api/v1/notes", createBody, nil)
	}

	rec := doJSON(e, http.MethodGet, "/api/v1/notes?limit=2", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Total   int  `json:"total"`
		HasMore bool `json:"has_more"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 3 || !resp.HasMore {
		t.Errorf("resp = %+v", resp)
	}
}

// devContext mirrors what DevAuthMiddleware puts on the request context.
func devContext() context.Context {
	return context.WithValue(context.Background(), auth.UserIDKey,
		uuid.MustParse("00000000-0000-0000-0000-000000000001"))
}
