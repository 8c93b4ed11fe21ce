package applications_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"jobapply-backend/internal/bootstrap"
	"jobapply-backend/internal/shared/config"
)

const resumeText = "John Michael Smith\nBackend Engineer\nSkills: Go, PostgreSQL, Kubernetes\n"

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		GmailTokenDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
		LLMProvider:     "none",
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app.Router
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func upload(t *testing.T, router http.Handler, sessionID, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/resume", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestSessionFlow(t *testing.T) {
	router := newRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created struct {
		SessionID string `json:"sessionId"`
	}
	decode(t, resp, &created)
	if created.SessionID == "" {
		t.Fatalf("expected sessionId")
	}
	base := "/api/v1/sessions/" + created.SessionID

	resp = upload(t, router, created.SessionID, "resume.txt", resumeText)
	if resp.Code != http.StatusOK {
		t.Fatalf("upload expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var afterUpload struct {
		ResumeFileName   string `json:"resumeFileName"`
		ResumeChars      int    `json:"resumeChars"`
		ReadyForAnalysis bool   `json:"readyForAnalysis"`
	}
	decode(t, resp, &afterUpload)
	if afterUpload.ResumeFileName != "resume.txt" || afterUpload.ResumeChars == 0 || afterUpload.ReadyForAnalysis {
		t.Fatalf("unexpected upload response: %#v", afterUpload)
	}

	resp = doJSON(t, router, http.MethodPut, base+"/job-description", map[string]string{
		"text": "Backend Engineer\n\nExperience with Go, PostgreSQL, Kafka and Terraform required.",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("job description expected 200, got %d", resp.Code)
	}

	resp = doJSON(t, router, http.MethodPost, base+"/analyze", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("analyze expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var analyzed struct {
		Action   string `json:"action"`
		Analysis struct {
			Source       string `json:"source"`
			MatchPercent *int   `json:"matchPercent"`
			Text         string `json:"text"`
		} `json:"analysis"`
		Email *json.RawMessage `json:"email"`
	}
	decode(t, resp, &analyzed)
	if analyzed.Action != "analyze" || analyzed.Analysis.Source != "basic" || analyzed.Analysis.MatchPercent == nil {
		t.Fatalf("unexpected analysis response: %#v", analyzed)
	}
	if !strings.Contains(analyzed.Analysis.Text, "BASIC TEXT ANALYSIS") {
		t.Fatalf("expected basic analysis label, got %q", analyzed.Analysis.Text)
	}
	if analyzed.Email != nil {
		t.Fatalf("analyze must not compose an email")
	}

	resp = doJSON(t, router, http.MethodPost, base+"/draft", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("draft without recipient expected 400, got %d", resp.Code)
	}
	var missing errorBody
	decode(t, resp, &missing)
	if missing.Error.Code != "missing_input" {
		t.Fatalf("unexpected error code %q", missing.Error.Code)
	}

	resp = doJSON(t, router, http.MethodPut, base+"/recipient", map[string]string{"email": "nope"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("invalid recipient expected 400, got %d", resp.Code)
	}
	resp = doJSON(t, router, http.MethodPut, base+"/recipient", map[string]string{"email": "jobs@example.com"})
	if resp.Code != http.StatusOK {
		t.Fatalf("recipient expected 200, got %d", resp.Code)
	}

	resp = doJSON(t, router, http.MethodPost, base+"/draft", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("draft without gmail expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
	var notConnected errorBody
	decode(t, resp, &notConnected)
	if notConnected.Error.Code != "not_connected" {
		t.Fatalf("unexpected error code %q", notConnected.Error.Code)
	}
	if url, _ := notConnected.Error.Details["connectUrl"].(string); !strings.Contains(url, created.SessionID) {
		t.Fatalf("expected connectUrl naming the session, got %v", notConnected.Error.Details)
	}

	resp = doJSON(t, router, http.MethodGet, base+"/history", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("history expected 200, got %d", resp.Code)
	}
	var hist struct {
		Entries []struct {
			Kind   string `json:"kind"`
			Action string `json:"action"`
		} `json:"entries"`
	}
	decode(t, resp, &hist)
	if len(hist.Entries) != 2 {
		t.Fatalf("expected 2 analysis entries, got %d", len(hist.Entries))
	}
	for _, e := range hist.Entries {
		if e.Kind != "analysis" {
			t.Fatalf("unexpected history entry %#v", e)
		}
	}
}

func TestUnknownSession(t *testing.T) {
	router := newRouter(t)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/sessions/missing", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var body errorBody
	decode(t, resp, &body)
	if body.Error.Code != "session_not_found" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
}

func TestUploadValidation(t *testing.T) {
	router := newRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	var created struct {
		SessionID string `json:"sessionId"`
	}
	decode(t, resp, &created)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/resume", nil)
	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, req)
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("missing file expected 400, got %d", missing.Code)
	}

	resp = upload(t, router, created.SessionID, "resume.bin", "\x00\x01\x02")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unsupported file expected 400, got %d", resp.Code)
	}
}

func TestPresignUnavailableOnLocalStore(t *testing.T) {
	router := newRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	var created struct {
		SessionID string `json:"sessionId"`
	}
	decode(t, resp, &created)

	resp = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/resume/presign", map[string]any{
		"fileName":    "resume.pdf",
		"contentType": "application/pdf",
		"sizeBytes":   1024,
	})
	if resp.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d: %s", resp.Code, resp.Body.String())
	}
	var body errorBody
	decode(t, resp, &body)
	if body.Error.Code != "direct_upload_unavailable" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}

	resp = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/resume/from-s3", map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing key expected 400, got %d", resp.Code)
	}
}

func TestJobURLToInternalAddressRejected(t *testing.T) {
	router := newRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	var created struct {
		SessionID string `json:"sessionId"`
	}
	decode(t, resp, &created)
	base := "/api/v1/sessions/" + created.SessionID

	for _, target := range []string{"http://127.0.0.1:8080/admin", "http://169.254.169.254/latest/meta-data/"} {
		resp = doJSON(t, router, http.MethodPut, base+"/job-description", map[string]string{"url": target})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", target, resp.Code, resp.Body.String())
		}
		var body errorBody
		decode(t, resp, &body)
		if body.Error.Code != "validation_error" {
			t.Fatalf("%s: unexpected code %q", target, body.Error.Code)
		}
	}

	resp = doJSON(t, router, http.MethodGet, base, nil)
	var session struct {
		JobDescription string `json:"jobDescription"`
	}
	decode(t, resp, &session)
	if session.JobDescription != "" {
		t.Fatalf("expected no job description to be stored, got %q", session.JobDescription)
	}
}
