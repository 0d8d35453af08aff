package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rollbook.org/internal/auth"
	"rollbook.org/internal/school"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	store := school.NewMemStore()
	svc, err := school.NewService(store, tokens)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	resolver := auth.NewResolver(tokens, store.Users())

	api := New(svc, resolver, ReadyProbe{}, "test")
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, headers map[string]string) *http.Response {
	return c.do(http.MethodGet, path, nil, headers)
}

func (c *apiClient) signup(name, email, role string) string {
	c.t.Helper()
	resp := c.post("/signup", map[string]any{
		"name":     name,
		"email":    email,
		"password": "pa55word",
		"role":     role,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("unexpected signup status: %d", resp.StatusCode)
	}
	user := decode[map[string]any](c.t, resp)
	id, _ := user["id"].(string)
	if id == "" {
		c.t.Fatalf("signup response missing id: %v", user)
	}
	return id
}

func (c *apiClient) obtainToken(email string) map[string]string {
	c.t.Helper()
	resp := c.post("/token", map[string]any{
		"email":    email,
		"password": "pa55word",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	payload := decode[tokenResponse](c.t, resp)
	if payload.AccessToken == "" {
		c.t.Fatalf("empty token issued")
	}
	if payload.TokenType != "bearer" {
		c.t.Fatalf("unexpected token type: %s", payload.TokenType)
	}
	return map[string]string{"Authorization": "Bearer " + payload.AccessToken}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestSignupAndTokenFlow(t *testing.T) {
	api := newTestAPI(t)
	api.signup("Alice", "a@x.com", "teacher")

	// Duplicate email conflicts.
	resp := api.post("/signup", map[string]any{
		"name":     "Imposter",
		"email":    "a@x.com",
		"password": "other",
		"role":     "admin",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	api.obtainToken("a@x.com")

	// Wrong password is indistinguishable from an unknown user.
	resp = api.post("/token", map[string]any{"email": "a@x.com", "password": "wrong"}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp = api.post("/token", map[string]any{"email": "ghost@x.com", "password": "pa55word"}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/v1/students", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate header")
	}
	var errBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["error"] == "" {
		t.Fatalf("expected error message")
	}

	garbage := api.get("/v1/students", map[string]string{"Authorization": "Bearer not.a.token"})
	garbage.Body.Close()
	if garbage.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", garbage.StatusCode)
	}
}

func TestStudentEndpointsOwnership(t *testing.T) {
	api := newTestAPI(t)
	api.signup("T", "t@x.com", "teacher")
	api.signup("U", "u@x.com", "teacher")
	api.signup("Root", "root@x.com", "admin")
	teacherT := api.obtainToken("t@x.com")
	teacherU := api.obtainToken("u@x.com")
	admin := api.obtainToken("root@x.com")

	resp := api.post("/v1/students", map[string]any{"name": "Jo", "class_name": "5A"}, teacherT)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create status: %d", resp.StatusCode)
	}
	student := decode[map[string]any](t, resp)
	studentID := student["id"].(string)
	if student["teacher_id"] == nil {
		t.Fatalf("expected owner set on created student")
	}

	// Owner sees the row.
	resp = api.get("/v1/students", teacherT)
	list := decode[studentListResponse](t, resp)
	if len(list.Items) != 1 || list.Items[0].ID != studentID {
		t.Fatalf("unexpected owner list: %+v", list.Items)
	}

	// Another teacher sees nothing, and a direct fetch is a 404, never 403.
	resp = api.get("/v1/students", teacherU)
	otherList := decode[studentListResponse](t, resp)
	if len(otherList.Items) != 0 {
		t.Fatalf("expected empty list for other teacher, got %+v", otherList.Items)
	}
	resp = api.get("/v1/students/"+studentID, teacherU)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unowned student, got %d", resp.StatusCode)
	}

	// Admin is unrestricted.
	resp = api.get("/v1/students/"+studentID, admin)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodPut, "/v1/students/"+studentID, map[string]any{"name": "Jo", "class_name": "6B"}, teacherT)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected update status: %d", resp.StatusCode)
	}
	updated := decode[map[string]any](t, resp)
	if updated["class_name"] != "6B" {
		t.Fatalf("class not updated: %v", updated["class_name"])
	}

	resp = api.do(http.MethodDelete, "/v1/students/"+studentID, nil, teacherU)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 deleting unowned student, got %d", resp.StatusCode)
	}
	resp = api.do(http.MethodDelete, "/v1/students/"+studentID, nil, teacherT)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestAssessmentEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.signup("T", "t@x.com", "teacher")
	api.signup("W", "w@x.com", "field_worker")
	api.signup("Root", "root@x.com", "admin")
	teacher := api.obtainToken("t@x.com")
	worker := api.obtainToken("w@x.com")
	admin := api.obtainToken("root@x.com")

	resp := api.post("/v1/students", map[string]any{"name": "Jo", "class_name": "5A"}, teacher)
	student := decode[map[string]any](t, resp)
	studentID := student["id"].(string)

	resp = api.post("/v1/assessments", map[string]any{
		"student_id": studentID,
		"subject":    "maths",
		"score":      87,
		"exam_date":  "2025-06-02",
	}, teacher)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected assessment status: %d", resp.StatusCode)
	}
	assessment := decode[map[string]any](t, resp)
	assessmentID := assessment["id"].(string)

	// Field workers cannot record assessments.
	resp = api.post("/v1/assessments", map[string]any{
		"student_id": studentID,
		"subject":    "maths",
		"score":      10,
		"exam_date":  "2025-06-02",
	}, worker)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for field worker create, got %d", resp.StatusCode)
	}

	// Score update is open to any authenticated principal.
	resp = api.do(http.MethodPut, "/v1/assessments/"+assessmentID, map[string]any{"score": 42}, worker)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for score update, got %d", resp.StatusCode)
	}
	updated := decode[map[string]any](t, resp)
	if updated["score"].(float64) != 42 {
		t.Fatalf("score not updated: %v", updated["score"])
	}

	// Delete is admin only.
	resp = api.do(http.MethodDelete, "/v1/assessments/"+assessmentID, nil, teacher)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp = api.do(http.MethodDelete, "/v1/assessments/"+assessmentID, nil, admin)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestAttendanceEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.signup("T", "t@x.com", "teacher")
	teacher := api.obtainToken("t@x.com")

	resp := api.post("/v1/students", map[string]any{"name": "Jo", "class_name": "5A"}, teacher)
	student := decode[map[string]any](t, resp)
	studentID := student["id"].(string)

	resp = api.post("/v1/attendance", map[string]any{
		"student_id": studentID,
		"date":       "2025-09-01",
		"status":     "late",
	}, teacher)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", resp.StatusCode)
	}

	resp = api.post("/v1/attendance", map[string]any{
		"student_id": studentID,
		"date":       "2025-09-01",
		"status":     "present",
	}, teacher)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected attendance status: %d", resp.StatusCode)
	}
	record := decode[map[string]any](t, resp)
	if record["status"] != "present" {
		t.Fatalf("unexpected status: %v", record["status"])
	}

	resp = api.get("/v1/attendance", teacher)
	list := decode[attendanceListResponse](t, resp)
	if len(list.Items) != 1 {
		t.Fatalf("expected one attendance record, got %d", len(list.Items))
	}
}

func TestHealthAndInfo(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Fatalf("unexpected healthz body: %v", body)
	}

	resp = api.get("/readyz", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected readyz status: %d", resp.StatusCode)
	}

	resp = api.get("/v1/info", nil)
	info := decode[map[string]any](t, resp)
	if info["name"] != serviceName {
		t.Fatalf("unexpected info name: %v", info["name"])
	}
}
