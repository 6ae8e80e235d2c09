package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/funnel-crm-api/internal/api"
	"github.com/funnel-crm-api/internal/auth"
	"github.com/funnel-crm-api/internal/config"
	"github.com/funnel-crm-api/internal/metrics"
	"github.com/funnel-crm-api/internal/mocks"
	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type testServer struct {
	router    *gin.Engine
	services  *service.Services
	store     *mocks.Store
	tokens    *auth.TokenIssuer
	uploadDir string
}

func setupTestRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos, store := mocks.NewRepositories()
	uploadDir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080", PublicURL: "https://crm.example.com", AllowedOrigin: "*"},
		Import: config.ImportConfig{
			BatchSize:     100,
			MaxUploadSize: 10 * 1024 * 1024,
			UploadDir:     uploadDir,
		},
		Auth: config.AuthConfig{LoginRateLimit: 0.01, LoginBurst: 3},
		Board: config.BoardConfig{
			ClosedStageNames: []string{"Fechado"},
			DueLookaheadDays: 3,
			Timezone:         "UTC",
		},
	}
	tokens := auth.NewTokenIssuer("api-test-secret-0123456789", "funnel-crm-test", time.Hour, 24*time.Hour)
	m := metrics.New()

	services := service.NewServices(repos, service.Deps{Tokens: tokens, Metrics: m}, cfg, zerolog.Nop())
	router := api.NewRouter(services, nil, m, cfg, zerolog.Nop())

	return &testServer{router: router, services: services, store: store, tokens: tokens, uploadDir: uploadDir}
}

// signIn stores a profile and returns a session token for it
func (s *testServer) signIn(t *testing.T, role models.Role, perms ...string) (string, *models.Profile) {
	t.Helper()
	p := &models.Profile{
		ID:          uuid.New().String(),
		FirstName:   "Test",
		Role:        role,
		Permissions: map[string]bool{},
	}
	for _, k := range perms {
		p.Permissions[k] = true
	}
	s.store.Profiles[p.ID] = p

	token, _, err := s.tokens.IssueSession(p.ID, p.Role)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	return token, p
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do("GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "funnel-crm-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestRouter(t)
	s.do("GET", "/health", "", nil)

	w := s.do("GET", "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `funnel_crm_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("Expected request counter for /health in:\n%s", w.Body.String())
	}
}

func TestDocsEndpoint(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do("GET", "/v1/docs", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "curl -X POST https://crm.example.com/v1/contacts") {
		t.Errorf("Expected contact curl example against the public URL, got %s", w.Body.String())
	}

	var docs struct {
		Endpoints []struct {
			Path    string `json:"path"`
			Example string `json:"example"`
		} `json:"endpoints"`
	}
	decode(t, w, &docs)
	for _, e := range docs.Endpoints {
		// every other segment between single quotes is passed to the shell verbatim
		parts := strings.Split(e.Example, "'")
		for i := 1; i < len(parts); i += 2 {
			if strings.Contains(parts[i], "$") {
				t.Errorf("%s: shell variable inside single quotes never expands: %s", e.Path, parts[i])
			}
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := setupTestRouter(t)
	token, _ := s.signIn(t, models.RoleUser)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"apikey header", func(r *http.Request) { r.Header.Set("apikey", token) }, http.StatusOK},
		{"query parameter", func(r *http.Request) { r.URL.RawQuery = "access_token=" + token }, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/auth/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestSetupLoginLogout(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do("POST", "/v1/auth/setup", "", map[string]string{
		"email": "owner@example.com", "password": "password123", "first_name": "Owner",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 from setup, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do("POST", "/v1/auth/setup", "", map[string]string{
		"email": "other@example.com", "password": "password123", "first_name": "Other",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 from second setup, got %d", w.Code)
	}

	w = s.do("POST", "/v1/auth/login", "", map[string]string{"email": "owner@example.com", "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from login, got %d: %s", w.Code, w.Body.String())
	}
	var login models.LoginResponse
	decode(t, w, &login)

	if w := s.do("POST", "/v1/auth/logout", login.Token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 from logout, got %d", w.Code)
	}
	if w := s.do("GET", "/v1/auth/me", login.Token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected revoked token to get 401, got %d", w.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	s := setupTestRouter(t)
	body := map[string]string{"email": "nobody@example.com", "password": "password123"}

	for i := 0; i < 3; i++ {
		if w := s.do("POST", "/v1/auth/login", "", body); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, w.Code)
		}
	}
	if w := s.do("POST", "/v1/auth/login", "", body); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the burst, got %d", w.Code)
	}
}

func TestLoginRateLimit_IgnoresForwardedFor(t *testing.T) {
	s := setupTestRouter(t)

	limited := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("POST", "/v1/auth/login",
			strings.NewReader(`{"email":"nobody@example.com","password":"password123"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 17 {
		t.Errorf("Expected 17 of 20 attempts limited despite rotating X-Forwarded-For, got %d", limited)
	}
}

func TestLoginRateLimit_TrustedProxy(t *testing.T) {
	repos, _ := mocks.NewRepositories()
	cfg := &config.Config{
		Server: config.ServerConfig{TrustedProxies: []string{"192.0.2.0/24"}},
		Auth:   config.AuthConfig{LoginRateLimit: 0.01, LoginBurst: 1},
	}
	tokens := auth.NewTokenIssuer("api-test-secret-0123456789", "funnel-crm-test", time.Hour, 24*time.Hour)
	services := service.NewServices(repos, service.Deps{Tokens: tokens}, cfg, zerolog.Nop())
	router := api.NewRouter(services, nil, nil, cfg, zerolog.Nop())

	// httptest requests come from 192.0.2.1, so each forwarded client gets its own bucket
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/v1/auth/login",
			strings.NewReader(`{"email":"nobody@example.com","password":"password123"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("client %d: expected 401, got %d", i, w.Code)
		}
	}
}

func TestGenerateAPIKey_Permission(t *testing.T) {
	s := setupTestRouter(t)
	plain, _ := s.signIn(t, models.RoleUser)
	allowed, _ := s.signIn(t, models.RoleUser, models.PermSettingsUpdate)

	if w := s.do("POST", "/v1/settings/api-key", plain, nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without settings_update, got %d", w.Code)
	}

	w := s.do("POST", "/v1/settings/api-key", allowed, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 with settings_update, got %d: %s", w.Code, w.Body.String())
	}
	var key models.APIKeyResponse
	decode(t, w, &key)

	req := httptest.NewRequest("GET", "/v1/auth/me", nil)
	req.Header.Set("apikey", key.APIKey)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected API key to authenticate, got %d", rec.Code)
	}
}

func TestUsersRequireManager(t *testing.T) {
	s := setupTestRouter(t)
	gestor, _ := s.signIn(t, models.RoleManager)
	manager, _ := s.signIn(t, models.RoleManager, models.PermEditUsers)

	body := map[string]interface{}{
		"email": "seller@example.com", "password": "password123", "first_name": "Seller", "role": "user",
	}
	if w := s.do("POST", "/v1/users", gestor, body); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for gestor without edit_users, got %d", w.Code)
	}
	if w := s.do("POST", "/v1/users", manager, body); w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w := s.do("POST", "/v1/users", manager, body)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for duplicate email, got %d", w.Code)
	}
	var resp map[string]interface{}
	decode(t, w, &resp)
	if resp["error"] != "email address already in use" {
		t.Errorf("Unexpected error message %v", resp["error"])
	}

	body["role"] = "superuser"
	if w := s.do("POST", "/v1/users", manager, body); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid role, got %d", w.Code)
	}
}

func TestCreateCard(t *testing.T) {
	s := setupTestRouter(t)
	token, _ := s.signIn(t, models.RoleAdmin)

	w := s.do("POST", "/v1/funnels", token, map[string]interface{}{
		"name": "Vendas", "stages": []string{"Lead", "Fechado"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for funnel, got %d: %s", w.Code, w.Body.String())
	}
	var funnel models.Funnel
	decode(t, w, &funnel)
	stageID := funnel.Stages[0].ID

	if w := s.do("POST", "/v1/cards", "", map[string]interface{}{"title": "Deal", "stage_id": stageID}); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without session, got %d", w.Code)
	}

	w = s.do("POST", "/v1/cards", token, map[string]interface{}{"stage_id": stageID})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for missing title, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "title") {
		t.Errorf("Expected error to name the title field, got %s", w.Body.String())
	}

	w = s.do("POST", "/v1/cards", token, map[string]interface{}{
		"title": "Deal", "stage_id": stageID, "value": 1200.5,
		"tasks": []map[string]string{{"text": "Ligar", "due_date": "2026-05-01"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var card models.CardView
	decode(t, w, &card)
	if card.Title != "Deal" || card.TasksCount != 1 {
		t.Errorf("Unexpected card %+v", card)
	}

	w = s.do("POST", "/v1/cards/"+card.ID+"/move", token, map[string]interface{}{"stage_id": funnel.Stages[1].ID})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from move, got %d: %s", w.Code, w.Body.String())
	}
	var moved models.CardView
	decode(t, w, &moved)
	if moved.ClosedAt == nil {
		t.Error("Expected closed_at after moving into Fechado")
	}

	if w := s.do("GET", "/v1/cards/missing", token, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestFunnelManagementRequiresPermission(t *testing.T) {
	s := setupTestRouter(t)
	token, _ := s.signIn(t, models.RoleUser)

	w := s.do("POST", "/v1/funnels", token, map[string]interface{}{"name": "X", "stages": []string{"A"}})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without funnels_manage, got %d", w.Code)
	}
}

func TestReorderStages_IndexValidation(t *testing.T) {
	s := setupTestRouter(t)
	token, _ := s.signIn(t, models.RoleUser, models.PermFunnelsManage)

	w := s.do("POST", "/v1/funnels", token, map[string]interface{}{"name": "Vendas", "stages": []string{"Lead", "Proposta", "Fechado"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var f models.Funnel
	decode(t, w, &f)
	path := "/v1/funnels/" + f.ID + "/stages/order"
	last := f.Stages[2].ID

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"missing index", map[string]interface{}{"stage_id": last}, http.StatusBadRequest},
		{"negative index", map[string]interface{}{"stage_id": last, "to_index": -1}, http.StatusBadRequest},
		{"front", map[string]interface{}{"stage_id": last, "to_index": 0}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := s.do("PUT", path, token, tt.body); w.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestCalendar_BadDate(t *testing.T) {
	s := setupTestRouter(t)
	token, _ := s.signIn(t, models.RoleUser)

	if w := s.do("GET", "/v1/calendar?from=01/02/2026", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed date, got %d", w.Code)
	}
	if w := s.do("GET", "/v1/calendar?from=2026-03-10&to=2026-03-01", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for inverted range, got %d", w.Code)
	}
	if w := s.do("GET", "/v1/calendar", token, nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestGoalsUpsert(t *testing.T) {
	s := setupTestRouter(t)
	token, _ := s.signIn(t, models.RoleUser, models.PermGoalsManage)

	for _, amount := range []float64{1000, 2000} {
		w := s.do("PUT", "/v1/goals", token, map[string]interface{}{"month": 4, "year": 2026, "goal_amount": amount})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
	}
	if len(s.store.Goals) != 1 {
		t.Errorf("Expected one goal after two upserts, got %d", len(s.store.Goals))
	}

	if w := s.do("PUT", "/v1/goals", token, map[string]interface{}{"month": 13, "year": 2026}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for month 13, got %d", w.Code)
	}
}

func TestCreateImport(t *testing.T) {
	s := setupTestRouter(t)
	token, _ := s.signIn(t, models.RoleUser, models.PermContactsImport)
	noImport, _ := s.signIn(t, models.RoleUser)

	upload := func(token, filename, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.WriteField("resource", "contacts")
		fw, _ := mw.CreateFormFile("file", filename)
		fw.Write([]byte(content))
		mw.Close()

		req := httptest.NewRequest("POST", "/v1/imports", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	if w := upload(noImport, "c.csv", "nome\nAna\n"); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without contacts_import, got %d", w.Code)
	}
	if w := upload(token, "c.txt", "nome\nAna\n"); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-CSV upload, got %d", w.Code)
	}

	w := upload(token, "c.csv", "nome\nAna\n")
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	decode(t, w, &resp)
	jobID, _ := resp["job_id"].(string)

	w = s.do("GET", "/v1/imports/"+jobID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for job status, got %d", w.Code)
	}
	var job models.JobResponse
	decode(t, w, &job)
	if job.Status != models.JobStatusPending {
		t.Errorf("Expected pending job, got %s", job.Status)
	}

	if w := s.do("GET", "/v1/imports/nope", token, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown job, got %d", w.Code)
	}
}

// staleKeyLookup misses existing keys, as a concurrent upload racing the
// idempotency pre-check would.
type staleKeyLookup struct {
	service.JobService
}

func (staleKeyLookup) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	return nil, nil
}

func TestCreateImport_ConcurrentIdempotencyKey(t *testing.T) {
	s := setupTestRouter(t)
	token, _ := s.signIn(t, models.RoleUser, models.PermContactsImport)
	s.services.Job = staleKeyLookup{s.services.Job}

	upload := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", "c.csv")
		fw.Write([]byte("nome\nAna\n"))
		mw.Close()

		req := httptest.NewRequest("POST", "/v1/imports", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "same-upload")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	w := upload()
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var created map[string]interface{}
	decode(t, w, &created)

	w = upload()
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for the losing upload, got %d: %s", w.Code, w.Body.String())
	}
	var existing models.Job
	decode(t, w, &existing)
	if existing.ID != created["job_id"] {
		t.Errorf("Expected job %v, got %s", created["job_id"], existing.ID)
	}

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the winning upload on disk, got %d files", len(entries))
	}
}

func TestStreamExport(t *testing.T) {
	s := setupTestRouter(t)
	token, _ := s.signIn(t, models.RoleUser)

	w := s.do("POST", "/v1/contacts", token, map[string]string{"name": "Ana", "email": "ana@example.com"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do("GET", "/v1/exports?resource=contacts&format=csv", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "id,name,email") {
		t.Errorf("Unexpected CSV export:\n%s", w.Body.String())
	}
	if got := w.Header().Get("X-Total-Count"); got != "1" {
		t.Errorf("Expected X-Total-Count 1, got %q", got)
	}

	if w := s.do("GET", "/v1/exports?resource=users", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown resource, got %d", w.Code)
	}
	if w := s.do("GET", "/v1/exports?resource=cards&format=xml", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown format, got %d", w.Code)
	}
}

func TestDeleteContactRequiresPermission(t *testing.T) {
	s := setupTestRouter(t)
	token, _ := s.signIn(t, models.RoleUser)

	w := s.do("POST", "/v1/contacts", token, map[string]string{"name": "Ana"})
	var contact models.Contact
	decode(t, w, &contact)

	if w := s.do("DELETE", "/v1/contacts/"+contact.ID, token, nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without contacts_delete, got %d", w.Code)
	}
}
