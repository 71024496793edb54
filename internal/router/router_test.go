package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"ideaboard/internal/config"
	"ideaboard/internal/db"
	"ideaboard/internal/metrics"
	"ideaboard/internal/middleware"
	"ideaboard/internal/models"
	"ideaboard/internal/services"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T, staticDir string) *testServer {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	sqlDB, _ := conn.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	cfg := &config.Config{
		Env:              "test",
		StaticDir:        staticDir,
		SessionSecret:    "test-secret",
		SessionMaxAgeSec: 3600,
		FrontendURL:      "http://localhost:5174",
		GrafanaEmbedURL:  "http://grafana.local",
	}
	engine := New(Options{Config: cfg, DB: conn, Metrics: metrics.New()})

	// test-only login shortcut, the real flow goes through 42 OAuth
	engine.POST("/test/login/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		session := sessions.Default(c)
		session.Set(middleware.SessionUserKey, uint(id))
		session.Save()
		c.Status(http.StatusNoContent)
	})

	return &testServer{t: t, engine: engine, db: conn}
}

func (s *testServer) createUser(name string, admin bool) *models.User {
	s.t.Helper()
	var n int64
	s.db.Model(&models.User{}).Count(&n)
	user := models.User{ExternalID: 500 + n, Username: name, IsAdmin: admin}
	if err := s.db.Create(&user).Error; err != nil {
		s.t.Fatalf("Failed to create user: %v", err)
	}
	return &user
}

func (s *testServer) login(userID uint) []*http.Cookie {
	s.t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest("POST", fmt.Sprintf("/test/login/%d", userID), nil))
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		s.t.Fatal("Expected a session cookie")
	}
	return cookies
}

func (s *testServer) do(method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to decode %q: %v", w.Body.String(), err)
	}
}

func TestIdeaLockScenario(t *testing.T) {
	s := newTestServer(t, "")
	s.createUser("alice", false)
	s.createUser("bob", false)
	s.createUser("carol", false)

	w := s.do("POST", "/api/ideas", gin.H{"content": "Add a gym", "userId": 1}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created map[string]any
	decode(t, w, &created)
	if created["is_locked"] != false {
		t.Errorf("Expected unlocked idea, got %v", created["is_locked"])
	}
	if _, ok := created["user_id"]; ok {
		t.Error("Create response must not expose user_id")
	}
	id := int(created["id"].(float64))

	w = s.do("POST", fmt.Sprintf("/api/ideas/%d/lock", id), gin.H{"userId": 2}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var locked map[string]any
	decode(t, w, &locked)
	if locked["is_locked"] != true || locked["locked_by_id"] != float64(2) {
		t.Errorf("Unexpected lock body %v", locked)
	}

	w = s.do("POST", fmt.Sprintf("/api/ideas/%d/lock", id), gin.H{"userId": 3}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", w.Code)
	}
	var errBody map[string]string
	decode(t, w, &errBody)
	if errBody["error"] != "Idea already locked" {
		t.Errorf("Unexpected error body %v", errBody)
	}

	w = s.do("GET", "/api/ideas", nil, nil)
	var list []map[string]any
	decode(t, w, &list)
	if len(list) != 1 || list[0]["user_id"] != float64(1) {
		t.Errorf("Unexpected idea list %v", list)
	}
}

func TestIdeaValidation(t *testing.T) {
	s := newTestServer(t, "")
	s.createUser("alice", false)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"blank content", "POST", "/api/ideas", gin.H{"content": "  ", "userId": 1}, http.StatusBadRequest},
		{"missing user", "POST", "/api/ideas", gin.H{"content": "x"}, http.StatusBadRequest},
		{"unknown user", "POST", "/api/ideas", gin.H{"content": "x", "userId": 99}, http.StatusNotFound},
		{"lock without user", "POST", "/api/ideas/1/lock", gin.H{}, http.StatusBadRequest},
		{"lock unknown idea", "POST", "/api/ideas/42/lock", gin.H{"userId": 1}, http.StatusNotFound},
		{"lock unparsable id", "POST", "/api/ideas/abc/lock", gin.H{"userId": 1}, http.StatusNotFound},
		{"malformed json", "POST", "/api/ideas", "not-an-object", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(tc.method, tc.path, tc.body, nil)
			if w.Code != tc.want {
				t.Errorf("Expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestIdeaUserIDAsString(t *testing.T) {
	s := newTestServer(t, "")
	s.createUser("alice", false)
	s.createUser("bob", false)

	w := s.do("POST", "/api/ideas", gin.H{"content": "Add a gym", "userId": "1"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for a numeric string userId, got %d: %s", w.Code, w.Body.String())
	}
	var created map[string]any
	decode(t, w, &created)
	id := int(created["id"].(float64))

	w = s.do("POST", fmt.Sprintf("/api/ideas/%d/lock", id), gin.H{"userId": "2"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var locked map[string]any
	decode(t, w, &locked)
	if locked["locked_by_id"] != float64(2) {
		t.Errorf("Unexpected lock body %v", locked)
	}

	w = s.do("POST", "/api/ideas", gin.H{"content": "x", "userId": "abc"}, nil)
	var errBody map[string]string
	decode(t, w, &errBody)
	if w.Code != http.StatusBadRequest || errBody["error"] != "userId must be a positive integer" {
		t.Errorf("Expected a userId specific 400, got %d %v", w.Code, errBody)
	}

	w = s.do("POST", "/api/ideas", gin.H{"content": "x", "userId": ""}, nil)
	decode(t, w, &errBody)
	if w.Code != http.StatusBadRequest || errBody["error"] != "userId required" {
		t.Errorf("Expected userId required, got %d %v", w.Code, errBody)
	}
}

func TestPostsRequireSession(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do("POST", "/api/posts", gin.H{"content": "hi"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for anonymous post, got %d", w.Code)
	}
	w = s.do("POST", "/api/posts/1/vote", gin.H{"voteType": "like"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for anonymous vote, got %d", w.Code)
	}
}

func TestPostFlow(t *testing.T) {
	s := newTestServer(t, "")
	alice := s.createUser("alice", false)
	bob := s.createUser("bob", false)
	aliceCookies := s.login(alice.ID)
	bobCookies := s.login(bob.ID)

	w := s.do("POST", "/api/posts", gin.H{"content": "hello *world*"}, aliceCookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var post map[string]any
	decode(t, w, &post)
	postID := int(post["id"].(float64))
	if _, ok := post["createdAt"]; !ok {
		t.Error("Expected createdAt in response")
	}

	w = s.do("POST", "/api/posts", gin.H{"content": "again"}, aliceCookies)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for second post, got %d", w.Code)
	}
	var limited map[string]string
	decode(t, w, &limited)
	if !strings.Contains(limited["error"], "24 more hour(s)") {
		t.Errorf("Unexpected rate limit message %q", limited["error"])
	}

	w = s.do("POST", "/api/posts", gin.H{"content": ""}, bobCookies)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty content, got %d", w.Code)
	}

	w = s.do("POST", fmt.Sprintf("/api/posts/%d/vote", postID), gin.H{"voteType": "like"}, bobCookies)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var vote map[string]any
	decode(t, w, &vote)
	if vote["ok"] != true || vote["message"] != "Vote 'like' recorded successfully" {
		t.Errorf("Unexpected vote body %v", vote)
	}

	w = s.do("POST", fmt.Sprintf("/api/posts/%d/vote", postID), gin.H{"voteType": "meh"}, bobCookies)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid voteType, got %d", w.Code)
	}
	w = s.do("POST", "/api/posts/999/vote", gin.H{"voteType": "like"}, bobCookies)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown post, got %d", w.Code)
	}

	w = s.do("GET", "/api/posts", nil, nil)
	var feed []map[string]any
	decode(t, w, &feed)
	if len(feed) != 1 {
		t.Fatalf("Expected 1 post, got %d", len(feed))
	}
	if feed[0]["author"] != "alice" || feed[0]["likeCount"] != float64(1) {
		t.Errorf("Unexpected feed entry %v", feed[0])
	}
	if !strings.Contains(feed[0]["contentHtml"].(string), "<em>world</em>") {
		t.Errorf("Expected rendered html, got %v", feed[0]["contentHtml"])
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, "")
	user := s.createUser("alice", false)
	admin := s.createUser("root", true)

	w := s.do("GET", "/api/admin/stats", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
	w = s.do("GET", "/api/admin/stats", nil, s.login(user.ID))
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}

	adminCookies := s.login(admin.ID)
	w = s.do("GET", "/api/admin/stats", nil, adminCookies)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var stats map[string]float64
	decode(t, w, &stats)
	if stats["totalUsers"] != 2 || stats["adminUsers"] != 1 {
		t.Errorf("Unexpected stats %v", stats)
	}

	w = s.do("GET", "/api/admin/posts", nil, adminCookies)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected empty admin post list, got %d %s", w.Code, w.Body.String())
	}

	w = s.do("GET", "/api/admin/grafana-url", nil, adminCookies)
	var grafana map[string]string
	decode(t, w, &grafana)
	if grafana["url"] != "http://grafana.local" {
		t.Errorf("Unexpected grafana url %v", grafana)
	}
}

func TestAuthSessionEndpoints(t *testing.T) {
	s := newTestServer(t, "")
	user := s.createUser("marvin", false)

	w := s.do("GET", "/api/auth/me", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}

	cookies := s.login(user.ID)
	w = s.do("GET", "/api/auth/me", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var me map[string]any
	decode(t, w, &me)
	if me["login"] != "marvin" || me["intra_id"] != float64(user.ExternalID) {
		t.Errorf("Unexpected me body %v", me)
	}

	w = s.do("POST", "/api/auth/logout", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var out map[string]any
	decode(t, w, &out)
	if out["ok"] != true {
		t.Errorf("Unexpected logout body %v", out)
	}

	// the OAuth client is not configured in tests
	w = s.do("GET", "/api/auth/42", nil, nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 without OAuth credentials, got %d", w.Code)
	}
}

func TestInfoHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do("GET", "/api", nil, nil)
	var info map[string]any
	decode(t, w, &info)
	if info["status"] != "ok" || info["version"] != "1.0.0" {
		t.Errorf("Unexpected info %v", info)
	}

	w = s.do("GET", "/api/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected healthy database, got %d %s", w.Code, w.Body.String())
	}

	w = s.do("GET", "/metrics", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Errorf("Expected prometheus exposition, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "")

	preflight := func(path, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("OPTIONS", path, nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		return w
	}

	for _, path := range []string{"/api/ideas", "/api/posts", "/api/posts/1/vote", "/api/ideas/1/lock"} {
		w := preflight(path, "http://localhost:5174")
		if w.Code != http.StatusNoContent {
			t.Errorf("%s: expected 204 preflight, got %d", path, w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5174" {
			t.Errorf("%s: unexpected allow-origin %q", path, got)
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "POST") {
			t.Errorf("%s: POST missing from allow-methods %q", path, w.Header().Get("Access-Control-Allow-Methods"))
		}
		if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Errorf("%s: expected credentials to be allowed", path)
		}
	}

	w := preflight("/api/ideas", "http://evil.example")
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("Unlisted origin must not be allowed, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestAdminLoginPromotedOnFirstSignIn(t *testing.T) {
	s := newTestServer(t, "")
	users := services.NewUserService(s.db, "root")

	admin, err := users.FindOrCreateByExternalID(context.Background(), 77, "root")
	if err != nil {
		t.Fatalf("FindOrCreateByExternalID failed: %v", err)
	}

	w := s.do("GET", "/api/admin/stats", nil, s.login(admin.ID))
	if w.Code != http.StatusOK {
		t.Errorf("Expected a listed login to reach admin routes, got %d", w.Code)
	}
}

func TestSPAFallback(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644)
	os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644)
	s := newTestServer(t, dir)

	w := s.do("GET", "/some/client/route", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "app") {
		t.Errorf("Expected index.html fallback, got %d %s", w.Code, w.Body.String())
	}

	w = s.do("GET", "/app.js", nil, nil)
	if !strings.Contains(w.Body.String(), "console.log") {
		t.Errorf("Expected static asset, got %s", w.Body.String())
	}

	w = s.do("GET", "/api/unknown", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown api route, got %d", w.Code)
	}
}
