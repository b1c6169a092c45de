package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/collabify/backend/internal/config"
	"github.com/collabify/backend/internal/handlers"
	"github.com/collabify/backend/internal/middleware"
	"github.com/collabify/backend/internal/models"
	"github.com/collabify/backend/internal/services"
	"github.com/collabify/backend/internal/testutil"
	"github.com/collabify/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-route-testing")
	if err := utils.RegisterValidators(); err != nil {
		panic(err)
	}
}

type fakeProvider struct {
	identity *services.Identity
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*services.Identity, error) {
	if code != "good-code" {
		return nil, fmt.Errorf("invalid code %q", code)
	}
	return p.identity, nil
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.NewDB(t)
	services.InitActivityLogger(db)
	t.Cleanup(func() { services.InitActivityLogger(nil) })

	cfg := config.DefaultConfig()
	cfg.RateLimit.RPS = 1000
	cfg.RateLimit.Burst = 1000

	provider := &fakeProvider{identity: &services.Identity{
		Subject:       "google-sub-1",
		Email:         "newcomer@example.edu",
		EmailVerified: true,
		Name:          "New Comer",
	}}

	svc := &appServices{
		cfg:             cfg,
		db:              db,
		authHandler:     handlers.NewAuthHandler(db, cfg, provider),
		authLimiter:     middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, middleware.ClientIPKey),
		interestLimiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, middleware.UserOrIPKey),
	}
	t.Cleanup(svc.authLimiter.Stop)
	t.Cleanup(svc.interestLimiter.Stop)

	r := gin.New()
	registerRoutes(r, svc)
	return &testServer{router: r, db: db, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, user *models.User) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := utils.GenerateToken(user.ID, user.Email, user.HandleOrEmpty(), 1)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func idOf(t *testing.T, obj interface{}) uint {
	t.Helper()
	m, ok := obj.(map[string]interface{})
	require.True(t, ok, "expected object, got %T", obj)
	id, ok := m["id"].(float64)
	require.True(t, ok, "expected numeric id in %v", m)
	return uint(id)
}

func (s *testServer) createProject(t *testing.T, owner *models.User, teamSize int) uint {
	t.Helper()
	w, body := s.do(t, http.MethodPost, "/api/projects", gin.H{
		"title":             "Study Buddy",
		"description":       "Pair up learners preparing for the same exams",
		"techStack":         []string{"go", "react"},
		"tags":              []string{"education"},
		"estimatedTeamSize": teamSize,
	}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	return idOf(t, body["project"])
}

func (s *testServer) apply(t *testing.T, applicant *models.User, projectID uint) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/projects/interest", gin.H{
		"projectId": projectID,
		"message":   "I would love to help with the backend",
	}, applicant)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "collabify_http_inflight_requests")
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/projects", "/api/dashboard", "/api/interests/mine", "/api/auth/me"} {
		w, body := s.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Unauthorized", body["error"], path)
	}
}

func TestAcceptInterestFlow(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")
	applicant := testutil.CreateUser(t, s.db, "applicant")

	projectID := s.createProject(t, owner, 3)

	w, body := s.apply(t, applicant, projectID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	interest := body["interest"].(map[string]interface{})
	assert.Equal(t, models.InterestStatusPending, interest["status"])

	w, body = s.do(t, http.MethodPost, "/api/projects/interest/response", gin.H{
		"interestId": idOf(t, interest),
		"action":     "accept",
	}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Interest accepted", body["message"])
	assert.Equal(t, models.InterestStatusAccepted, body["interest"].(map[string]interface{})["status"])

	w, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d/team-members", projectID), nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	members := body["members"].([]interface{})
	require.Len(t, members, 1)
	assert.Equal(t, float64(applicant.ID), members[0].(map[string]interface{})["userId"])

	w, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d", projectID), nil, applicant)
	require.Equal(t, http.StatusOK, w.Code)
	project := body["project"].(map[string]interface{})
	viewer := project["viewer"].(map[string]interface{})
	assert.Equal(t, true, viewer["isMember"])
	assert.Equal(t, false, viewer["isOwner"])
}

func TestNonOwnerCannotUpdateProject(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")
	other := testutil.CreateUser(t, s.db, "other")
	projectID := s.createProject(t, owner, 4)

	w, body := s.do(t, http.MethodPut, fmt.Sprintf("/api/projects/%d", projectID), gin.H{"title": "Taken over"}, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Not authorized to update this project", body["error"])

	var project models.Project
	require.NoError(t, s.db.First(&project, projectID).Error)
	assert.Equal(t, "Study Buddy", project.Title)
}

func TestDuplicatePendingInterestRejected(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")
	applicant := testutil.CreateUser(t, s.db, "applicant")
	projectID := s.createProject(t, owner, 4)

	w, _ := s.apply(t, applicant, projectID)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := s.apply(t, applicant, projectID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You already have a pending interest in this project", body["error"])

	var count int64
	s.db.Model(&models.ProjectInterest{}).Where("project_id = ?", projectID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRemoveMemberMarksInterestRemoved(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")
	applicant := testutil.CreateUser(t, s.db, "applicant")
	projectID := s.createProject(t, owner, 4)

	_, body := s.apply(t, applicant, projectID)
	interestID := idOf(t, body["interest"])
	w, _ := s.do(t, http.MethodPost, "/api/projects/interest/response", gin.H{"interestId": interestID, "action": "accept"}, owner)
	require.Equal(t, http.StatusOK, w.Code)

	_, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d/team-members", projectID), nil, owner)
	memberID := idOf(t, body["members"].([]interface{})[0])

	path := fmt.Sprintf("/api/projects/%d/team-members/%d", projectID, memberID)
	w, body = s.do(t, http.MethodDelete, path, nil, applicant)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Only the project owner can remove team members", body["error"])

	w, body = s.do(t, http.MethodDelete, path, nil, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Team member removed successfully", body["message"])
	removed := body["removedMember"].(map[string]interface{})
	assert.Equal(t, "applicant", removed["username"])

	w, body = s.do(t, http.MethodGet, "/api/interests/mine", nil, applicant)
	require.Equal(t, http.StatusOK, w.Code)
	interests := body["interests"].([]interface{})
	require.Len(t, interests, 1)
	assert.Equal(t, models.InterestStatusRemoved, interests[0].(map[string]interface{})["status"])
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")
	projectID := s.createProject(t, owner, 4)

	w, body := s.do(t, http.MethodPatch, "/api/projects/update-status", gin.H{"projectId": projectID, "status": "archived"}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(body["error"].(string), "Invalid status"), body["error"])

	w, body = s.do(t, http.MethodPatch, "/api/projects/update-status", gin.H{"projectId": projectID, "status": "completed"}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ProjectStatusCompleted, body["project"].(map[string]interface{})["status"])
}

func TestCreateProjectValidation(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")

	w, body := s.do(t, http.MethodPost, "/api/projects", gin.H{
		"title":       "Study Buddy",
		"description": "Pair up learners preparing for the same exams",
		"githubUrl":   "https://gitlab.com/acme/repo",
	}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please provide a valid GitHub repository URL", body["error"])

	w, body = s.do(t, http.MethodPost, "/api/projects", gin.H{
		"title":       "ab",
		"description": "Pair up learners preparing for the same exams",
	}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Title must be at least 3 characters long", body["error"])
}

func TestListProjects(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")
	s.createProject(t, owner, 3)
	s.createProject(t, owner, 5)

	w, body := s.do(t, http.MethodGet, "/api/projects?page=1&page_size=1", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["projects"].([]interface{}), 1)

	w, body = s.do(t, http.MethodGet, "/api/projects/my-projects", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["count"])
}

func TestPublicProfileHidesEmailFromOthers(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")
	s.createProject(t, owner, 3)

	w, body := s.do(t, http.MethodGet, "/api/users/owner", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := body["user"].(map[string]interface{})
	_, hasEmail := user["email"]
	assert.False(t, hasEmail)
	assert.Equal(t, false, body["isOwnProfile"])

	w, body = s.do(t, http.MethodGet, "/api/users/owner", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, owner.Email, body["user"].(map[string]interface{})["email"])
	assert.Equal(t, true, body["isOwnProfile"])

	w, _ = s.do(t, http.MethodGet, "/api/users/nobody", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckUsername(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")

	w, body := s.do(t, http.MethodPost, "/api/user/check-username", gin.H{"username": "fresh_name"}, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["available"])

	w, body = s.do(t, http.MethodPost, "/api/user/check-username", gin.H{"username": "owner"}, owner)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Username is already taken", body["error"])
}

func TestEditProfile(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")

	w, body := s.do(t, http.MethodPut, "/api/user/profile/edit", gin.H{
		"name":      "Owner Person",
		"bio":       "Builds things",
		"skills":    []string{"go", "sql"},
		"githubUrl": "https://github.com/owner",
	}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Profile updated successfully", body["message"])
	assert.Equal(t, "Owner Person", body["user"].(map[string]interface{})["name"])

	w, body = s.do(t, http.MethodPost, "/api/user/profile/edit", gin.H{"name": ""}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Name is required", body["error"])
}

func TestActivityRecordsWrites(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")
	s.createProject(t, owner, 3)

	w, body := s.do(t, http.MethodGet, "/api/activity", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, body["total"].(float64), float64(1))
}

func TestGoogleSignInFlow(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/auth/google/login", nil)
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "collabify_oauth_state" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)

	// Mismatched state is rejected
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/auth/google/callback?code=good-code&state=forged", nil)
	req.AddCookie(stateCookie)
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/auth/google/callback?code=good-code&state="+url.QueryEscape(state), nil)
	req.AddCookie(stateCookie)
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, s.cfg.OAuth.FrontendURL+"/onboarding", w.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == s.cfg.JWT.CookieName && c.Value != "" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(session)
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "newcomer@example.edu")
}
