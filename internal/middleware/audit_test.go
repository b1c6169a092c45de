package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/collabify/backend/internal/models"
	"github.com/collabify/backend/internal/services"
	"github.com/collabify/backend/internal/testutil"
	"github.com/gin-gonic/gin"
)

func TestParseRouteInfo(t *testing.T) {
	tests := []struct {
		path, method   string
		module, action string
	}{
		{"/api/projects/:id", "PUT", "Projects", "Update"},
		{"/api/projects/interest", "PATCH", "Projects", "Update"},
		{"/api/projects", "POST", "Projects", "Create"},
		{"/api/projects/:id/team-members/:memberId", "DELETE", "Projects", "Delete"},
		{"/api/user/check-username", "POST", "User", "Create"},
		{"", "POST", "Unknown", "Create"},
	}

	for _, tt := range tests {
		module, action := parseRouteInfo(tt.path, tt.method)
		if module != tt.module || action != tt.action {
			t.Errorf("parseRouteInfo(%q, %q) = (%q, %q), expected (%q, %q)",
				tt.path, tt.method, module, action, tt.module, tt.action)
		}
	}
}

func TestMaskSensitiveFields(t *testing.T) {
	body := `{"state": "abc123", "message": "hello"}`
	masked := maskSensitiveFields(body)

	if strings.Contains(masked, "abc123") {
		t.Errorf("state value should be masked, got %s", masked)
	}
	if !strings.Contains(masked, "hello") {
		t.Errorf("other fields should be kept, got %s", masked)
	}
}

func TestAuditLog_RecordsWrites(t *testing.T) {
	db := testutil.NewDB(t)
	services.InitActivityLogger(db)
	t.Cleanup(func() { services.InitActivityLogger(nil) })

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserID, uint(5))
		c.Set(ContextUsername, "ada")
		c.Next()
	})
	router.Use(AuditLog())
	router.GET("/api/projects", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/api/projects", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	for _, method := range []string{"GET", "POST"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(method, "/api/projects", strings.NewReader(`{"title":"x"}`))
		router.ServeHTTP(w, req)
	}

	var logs []models.ActivityLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatalf("failed to read activity logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected only the POST to be audited, got %d entries", len(logs))
	}
	entry := logs[0]
	if entry.Level != "warning" || entry.Module != "Projects" || entry.Action != "Create" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.UserID == nil || *entry.UserID != 5 {
		t.Errorf("expected user id 5, got %v", entry.UserID)
	}
	if !strings.Contains(entry.Message, "ada POST /api/projects") {
		t.Errorf("unexpected message %q", entry.Message)
	}
}
