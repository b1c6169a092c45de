package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinMiddleware_UsesRoutePattern(t *testing.T) {
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/api/projects/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/projects/:id", "200"))

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/projects/"+id, nil)
		router.ServeHTTP(w, req)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/projects/:id", "200"))
	assert.Equal(t, 3.0, after-before)
}

func TestGinMiddleware_Unmatched(t *testing.T) {
	router := gin.New()
	router.Use(GinMiddleware())

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/nope", nil)
	router.ServeHTTP(w, req)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))
	assert.Equal(t, 1.0, after-before)
}

func TestRecordWorkflowCounters(t *testing.T) {
	beforeInterest := testutil.ToFloat64(interestTransitions.WithLabelValues("accepted"))
	beforeMember := testutil.ToFloat64(teamMemberEvents.WithLabelValues("removed"))
	beforeProject := testutil.ToFloat64(projectEvents.WithLabelValues("created"))

	RecordInterestTransition("accepted")
	RecordTeamMemberEvent("removed")
	RecordProjectEvent("created")

	assert.Equal(t, 1.0, testutil.ToFloat64(interestTransitions.WithLabelValues("accepted"))-beforeInterest)
	assert.Equal(t, 1.0, testutil.ToFloat64(teamMemberEvents.WithLabelValues("removed"))-beforeMember)
	assert.Equal(t, 1.0, testutil.ToFloat64(projectEvents.WithLabelValues("created"))-beforeProject)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordProjectEvent("created")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "collabify_workflow_project_events_total"))
}
