package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.UserRegistered()
	m.TaskCreated()
	m.TaskCreated()
	m.TaskCompleted()
	m.LoginFailed()
	m.DigestSent(true)
	m.DigestSent(false)
	m.DigestSent(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.usersRegistered))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.digestsSent.WithLabelValues("failed")))
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("GET /api/v1/tasks/{task_id}", http.MethodGet, 404, 5*time.Millisecond)
	m.ObserveRequest("", http.MethodGet, 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET /api/v1/tasks/{task_id}", "GET", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "GET", "404")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.TaskCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "taskmanager_tasks_created_total 1"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
