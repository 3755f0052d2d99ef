package roster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultClientConfig(server.URL)
	cfg.RateLimiterConfig = RateLimiterConfig{
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		WaitTimeout:       time.Second,
	}
	return NewClient(cfg)
}

func TestClient_KnowsStudent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/students/stu-1":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	known, err := client.KnowsStudent(context.Background(), shared.StudentID("stu-1"))
	require.NoError(t, err)
	assert.True(t, known)

	known, err = client.KnowsStudent(context.Background(), shared.StudentID("stu-2"))
	require.NoError(t, err)
	assert.False(t, known)
}

func TestClient_KnowsSubject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/subjects/algo-101" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	known, err := client.KnowsSubject(context.Background(), shared.SubjectID("algo-101"))
	require.NoError(t, err)
	assert.True(t, known)
}

func TestClient_ServerErrorSurfacesAsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.KnowsStudent(context.Background(), shared.StudentID("stu-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
}

func TestStatic_AllowLists(t *testing.T) {
	roster := NewStatic(
		[]shared.StudentID{"stu-1"},
		[]shared.SubjectID{"algo-101"},
	)

	known, err := roster.KnowsStudent(context.Background(), shared.StudentID("stu-1"))
	require.NoError(t, err)
	assert.True(t, known)

	known, err = roster.KnowsStudent(context.Background(), shared.StudentID("stu-2"))
	require.NoError(t, err)
	assert.False(t, known)

	roster.AddStudent("stu-2")
	known, err = roster.KnowsStudent(context.Background(), shared.StudentID("stu-2"))
	require.NoError(t, err)
	assert.True(t, known)
}

func TestStatic_PermissiveAcceptsWellFormedIDs(t *testing.T) {
	roster := NewPermissive()

	known, err := roster.KnowsStudent(context.Background(), shared.StudentID("anyone"))
	require.NoError(t, err)
	assert.True(t, known)

	known, err = roster.KnowsStudent(context.Background(), shared.StudentID(""))
	require.NoError(t, err)
	assert.False(t, known)
}
