package scan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
)

func scanServer(t *testing.T, pendingPolls int32, final Result) (*httptest.Server, *int32) {
	t.Helper()
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/scans":
			_ = json.NewEncoder(w).Encode(submitResponse{ScanID: "scan-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/scans/scan-1":
			n := atomic.AddInt32(&polls, 1)
			if n <= pendingPolls {
				_ = json.NewEncoder(w).Encode(Result{ScanID: "scan-1", Status: StatusPending})
				return
			}
			_ = json.NewEncoder(w).Encode(final)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &polls
}

func TestCheck_ReturnsVerdict(t *testing.T) {
	srv, _ := scanServer(t, 2, Result{ScanID: "scan-1", Status: StatusClean, Score: 0.1})
	c := New(Config{Endpoint: srv.URL, PollInterval: time.Millisecond, MaxAttempts: 5}, logging.NewNopLogger())

	res := c.Check(context.Background(), &models.FileRecord{Name: "a.txt", Content: "hello"})
	require.NotNil(t, res)
	assert.Equal(t, StatusClean, res.Status)
	assert.False(t, res.Mock)
}

func TestCheck_FlaggedVerdict(t *testing.T) {
	srv, _ := scanServer(t, 0, Result{ScanID: "scan-1", Status: StatusFlagged, Score: 0.9})
	c := New(Config{Endpoint: srv.URL, PollInterval: time.Millisecond, MaxAttempts: 5}, logging.NewNopLogger())

	res := c.Check(context.Background(), &models.FileRecord{Name: "a.txt"})
	assert.Equal(t, StatusFlagged, res.Status)
}

func TestCheck_MockAfterPollBudget(t *testing.T) {
	srv, polls := scanServer(t, 1000, Result{})
	c := New(Config{Endpoint: srv.URL, PollInterval: time.Millisecond, MaxAttempts: 3}, logging.NewNopLogger())

	res := c.Check(context.Background(), &models.FileRecord{Name: "a.txt", Content: "hello"})
	require.NotNil(t, res)
	assert.True(t, res.Mock)
	assert.Equal(t, StatusClean, res.Status)
	assert.EqualValues(t, 3, atomic.LoadInt32(polls))
}

func TestCheck_MockWhenUnreachable(t *testing.T) {
	c := New(Config{Endpoint: "http://127.0.0.1:1", PollInterval: time.Millisecond, MaxAttempts: 3, Timeout: 100 * time.Millisecond}, logging.NewNopLogger())

	res := c.Check(context.Background(), &models.FileRecord{Name: "a.txt", Content: "hello"})
	require.NotNil(t, res)
	assert.True(t, res.Mock)
	assert.Contains(t, res.ScanID, mockIDPrefix)
}

func TestCheck_MockIsStablePerContent(t *testing.T) {
	c := New(Config{Endpoint: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond}, logging.NewNopLogger())
	f := &models.FileRecord{Name: "a.txt", Content: "hello"}

	a := c.Check(context.Background(), f)
	b := c.Check(context.Background(), f)
	assert.Equal(t, a.Score, b.Score)
}

func TestStartUpload_ProgressEndsAtHundred(t *testing.T) {
	task := StartUpload(context.Background(), time.Millisecond, func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	var got []int
	for pct := range task.Progress() {
		got = append(got, pct)
	}
	require.NoError(t, task.Wait())
	require.NotEmpty(t, got)
	assert.Equal(t, 100, got[len(got)-1])
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
}

func TestStartUpload_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := StartUpload(ctx, time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	time.Sleep(5 * time.Millisecond)
	cancel()

	err := task.Wait()
	assert.ErrorIs(t, err, context.Canceled)

	// The stream terminates.
	for range task.Progress() {
	}
}

func TestStartUpload_WorkError(t *testing.T) {
	wantErr := assert.AnError
	task := StartUpload(context.Background(), time.Millisecond, func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, task.Wait(), wantErr)
}
