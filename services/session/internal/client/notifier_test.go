package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/httpclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newCoachClient(t *testing.T, baseURL string) *CoachClient {
	t.Helper()
	cb := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("coach-service-test"),
		testLogger(),
	)
	return NewCoachClient(cb, baseURL, 2*time.Second, testLogger())
}

func TestCoachClient_Notify_Success(t *testing.T) {
	var got RatingNotification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/coaches/rating", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newCoachClient(t, server.URL)
	err := client.Notify(context.Background(), RatingNotification{
		CoachID:       7,
		Rating:        4.2,
		TotalSessions: 12,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), got.CoachID)
	assert.Equal(t, 4.2, got.Rating)
	assert.Equal(t, 12, got.TotalSessions)
}

func TestCoachClient_Notify_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"INVALID_INPUT","message":"rating out of range"}}`))
	}))
	defer server.Close()

	client := newCoachClient(t, server.URL)
	err := client.Notify(context.Background(), RatingNotification{CoachID: 7, Rating: 42})

	assert.Error(t, err)
}

func TestNotifier_DeliversQueuedNotification(t *testing.T) {
	var delivered atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewNotifier(newCoachClient(t, server.URL), NotifierConfig{
		QueueSize: 4,
		Attempts:  1,
	}, testLogger())
	notifier.Start(context.Background())

	ok := notifier.Enqueue(RatingNotification{CoachID: 7, Rating: 4.0, TotalSessions: 5})
	assert.True(t, ok)

	notifier.Close()
	assert.Equal(t, int32(1), delivered.Load())
}

func TestNotifier_RetriesThenGivesUp(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewNotifier(newCoachClient(t, server.URL), NotifierConfig{
		QueueSize: 4,
		Attempts:  3,
		Backoff:   time.Millisecond,
	}, testLogger())
	notifier.Start(context.Background())

	notifier.Enqueue(RatingNotification{CoachID: 7, Rating: 4.0, TotalSessions: 5})
	notifier.Close()

	assert.Equal(t, int32(3), attempts.Load())
}

func TestNotifier_FullQueueDrops(t *testing.T) {
	// No worker started, so the queue never drains.
	notifier := NewNotifier(newCoachClient(t, "http://localhost:0"), NotifierConfig{
		QueueSize: 1,
		Attempts:  1,
	}, testLogger())

	assert.True(t, notifier.Enqueue(RatingNotification{CoachID: 1}))
	assert.False(t, notifier.Enqueue(RatingNotification{CoachID: 2}))
}

func TestNotifier_ConcurrentEnqueueAndClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	for i := 0; i < 50; i++ {
		notifier := NewNotifier(newCoachClient(t, server.URL), NotifierConfig{
			QueueSize: 8,
			Attempts:  1,
		}, testLogger())
		notifier.Start(context.Background())

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					notifier.Enqueue(RatingNotification{CoachID: int64(j), Rating: 4.0})
				}
			}()
		}

		// Racing Close against in-flight Enqueues must never panic with a
		// send on a closed channel.
		notifier.Close()
		wg.Wait()

		assert.False(t, notifier.Enqueue(RatingNotification{CoachID: 99}))
	}
}

func TestNotifier_DrainsAfterContextCanceled(t *testing.T) {
	var delivered atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Worker not yet started: everything queues up first.
	notifier := NewNotifier(newCoachClient(t, server.URL), NotifierConfig{
		QueueSize:    8,
		Attempts:     1,
		DrainTimeout: 2 * time.Second,
	}, testLogger())

	for i := 0; i < 3; i++ {
		require.True(t, notifier.Enqueue(RatingNotification{CoachID: int64(i + 1), Rating: 4.0}))
	}

	// The run context is already gone when the worker picks the queue up,
	// as it is during shutdown. Pending deliveries still go out under the
	// drain window.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	notifier.Start(ctx)
	notifier.Close()

	assert.Equal(t, int32(3), delivered.Load())
}

func TestNotifier_EnqueueAfterCloseFails(t *testing.T) {
	notifier := NewNotifier(newCoachClient(t, "http://localhost:0"), NotifierConfig{
		QueueSize: 1,
		Attempts:  1,
	}, testLogger())
	notifier.Start(context.Background())
	notifier.Close()

	assert.False(t, notifier.Enqueue(RatingNotification{CoachID: 1}))
}
