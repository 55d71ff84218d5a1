package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestDoRetriesOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = &RetryConfig{MaxRetries: 3, Interval: time.Millisecond}

	request, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	assert.NoError(t, err)

	response, err := client.Do(request)
	assert.NoError(t, err)
	defer func() { _ = response.Body.Close() }()

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = &RetryConfig{MaxRetries: 1, Interval: time.Millisecond}

	request, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	assert.NoError(t, err)

	response, err := client.Do(request)
	assert.NoError(t, err)
	defer func() { _ = response.Body.Close() }()

	assert.Equal(t, http.StatusBadGateway, response.StatusCode)
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = NoRetries()

	request, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	assert.NoError(t, err)

	response, err := client.Do(request)
	assert.NoError(t, err)
	defer func() { _ = response.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestIsTimeoutError(t *testing.T) {
	assert.False(t, IsTimeoutError(nil))
	assert.True(t, IsTimeoutError(context.DeadlineExceeded))
}

func TestWrapTimeoutErrorPassesThroughOtherErrors(t *testing.T) {
	err := assert.AnError
	assert.Equal(t, err, WrapTimeoutError(err))
}

func TestWrapTimeoutErrorWrapsDeadline(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	wrapped := WrapTimeoutError(context.DeadlineExceeded)
	var timeoutErr *TimeoutError
	assert.ErrorAs(t, wrapped, &timeoutErr)
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
}
