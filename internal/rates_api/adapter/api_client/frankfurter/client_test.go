package frankfurter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/langowen/ratesconverter/internal/entities"
	"github.com/langowen/ratesconverter/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	resp *entities.UpstreamResponse
	err  error
}

type scriptedFetcher struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (f *scriptedFetcher) Fetch(ctx context.Context, url string) (*entities.UpstreamResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.steps[min(f.calls, len(f.steps)-1)]
	f.calls++
	return s.resp, s.err
}

func status(code int) step {
	return step{resp: &entities.UpstreamResponse{StatusCode: code, Body: http.StatusText(code)}}
}

func noBackoff(int) time.Duration { return 0 }

func TestLinear(t *testing.T) {
	b := Linear(time.Second)

	assert.Equal(t, time.Second, b(1))
	assert.Equal(t, 2*time.Second, b(2))
	assert.Equal(t, 3*time.Second, b(3))
}

func TestTransient(t *testing.T) {
	for _, code := range []int{500, 502, 503, 504, 408} {
		assert.True(t, Transient(code), code)
	}
	for _, code := range []int{200, 204, 400, 404, 429} {
		assert.False(t, Transient(code), code)
	}
}

func TestRetrying_NonTransientReturnsImmediately(t *testing.T) {
	for _, code := range []int{200, 400, 404, 429} {
		f := &scriptedFetcher{steps: []step{status(code)}}
		r := NewRetrying(f, 3, noBackoff, nil)

		resp, err := r.Fetch(context.Background(), "http://upstream")

		require.NoError(t, err)
		assert.Equal(t, code, resp.StatusCode)
		assert.Equal(t, 1, f.calls, "status %d must not be retried", code)
	}
}

func TestRetrying_RecoversFromTransient(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		status(503),
		{err: errors.New("connection reset")},
		status(200),
	}}
	m := metrics.New(prometheus.NewRegistry())
	r := NewRetrying(f, 3, noBackoff, m)

	resp, err := r.Fetch(context.Background(), "http://upstream")

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 3, f.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRetries))
}

func TestRetrying_ExhaustedOnStatusReturnsLastResponse(t *testing.T) {
	f := &scriptedFetcher{steps: []step{status(500)}}
	r := NewRetrying(f, 3, noBackoff, nil)

	resp, err := r.Fetch(context.Background(), "http://upstream")

	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, 3, f.calls)
}

func TestRetrying_ExhaustedOnTransportReturnsError(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{err: errors.New("dial tcp: refused")}}}
	r := NewRetrying(f, 3, noBackoff, nil)

	resp, err := r.Fetch(context.Background(), "http://upstream")

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "refused")
	assert.Equal(t, 3, f.calls)
}

func TestRetrying_UsesBackoffPerAttempt(t *testing.T) {
	var mu sync.Mutex
	var asked []int
	fn := func(attempt int) time.Duration {
		mu.Lock()
		asked = append(asked, attempt)
		mu.Unlock()
		return time.Millisecond
	}

	f := &scriptedFetcher{steps: []step{status(502)}}
	r := NewRetrying(f, 3, fn, nil)

	_, err := r.Fetch(context.Background(), "http://upstream")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, asked)
}

func TestRetrying_SingleAttempt(t *testing.T) {
	f := &scriptedFetcher{steps: []step{status(503)}}
	r := NewRetrying(f, 0, noBackoff, nil)

	resp, err := r.Fetch(context.Background(), "http://upstream")

	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, 1, f.calls)
}

func TestRetrying_StopsWhenContextCancelled(t *testing.T) {
	f := &scriptedFetcher{steps: []step{status(503)}}
	r := NewRetrying(f, 3, Linear(time.Hour), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Fetch(ctx, "http://upstream")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, f.calls)
}

func TestHTTPClient_Fetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "USD", r.URL.Query().Get("base"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates":{"EUR":0.85},"base":"USD","date":"2024-09-12"}`))
	}))
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	c := NewHTTPClient(time.Second, m)

	resp, err := c.Fetch(context.Background(), srv.URL+"/latest?base=USD")

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, resp.Success())
	assert.Equal(t, `{"rates":{"EUR":0.85},"base":"USD","date":"2024-09-12"}`, resp.Body)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("200")))
}

func TestHTTPClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(time.Second, nil)

	_, err := c.Fetch(context.Background(), url)
	assert.Error(t, err)
}

func TestRetryingHTTP_RateLimitedIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := NewRetrying(NewHTTPClient(time.Second, nil), 3, Linear(time.Millisecond), nil)

	resp, err := r.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.True(t, resp.RateLimited())
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetryingHTTP_ServerErrorsAreRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	r := NewRetrying(NewHTTPClient(time.Second, nil), 3, Linear(time.Millisecond), nil)

	resp, err := r.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
}
