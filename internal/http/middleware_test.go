package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisadapter "github.com/robertarktes/workshop-bookings/internal/adapters/redis"
	"github.com/robertarktes/workshop-bookings/internal/domain"
	api "github.com/robertarktes/workshop-bookings/internal/http"
	"github.com/robertarktes/workshop-bookings/internal/idempotency"
	"github.com/robertarktes/workshop-bookings/internal/observability"
	"github.com/robertarktes/workshop-bookings/internal/rateLimit"
)

func startRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	client := redisclient.NewClient(&redisclient.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func post(t *testing.T, h http.Handler, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotentBookingReplay(t *testing.T) {
	client := startRedis(t)
	s := newServer(t, nil)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(client), time.Hour)
	logger := observability.NewLogger("error")

	h := api.IdempotencyMiddleware(idemp, logger)(s.handler)
	key := "booking-attempt-0001"

	first := post(t, h, "/v1/bookings", key, s.bookingBody("2025-03-10T10:00:00"))
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := post(t, h, "/v1/bookings", key, s.bookingBody("2025-03-10T10:00:00"))
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Len(t, s.fx.Mem.Bookings(), 1)

	var b domain.Booking
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, domain.BookingPending, b.Status)

	third := post(t, h, "/v1/bookings", "", s.bookingBody("2025-03-10T10:00:00"))
	assert.Equal(t, http.StatusConflict, third.Code, "without a key the request runs again")

	short := post(t, h, "/v1/bookings", "abc", s.bookingBody("2025-03-10T12:00:00"))
	assert.Equal(t, http.StatusBadRequest, short.Code)
}

func TestIdempotencyKeyReusedWithDifferentBody(t *testing.T) {
	client := startRedis(t)
	s := newServer(t, nil)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(client), time.Hour)
	h := api.IdempotencyMiddleware(idemp, observability.NewLogger("error"))(s.handler)
	key := "booking-attempt-0002"

	first := post(t, h, "/v1/bookings", key, s.bookingBody("2025-03-10T10:00:00"))
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	other := post(t, h, "/v1/bookings", key, s.bookingBody("2025-03-10T13:00:00"))
	require.Equal(t, http.StatusUnprocessableEntity, other.Code, other.Body.String())
	assert.Contains(t, other.Body.String(), "IDEMPOTENCY_KEY_REUSED")
	assert.Empty(t, other.Header().Get("Idempotent-Replayed"))
	assert.Len(t, s.fx.Mem.Bookings(), 1)

	same := post(t, h, "/v1/bookings", key, s.bookingBody("2025-03-10T10:00:00"))
	require.Equal(t, http.StatusCreated, same.Code)
	assert.Equal(t, "true", same.Header().Get("Idempotent-Replayed"))
}

func TestRateLimit(t *testing.T) {
	client := startRedis(t)
	limiter := rateLimit.NewRateLimiter(redisadapter.NewCache(client), 2, time.Minute)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := api.RateLimitMiddleware(limiter)(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/locks", nil)
		req.RemoteAddr = "203.0.113.7:5123"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/v1/locks", nil)
	req.RemoteAddr = "198.51.100.1:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code, "other clients have their own window")
}
