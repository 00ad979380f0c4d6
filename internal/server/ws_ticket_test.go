package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicketServer(t *testing.T) (*Server, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Server{
		redis:       rdb,
		authService: service.NewAuthService(nil, cache.NewStore(rdb), "test-secret"),
	}, rdb, mr
}

func TestAuthRequired_WSTicket(t *testing.T) {
	s, rdb, _ := newTicketServer(t)

	app := fiber.New()
	app.Get("/api/ws", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})
	app.Get("/api/other", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	ctx := context.Background()

	t.Run("WS path consumes the ticket exactly once", func(t *testing.T) {
		key := cache.WSTicketKey("ws-ticket-1")
		require.NoError(t, rdb.Set(ctx, key, "123", time.Minute).Err())

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws?ticket=ws-ticket-1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, float64(123), body["userID"])
		_ = resp.Body.Close()

		exists, err := rdb.Exists(ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), exists, "ticket should be deleted by GETDEL")

		replay, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws?ticket=ws-ticket-1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
		_ = replay.Body.Close()
	})

	t.Run("Non-WS path also accepts a ticket", func(t *testing.T) {
		key := cache.WSTicketKey("other-ticket")
		require.NoError(t, rdb.Set(ctx, key, "456", time.Minute).Err())

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/other?ticket=other-ticket", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		exists, err := rdb.Exists(ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), exists)
	})

	t.Run("WS path ignores the token query param", func(t *testing.T) {
		token, _, err := s.authService.GenerateToken(9)
		require.NoError(t, err)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws?token="+token, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/other?token="+token, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("Garbage ticket value is rejected", func(t *testing.T) {
		require.NoError(t, rdb.Set(ctx, cache.WSTicketKey("bad"), "not-a-number", time.Minute).Err())
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws?ticket=bad", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestIssueWSTicket(t *testing.T) {
	s, rdb, mr := newTicketServer(t)

	app := fiber.New()
	app.Post("/api/ws/ticket", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(42))
		return c.Next()
	}, s.IssueWSTicket)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/ws/ticket", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Ticket)
	assert.Equal(t, int(cache.WSTicketTTL.Seconds()), body.ExpiresIn)

	val, err := rdb.Get(context.Background(), cache.WSTicketKey(body.Ticket)).Result()
	require.NoError(t, err)
	assert.Equal(t, "42", val)

	mr.FastForward(cache.WSTicketTTL + time.Second)
	assert.False(t, mr.Exists(cache.WSTicketKey(body.Ticket)))
}

func TestIssueWSTicket_WithoutRedis(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Post("/api/ws/ticket", s.IssueWSTicket)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/ws/ticket", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
