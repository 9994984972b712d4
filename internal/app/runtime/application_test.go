package runtime

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/freetime-planner/freetime/internal/config"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Logging.Output = "stdout"
	cfg.Logging.Level = "error"
	cfg.CORS.AllowedOrigins = "https://app.example"
	return cfg
}

func TestHandlerChain(t *testing.T) {
	application, err := NewApplication(context.Background(), memoryConfig())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ideas", strings.NewReader(`{"title":"Hike","category":"outdoor"}`))
	req.Header.Set("X-User-ID", "3")
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("X-Trace-ID", "trace-1")
	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "trace-1", rec.Header().Get("X-Trace-ID"))
	assert.Equal(t, int64(3), gjson.Get(rec.Body.String(), "user_id").Int())

	ideas, err := application.App().Ideas.ListByUser(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, ideas, 1)
}

func TestPreflightSkipsRouting(t *testing.T) {
	application, err := NewApplication(context.Background(), memoryConfig())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/ideas", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimitApplied(t *testing.T) {
	cfg := memoryConfig()
	cfg.RateLimit.RPS = 0.001
	cfg.RateLimit.Burst = 1
	application, err := NewApplication(context.Background(), cfg)
	require.NoError(t, err)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-User-ID", "9")
		rec := httptest.NewRecorder()
		application.Handler().ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.RateLimit.RPS = 0
	application, err := NewApplication(context.Background(), cfg)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestServeUntilCancelled(t *testing.T) {
	application, err := NewApplication(context.Background(), memoryConfig())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.serve(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second}
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = client.Get("http://" + ln.Addr().String() + "/healthz")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", gjson.GetBytes(body, "status").String())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Database.Driver = "mongo"
	_, err := NewApplication(context.Background(), cfg)
	assert.Error(t, err)
}

func TestShutdownWithoutRunClosesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.Database.Driver = config.DriverRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.RateLimit.RPS = 5
	cfg.RateLimit.Burst = 5
	ctx := context.Background()

	application, err := NewApplication(ctx, cfg)
	require.NoError(t, err)
	require.Positive(t, mr.CurrentConnectionCount())

	require.NoError(t, application.Shutdown(ctx))
	assert.Eventually(t, func() bool { return mr.CurrentConnectionCount() == 0 },
		time.Second, 10*time.Millisecond)
}

func TestMigrateRequiresPostgres(t *testing.T) {
	err := Migrate(context.Background(), memoryConfig())
	assert.Error(t, err)
}

func TestPostgresRuntime(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	cfg := memoryConfig()
	cfg.Database.Driver = config.DriverPostgres
	cfg.Database.URL = dsn

	application, err := NewApplication(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, application.App().Start(context.Background()))
	t.Cleanup(func() { _ = application.App().Stop(context.Background()) })

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ideas", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
