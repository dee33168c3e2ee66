package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voice-dialogue-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestCheckerCriticalComponents(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Minute)

	dbErr := errors.New("connection refused")
	c.RegisterPing("database", true, func(context.Context) error { return dbErr })
	c.RegisterPing("cache", false, func(context.Context) error { return errors.New("timeout") })

	var reports []bool
	c.OnChange(func(healthy bool) { reports = append(reports, healthy) })

	c.RunChecks(context.Background())
	assert.False(t, c.IsSystemHealthy())

	status := c.GetStatus()
	assert.Equal(t, StatusDown, status["database"].Status)
	assert.Equal(t, "connection refused", status["database"].Error)
	assert.Equal(t, StatusDegraded, status["cache"].Status)
	assert.Equal(t, StatusUp, status["self"].Status)

	dbErr = nil
	c.RunChecks(context.Background())
	assert.True(t, c.IsSystemHealthy())
	assert.Equal(t, []bool{false, true}, reports)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewChecker(logger.Discard(), time.Minute)
	c.RegisterPing("database", true, func(context.Context) error { return errors.New("down") })
	c.RunChecks(context.Background())

	r := gin.New()
	r.GET("/health", c.Handler("test"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body["status"])
	assert.Contains(t, body["components"], "database")
}

func TestGRPCHealthFollowsChecker(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Minute)
	healthy := false
	c.RegisterPing("database", true, func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	})

	srv := NewGRPCServer(c)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	healthy = true
	c.RunChecks(ctx)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
