package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jjudge-oj/accounts/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		ServerPort:         0,
		CORSAllowedOrigins: []string{"*"},
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "accounts.db"),
		},
		MQ:      config.MQConfig{Backend: config.BackendNone},
		Storage: config.StorageConfig{Backend: config.BackendNone},
	}
}

func post(t *testing.T, h http.Handler, path string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServerEndToEndWithCache(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis = config.RedisConfig{Addr: mini.Addr(), ListTTL: time.Minute}

	srv, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	h := srv.Router()

	rr := post(t, h, "/api/signup", map[string]string{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.EqualValues(t, 0, users[0]["login_count"])

	rr = post(t, h, "/api/signin", map[string]string{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	assert.EqualValues(t, 1, users[0]["login_count"])
}

func TestServerMigratesOnStartup(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, post(t, first.Router(), "/api/signup",
		map[string]string{"username": "alice", "password": "pw"}).Code)
	require.NoError(t, first.Shutdown(context.Background()))

	second, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Shutdown(context.Background()) })
	assert.Equal(t, http.StatusConflict, post(t, second.Router(), "/api/signup",
		map[string]string{"username": "alice", "password": "pw"}).Code)
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	req := httptest.NewRequest(http.MethodOptions, "/api/signup", nil)
	req.Header.Set("Origin", "https://frontend.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Origin", "https://other.example")
	rr = httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewFailsOnBadDependencies(t *testing.T) {
	cfg := testConfig(t)
	cfg.MQ.Backend = "carrier-pigeon"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Database.Driver = "oracle"
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestPanickingHandlerIsLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := NewRouter(RouterConfig{Logger: zap.New(core)})
	router.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, http.StatusInternalServerError, fields["status"])
	assert.Equal(t, "/boom", fields["path"])
}
