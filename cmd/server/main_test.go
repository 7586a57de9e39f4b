package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/linemk/bookshop/internal/app"
	"github.com/linemk/bookshop/internal/config"
	security "github.com/linemk/bookshop/internal/jwt-new"
	"github.com/linemk/bookshop/internal/lock"
	"github.com/linemk/bookshop/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-secret"

func newTestApp(t *testing.T) (*app.App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{Env: "local", JWT: config.JWTConfig{Secret: testSecret}}
	return &app.App{
		Config:    cfg,
		Logger:    log,
		DB:        db,
		Locker:    lock.NoopLocker{},
		Publisher: notify.NewLogPublisher(log),
	}, mock
}

func authorized(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	token, err := security.NewToken(1, testSecret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRouter_Healthz(t *testing.T) {
	application, mock := newTestApp(t)
	mock.ExpectPing()

	rr := httptest.NewRecorder()
	newRouter(application).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_RequiresToken(t *testing.T) {
	application, _ := newTestApp(t)
	router := newRouter(application)

	for _, target := range []string{"/api/cart", "/api/orders", "/api/orders/stats", "/api/payments/1"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
	}
}

func TestRouter_StatsIsNotAnOrderID(t *testing.T) {
	application, mock := newTestApp(t)
	mock.ExpectQuery("LEFT JOIN order_items oi ON oi.order_id = o.id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count", "spent"}).
			AddRow("PENDENTE", int64(2), "31.00"))

	rr := httptest.NewRecorder()
	newRouter(application).ServeHTTP(rr, authorized(t, httptest.NewRequest(http.MethodGet, "/api/orders/stats", nil)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total_orders":2`)
	assert.Contains(t, rr.Body.String(), `"PENDENTE":2`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_RecentRejectsZero(t *testing.T) {
	application, _ := newTestApp(t)

	rr := httptest.NewRecorder()
	newRouter(application).ServeHTTP(rr, authorized(t, httptest.NewRequest(http.MethodGet, "/api/orders/recent/0", nil)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	application, _ := newTestApp(t)

	rr := httptest.NewRecorder()
	newRouter(application).ServeHTTP(rr, authorized(t, httptest.NewRequest(http.MethodGet, "/api/info", nil)))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
