package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang-options/config"
	"golang-options/internal/repository"
	"golang-options/internal/service"
	"golang-options/pkg/cache"
	"golang-options/pkg/database"
	"golang-options/pkg/keylock"
	"golang-options/pkg/logger"
	"golang-options/pkg/validation"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	db, err := database.NewSQLiteMemory(strings.ReplaceAll(t.Name(), "/", "_"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.AutoMigrate(db.DB))

	cfg := &config.Config{
		Cache: config.Cache{DefaultExpiration: time.Minute, CleanupInterval: time.Minute},
		Engine: config.Engine{
			DefaultStrategy:  "AUTO",
			TimeZone:         "America/Sao_Paulo",
			LockTTL:          5 * time.Second,
			LockWait:         5 * time.Second,
			BatchConcurrency: 2,
		},
	}
	c := cache.NewCache(time.Minute, time.Minute)
	svc := service.NewService(cfg, logger.NewNop(), repository.NewRepository(db.DB), c, keylock.NewMemoryLocker())

	e := echo.New()
	h := NewHttpAPIHandler(context.Background(), e, validation.New(), svc, logger.NewNop(), cfg.Engine.MarketLocation())
	h.SetupRoutes()
	return e
}

type response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var res response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec.Code, res
}

const entryBody = `{"account_id":"acc-1","broker":"xp","option_series":"PETRB250","underlying":"PETR4","direction":"BUY","quantity":%d,"unit_price":"%s","entry_date":"%s"}`

func TestPositionRoutes(t *testing.T) {
	e := newTestServer(t)

	code, res := do(t, e, http.MethodPost, "/api/v1/entries", fmt.Sprintf(entryBody, 10, "5", "2024-01-01"))
	require.Equal(t, http.StatusCreated, code, res.Message)
	var entry struct {
		Position struct {
			ID uint `json:"id"`
		} `json:"position"`
		Created bool `json:"created"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &entry))
	assert.True(t, entry.Created)
	id := entry.Position.ID

	code, res = do(t, e, http.MethodPost, "/api/v1/entries", fmt.Sprintf(entryBody, 10, "6", "2024-01-10"))
	require.Equal(t, http.StatusOK, code, res.Message)

	code, res = do(t, e, http.MethodPost, fmt.Sprintf("/api/v1/positions/%d/exits", id),
		`{"quantity":10,"exit_price":"7","exit_date":"2024-01-20","strategy":"LIFO"}`)
	require.Equal(t, http.StatusOK, code, res.Message)
	var exit struct {
		Position struct {
			Status         string `json:"status"`
			RealizedProfit string `json:"realized_profit"`
		} `json:"position"`
		Scenario string `json:"scenario"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &exit))
	assert.Equal(t, "PARTIAL", exit.Position.Status)
	assert.Equal(t, "10", exit.Position.RealizedProfit)

	code, res = do(t, e, http.MethodPost, fmt.Sprintf("/api/v1/positions/%d/exits", id),
		`{"quantity":11,"exit_price":"7","exit_date":"2024-01-20"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, res.Message, "insufficient quantity")
	assert.Contains(t, string(res.Data), `"available":10`)

	code, _ = do(t, e, http.MethodGet, fmt.Sprintf("/api/v1/positions/%d", id), "")
	assert.Equal(t, http.StatusOK, code)

	code, res = do(t, e, http.MethodGet, fmt.Sprintf("/api/v1/positions/%d/operations", id), "")
	assert.Equal(t, http.StatusOK, code)
	var visible []map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Data, &visible))
	assert.Len(t, visible, 2)

	code, res = do(t, e, http.MethodGet, fmt.Sprintf("/api/v1/positions/%d/operations?include_hidden=true", id), "")
	assert.Equal(t, http.StatusOK, code)
	var all []map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Data, &all))
	assert.Greater(t, len(all), len(visible))

	code, _ = do(t, e, http.MethodGet, fmt.Sprintf("/api/v1/positions/%d/group", id), "")
	assert.Equal(t, http.StatusOK, code)

	code, res = do(t, e, http.MethodGet, fmt.Sprintf("/api/v1/positions/%d/verify", id), "")
	assert.Equal(t, http.StatusOK, code, res.Message)

	code, _ = do(t, e, http.MethodGet, "/api/v1/positions/999", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPositionRoutes_BadRequests(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "missing series", method: http.MethodPost, path: "/api/v1/entries", body: `{"quantity":1,"unit_price":"1","entry_date":"2024-01-01"}`},
		{name: "zero entry price", method: http.MethodPost, path: "/api/v1/entries", body: fmt.Sprintf(entryBody, 1, "0", "2024-01-01")},
		{name: "negative price", method: http.MethodPost, path: "/api/v1/entries", body: fmt.Sprintf(entryBody, 1, "-1", "2024-01-01")},
		{name: "bad date", method: http.MethodPost, path: "/api/v1/entries", body: fmt.Sprintf(entryBody, 1, "1", "01/01/2024")},
		{name: "zero quantity exit", method: http.MethodPost, path: "/api/v1/positions/1/exits", body: `{"quantity":0,"exit_price":"1","exit_date":"2024-01-01"}`},
		{name: "unknown strategy", method: http.MethodPost, path: "/api/v1/positions/1/exits", body: `{"quantity":1,"exit_price":"1","exit_date":"2024-01-01","strategy":"RANDOM"}`},
		{name: "bad id", method: http.MethodGet, path: "/api/v1/positions/abc", body: ""},
		{name: "malformed json", method: http.MethodPost, path: "/api/v1/entries", body: `{"quantity":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := do(t, e, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
		})
	}
}

func TestBatchRoute(t *testing.T) {
	e := newTestServer(t)

	code, res := do(t, e, http.MethodPost, "/api/v1/entries", fmt.Sprintf(entryBody, 10, "5", "2024-01-01"))
	require.Equal(t, http.StatusCreated, code, res.Message)

	body := `{"items":[
		{"kind":"EXIT","exit":{"position_id":1,"quantity":4,"exit_price":"6","exit_date":"2024-01-03"}},
		{"kind":"ENTRY","entry":` + fmt.Sprintf(entryBody, 2, "5.5", "2024-01-02") + `},
		{"kind":"EXIT","exit":{"position_id":1,"quantity":50,"exit_price":"6","exit_date":"2024-01-04"}}
	]}`
	code, res = do(t, e, http.MethodPost, "/api/v1/batches", body)
	require.Equal(t, http.StatusOK, code, res.Message)

	var outcomes []struct {
		Index int             `json:"index"`
		Error string          `json:"error"`
		Exit  json.RawMessage `json:"exit"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &outcomes))
	require.Len(t, outcomes, 3)
	assert.Empty(t, outcomes[0].Error)
	assert.Empty(t, outcomes[1].Error)
	assert.Contains(t, outcomes[2].Error, "insufficient quantity")

	code, _ = do(t, e, http.MethodPost, "/api/v1/batches", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}
