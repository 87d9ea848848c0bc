// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package recon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/archrecon/services/recon/config"
	"github.com/AleutianAI/archrecon/services/recon/partition"
	"github.com/AleutianAI/archrecon/services/recon/quality"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

const factsJSON = `{
  "types": [
    {"id": 1, "name": "shop.order.OrderService"},
    {"id": 2, "name": "shop.order.OrderRepository"},
    {"id": 3, "name": "shop.payment.PaymentService"},
    {"id": 4, "name": "shop.payment.PaymentGateway"}
  ],
  "relations": [
    {"kind": "coupling", "source": 1, "target": 2, "weight": 0.9},
    {"kind": "coupling", "source": 2, "target": 1, "weight": 0.9},
    {"kind": "coupling", "source": 3, "target": 4, "weight": 0.9},
    {"kind": "coupling", "source": 4, "target": 3, "weight": 0.9}
  ]
}`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, *Service) {
	t.Helper()
	svc, err := NewService(cfg, store.NewMemoryStore(), nil)
	require.NoError(t, err)
	return NewRouter("recon-test", NewHandlers(svc), nil), svc
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleHealth(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	w := do(router, http.MethodGet, "/v1/recon/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
}

func TestHandleLoadFacts(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	t.Run("valid", func(t *testing.T) {
		w := do(router, http.MethodPost, "/v1/recon/facts", factsJSON)
		require.Equal(t, http.StatusOK, w.Code)

		var resp LoadFactsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 4, resp.Report.Types)
		assert.Equal(t, 4, resp.Report.Relations)
	})

	t.Run("malformed", func(t *testing.T) {
		w := do(router, http.MethodPost, "/v1/recon/facts", `{"types": [`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
	})

	t.Run("unknown reference", func(t *testing.T) {
		body := `{"types": [{"id": 1, "name": "A"}], "relations": [{"source": 1, "target": 2, "weight": 1}]}`
		w := do(router, http.MethodPost, "/v1/recon/facts", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_FACTS", decodeError(t, w).Code)
	})
}

func TestHandleDecompose(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	w := do(router, http.MethodPost, "/v1/recon/decompose", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_FACTS", decodeError(t, w).Code)

	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/v1/recon/facts", factsJSON).Code)

	w = do(router, http.MethodPost, "/v1/recon/decompose", `{"reference": {"orders": [1, 2], "payments": [3, 4]}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp DecomposeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Len(t, resp.Result.Components, 2)
	require.NotNil(t, resp.Quality)
	assert.Equal(t, 100.0, resp.Quality.MoJoFM)

	w = do(router, http.MethodPost, "/v1/recon/decompose", `{"decomposition": "sideways"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)

	w = do(router, http.MethodPost, "/v1/recon/decompose", `{"reference": {"a": [1, 2], "b": [2]}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DECOMPOSITION", decodeError(t, w).Code)
}

func TestHandleDecompose_InProgress(t *testing.T) {
	router, svc := newTestRouter(t, testConfig())
	svc.running.Lock()
	defer svc.running.Unlock()

	w := do(router, http.MethodPost, "/v1/recon/decompose", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DECOMPOSE_IN_PROGRESS", decodeError(t, w).Code)

	w = do(router, http.MethodPost, "/v1/recon/facts", factsJSON)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleDecompose_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.Burst = 1
	router, _ := newTestRouter(t, cfg)

	first := do(router, http.MethodPost, "/v1/recon/decompose", "")
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)

	w := do(router, http.MethodPost, "/v1/recon/decompose", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Code)
}

func TestHandleCompare(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/v1/recon/facts", factsJSON).Code)

	w := do(router, http.MethodPost, "/v1/recon/compare",
		`{"produced": {"a": [1, 3], "b": [2, 4]}, "reference": {"x": [1, 2], "y": [3, 4]}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report quality.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 2, report.MoJo)
	assert.Less(t, report.MQCoupling, 0.0)

	w = do(router, http.MethodPost, "/v1/recon/compare", `{"produced": {"a": [1]}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)

	w = do(router, http.MethodPost, "/v1/recon/compare",
		`{"produced": {"a": [1], "b": [1]}, "reference": {"x": [1]}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DECOMPOSITION", decodeError(t, w).Code)
}

func TestHandleComponent(t *testing.T) {
	router, svc := newTestRouter(t, testConfig())
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/v1/recon/facts", factsJSON).Code)

	resp, err := svc.Decompose(t.Context(), DecomposeRequest{})
	require.NoError(t, err)
	id := resp.Result.Components[0].ID

	w := do(router, http.MethodGet, fmt.Sprintf("/v1/recon/components/%d", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	var comp ComponentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comp))
	assert.Equal(t, id, comp.Component.ID)
	assert.NotEmpty(t, comp.Leaves)

	cases := []struct {
		path string
		code int
		want string
	}{
		{"/v1/recon/components/abc", http.StatusBadRequest, "INVALID_ID"},
		{"/v1/recon/components/1", http.StatusNotFound, "NOT_COMPONENT"},
		{"/v1/recon/components/424242", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			w := do(router, http.MethodGet, tc.path, "")
			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.want, decodeError(t, w).Code)
		})
	}
}

func TestRequestIDEcho(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/recon/decompose", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = do(router, http.MethodGet, "/v1/recon/components/abc", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		want string
	}{
		{ErrDecomposeInProgress, http.StatusConflict, "DECOMPOSE_IN_PROGRESS"},
		{fmt.Errorf("wrap: %w", store.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{store.ErrInvalidEntity, http.StatusBadRequest, "INVALID_FACTS"},
		{partition.ErrUnknownSeedMode, http.StatusBadRequest, "INVALID_SEED"},
		{fmt.Errorf("level 2: %w", partition.ErrIncompletePartition), http.StatusBadRequest, "INVALID_SEED"},
		{errors.Join(errors.New("x"), context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			code, name := errorStatus(tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.want, name)
		})
	}
}
