package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tickex/internal/compliance"
	"tickex/internal/domain"
	"tickex/internal/fees"
	"tickex/internal/middleware"
	"tickex/internal/monitor"
	"tickex/internal/policy"
	"tickex/internal/repository/memory"
	"tickex/internal/verify"
	"tickex/internal/verify/providers/static"
	"tickex/pkg/config"
	"tickex/pkg/logger"
	"tickex/pkg/validator"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "handler-test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *memory.ReportRepository) {
	t.Helper()
	log := logger.Nop()

	p, err := policy.New(config.PolicyConfig{
		BasicMax:    decimal.NewFromInt(500),
		EnhancedMin: decimal.NewFromInt(3000),
	})
	require.NoError(t, err)

	schedule, err := fees.NewSchedule(config.FeeConfig{
		MarketplaceBp:         300,
		DefaultRoyaltyBp:      250,
		PlatformBp:            100,
		GasEstimateBp:         50,
		MaxMarketplaceBp:      300,
		MaxRoyaltyBp:          1000,
		MaxPlatformBp:         200,
		MaxGasBp:              100,
		MaxTotalBp:            1300,
		MarketplaceAdvisoryBp: 200,
	})
	require.NoError(t, err)

	gateway, err := verify.NewGateway([]verify.Registration{
		{Provider: static.New("static", true), Timeout: time.Second},
	}, log)
	require.NoError(t, err)

	repo := memory.NewReportRepository()
	mon := monitor.NewService(repo, 5*365*24*time.Hour, log)

	svc := compliance.NewService(p, schedule, gateway, mon, nil, log)
	h := NewComplianceHandler(svc, mon, validator.New(), log)

	r := mux.NewRouter()
	authMW := middleware.NewAuthMiddleware(testJWTSecret)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	api.HandleFunc("/compliance/evaluate", h.Evaluate).Methods("POST")
	api.HandleFunc("/compliance/verify", h.Verify).Methods("POST")
	api.HandleFunc("/compliance/disclose", h.Disclose).Methods("POST")
	api.HandleFunc("/compliance/accept", h.Accept).Methods("POST")
	api.HandleFunc("/compliance/settle", h.Settle).Methods("POST")
	api.HandleFunc("/compliance/reset", h.Reset).Methods("POST")
	api.HandleFunc("/compliance/session", h.Session).Methods("GET")
	api.HandleFunc("/reports", h.Reports).Methods("GET")
	api.HandleFunc("/reports/purge", h.Purge).Methods("POST")
	api.HandleFunc("/dashboard", h.Dashboard).Methods("GET")

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo
}

func signTestToken(t *testing.T, subject uuid.UUID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"subject_id": subject.String(),
		"role":       role,
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, srv *httptest.Server, token, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestPurchaseFlowEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	token := signTestToken(t, uuid.New(), "buyer")

	resp, body := doJSON(t, srv, token, "POST", "/api/v1/compliance/evaluate",
		map[string]interface{}{"amount": "600", "currency": "USD"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "tier_assessed", body["state"])
	assert.Equal(t, "advanced", body["required_tier"])

	resp, body = doJSON(t, srv, token, "POST", "/api/v1/compliance/verify",
		map[string]interface{}{"full_name": "Ada Example", "document_number": "P123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "verified", body["state"])
	assert.Equal(t, "advanced", body["current_tier"])

	resp, body = doJSON(t, srv, token, "POST", "/api/v1/compliance/disclose",
		map[string]interface{}{"price": "600"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fees_disclosed", body["state"])
	disclosure, ok := body["disclosure"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, disclosure["accepted"])

	resp, body = doJSON(t, srv, token, "POST", "/api/v1/compliance/accept",
		map[string]interface{}{"accepted": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["state"])

	resp, body = doJSON(t, srv, token, "POST", "/api/v1/compliance/settle",
		map[string]interface{}{"reference_id": "order-1", "amount": "600", "currency": "USD", "event_ref": "gala", "unit_count": 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "order-1", body["reference_id"])

	// A retry with the same reference is rejected at the store.
	resp, _ = doJSON(t, srv, token, "POST", "/api/v1/compliance/settle",
		map[string]interface{}{"reference_id": "order-1", "amount": "600"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, srv, token, "GET", "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total_transactions"])

	from := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	to := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	resp, body = doJSON(t, srv, token, "GET",
		fmt.Sprintf("/api/v1/reports?from=%s&to=%s", from, to), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])
}

func TestVerifyRequiresDocumentNumber(t *testing.T) {
	srv, _ := newTestServer(t)
	token := signTestToken(t, uuid.New(), "buyer")

	resp, _ := doJSON(t, srv, token, "POST", "/api/v1/compliance/evaluate",
		map[string]interface{}{"amount": "600"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, srv, token, "POST", "/api/v1/compliance/verify",
		map[string]interface{}{"full_name": "Ada Example"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation failed", body["error"])
	fields, ok := body["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "This field is required", fields["document_number"])
}

func TestSettleBeforeReadyConflicts(t *testing.T) {
	srv, _ := newTestServer(t)
	token := signTestToken(t, uuid.New(), "buyer")

	resp, _ := doJSON(t, srv, token, "POST", "/api/v1/compliance/evaluate",
		map[string]interface{}{"amount": "100"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, token, "POST", "/api/v1/compliance/settle",
		map[string]interface{}{"reference_id": "early", "amount": "100"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestNonCompliantRoyaltyIsItemized(t *testing.T) {
	srv, _ := newTestServer(t)
	token := signTestToken(t, uuid.New(), "buyer")

	resp, _ := doJSON(t, srv, token, "POST", "/api/v1/compliance/evaluate",
		map[string]interface{}{"amount": "100"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, srv, token, "POST", "/api/v1/compliance/verify",
		map[string]interface{}{"full_name": "Ada Example", "document_number": "P1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, srv, token, "POST", "/api/v1/compliance/disclose",
		map[string]interface{}{"price": "100", "royalty_bp": 1000})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	warnings, ok := body["warnings"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, warnings)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest("GET", srv.URL+"/api/v1/dashboard", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPurgeRequiresAdminRole(t *testing.T) {
	srv, _ := newTestServer(t)

	buyer := signTestToken(t, uuid.New(), "buyer")
	resp, _ := doJSON(t, srv, buyer, "POST", "/api/v1/reports/purge", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := signTestToken(t, uuid.New(), "admin")
	resp, body := doJSON(t, srv, admin, "POST", "/api/v1/reports/purge", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["removed"])
}

func TestReportsRejectsInvertedRange(t *testing.T) {
	srv, _ := newTestServer(t)
	token := signTestToken(t, uuid.New(), "buyer")

	resp, _ := doJSON(t, srv, token, "GET",
		"/api/v1/reports?from=2026-02-01&to=2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportsTierFilter(t *testing.T) {
	srv, repo := newTestServer(t)
	token := signTestToken(t, uuid.New(), "buyer")

	now := time.Now().UTC()
	for ref, tier := range map[string]domain.Tier{
		"order-basic":    domain.TierBasic,
		"order-advanced": domain.TierAdvanced,
	} {
		err := repo.Append(context.Background(), &domain.TransactionReport{
			ID:                uuid.New(),
			ReferenceID:       ref,
			SubjectID:         uuid.New(),
			Amount:            decimal.NewFromInt(100),
			Currency:          "USD",
			TierAtTransaction: tier,
			Compliant:         true,
			Disclosed:         true,
			Timestamp:         now,
		})
		require.NoError(t, err)
	}

	from := now.Add(-time.Hour).Format(time.RFC3339)
	to := now.Add(time.Hour).Format(time.RFC3339)

	resp, body := doJSON(t, srv, token, "GET",
		fmt.Sprintf("/api/v1/reports?from=%s&to=%s&tier=advanced", from, to), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])
	reports := body["reports"].([]interface{})
	require.Len(t, reports, 1)
	assert.Equal(t, "order-advanced", reports[0].(map[string]interface{})["reference_id"])

	// Unknown tier names are rejected before the store is queried.
	resp, _ = doJSON(t, srv, token, "GET",
		fmt.Sprintf("/api/v1/reports?from=%s&to=%s&tier=platinum", from, to), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
