package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickpim/internal/config"
	"quickpim/internal/db"
	"quickpim/internal/db/crypto"
	"quickpim/internal/domain"
)

func graphToken(t *testing.T, oid string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"oid":  oid,
		"name": "Ada Lovelace",
		"upn":  "ada@contoso.com",
	}).SignedString([]byte("not-verified"))
	require.NoError(t, err)
	return tok
}

// fakeGraph serves the Graph endpoints the daemon needs for one directory role.
func fakeGraph(t *testing.T, activations *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /beta/roleManagement/directory/roleEligibilitySchedules", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"value":[{"id":"e1","principalId":"oid-1","roleDefinitionId":"def-1","directoryScopeId":"/"}]}`)
	})
	mux.HandleFunc("GET /v1.0/roleManagement/directory/roleDefinitions", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"value":[{"id":"def-1","displayName":"Global Reader"}]}`)
	})
	mux.HandleFunc("POST /v1.0/roleManagement/directory/roleAssignmentScheduleRequests", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "selfActivate", body["action"])
		activations.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"req-1","status":"Provisioned"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, graphURL string) http.Handler {
	t.Helper()
	writeDB, readDB := db.OpenTestSQLite(t)
	cfg := &config.Config{
		EncryptionKey: crypto.DevelopmentKey,
		Upstream: config.UpstreamConfig{
			GraphBaseURL:      graphURL,
			ARMBaseURL:        graphURL,
			Timeout:           5 * time.Second,
			RequestsPerSecond: -1,
		},
		TokenMaxAge:           domain.DefaultTokenMaxAge,
		RoleDefinitionTTL:     time.Hour,
		ActivationConcurrency: 2,
		CORSAllowedOrigins:    config.DefaultCORSAllowedOrigins,
	}
	a, err := New(Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return a.Router(ctx)
}

func call(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApp_CaptureToActivation(t *testing.T) {
	var activations atomic.Int32
	h := newTestApp(t, fakeGraph(t, &activations).URL)

	// No token yet.
	rec := call(t, h, http.MethodGet, "/v1/roles/eligible", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Capture a Graph token from an observed request.
	obs, err := json.Marshal(map[string]any{
		"url":     "https://graph.microsoft.com/v1.0/me",
		"headers": []map[string]string{{"name": "Authorization", "value": "Bearer " + graphToken(t, "oid-1")}},
	})
	require.NoError(t, err)
	rec = call(t, h, http.MethodPost, "/v1/capture", string(obs))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"captured":true}`, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/v1/identity", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var id domain.Identity
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&id))
	assert.Equal(t, "oid-1", id.PrincipalID)
	assert.Equal(t, "ada@contoso.com", id.Username)

	rec = call(t, h, http.MethodGet, "/v1/token/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Tokens []domain.TokenStatus `json:"tokens"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	require.Len(t, status.Tokens, 2)
	assert.True(t, status.Tokens[0].Present)
	assert.Equal(t, "https://graph.microsoft.com/v1.0/me", status.Tokens[0].Source)
	assert.False(t, status.Tokens[1].Present)

	// Eligible roles: directory resolved, resource side reports the missing ARM token.
	rec = call(t, h, http.MethodGet, "/v1/roles/eligible", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var catalog domain.RoleCatalog
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&catalog))
	require.Len(t, catalog.DirectoryRoles, 1)
	candidate := catalog.DirectoryRoles[0]
	assert.Equal(t, "Global Reader", candidate.Label())
	require.Len(t, catalog.Errors, 1)
	assert.Equal(t, domain.RoleTypeAzureResource, catalog.Errors[0].Type)

	// Check the role, then activate it.
	rec = call(t, h, http.MethodPut, "/v1/selections/"+candidate.Key(), `{"checked":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	batch, err := json.Marshal(domain.ActivationRequest{
		Candidates:    []domain.RoleCandidate{candidate},
		DurationHours: 1,
		Justification: "incident 42",
	})
	require.NoError(t, err)
	rec = call(t, h, http.MethodPost, "/v1/activations", string(batch))
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.BatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Success)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "req-1", res.Results[0].RequestID)
	assert.Equal(t, "Global Reader", res.Results[0].Role)
	assert.Equal(t, int32(1), activations.Load())

	// A fully successful batch unchecks its roles.
	rec = call(t, h, http.MethodGet, "/v1/selections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sels struct {
		Selections []domain.RoleSelection `json:"selections"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sels))
	require.Len(t, sels.Selections, 1)
	assert.False(t, sels.Selections[0].Checked)
}

func TestApp_ResourceBatchWithoutARMTokenIsRejected(t *testing.T) {
	var activations atomic.Int32
	h := newTestApp(t, fakeGraph(t, &activations).URL)

	batch := `{"roles":[{"roleType":"azureResource","azureResource":{"roleDefinitionId":"r","principalId":"p","scope":"/subscriptions/s"}}],"durationHours":2,"justification":"deploy"}`
	rec := call(t, h, http.MethodPost, "/v1/activations", batch)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.ReasonMissingResourceCredential, body["reason"])
	assert.Zero(t, activations.Load())
}

func TestApp_Healthz(t *testing.T) {
	h := newTestApp(t, "http://127.0.0.1:1")

	rec := call(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_RejectsBadUpstreamURL(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	_, err := New(Deps{
		Cfg: &config.Config{
			EncryptionKey: crypto.DevelopmentKey,
			Upstream:      config.UpstreamConfig{GraphBaseURL: "ftp://graph", ARMBaseURL: "https://management.azure.com"},
		},
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph client")
}
