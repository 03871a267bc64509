package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/dispute-case-api/api"
	"github.com/linesmerrill/dispute-case-api/api/handlers"
	"github.com/linesmerrill/dispute-case-api/config"
)

func newApp(t *testing.T, secret string) *handlers.App {
	a := &handlers.App{
		Config:     config.Config{JWTSecret: secret, RequestTimeout: 5 * time.Second},
		Controller: newController(t),
	}
	a.Router = a.New()
	return a
}

func executeRequest(a *handlers.App, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func TestUnknownRoute(t *testing.T) {
	a := newApp(t, "")
	req, _ := http.NewRequest("GET", "/asdf", nil)
	response := executeRequest(a, req)

	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestHealthCheckRoute(t *testing.T) {
	a := newApp(t, "")
	req, _ := http.NewRequest("GET", "/health", nil)
	response := executeRequest(a, req)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), "alive")
	assert.NotEmpty(t, response.Header().Get("X-Request-ID"))
}

func TestApp_CaseRoutesUnauthorized(t *testing.T) {
	a := newApp(t, "secret")
	req, _ := http.NewRequest("GET", "/api/v1/cases/2025001", nil)
	response := executeRequest(a, req)

	assert.Equal(t, http.StatusUnauthorized, response.Code)

	req, _ = http.NewRequest("GET", "/api/v1/cases/2025001", nil)
	req.Header.Add("Authorization", "Bearer asdfasdf")
	response = executeRequest(a, req)

	assert.Equal(t, http.StatusUnauthorized, response.Code)
}

func TestApp_CaseRoutesAuthorized(t *testing.T) {
	a := newApp(t, "secret")
	token, err := api.IssueToken("secret", "clerk-1", time.Hour)
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/api/v1/cases", strings.NewReader(
		`{"title":"Noise","nature":"nuisance","complainantRef":"r-1","respondentRef":"r-2"}`))
	req.Header.Add("Authorization", "Bearer "+token)
	response := executeRequest(a, req)
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())

	req, _ = http.NewRequest("POST", "/api/v1/cases/2025001/stages/mediation", strings.NewReader(
		`{"date":"2025-06-02","time":"09:00"}`))
	req.Header.Add("Authorization", "Bearer "+token)
	response = executeRequest(a, req)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	req, _ = http.NewRequest("GET", "/api/v1/availability/2025-06-02", nil)
	req.Header.Add("Authorization", "Bearer "+token)
	response = executeRequest(a, req)
	assert.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), `"bookedTimes":["09:00"]`)
}
