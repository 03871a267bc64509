package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/dispute-case-api/databases/memory"
	"github.com/linesmerrill/dispute-case-api/documents"
	"github.com/linesmerrill/dispute-case-api/lifecycle"
	"github.com/linesmerrill/dispute-case-api/models"
)

var office = time.FixedZone("PHT", 8*60*60)

func newController(t *testing.T) *lifecycle.Controller {
	c := lifecycle.New(memory.New())
	c.Location = office
	c.Documents = documents.NewLocal(t.TempDir())
	c.Now = func() time.Time {
		return time.Date(2025, 6, 1, 10, 0, 0, 0, office)
	}
	return c
}

func jsonRequest(t *testing.T, method, target string, body interface{}, vars map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, target, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return mux.SetURLVars(req, vars)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) models.MessageError {
	t.Helper()
	var resp models.ErrorMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Response
}

var complaint = map[string]string{
	"title":          "Boundary fence",
	"nature":         "property",
	"complainantRef": "resident-1",
	"respondentRef":  "resident-2",
}
