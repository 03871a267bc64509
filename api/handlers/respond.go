package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/config"
)

// statusFor maps an error kind to the HTTP status the client sees
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.State, apperr.Capacity, apperr.Conflict, apperr.Spacing:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(message string, w http.ResponseWriter, err error) {
	config.ErrorStatus(message, statusFor(err), w, err)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.Validation, err, "failed to decode request body")
	}
	return nil
}

func caseID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["case_id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid case id %q", raw)
	}
	return id, nil
}
