package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/dispute-case-api/api"
	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/documents"
	"github.com/linesmerrill/dispute-case-api/lifecycle"
)

// maxMinutesUpload caps the multipart body of a minutes submission
const maxMinutesUpload = 32 << 20

// Session exported for testing purposes
type Session struct {
	C *lifecycle.Controller
}

// RecordMinutesHandler stores the minutes of a held session. It takes a multipart form
// with a "minutes" field and any number of "files".
func (s Session) RecordMinutesHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMinutesUpload)
	if err := r.ParseMultipartForm(maxMinutesUpload); err != nil {
		fail("failed to parse minutes form", w, apperr.Wrap(apperr.Validation, err, "invalid multipart form"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req := lifecycle.RecordRequest{
		SessionID: mux.Vars(r)["session_id"],
		Minutes:   r.FormValue("minutes"),
	}
	for _, fh := range r.MultipartForm.File["files"] {
		up, closeFn, err := open(fh)
		if err != nil {
			fail("failed to read uploaded file", w, err)
			return
		}
		defer closeFn()
		req.Files = append(req.Files, up)
	}

	rec, err := s.C.RecordSession(r.Context(), req)
	if err != nil {
		fail("failed to record session", w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func open(fh *multipart.FileHeader) (documents.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return documents.Upload{}, nil, apperr.Wrap(apperr.Validation, err, "failed to open "+fh.Filename)
	}
	closeFn := func() {
		if err := f.Close(); err != nil {
			zap.S().Warnw("failed to close upload", "file", fh.Filename, "error", err)
		}
	}
	return documents.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}, closeFn, nil
}

// RescheduleHandler moves a session to a new slot
func (s Session) RescheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.RescheduleRequest
	if err := decode(r, &req); err != nil {
		fail("failed to decode request body", w, err)
		return
	}
	req.SessionID = mux.Vars(r)["session_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	rec, err := s.C.RescheduleSession(ctx, req)
	if err != nil {
		fail("failed to reschedule session", w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PurgeSessionHandler permanently removes a deleted session
func (s Session) PurgeSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	id := mux.Vars(r)["session_id"]
	if err := s.C.PurgeSession(ctx, id); err != nil {
		fail("failed to purge session", w, err)
		return
	}
	zap.S().Infow("session purge requested", "sessionID", id, "staff", api.StaffFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRescheduleHandler discards one entry of a reschedule chain
func (s Session) DeleteRescheduleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := s.C.SoftDeleteReschedule(ctx, mux.Vars(r)["reschedule_id"]); err != nil {
		fail("failed to delete reschedule", w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AvailabilityHandler returns the booked and free times of a day
func (s Session) AvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	av, err := s.C.Availability(ctx, mux.Vars(r)["date"])
	if err != nil {
		fail("failed to get availability", w, err)
		return
	}
	writeJSON(w, http.StatusOK, av)
}
