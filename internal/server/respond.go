package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/llm"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("http.encode_failed", "error", err)
	}
}

// errorBody maps err onto the API error shape. Details carries the model's raw text for
// malformed responses and the underlying failure otherwise.
func errorBody(err error) llm.ErrorResponse {
	body := llm.ErrorResponse{Error: err.Error(), Code: common.CodeOf(err)}
	var app *common.AppError
	if errors.As(err, &app) {
		body.Error = app.Message
		body.Hint = app.Hint
		switch {
		case app.Details != "":
			body.Details = app.Details
		case app.Err != nil:
			body.Details = app.Err.Error()
		}
	}
	return body
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	log := s.log.With("req_id", common.RequestIDFromContext(r.Context()), "path", r.URL.Path, "status", status)
	if status >= http.StatusInternalServerError {
		log.Error("http.request.failed", "error", err)
	} else {
		log.Warn("http.request.rejected", "error", err)
	}
	writeJSON(w, status, errorBody(err))
}
