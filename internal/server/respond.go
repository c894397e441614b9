package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/rfp-insight/internal/apperr"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

// writeError maps a pipeline error onto the response envelope. The stable
// code (when present) becomes the error field; the human message goes into
// details.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	body := errorBody{Success: false, Error: err.Error()}
	if ae := apperr.As(err); ae != nil {
		if ae.Code != "" {
			body.Error = ae.Code
			body.Details = ae.Message
		} else {
			body.Error = ae.Message
		}
		if ae.Kind == apperr.KindPersistence || ae.Kind == apperr.KindInternal {
			zap.L().Error("server: internal error", zap.Error(err))
			body.Error = "internal error"
			body.Details = ""
		}
	}
	writeJSON(w, status, body)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Success: false, Error: msg})
}
