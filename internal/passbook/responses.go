package passbook

// responses.go provides helper functions for sending HTTP responses from the protocol handlers.

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/information-sharing-networks/passbook/internal/logger"
)

// RespondWithError logs the error and sends the mapped status code with an empty body.
//
// Use this for all device facing failures: the error detail is only written to the server log.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatus(err)
	RespondWithErrorStatus(w, r, status, err)
}

// RespondWithErrorStatus logs the error and sends the given status code with an empty body.
func RespondWithErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	reqLogger := logger.ContextRequestLogger(r.Context())

	attrs := []any{
		slog.Int("status_code", status),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		reqLogger.Error("request failed", attrs...)
	} else {
		reqLogger.Info("request rejected", attrs...)
	}

	RespondWithStatusCodeOnly(w, status)
}

// RespondWithJSONPayload sends a JSON response with the given status code
func RespondWithJSONPayload(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// headers are already written
			// #nosec G706 -- error is escaped (slog) and not from user input
			slog.Error("Failed to encode JSON response",
				slog.String("error", err.Error()),
			)
		}
	}
}

// RespondWithStatusCodeOnly sends a response with only a status code (no body)
func RespondWithStatusCodeOnly(w http.ResponseWriter, statusCode int) {
	w.WriteHeader(statusCode)
}

// RespondWithArchive sends a pass archive as an attachment
func RespondWithArchive(w http.ResponseWriter, archive *Archive) {
	w.Header().Set("Content-Type", archive.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive.Data)))
	if !archive.LastModified.IsZero() {
		w.Header().Set("Last-Modified", archive.LastModified.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(archive.Data); err != nil {
		slog.Error("Failed to write archive response", slog.String("error", err.Error()))
	}
}
