package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/passbook"
	"github.com/information-sharing-networks/passbook/internal/services"
)

// LogRequest is the body devices post to the log endpoint
type LogRequest struct {
	Logs []string `json:"logs"`
}

// LogHandler handles POST /passbook/{version}/log
type LogHandler struct {
	sink services.LogSink
	now  func() time.Time
}

// NewLogHandler creates a new handler for device logs
func NewLogHandler(sink services.LogSink) *LogHandler {
	return &LogHandler{
		sink: sink,
		now:  time.Now,
	}
}

// HandleLog godoc
//
//	@Summary		Record device log messages
//	@Description	Devices post diagnostic messages here when they have problems with the web service.
//	@Tags			Passbook
//	@Accept			json
//	@Param			version	path	string		true	"Protocol version"	example(v1)
//	@Param			request	body	LogRequest	true	"Log messages"
//	@Success		200		"Logs recorded"
//	@Failure		400		"Malformed request body"
//	@Router			/passbook/{version}/log [post]
func (h *LogHandler) HandleLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		passbook.RespondWithError(w, r, passbook.WrapBadRequestError(err, "failed to decode log JSON"))
		return
	}
	defer r.Body.Close()

	if req.Logs == nil {
		passbook.RespondWithError(w, r, passbook.NewBadRequestError("logs is required"))
		return
	}

	batch := services.DeviceLogBatch{
		Version:    chi.URLParam(r, "version"),
		ReceivedAt: h.now().UTC(),
		RemoteAddr: r.RemoteAddr,
		Logs:       req.Logs,
	}
	logger.ContextWithLogAttrs(ctx, slog.Int("log_messages", len(req.Logs)))

	// the device gets a 200 even when the sink fails
	if err := h.sink.Write(ctx, batch); err != nil {
		logger.ContextRequestLogger(ctx).Error("failed to store device logs",
			slog.String("error", err.Error()),
		)
	}

	passbook.RespondWithStatusCodeOnly(w, http.StatusOK)
}
