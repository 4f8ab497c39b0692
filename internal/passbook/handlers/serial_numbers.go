package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/passbook"
)

// UpdatedSinceParam is the query parameter holding the device's last update watermark
const UpdatedSinceParam = "passesUpdatedSince"

// SerialNumbersHandler handles GET /passbook/{version}/devices/{device}/registrations/{passTypeIdentifier}
type SerialNumbersHandler struct {
	detector *passbook.ChangeDetector
}

// NewSerialNumbersHandler creates a new handler for change queries
func NewSerialNumbersHandler(detector *passbook.ChangeDetector) *SerialNumbersHandler {
	return &SerialNumbersHandler{
		detector: detector,
	}
}

// HandleSerialNumbers godoc
//
//	@Summary		Get the serial numbers of changed passes
//	@Description	Returns the serial numbers of the active passes the device is registered for that changed at or after
//	@Description	passesUpdatedSince (all of them when it is omitted), grouped by their last update time:
//	@Description	`{"2024-05-01 12:00:00+00:00": ["1", "7"]}`. 204 means nothing changed.
//	@Tags			Passbook
//	@Produce		json
//	@Param			version				path		string				true	"Protocol version"	example(v1)
//	@Param			device				path		string				true	"Device library identifier"
//	@Param			passTypeIdentifier	path		string				true	"Pass type identifier"
//	@Param			passesUpdatedSince	query		string				false	"Last update key from a previous response"
//	@Success		200					{object}	map[string][]string	"Serial numbers by last update time"
//	@Success		204					"No changed passes"
//	@Router			/passbook/{version}/devices/{device}/registrations/{passTypeIdentifier} [get]
func (h *SerialNumbersHandler) HandleSerialNumbers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device := chi.URLParam(r, "device")

	raw := r.URL.Query().Get(UpdatedSinceParam)
	since, ok := passbook.ParseUpdatedSince(raw)
	if !ok && raw != "" {
		logger.ContextRequestLogger(ctx).Debug("ignoring unparseable passesUpdatedSince",
			slog.String("value", raw),
		)
	}

	changed, err := h.detector.ChangedPasses(ctx, device, since)
	if err != nil {
		passbook.RespondWithError(w, r, err)
		return
	}

	logger.ContextWithLogAttrs(ctx,
		slog.String("device", device),
		slog.Int("changed_passes", len(changed)),
	)

	if len(changed) == 0 {
		passbook.RespondWithStatusCodeOnly(w, http.StatusNoContent)
		return
	}

	passbook.RespondWithJSONPayload(w, http.StatusOK, passbook.GroupBySerialNumbers(changed))
}
