package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/passbook"
)

// RegistrationRequest is the body of a device registration
type RegistrationRequest struct {
	PushToken string `json:"pushToken" example:"f3a1c2..."`
}

// RegistrationHandler handles POST and DELETE
// /passbook/{version}/devices/{device}/registrations/{passTypeIdentifier}/{passID}
type RegistrationHandler struct {
	service *passbook.Service
}

// NewRegistrationHandler creates a new handler for device registrations
func NewRegistrationHandler(service *passbook.Service) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
	}
}

// HandleRegistration godoc
//
//	@Summary		Register or unregister a device for pass updates
//	@Description	POST registers the device to receive push notifications for the pass (201 when the registration is
//	@Description	created, 200 when the device was already registered). DELETE removes the registration (404 when
//	@Description	there is none). Both methods use the same URL.
//	@Tags			Passbook
//	@Accept			json
//	@Param			version				path	string				true	"Protocol version"	example(v1)
//	@Param			device				path	string				true	"Device library identifier"
//	@Param			passTypeIdentifier	path	string				true	"Pass type identifier"
//	@Param			passID				path	int					true	"Serial number"
//	@Param			Authorization		header	string				true	"ApplePass {authenticationToken}"
//	@Param			request				body	RegistrationRequest	false	"Push token (POST only)"
//	@Success		200					"Already registered, or unregistered"
//	@Success		201					"Registered"
//	@Failure		400					"Malformed request body"
//	@Failure		401					"Missing or wrong token"
//	@Failure		404					"Not registered (DELETE)"
//	@Router			/passbook/{version}/devices/{device}/registrations/{passTypeIdentifier}/{passID} [post]
//	@Router			/passbook/{version}/devices/{device}/registrations/{passTypeIdentifier}/{passID} [delete]
func (h *RegistrationHandler) HandleRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqLogger := logger.ContextRequestLogger(ctx)
	device := chi.URLParam(r, "device")

	// authorization is checked before anything is read or written
	pass, err := authenticatePass(r, h.service.Store(), headerAuthorizer(r))
	if err != nil {
		passbook.RespondWithError(w, r, err)
		return
	}
	logger.ContextWithLogAttrs(ctx,
		slog.Int64("pass_id", pass.ID),
		slog.String("device", device),
	)

	switch r.Method {
	case http.MethodPost:
		var req RegistrationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			passbook.RespondWithError(w, r, passbook.WrapBadRequestError(err, "failed to decode registration JSON"))
			return
		}
		defer r.Body.Close()

		result, err := h.service.RegisterDevice(ctx, pass, device, req.PushToken)
		if err != nil {
			passbook.RespondWithError(w, r, err)
			return
		}

		if result == passbook.RegisterCreated {
			reqLogger.Info("device registered",
				slog.Int64("pass_id", pass.ID),
				slog.String("device", device),
				slog.String("push_token", logger.TokenPrefix(req.PushToken)),
			)
			passbook.RespondWithStatusCodeOnly(w, http.StatusCreated)
			return
		}
		passbook.RespondWithStatusCodeOnly(w, http.StatusOK)

	case http.MethodDelete:
		// ErrRegistrationNotFound maps to 404
		if err := h.service.DeregisterDevice(ctx, pass, device); err != nil {
			passbook.RespondWithError(w, r, err)
			return
		}

		reqLogger.Info("device unregistered",
			slog.Int64("pass_id", pass.ID),
			slog.String("device", device),
		)
		passbook.RespondWithStatusCodeOnly(w, http.StatusOK)

	default:
		passbook.RespondWithStatusCodeOnly(w, http.StatusMethodNotAllowed)
	}
}
