package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/passbook"
)

// request and responses

type CreatePassRequest struct {
	OriginType string `json:"originType" example:"member"`
	OriginID   string `json:"originId" example:"1001"`
}

type UpdatePassRequest struct {
	Active *bool `json:"active"`
}

type PassResponse struct {
	ID                  int64              `json:"id" example:"42"`
	SerialNumber        string             `json:"serialNumber" example:"42"`
	Origin              passbook.OriginRef `json:"origin"`
	AuthenticationToken string             `json:"authenticationToken" example:"1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"`
	Active              bool               `json:"active"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

type RegistrationResponse struct {
	PassID                  int64     `json:"passId" example:"42"`
	DeviceLibraryIdentifier string    `json:"deviceLibraryIdentifier"`
	PushToken               string    `json:"pushToken"`
	CreatedAt               time.Time `json:"createdAt"`
}

type DownloadURLResponse struct {
	URL string `json:"url" example:"https://passes.example.org/passbook/42?authentication_token=1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"`
}

// ArchiveInvalidator drops cached archives for a pass
type ArchiveInvalidator interface {
	Invalidate(passID int64)
}

// HandleCreatePass godoc
//
//	@Summary		Create a pass
//	@Description	Creates an active pass for an origin record. The origin type must be one of the configured ORIGIN_TYPES.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			pass	body		CreatePassRequest	true	"Origin record"
//	@Success		201		{object}	PassResponse
//	@Failure		400		{string}	string	"Invalid request"
//	@Router			/admin/passes [post]
func HandleCreatePass(service *passbook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		var req CreatePassRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.OriginType == "" || req.OriginID == "" {
			http.Error(w, "originType and originId are required", http.StatusBadRequest)
			return
		}

		pass, err := service.CreatePass(r.Context(), passbook.OriginRef{Type: req.OriginType, ID: req.OriginID})
		if err != nil {
			if passbook.MapErrorToStatus(err) == http.StatusBadRequest {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			reqLogger.Error("failed to create pass", slog.String("error", err.Error()))
			http.Error(w, "Failed to create pass", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(passToResponse(pass)); err != nil {
			reqLogger.Error("failed to encode response", slog.String("error", err.Error()))
		}
	}
}

// HandleGetPass godoc
//
//	@Summary	Get pass by ID
//	@Tags		Admin
//	@Produce	json
//	@Param		passID	path		int	true	"Pass ID"
//	@Success	200		{object}	PassResponse
//	@Failure	400		{string}	string	"Invalid pass ID"
//	@Failure	404		{string}	string	"Pass not found"
//	@Router		/admin/passes/{passID} [get]
func HandleGetPass(store passbook.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pass, ok := getPass(w, r, store)
		if !ok {
			return
		}
		respondWithJSON(w, r, http.StatusOK, passToResponse(pass))
	}
}

// HandleUpdatePass godoc
//
//	@Summary		Activate or deactivate a pass
//	@Description	Inactive passes are left out of device change queries.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			passID	path		int					true	"Pass ID"
//	@Param			pass	body		UpdatePassRequest	true	"Pass status"
//	@Success		200		{object}	PassResponse
//	@Failure		400		{string}	string	"Invalid request"
//	@Failure		404		{string}	string	"Pass not found"
//	@Router			/admin/passes/{passID} [put]
func HandleUpdatePass(store passbook.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		id, ok := passbook.ParsePassID(chi.URLParam(r, "passID"))
		if !ok {
			http.Error(w, "Invalid pass ID", http.StatusBadRequest)
			return
		}

		var req UpdatePassRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Active == nil {
			http.Error(w, "active is required", http.StatusBadRequest)
			return
		}

		pass, err := store.SetPassActive(r.Context(), id, *req.Active)
		if err != nil {
			if errors.Is(err, passbook.ErrPassNotFound) {
				http.Error(w, "Pass not found", http.StatusNotFound)
				return
			}
			reqLogger.Error("failed to update pass", slog.String("error", err.Error()))
			http.Error(w, "Failed to update pass", http.StatusInternalServerError)
			return
		}

		reqLogger.Info("pass updated", slog.Int64("pass_id", pass.ID), slog.Bool("active", pass.Active))
		respondWithJSON(w, r, http.StatusOK, passToResponse(pass))
	}
}

// HandleDeletePass godoc
//
//	@Summary		Delete a pass
//	@Description	Deletes the pass and its device registrations.
//	@Tags			Admin
//	@Param			passID	path		int	true	"Pass ID"
//	@Success		204
//	@Failure		400	{string}	string	"Invalid pass ID"
//	@Failure		404	{string}	string	"Pass not found"
//	@Router			/admin/passes/{passID} [delete]
func HandleDeletePass(store passbook.Store, archives ArchiveInvalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		id, ok := passbook.ParsePassID(chi.URLParam(r, "passID"))
		if !ok {
			http.Error(w, "Invalid pass ID", http.StatusBadRequest)
			return
		}

		if err := store.DeletePass(r.Context(), id); err != nil {
			if errors.Is(err, passbook.ErrPassNotFound) {
				http.Error(w, "Pass not found", http.StatusNotFound)
				return
			}
			reqLogger.Error("failed to delete pass", slog.String("error", err.Error()))
			http.Error(w, "Failed to delete pass", http.StatusInternalServerError)
			return
		}
		archives.Invalidate(id)

		reqLogger.Info("pass deleted", slog.Int64("pass_id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleListPassRegistrations godoc
//
//	@Summary	List the devices registered for a pass
//	@Tags		Admin
//	@Produce	json
//	@Param		passID	path		int	true	"Pass ID"
//	@Success	200		{array}		RegistrationResponse
//	@Failure	400		{string}	string	"Invalid pass ID"
//	@Failure	404		{string}	string	"Pass not found"
//	@Router		/admin/passes/{passID}/registrations [get]
func HandleListPassRegistrations(store passbook.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		id, ok := passbook.ParsePassID(chi.URLParam(r, "passID"))
		if !ok {
			http.Error(w, "Invalid pass ID", http.StatusBadRequest)
			return
		}

		regs, err := store.ListRegistrations(r.Context(), id)
		if err != nil {
			if errors.Is(err, passbook.ErrPassNotFound) {
				http.Error(w, "Pass not found", http.StatusNotFound)
				return
			}
			reqLogger.Error("failed to list registrations", slog.String("error", err.Error()))
			http.Error(w, "Failed to list registrations", http.StatusInternalServerError)
			return
		}

		respondWithJSON(w, r, http.StatusOK, registrationsToResponse(regs))
	}
}

// HandleListOriginRegistrations godoc
//
//	@Summary		List the devices to notify when an origin record changes
//	@Description	Returns the registrations of the active passes for the origin record.
//	@Description	These are the push targets after the record is updated.
//	@Tags			Admin
//	@Produce		json
//	@Param			originType	path		string	true	"Origin type"
//	@Param			originID	path		string	true	"Origin record ID"
//	@Success		200			{array}		RegistrationResponse
//	@Failure		404			{string}	string	"Unknown origin type"
//	@Router			/admin/origins/{originType}/{originID}/registrations [get]
func HandleListOriginRegistrations(store passbook.Store, registry *passbook.OriginRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())
		origin := passbook.OriginRef{
			Type: chi.URLParam(r, "originType"),
			ID:   chi.URLParam(r, "originID"),
		}

		if !registry.Has(origin.Type) {
			http.Error(w, "Unknown origin type", http.StatusNotFound)
			return
		}

		regs, err := store.RegistrationsForOrigin(r.Context(), origin)
		if err != nil {
			reqLogger.Error("failed to list registrations", slog.String("error", err.Error()))
			http.Error(w, "Failed to list registrations", http.StatusInternalServerError)
			return
		}

		respondWithJSON(w, r, http.StatusOK, registrationsToResponse(regs))
	}
}

// HandleListOriginTypes godoc
//
//	@Summary	List the origin types passes can be created for
//	@Tags		Admin
//	@Produce	json
//	@Success	200	{array}	string
//	@Router		/admin/origins [get]
func HandleListOriginTypes(registry *passbook.OriginRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, r, http.StatusOK, registry.Types())
	}
}

// HandleGetDownloadURL godoc
//
//	@Summary		Get the browser download URL of a pass
//	@Description	The URL carries the pass authentication token; share it only with the pass holder.
//	@Tags			Admin
//	@Produce		json
//	@Param			passID	path		int	true	"Pass ID"
//	@Success		200		{object}	DownloadURLResponse
//	@Failure		400		{string}	string	"Invalid pass ID"
//	@Failure		404		{string}	string	"Pass not found"
//	@Router			/admin/passes/{passID}/download-url [get]
func HandleGetDownloadURL(store passbook.Store, webServiceURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pass, ok := getPass(w, r, store)
		if !ok {
			return
		}

		q := url.Values{}
		q.Set("authentication_token", pass.AuthenticationToken)
		respondWithJSON(w, r, http.StatusOK, DownloadURLResponse{
			URL: webServiceURL + "/" + pass.SerialNumber() + "?" + q.Encode(),
		})
	}
}

// getPass loads the pass named in the path, writing the error response when it cannot
func getPass(w http.ResponseWriter, r *http.Request, store passbook.Store) (*passbook.Pass, bool) {
	id, ok := passbook.ParsePassID(chi.URLParam(r, "passID"))
	if !ok {
		http.Error(w, "Invalid pass ID", http.StatusBadRequest)
		return nil, false
	}

	pass, err := store.GetPass(r.Context(), id)
	if err != nil {
		if errors.Is(err, passbook.ErrPassNotFound) {
			http.Error(w, "Pass not found", http.StatusNotFound)
			return nil, false
		}
		logger.ContextRequestLogger(r.Context()).Error("failed to get pass", slog.String("error", err.Error()))
		http.Error(w, "Failed to get pass", http.StatusInternalServerError)
		return nil, false
	}
	return pass, true
}

func respondWithJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.ContextRequestLogger(r.Context()).Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// Helper functions to convert engine types to response types

func passToResponse(pass *passbook.Pass) PassResponse {
	return PassResponse{
		ID:                  pass.ID,
		SerialNumber:        pass.SerialNumber(),
		Origin:              pass.Origin,
		AuthenticationToken: pass.AuthenticationToken,
		Active:              pass.Active,
		CreatedAt:           pass.CreatedAt,
		UpdatedAt:           pass.UpdatedAt,
	}
}

func registrationsToResponse(regs []passbook.Registration) []RegistrationResponse {
	out := make([]RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, RegistrationResponse{
			PassID:                  reg.PassID,
			DeviceLibraryIdentifier: reg.DeviceLibraryIdentifier,
			PushToken:               reg.PushToken,
			CreatedAt:               reg.CreatedAt,
		})
	}
	return out
}
