package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/passbook"
)

// LatestVersionHandler handles GET /passbook/{version}/passes/{passTypeIdentifier}/{passID}
type LatestVersionHandler struct {
	store   passbook.Store
	builder *passbook.ArchiveBuilder
}

// NewLatestVersionHandler creates a new handler for device pass updates
func NewLatestVersionHandler(store passbook.Store, builder *passbook.ArchiveBuilder) *LatestVersionHandler {
	return &LatestVersionHandler{
		store:   store,
		builder: builder,
	}
}

// HandleLatestVersion godoc
//
//	@Summary		Get the latest version of a pass
//	@Description	Called by devices after a push notification or a change query.
//	@Description	Returns 304 when the pass has not changed since If-Modified-Since.
//	@Tags			Passbook
//	@Produce		application/vnd.apple.pkpass
//	@Param			version				path		string	true	"Protocol version"	example(v1)
//	@Param			passTypeIdentifier	path		string	true	"Pass type identifier"
//	@Param			passID				path		int		true	"Serial number"
//	@Param			Authorization		header		string	true	"ApplePass {authenticationToken}"
//	@Param			If-Modified-Since	header		string	false	"HTTP date"
//	@Success		200					{file}		binary	"Pass archive"
//	@Success		304					{string}	string	"Not modified"
//	@Failure		401					{string}	string	"Missing or wrong token"
//	@Failure		404					{string}	string	"Unknown serial number"
//	@Failure		500					{string}	string	"Pass could not be built"
//	@Router			/passbook/{version}/passes/{passTypeIdentifier}/{passID} [get]
func (h *LatestVersionHandler) HandleLatestVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pass, err := authenticatePass(r, h.store, headerAuthorizer(r))
	if err != nil {
		passbook.RespondWithError(w, r, err)
		return
	}
	logger.ContextWithLogAttrs(ctx,
		slog.Int64("pass_id", pass.ID),
		slog.String("pass_type_identifier", chi.URLParam(r, "passTypeIdentifier")),
	)

	lastModified, err := h.builder.LastModified(ctx, pass)
	if err != nil {
		passbook.RespondWithError(w, r, err)
		return
	}

	if notModified(r, lastModified) {
		w.Header().Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
		passbook.RespondWithStatusCodeOnly(w, http.StatusNotModified)
		return
	}

	archive, err := h.builder.Build(ctx, pass)
	if err != nil {
		passbook.RespondWithError(w, r, err)
		return
	}

	passbook.RespondWithArchive(w, archive)
}

// notModified reports whether the If-Modified-Since header is at or after lastModified.
// HTTP dates have one second resolution.
func notModified(r *http.Request, lastModified time.Time) bool {
	header := r.Header.Get("If-Modified-Since")
	if header == "" || lastModified.IsZero() {
		return false
	}
	since, err := http.ParseTime(header)
	if err != nil {
		return false
	}
	return !lastModified.Truncate(time.Second).After(since)
}
