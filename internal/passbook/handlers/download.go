package handlers

import (
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/passbook"
)

// AuthenticationTokenParam is the query or form value carrying the token on the download endpoint
const AuthenticationTokenParam = "authentication_token"

// DownloadHandler handles GET and POST /passbook/{passID}
type DownloadHandler struct {
	store   passbook.Store
	builder *passbook.ArchiveBuilder
}

// NewDownloadHandler creates a new handler for browser downloads
func NewDownloadHandler(store passbook.Store, builder *passbook.ArchiveBuilder) *DownloadHandler {
	return &DownloadHandler{
		store:   store,
		builder: builder,
	}
}

// HandleDownload godoc
//
//	@Summary		Download a pass
//	@Description	Returns the signed pass archive. This endpoint is for web pages offering the pass for download:
//	@Description	the authentication token is sent as a query or form value rather than in the Authorization header.
//	@Tags			Passbook
//	@Produce		application/vnd.apple.pkpass
//	@Param			passID					path		int		true	"Serial number"
//	@Param			authentication_token	query		string	true	"Pass authentication token"
//	@Success		200						{file}		binary	"Pass archive"
//	@Failure		401						{string}	string	"Missing or wrong token"
//	@Failure		404						{string}	string	"Unknown serial number"
//	@Failure		500						{string}	string	"Pass could not be built"
//	@Router			/passbook/{passID} [get]
//	@Router			/passbook/{passID} [post]
func (h *DownloadHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pass, err := authenticatePass(r, h.store, func(pass *passbook.Pass) error {
		return passbook.Authorize(pass, r.FormValue(AuthenticationTokenParam))
	})
	if err != nil {
		passbook.RespondWithError(w, r, err)
		return
	}
	logger.ContextWithLogAttrs(ctx, slog.Int64("pass_id", pass.ID))

	archive, err := h.builder.Build(ctx, pass)
	if err != nil {
		passbook.RespondWithError(w, r, err)
		return
	}

	passbook.RespondWithArchive(w, archive)
}
