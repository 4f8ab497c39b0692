package handlers

import (
	"net/http"
)

// HandleWebServiceRoot godoc
//
//	@Summary		Web service root
//	@Description	The webServiceURL written into passes. It has no content of its own and redirects to the public site.
//	@Tags			Passbook
//	@Success		302	"Redirect to the public site"
//	@Router			/passbook [get]
func HandleWebServiceRoot(publicBaseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, publicBaseURL, http.StatusFound)
	}
}
