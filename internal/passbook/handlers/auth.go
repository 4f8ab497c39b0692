package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/passbook/internal/passbook"
)

// authenticatePass loads the pass named in the passID path parameter and checks the presented token.
//
// A serial number that is not a pass ID is not found (404). A pass ID with no pass is unauthorized (401)
// so that callers cannot probe for valid serial numbers.
func authenticatePass(r *http.Request, store passbook.Store, authorize func(*passbook.Pass) error) (*passbook.Pass, error) {
	serial := chi.URLParam(r, "passID")
	id, ok := passbook.ParsePassID(serial)
	if !ok {
		return nil, fmt.Errorf("invalid serial number %q: %w", serial, passbook.ErrPassNotFound)
	}

	pass, err := store.GetPass(r.Context(), id)
	if err != nil {
		if errors.Is(err, passbook.ErrPassNotFound) {
			return nil, passbook.NewUnauthorizedError(fmt.Sprintf("pass %d does not exist", id))
		}
		return nil, passbook.WrapInternalError(err, "failed to load pass")
	}

	if err := authorize(pass); err != nil {
		return nil, err
	}
	return pass, nil
}

// headerAuthorizer checks the "Authorization: ApplePass <token>" header used by devices
func headerAuthorizer(r *http.Request) func(*passbook.Pass) error {
	return func(pass *passbook.Pass) error {
		return passbook.AuthorizeRequest(pass, r)
	}
}
