package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/passbook/internal/passbook"
	"github.com/information-sharing-networks/passbook/internal/services"
)

// Dependencies are the engine components used by the handlers
type Dependencies struct {
	Service  *passbook.Service
	Detector *passbook.ChangeDetector
	Builder  *passbook.ArchiveBuilder
	LogSink  services.LogSink

	// PublicBaseURL is where the web service root redirects to
	PublicBaseURL string
}

// Routes returns a function that registers the web service routes on a router mounted at /passbook
func Routes(deps Dependencies) func(r chi.Router) {
	store := deps.Service.Store()

	download := NewDownloadHandler(store, deps.Builder)
	latest := NewLatestVersionHandler(store, deps.Builder)
	registration := NewRegistrationHandler(deps.Service)
	serials := NewSerialNumbersHandler(deps.Detector)
	deviceLogs := NewLogHandler(deps.LogSink)

	return func(r chi.Router) {
		r.Get("/", HandleWebServiceRoot(deps.PublicBaseURL))

		r.Get("/{passID}", download.HandleDownload)
		r.Post("/{passID}", download.HandleDownload)

		r.Get("/{version}/passes/{passTypeIdentifier}/{passID}", latest.HandleLatestVersion)

		r.Post("/{version}/devices/{device}/registrations/{passTypeIdentifier}/{passID}", registration.HandleRegistration)
		r.Delete("/{version}/devices/{device}/registrations/{passTypeIdentifier}/{passID}", registration.HandleRegistration)
		r.Get("/{version}/devices/{device}/registrations/{passTypeIdentifier}", serials.HandleSerialNumbers)

		r.Post("/{version}/log", deviceLogs.HandleLog)
	}
}
