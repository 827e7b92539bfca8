package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/transcript-redactor/internal/handlers"
	"github.com/BerylCAtieno/transcript-redactor/internal/middleware"
	"github.com/BerylCAtieno/transcript-redactor/internal/services"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

func NewRouter(service services.RedactionService, maxFileSize int64, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	redactionHandler := handlers.NewRedactionHandler(service, maxFileSize, logger)
	policyHandler := handlers.NewPolicyHandler(service, logger)

	// Routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	api.HandleFunc("/ready", policyHandler.Ready).Methods(http.MethodGet)

	// Catalog endpoints
	api.HandleFunc("/entities", policyHandler.ListEntities).Methods(http.MethodGet)
	api.HandleFunc("/policies", policyHandler.ListPolicies).Methods(http.MethodGet)
	api.HandleFunc("/policies/{name}", policyHandler.GetPolicy).Methods(http.MethodGet)

	// Redaction endpoints
	api.HandleFunc("/tables/columns", redactionHandler.InspectTable).Methods(http.MethodPost)
	api.HandleFunc("/redact/text", redactionHandler.RedactText).Methods(http.MethodPost)
	api.HandleFunc("/redact/table", redactionHandler.RedactTable).Methods(http.MethodPost)
	api.HandleFunc("/artifacts/{id}/{name}", redactionHandler.GetArtifact).Methods(http.MethodGet)

	// CORS wraps the router so preflight requests never reach route matching
	return middleware.CORS()(r)
}
