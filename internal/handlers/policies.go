package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/transcript-redactor/internal/services"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

type PolicyHandler struct {
	base
	service services.RedactionService
}

func NewPolicyHandler(service services.RedactionService, logger *utils.Logger) *PolicyHandler {
	return &PolicyHandler{
		base:    base{logger: logger},
		service: service,
	}
}

func (h *PolicyHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	presets, err := h.service.ListPresets(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, presets)
}

func (h *PolicyHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" {
		h.respondError(w, utils.NewBadRequestError("Policy name is required"))
		return
	}

	preset, err := h.service.GetPreset(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, preset)
}

func (h *PolicyHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.SupportedEntities(r.Context(), r.URL.Query().Get("language"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *PolicyHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
