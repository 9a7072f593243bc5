package handler

import (
	"log/slog"
	"net/http"

	"github.com/foodshare/pickup-api/internal/service"
)

// OrganizationHandler serves the public NGO directory and admin approval.
type OrganizationHandler struct {
	orgs   *service.OrganizationService
	logger *slog.Logger
}

func NewOrganizationHandler(orgs *service.OrganizationService, logger *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, logger: logger}
}

// HandleList: GET /api/ngos (public)
func (h *OrganizationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

// HandleGet: GET /api/ngos/{id} (public)
func (h *OrganizationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessageError(w, "Invalid NGO ID")
		return
	}

	org, err := h.orgs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// HandleApprove marks an organization approved. Admin only; approving an
// already approved organization returns it unchanged.
//
// HTTP: POST /api/admin/approve-ngo/{id}
func (h *OrganizationHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessageError(w, "Invalid NGO ID")
		return
	}

	org, err := h.orgs.Approve(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}
