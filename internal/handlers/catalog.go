package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/services/extras"
	"github.com/kwabenadev/chopdesk/internal/storage"
)

// ListBranches returns the branches visible to the operator
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.client.ListBranches(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "failed to load branches")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"branches": branches,
		"selected": h.selectedBranch(),
	})
}

type selectBranchRequest struct {
	BranchID string `json:"branch_id"`
}

// SelectBranch persists the operator's working branch
func (h *Handler) SelectBranch(w http.ResponseWriter, r *http.Request) {
	var req selectBranchRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	if req.BranchID == "" {
		h.writeError(w, http.StatusBadRequest, "branch_id required")
		return
	}
	if err := h.store.Set(storage.KeySelectedBranch, []byte(req.BranchID)); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to persist branch selection")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"selected": req.BranchID})
}

// ListInventory returns the selected branch's catalog
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	branchID := h.selectedBranch()
	if branchID == "" {
		h.writeError(w, http.StatusConflict, "select a branch first")
		return
	}
	items, err := h.client.ListInventory(r.Context(), branchID)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "failed to load inventory")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// ListExtrasGroups returns the selected branch's extras groups
func (h *Handler) ListExtrasGroups(w http.ResponseWriter, r *http.Request) {
	branchID := h.selectedBranch()
	if branchID == "" {
		h.writeError(w, http.StatusConflict, "select a branch first")
		return
	}
	groups, err := h.client.ListExtrasGroups(r.Context(), branchID)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "failed to load extras groups")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

// CreateExtrasGroup adds an extras group to the selected branch
func (h *Handler) CreateExtrasGroup(w http.ResponseWriter, r *http.Request) {
	branchID := h.selectedBranch()
	if branchID == "" {
		h.writeError(w, http.StatusConflict, "select a branch first")
		return
	}
	var group models.ExtrasGroup
	if !h.readJSON(w, r, &group) {
		return
	}
	created, err := h.client.CreateExtrasGroup(r.Context(), branchID, group)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "failed to create extras group")
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// UpdateExtrasGroup replaces an extras group definition
func (h *Handler) UpdateExtrasGroup(w http.ResponseWriter, r *http.Request) {
	branchID := h.selectedBranch()
	if branchID == "" {
		h.writeError(w, http.StatusConflict, "select a branch first")
		return
	}
	var group models.ExtrasGroup
	if !h.readJSON(w, r, &group) {
		return
	}
	group.ID = chi.URLParam(r, "id")
	if err := h.client.UpdateExtrasGroup(r.Context(), branchID, group); err != nil {
		h.writeError(w, http.StatusBadGateway, "failed to update extras group")
		return
	}
	h.writeJSON(w, http.StatusOK, group)
}

// DeleteExtrasGroup removes an extras group
func (h *Handler) DeleteExtrasGroup(w http.ResponseWriter, r *http.Request) {
	branchID := h.selectedBranch()
	if branchID == "" {
		h.writeError(w, http.StatusConflict, "select a branch first")
		return
	}
	if err := h.client.DeleteExtrasGroup(r.Context(), branchID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, http.StatusBadGateway, "failed to delete extras group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type validateExtrasRequest struct {
	Groups     []models.ExtrasGroup             `json:"groups"`
	Selections map[string][]models.ExtrasOption `json:"selections"`
}

// ValidateExtras checks selections against their group constraints and
// returns a per-group error map for inline display.
func (h *Handler) ValidateExtras(w http.ResponseWriter, r *http.Request) {
	var req validateExtrasRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	errs := extras.ValidateAll(req.Groups, req.Selections)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}
