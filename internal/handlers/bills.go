package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campusmint/backend/internal/apperr"
	"github.com/campusmint/backend/internal/middleware"
	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/store"
)

// BillHandler exposes the bill lifecycle over HTTP. The user-facing routes
// act on behalf of the bearer-token holder; the project routes on behalf of
// the API-key holder.
type BillHandler struct {
	bills BillAPI
	log   zerolog.Logger
}

func NewBillHandler(bills BillAPI, log zerolog.Logger) *BillHandler {
	return &BillHandler{bills: bills, log: log}
}

// CreateBillRequest is the project-side issue payload.
type CreateBillRequest struct {
	UserID      string `json:"userId" validate:"required,uuid"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=500"`
}

type billPageResponse struct {
	Items      []models.Bill `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// MountUserRoutes registers the routes acting as the authenticated user.
func (h *BillHandler) MountUserRoutes(r chi.Router) {
	r.Get("/bills", h.listUserBills)
	r.Get("/bills/{billID}", h.getBillAsUser)
	r.Post("/bills/{billID}/approve", h.approveBill)
	r.Post("/bills/{billID}/decline", h.declineBill)
}

// MountProjectRoutes registers the routes acting as the authenticated
// project.
func (h *BillHandler) MountProjectRoutes(r chi.Router) {
	r.Post("/bills", h.createBill)
	r.Get("/bills", h.listProjectBills)
	r.Get("/bills/{billID}", h.getBillAsProject)
	r.Post("/bills/{billID}/cancel", h.cancelBill)
}

func (h *BillHandler) createBill(w http.ResponseWriter, r *http.Request) {
	projectID, ok := middleware.ProjectID(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthorized("api key required"))
		return
	}

	var req CreateBillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, h.log, apperr.BadRequest("invalid user id"))
		return
	}

	bill, err := h.bills.CreateBill(r.Context(), projectID, userID, req.Amount, req.Description)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (h *BillHandler) listUserBills(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthorized("authentication required"))
		return
	}

	query, err := billQueryFrom(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	page, err := h.bills.ListUserBills(r.Context(), userID, query)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, billPageResponse{Items: page.Items, NextCursor: page.NextCursor})
}

func (h *BillHandler) listProjectBills(w http.ResponseWriter, r *http.Request) {
	projectID, ok := middleware.ProjectID(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthorized("api key required"))
		return
	}

	query, err := billQueryFrom(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	page, err := h.bills.ListProjectBills(r.Context(), projectID, query)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, billPageResponse{Items: page.Items, NextCursor: page.NextCursor})
}

func (h *BillHandler) getBillAsUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthorized("authentication required"))
		return
	}
	billID, err := pathID(r, "billID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	bill, err := h.bills.GetBill(r.Context(), billID, &userID, nil)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) getBillAsProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := middleware.ProjectID(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthorized("api key required"))
		return
	}
	billID, err := pathID(r, "billID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	bill, err := h.bills.GetBill(r.Context(), billID, nil, &projectID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) approveBill(w http.ResponseWriter, r *http.Request) {
	h.userTransition(w, r, h.bills.ApproveBill)
}

func (h *BillHandler) declineBill(w http.ResponseWriter, r *http.Request) {
	h.userTransition(w, r, h.bills.DeclineBill)
}

func (h *BillHandler) userTransition(w http.ResponseWriter, r *http.Request,
	transition func(ctx context.Context, billID, userID uuid.UUID) (models.Bill, error)) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthorized("authentication required"))
		return
	}
	billID, err := pathID(r, "billID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	bill, err := transition(r.Context(), billID, userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) cancelBill(w http.ResponseWriter, r *http.Request) {
	projectID, ok := middleware.ProjectID(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthorized("api key required"))
		return
	}
	billID, err := pathID(r, "billID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	bill, err := h.bills.CancelBill(r.Context(), billID, projectID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func billQueryFrom(r *http.Request) (store.BillQuery, error) {
	query := store.BillQuery{
		Limit:  queryLimit(r),
		Cursor: r.URL.Query().Get("cursor"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseBillStatus(raw)
		if err != nil {
			return store.BillQuery{}, apperr.BadRequest("unknown status %q", raw)
		}
		query.Status = &status
	}
	return query, nil
}

func pathID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, apperr.BadRequest("invalid %s", param)
	}
	return id, nil
}
