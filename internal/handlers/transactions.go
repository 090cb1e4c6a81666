package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campusmint/backend/internal/apperr"
	"github.com/campusmint/backend/internal/middleware"
	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/store"
)

// TransactionHandler exposes the confirmed-movement history and the
// project-initiated payout.
type TransactionHandler struct {
	transactions TransactionAPI
	log          zerolog.Logger
}

func NewTransactionHandler(transactions TransactionAPI, log zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, log: log}
}

// TransferRequest is the project-side payout payload.
type TransferRequest struct {
	UserID      string `json:"userId" validate:"required,uuid"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=500"`
}

type transactionPageResponse struct {
	Items      []models.Transaction `json:"items"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

// MountUserRoutes registers the user-facing history routes.
func (h *TransactionHandler) MountUserRoutes(r chi.Router) {
	r.Get("/transactions", h.listUserTransactions)
	r.Get("/transactions/{transactionID}", h.getTransaction)
}

// MountProjectRoutes registers the project-facing routes.
func (h *TransactionHandler) MountProjectRoutes(r chi.Router) {
	r.Post("/transfers", h.transfer)
	r.Get("/transactions", h.listProjectTransactions)
}

func (h *TransactionHandler) transfer(w http.ResponseWriter, r *http.Request) {
	projectID, ok := middleware.ProjectID(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthorized("api key required"))
		return
	}

	var req TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, h.log, apperr.BadRequest("invalid user id"))
		return
	}

	tx, err := h.transactions.Transfer(r.Context(), projectID, userID, req.Amount, req.Description)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *TransactionHandler) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "transactionID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	tx, err := h.transactions.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) listUserTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthorized("authentication required"))
		return
	}

	query, err := transactionQueryFrom(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	page, err := h.transactions.ListUserTransactions(r.Context(), userID, query)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionPageResponse{Items: page.Items, NextCursor: page.NextCursor})
}

func (h *TransactionHandler) listProjectTransactions(w http.ResponseWriter, r *http.Request) {
	projectID, ok := middleware.ProjectID(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthorized("api key required"))
		return
	}

	query, err := transactionQueryFrom(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	page, err := h.transactions.ListProjectTransactions(r.Context(), projectID, query)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionPageResponse{Items: page.Items, NextCursor: page.NextCursor})
}

func transactionQueryFrom(r *http.Request) (store.TransactionQuery, error) {
	query := store.TransactionQuery{
		Limit:  queryLimit(r),
		Cursor: r.URL.Query().Get("cursor"),
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return store.TransactionQuery{}, apperr.BadRequest("since must be RFC 3339")
		}
		query.Since = since
	}
	return query, nil
}
