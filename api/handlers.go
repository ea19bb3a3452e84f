/*
handlers.go - HTTP handlers for the sale ledger

PURPOSE:
  Exposes the sale ledger via REST. Handles HTTP request/response and JSON
  serialization, delegates every decision to the ledger.

ENDPOINTS:
  Catalog (read-only):
    GET    /api/members       List members
    GET    /api/members/{id}  Get one member
    GET    /api/books         List books with live stock
    GET    /api/books/{id}    Get one book

  Sales:
    POST   /api/sales         Record a sale (debits stock)
    GET    /api/sales         Sales report (joined, date-ordered)
    GET    /api/sales/{id}    Get one sale
    PUT    /api/sales/{id}    Change quantity/discount (net stock delta)
    DELETE /api/sales/{id}    Delete sale (restores stock)

ERROR HANDLING:
  The ledger returns error kinds; this layer maps them to HTTP status and
  renders the message:
  - 400: invalid input
  - 404: member/book/sale not found
  - 409: insufficient stock, concurrent stock conflict
  - 500: storage errors (already rolled back)

SEE ALSO:
  - dto.go: Wire types
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/bookledger/ledger"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *ledger.SaleLedger
}

// NewHandler creates a handler around the sale ledger.
func NewHandler(l *ledger.SaleLedger) *Handler {
	return &Handler{Ledger: l}
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListMembers returns all members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Ledger.ListMembers(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMember returns a single member.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id := ledger.MemberID(chi.URLParam(r, "id"))

	member, err := h.Ledger.GetMember(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(*member))
}

// ListBooks returns all books with live stock counts.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.Ledger.ListBooks(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	dtos := make([]BookDTO, len(books))
	for i, b := range books {
		dtos[i] = toBookDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBook returns a single book.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id := ledger.BookID(chi.URLParam(r, "id"))

	book, err := h.Ledger.GetBook(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookDTO(*book))
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// CreateSale records a sale and debits stock atomically.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	sale, err := h.Ledger.CreateSale(r.Context(), req.Date,
		ledger.MemberID(req.MemberID), ledger.BookID(req.BookID),
		req.Quantity, req.Discount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(*sale))
}

// ListSales returns the sales report.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Ledger.ListSales(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportRowDTOs(rows))
}

// GetSale returns a single sale.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := saleIDParam(w, r)
	if !ok {
		return
	}

	sale, err := h.Ledger.GetSale(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(*sale))
}

// UpdateSale changes a sale's quantity and discount.
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := saleIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.Ledger.UpdateSale(r.Context(), id, req.Quantity, req.Discount); err != nil {
		writeLedgerError(w, err)
		return
	}

	sale, err := h.Ledger.GetSale(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(*sale))
}

// DeleteSale removes a sale and restores its stock.
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := saleIDParam(w, r)
	if !ok {
		return
	}

	if err := h.Ledger.DeleteSale(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": int64(id)})
}

func saleIDParam(w http.ResponseWriter, r *http.Request) (ledger.SaleID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "sale id must be an integer", err)
		return 0, false
	}
	return ledger.SaleID(id), true
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// writeLedgerError maps ledger error kinds to HTTP responses. The ledger
// carries kind + data; the message rendering happens here.
func writeLedgerError(w http.ResponseWriter, err error) {
	var stockErr *ledger.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: stockErr.Error(),
			Code:  "insufficient_stock",
			Details: map[string]any{
				"book_id":   string(stockErr.BookID),
				"available": stockErr.Available,
				"requested": stockErr.Requested,
			},
		})
	case errors.Is(err, ledger.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_input"})
	case errors.Is(err, ledger.ErrMemberNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "member_not_found"})
	case errors.Is(err, ledger.ErrBookNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "book_not_found"})
	case errors.Is(err, ledger.ErrSaleNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "sale_not_found"})
	case errors.Is(err, ledger.ErrStockConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "stock_conflict"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "storage_error", Details: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
