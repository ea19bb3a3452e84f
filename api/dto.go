/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model from
  the wire contract. Money fields travel as plain integers, matching the
  ledger's integer price/discount/total semantics.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
*/
package api

import "github.com/warp/bookledger/ledger"

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// MemberDTO represents a catalog member.
type MemberDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// BookDTO represents a catalog book with live stock.
type BookDTO struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
}

// SaleDTO represents a sale row.
type SaleDTO struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	MemberID string `json:"member_id"`
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
	Discount int64  `json:"discount"`
	Total    int64  `json:"total"`
}

// CreateSaleRequest is the request to record a sale.
type CreateSaleRequest struct {
	Date     string `json:"date"`
	MemberID string `json:"member_id"`
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
	Discount int64  `json:"discount"`
}

// UpdateSaleRequest changes a sale's quantity and discount.
type UpdateSaleRequest struct {
	Quantity int   `json:"quantity"`
	Discount int64 `json:"discount"`
}

// ReportRowDTO is one line of the sales report.
type ReportRowDTO struct {
	SaleID     int64  `json:"sale_id"`
	Date       string `json:"date"`
	MemberName string `json:"member_name"`
	BookTitle  string `json:"book_title"`
	Quantity   int    `json:"quantity"`
	Discount   int64  `json:"discount"`
	Total      int64  `json:"total"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toMemberDTO(m ledger.Member) MemberDTO {
	return MemberDTO{ID: string(m.ID), Name: m.Name, Phone: m.Phone, Email: m.Email}
}

func toBookDTO(b ledger.Book) BookDTO {
	return BookDTO{ID: string(b.ID), Title: b.Title, Price: b.Price.IntPart(), Stock: b.Stock}
}

func toSaleDTO(s ledger.Sale) SaleDTO {
	return SaleDTO{
		ID:       int64(s.ID),
		Date:     s.Date,
		MemberID: string(s.MemberID),
		BookID:   string(s.BookID),
		Quantity: s.Quantity,
		Discount: s.Discount.IntPart(),
		Total:    s.Total.IntPart(),
	}
}

func toReportRowDTOs(rows []ledger.ReportRow) []ReportRowDTO {
	dtos := make([]ReportRowDTO, len(rows))
	for i, r := range rows {
		dtos[i] = ReportRowDTO{
			SaleID:     int64(r.SaleID),
			Date:       r.Date,
			MemberName: r.MemberName,
			BookTitle:  r.BookTitle,
			Quantity:   r.Quantity,
			Discount:   r.Discount.IntPart(),
			Total:      r.Total.IntPart(),
		}
	}
	return dtos
}
