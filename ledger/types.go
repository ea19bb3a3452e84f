/*
Package ledger provides the core sale-transaction engine.

PURPOSE:
  This package owns the sale lifecycle for a retail point-of-sale flow:
  members buy books, every sale debits stock, and every later change to a
  sale (update, delete) adjusts stock so the sale's lifetime effect is
  fully reversible.

KEY CONCEPTS IN THIS FILE (types.go):
  - Member:    Catalog identity, immutable from the ledger's point of view
  - Book:      Catalog record; Stock is the only field the ledger mutates
  - Sale:      The ledger-owned record linking a member, a book, and a
               quantity/discount/total
  - ReportRow: Read-only projection row joining sale, member, and book

DESIGN PRINCIPLES:
  1. Precision: money uses decimal.Decimal, never float
  2. Type safety: MemberID/BookID/SaleID cannot be mixed up
  3. Single writer: only SaleLedger ever touches Book.Stock
  4. Derived totals: Total is always price*qty - discount, recomputed from
     the current book price on update

SEE ALSO:
  - ledger.go: The operations (create/update/delete/list)
  - store.go:  Persistence contracts
  - errors.go: Error taxonomy
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MemberID string
type BookID string

// SaleID is system-assigned, monotonically increasing, unique.
type SaleID int64

// =============================================================================
// CATALOG RECORDS
// =============================================================================

// Member is a catalog identity. Created at bootstrap; the ledger never
// mutates or deletes members.
type Member struct {
	ID    MemberID
	Name  string
	Phone string
	Email string // optional
}

// Book is a catalog record. Stock is the only field the ledger writes,
// and it must never be observed below zero.
type Book struct {
	ID    BookID
	Title string
	Price decimal.Decimal // unit price, non-negative integer value
	Stock int             // on-hand quantity, >= 0
}

// =============================================================================
// SALE - The ledger-owned record
// =============================================================================

// Sale records one purchase. Its lifetime effect on Book.Stock is exactly
// one debit of Quantity at creation, adjusted by the delta on update, and
// fully reversed at deletion.
type Sale struct {
	ID       SaleID
	Date     string // calendar date, YYYY-MM-DD
	MemberID MemberID
	BookID   BookID
	Quantity int             // > 0
	Discount decimal.Decimal // >= 0, integer value
	Total    decimal.Decimal // price*quantity - discount; may be negative
}

// SaleTotal computes price*qty - discount. Discount may exceed the gross
// amount; the result is stored as-is, not clamped.
func SaleTotal(price decimal.Decimal, qty int, discount decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Sub(discount)
}

func intAmount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// =============================================================================
// REPORT ROW - Read-only projection
// =============================================================================

// ReportRow is one line of the sales report: the sale joined with the
// member's name and the book's title. Purely derived, never cached.
type ReportRow struct {
	SaleID     SaleID
	Date       string
	MemberName string
	BookTitle  string
	Quantity   int
	Discount   decimal.Decimal
	Total      decimal.Decimal
}
