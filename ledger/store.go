/*
store.go - Persistence contracts for the catalog and the sale ledger

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Catalog reads, sale CRUD, guarded stock adjustment, report query
  TxStore: Store + WithTx for atomic multi-statement operations

STOCK CONTRACT:
  AdjustStock is the ONLY way stock changes, and it is guarded: an
  adjustment that would drive stock below zero fails with
  InsufficientStockError and writes nothing. It is one statement, never a
  read-modify-write pair, so a large negative delta can never transiently
  observe impossible stock.

ATOMICITY:
  Every ledger operation runs inside WithTx. If fn returns an error the
  transaction is rolled back; callers never observe a sale row without its
  stock debit or vice versa.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: The operations built on these contracts
*/
package ledger

import "context"

// =============================================================================
// STORE - Catalog and sale persistence
// =============================================================================

// Store handles persistence of members, books, and sales.
// Lookups return (nil, nil) when the record doesn't exist; translating
// that into a typed not-found error is the ledger's job.
type Store interface {
	// GetMember returns a member, or nil if absent.
	GetMember(ctx context.Context, id MemberID) (*Member, error)

	// ListMembers returns all members ordered by id.
	ListMembers(ctx context.Context) ([]Member, error)

	// GetBook returns a book with its current price and stock, or nil.
	GetBook(ctx context.Context, id BookID) (*Book, error)

	// ListBooks returns all books ordered by id.
	ListBooks(ctx context.Context) ([]Book, error)

	// AdjustStock applies a net delta to a book's stock in one guarded
	// statement. Returns ErrBookNotFound if the book is absent, or
	// InsufficientStockError if the result would be negative.
	AdjustStock(ctx context.Context, id BookID, delta int) error

	// InsertSale persists a new sale and returns its assigned id.
	InsertSale(ctx context.Context, sale Sale) (SaleID, error)

	// GetSale returns a sale, or nil if absent.
	GetSale(ctx context.Context, id SaleID) (*Sale, error)

	// UpdateSale rewrites quantity, discount, and total of an existing sale.
	UpdateSale(ctx context.Context, sale Sale) error

	// DeleteSale removes a sale row. Returns ErrSaleNotFound if absent.
	DeleteSale(ctx context.Context, id SaleID) error

	// ListSaleRows returns the report join, ordered by date ascending with
	// sale id as the stable tie-break.
	ListSaleRows(ctx context.Context) ([]ReportRow, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
//
// WithTx executes fn within a transaction. If fn returns an error, the
// transaction is rolled back and no state change is observable. If fn
// returns nil, the transaction is committed. Conflicting concurrent
// writers are serialized; the loser surfaces ErrStockConflict.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
