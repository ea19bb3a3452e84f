/*
ledger.go - Sale lifecycle operations with stock invariants

PURPOSE:
  SaleLedger is the only writer of Book.Stock and the exclusive owner of
  the Sale lifecycle. Each operation runs as one atomic transaction:
  either the sale row and the stock change both land, or neither does.

CRITICAL INVARIANTS:
  1. Stock never goes negative, observable before and after every call.
  2. A sale's lifetime effect on stock is exactly one debit of its
     quantity, adjusted by the delta on update, fully reversed on delete.
  3. Validation order on create is fixed: member -> book -> stock, each a
     distinct error and a hard stop.
  4. Totals are recomputed from the CURRENT book price on update, never
     from a price cached in the sale.

STOCK MATH ON UPDATE:
  The net stock delta is old_quantity - new_quantity, applied as a single
  guarded update. Restoring the old reservation and re-applying the new
  one as two writes could transiently imply more stock than exists; the
  single net-delta update cannot.

NEGATIVE TOTALS:
  A discount larger than price*quantity produces a negative total. That is
  accepted and stored as-is.

SEE ALSO:
  - store.go:  Persistence contracts this builds on
  - errors.go: The error kinds operations return
*/
package ledger

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// SALE LEDGER
// =============================================================================

// SaleLedger executes sale operations against a transactional store.
// The store handle is injected; there is no ambient connection state.
type SaleLedger struct {
	store TxStore
}

// New creates a SaleLedger on top of a transactional store.
func New(store TxStore) *SaleLedger {
	return &SaleLedger{store: store}
}

// =============================================================================
// CREATE
// =============================================================================

// CreateSale records a new sale and debits the book's stock atomically.
//
// Validation order (each a hard stop with a distinct error):
//  1. member must exist        -> ErrMemberNotFound
//  2. book must exist          -> ErrBookNotFound
//  3. quantity <= book stock   -> InsufficientStockError
//
// On success the returned Sale carries the assigned id and the computed
// total. On any failure no state change is observable.
func (l *SaleLedger) CreateSale(ctx context.Context, date string, memberID MemberID, bookID BookID, qty int, discount int64) (*Sale, error) {
	if err := validateSaleInput(date, qty, discount); err != nil {
		return nil, err
	}

	var created Sale
	err := l.store.WithTx(ctx, func(s Store) error {
		member, err := s.GetMember(ctx, memberID)
		if err != nil {
			return fmt.Errorf("%w: load member: %v", ErrStorage, err)
		}
		if member == nil {
			return ErrMemberNotFound
		}

		book, err := s.GetBook(ctx, bookID)
		if err != nil {
			return fmt.Errorf("%w: load book: %v", ErrStorage, err)
		}
		if book == nil {
			return ErrBookNotFound
		}

		if qty > book.Stock {
			return &InsufficientStockError{BookID: bookID, Available: book.Stock, Requested: qty}
		}

		sale := Sale{
			Date:     date,
			MemberID: memberID,
			BookID:   bookID,
			Quantity: qty,
			Discount: intAmount(discount),
			Total:    SaleTotal(book.Price, qty, intAmount(discount)),
		}

		id, err := s.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("%w: insert sale: %v", ErrStorage, err)
		}
		sale.ID = id

		// The guard in AdjustStock is the last line of defense against a
		// racing writer; the check above already passed.
		if err := s.AdjustStock(ctx, bookID, -qty); err != nil {
			return err
		}

		created = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// UpdateSale changes a sale's quantity and discount. Stock moves by the
// net delta old_quantity - new_quantity in a single guarded update, and
// the total is recomputed from the book's current price. Atomic.
func (l *SaleLedger) UpdateSale(ctx context.Context, id SaleID, newQty int, newDiscount int64) error {
	if err := validateQuantity(newQty); err != nil {
		return err
	}
	if err := validateDiscount(newDiscount); err != nil {
		return err
	}

	return l.store.WithTx(ctx, func(s Store) error {
		sale, err := s.GetSale(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: load sale: %v", ErrStorage, err)
		}
		if sale == nil {
			return ErrSaleNotFound
		}

		book, err := s.GetBook(ctx, sale.BookID)
		if err != nil {
			return fmt.Errorf("%w: load book: %v", ErrStorage, err)
		}
		if book == nil {
			return ErrBookNotFound
		}

		// Units available to THIS sale: current stock plus its own
		// reservation, which the update releases.
		oldQty := sale.Quantity
		if newQty > oldQty+book.Stock {
			return &InsufficientStockError{
				BookID:    sale.BookID,
				Available: oldQty + book.Stock,
				Requested: newQty,
			}
		}

		sale.Quantity = newQty
		sale.Discount = intAmount(newDiscount)
		sale.Total = SaleTotal(book.Price, newQty, intAmount(newDiscount))

		if err := s.UpdateSale(ctx, *sale); err != nil {
			return fmt.Errorf("%w: update sale: %v", ErrStorage, err)
		}

		// Net delta, one guarded statement. Never two unconditional writes
		// that could transiently imply more stock than exists.
		if delta := oldQty - newQty; delta != 0 {
			return s.AdjustStock(ctx, sale.BookID, delta)
		}
		return nil
	})
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteSale removes a sale and restores the book's stock by the sale's
// quantity, atomically. A missing id is ErrSaleNotFound, not a no-op.
func (l *SaleLedger) DeleteSale(ctx context.Context, id SaleID) error {
	return l.store.WithTx(ctx, func(s Store) error {
		sale, err := s.GetSale(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: load sale: %v", ErrStorage, err)
		}
		if sale == nil {
			return ErrSaleNotFound
		}

		if err := s.AdjustStock(ctx, sale.BookID, sale.Quantity); err != nil {
			return err
		}
		return s.DeleteSale(ctx, id)
	})
}

// =============================================================================
// READ CONTRACT
// =============================================================================

// ListSales returns the report rows: sales joined with member names and
// book titles, ordered by date ascending, sale id as tie-break. Read-only,
// derived from current state on every call.
func (l *SaleLedger) ListSales(ctx context.Context) ([]ReportRow, error) {
	return l.store.ListSaleRows(ctx)
}

// GetSale returns a single sale, or ErrSaleNotFound.
func (l *SaleLedger) GetSale(ctx context.Context, id SaleID) (*Sale, error) {
	sale, err := l.store.GetSale(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load sale: %v", ErrStorage, err)
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}
	return sale, nil
}

// GetMember returns a catalog member, or ErrMemberNotFound.
func (l *SaleLedger) GetMember(ctx context.Context, id MemberID) (*Member, error) {
	member, err := l.store.GetMember(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load member: %v", ErrStorage, err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// GetBook returns a catalog book, or ErrBookNotFound.
func (l *SaleLedger) GetBook(ctx context.Context, id BookID) (*Book, error) {
	book, err := l.store.GetBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load book: %v", ErrStorage, err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	return book, nil
}

// ListMembers returns the member catalog.
func (l *SaleLedger) ListMembers(ctx context.Context) ([]Member, error) {
	return l.store.ListMembers(ctx)
}

// ListBooks returns the book catalog.
func (l *SaleLedger) ListBooks(ctx context.Context) ([]Book, error) {
	return l.store.ListBooks(ctx)
}

// =============================================================================
// VALIDATION - pure functions; re-prompt loops live in the CLI, not here
// =============================================================================

func validateSaleInput(date string, qty int, discount int64) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if err := validateQuantity(qty); err != nil {
		return err
	}
	return validateDiscount(discount)
}

func validateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return &InvalidInputError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return nil
}

func validateQuantity(qty int) error {
	if qty <= 0 {
		return &InvalidInputError{Field: "quantity", Reason: "must be a positive integer"}
	}
	return nil
}

func validateDiscount(discount int64) error {
	if discount < 0 {
		return &InvalidInputError{Field: "discount", Reason: "must not be negative"}
	}
	return nil
}
