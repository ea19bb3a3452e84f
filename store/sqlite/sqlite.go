/*
Package sqlite provides a SQLite-backed implementation of the storage
contracts.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  member: Catalog identities (immutable from the ledger's point of view)
  book:   Catalog records; bstock carries a CHECK (bstock >= 0) as the
          last line of defense for the stock invariant
  sale:   Ledger-owned rows; sid is AUTOINCREMENT so ids are
          monotonically increasing and never reused

STOCK GUARD:
  AdjustStock is a single UPDATE with the guard in the WHERE clause:

    UPDATE book SET bstock = bstock + ? WHERE bid = ? AND bstock + ? >= 0

  Zero rows affected means either the book is missing or the adjustment
  would go negative; the follow-up read distinguishes the two. There is
  no read-modify-write window.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety within the process, and WAL mode so
  readers don't block. A busy/locked database surfaces as
  ledger.ErrStockConflict so callers can retry instead of corrupting
  stock.

MIGRATION & SEED:
  Schema is auto-migrated on New(). Seed() inserts the fixed sample
  catalog and sales only where rows are absent (INSERT OR IGNORE), so it
  is safe to call on every startup.

SEE ALSO:
  - ledger/store.go: Contract definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/bookledger/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each pooled connection to ":memory:" would get its own empty
	// database, so pin the pool to a single connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS member (
		mid TEXT PRIMARY KEY,
		mname TEXT NOT NULL,
		mphone TEXT NOT NULL,
		memail TEXT
	);

	CREATE TABLE IF NOT EXISTS book (
		bid TEXT PRIMARY KEY,
		btitle TEXT NOT NULL,
		bprice INTEGER NOT NULL CHECK (bprice >= 0),
		bstock INTEGER NOT NULL CHECK (bstock >= 0)
	);

	-- sid is AUTOINCREMENT: ids are monotonic and never reused, so a
	-- deleted sale's id cannot come back.
	CREATE TABLE IF NOT EXISTS sale (
		sid INTEGER PRIMARY KEY AUTOINCREMENT,
		sdate TEXT NOT NULL,
		mid TEXT NOT NULL REFERENCES member(mid),
		bid TEXT NOT NULL REFERENCES book(bid),
		sqty INTEGER NOT NULL CHECK (sqty > 0),
		sdiscount INTEGER NOT NULL CHECK (sdiscount >= 0),
		stotal INTEGER NOT NULL
	);

	-- Report ordering (hot path): date ascending, sid tie-break.
	CREATE INDEX IF NOT EXISTS idx_sale_date ON sale(sdate, sid);
	CREATE INDEX IF NOT EXISTS idx_sale_member ON sale(mid);
	CREATE INDEX IF NOT EXISTS idx_sale_book ON sale(bid);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Seed inserts the fixed sample members, books, and sales where absent.
// The seeded sales deliberately do not retro-debit stock; the sample
// stock counts are taken as the current truth.
func (s *Store) Seed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed := `
	INSERT OR IGNORE INTO member VALUES ('M001', 'Alice', '0912-345678', 'alice@example.com');
	INSERT OR IGNORE INTO member VALUES ('M002', 'Bob', '0923-456789', 'bob@example.com');
	INSERT OR IGNORE INTO member VALUES ('M003', 'Cathy', '0934-567890', 'cathy@example.com');

	INSERT OR IGNORE INTO book VALUES ('B001', 'Python Programming', 600, 50);
	INSERT OR IGNORE INTO book VALUES ('B002', 'Data Science Basics', 800, 30);
	INSERT OR IGNORE INTO book VALUES ('B003', 'Machine Learning Guide', 1200, 20);

	INSERT OR IGNORE INTO sale (sid, sdate, mid, bid, sqty, sdiscount, stotal) VALUES (1, '2024-01-15', 'M001', 'B001', 2, 100, 1100);
	INSERT OR IGNORE INTO sale (sid, sdate, mid, bid, sqty, sdiscount, stotal) VALUES (2, '2024-01-16', 'M002', 'B002', 1, 50, 750);
	INSERT OR IGNORE INTO sale (sid, sdate, mid, bid, sqty, sdiscount, stotal) VALUES (3, '2024-01-17', 'M001', 'B003', 3, 200, 3400);
	INSERT OR IGNORE INTO sale (sid, sdate, mid, bid, sqty, sdiscount, stotal) VALUES (4, '2024-01-18', 'M003', 'B001', 1, 0, 600);
	`

	_, err := s.db.ExecContext(ctx, seed)
	return err
}

// =============================================================================
// QUERYABLE - shared by the live connection and an open transaction
// =============================================================================

type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CATALOG READS
// =============================================================================

// GetMember returns a member, or nil if absent.
func (s *Store) GetMember(ctx context.Context, id ledger.MemberID) (*ledger.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getMember(ctx, s.db, id)
}

func getMember(ctx context.Context, q queryable, id ledger.MemberID) (*ledger.Member, error) {
	var m ledger.Member
	var email sql.NullString

	err := q.QueryRowContext(ctx,
		"SELECT mid, mname, mphone, memail FROM member WHERE mid = ?", string(id),
	).Scan(&m.ID, &m.Name, &m.Phone, &email)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Email = email.String
	return &m, nil
}

// ListMembers returns all members ordered by id.
func (s *Store) ListMembers(ctx context.Context) ([]ledger.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMembers(ctx, s.db)
}

func listMembers(ctx context.Context, q queryable) ([]ledger.Member, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT mid, mname, mphone, memail FROM member ORDER BY mid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []ledger.Member
	for rows.Next() {
		var m ledger.Member
		var email sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.Phone, &email); err != nil {
			return nil, err
		}
		m.Email = email.String
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetBook returns a book with current price and stock, or nil.
func (s *Store) GetBook(ctx context.Context, id ledger.BookID) (*ledger.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBook(ctx, s.db, id)
}

func getBook(ctx context.Context, q queryable, id ledger.BookID) (*ledger.Book, error) {
	var b ledger.Book
	var price int64

	err := q.QueryRowContext(ctx,
		"SELECT bid, btitle, bprice, bstock FROM book WHERE bid = ?", string(id),
	).Scan(&b.ID, &b.Title, &price, &b.Stock)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.Price = decimal.NewFromInt(price)
	return &b, nil
}

// ListBooks returns all books ordered by id.
func (s *Store) ListBooks(ctx context.Context) ([]ledger.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBooks(ctx, s.db)
}

func listBooks(ctx context.Context, q queryable) ([]ledger.Book, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT bid, btitle, bprice, bstock FROM book ORDER BY bid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []ledger.Book
	for rows.Next() {
		var b ledger.Book
		var price int64
		if err := rows.Scan(&b.ID, &b.Title, &price, &b.Stock); err != nil {
			return nil, err
		}
		b.Price = decimal.NewFromInt(price)
		books = append(books, b)
	}
	return books, rows.Err()
}

// =============================================================================
// STOCK
// =============================================================================

// AdjustStock applies a net delta to a book's stock in one guarded
// statement.
func (s *Store) AdjustStock(ctx context.Context, id ledger.BookID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustStock(ctx, s.db, id, delta)
}

func adjustStock(ctx context.Context, q queryable, id ledger.BookID, delta int) error {
	res, err := q.ExecContext(ctx,
		"UPDATE book SET bstock = bstock + ? WHERE bid = ? AND bstock + ? >= 0",
		delta, string(id), delta)
	if err != nil {
		if isBusyError(err) {
			return ledger.ErrStockConflict
		}
		if isCheckConstraintError(err) {
			// CHECK fired under a racing writer; report as insufficient.
			return &ledger.InsufficientStockError{BookID: id, Requested: -delta}
		}
		return fmt.Errorf("failed to adjust stock: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if n > 0 {
		return nil
	}

	// No row changed: book missing, or the guard rejected the delta.
	book, err := getBook(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if book == nil {
		return ledger.ErrBookNotFound
	}
	return &ledger.InsufficientStockError{BookID: id, Available: book.Stock, Requested: -delta}
}

// =============================================================================
// SALES
// =============================================================================

// InsertSale persists a new sale and returns its assigned id.
func (s *Store) InsertSale(ctx context.Context, sale ledger.Sale) (ledger.SaleID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertSale(ctx, s.db, sale)
}

func insertSale(ctx context.Context, q queryable, sale ledger.Sale) (ledger.SaleID, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO sale (sdate, mid, bid, sqty, sdiscount, stotal)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sale.Date, string(sale.MemberID), string(sale.BookID),
		sale.Quantity, sale.Discount.IntPart(), sale.Total.IntPart())
	if err != nil {
		if isBusyError(err) {
			return 0, ledger.ErrStockConflict
		}
		return 0, fmt.Errorf("failed to insert sale: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read sale id: %w", err)
	}
	return ledger.SaleID(id), nil
}

// GetSale returns a sale, or nil if absent.
func (s *Store) GetSale(ctx context.Context, id ledger.SaleID) (*ledger.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSale(ctx, s.db, id)
}

func getSale(ctx context.Context, q queryable, id ledger.SaleID) (*ledger.Sale, error) {
	var sale ledger.Sale
	var discount, total int64

	err := q.QueryRowContext(ctx, `
		SELECT sid, sdate, mid, bid, sqty, sdiscount, stotal
		FROM sale WHERE sid = ?`, int64(id),
	).Scan(&sale.ID, &sale.Date, &sale.MemberID, &sale.BookID,
		&sale.Quantity, &discount, &total)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sale.Discount = decimal.NewFromInt(discount)
	sale.Total = decimal.NewFromInt(total)
	return &sale, nil
}

// UpdateSale rewrites quantity, discount, and total of an existing sale.
func (s *Store) UpdateSale(ctx context.Context, sale ledger.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateSale(ctx, s.db, sale)
}

func updateSale(ctx context.Context, q queryable, sale ledger.Sale) error {
	res, err := q.ExecContext(ctx, `
		UPDATE sale SET sqty = ?, sdiscount = ?, stotal = ?
		WHERE sid = ?`,
		sale.Quantity, sale.Discount.IntPart(), sale.Total.IntPart(), int64(sale.ID))
	if err != nil {
		if isBusyError(err) {
			return ledger.ErrStockConflict
		}
		return fmt.Errorf("failed to update sale: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update sale: %w", err)
	}
	if n == 0 {
		return ledger.ErrSaleNotFound
	}
	return nil
}

// DeleteSale removes a sale row.
func (s *Store) DeleteSale(ctx context.Context, id ledger.SaleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteSale(ctx, s.db, id)
}

func deleteSale(ctx context.Context, q queryable, id ledger.SaleID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM sale WHERE sid = ?", int64(id))
	if err != nil {
		if isBusyError(err) {
			return ledger.ErrStockConflict
		}
		return fmt.Errorf("failed to delete sale: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	if n == 0 {
		return ledger.ErrSaleNotFound
	}
	return nil
}

// ListSaleRows returns the report join ordered by date, sale id.
func (s *Store) ListSaleRows(ctx context.Context) ([]ledger.ReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listSaleRows(ctx, s.db)
}

func listSaleRows(ctx context.Context, q queryable) ([]ledger.ReportRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT s.sid, s.sdate, m.mname, b.btitle, s.sqty, s.sdiscount, s.stotal
		FROM sale s
		JOIN member m ON s.mid = m.mid
		JOIN book b ON s.bid = b.bid
		ORDER BY s.sdate ASC, s.sid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []ledger.ReportRow
	for rows.Next() {
		var r ledger.ReportRow
		var discount, total int64
		if err := rows.Scan(&r.SaleID, &r.Date, &r.MemberName, &r.BookTitle,
			&r.Quantity, &discount, &total); err != nil {
			return nil, err
		}
		r.Discount = decimal.NewFromInt(discount)
		r.Total = decimal.NewFromInt(total)
		report = append(report, r)
	}
	return report, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. If fn returns
// an error the transaction is rolled back and no state change is
// observable.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if isBusyError(err) {
			return ledger.ErrStockConflict
		}
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		if isBusyError(err) {
			return ledger.ErrStockConflict
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txStore routes every operation through the open transaction so reads
// inside WithTx observe the transaction's own writes.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetMember(ctx context.Context, id ledger.MemberID) (*ledger.Member, error) {
	return getMember(ctx, ts.tx, id)
}

func (ts *txStore) ListMembers(ctx context.Context) ([]ledger.Member, error) {
	return listMembers(ctx, ts.tx)
}

func (ts *txStore) GetBook(ctx context.Context, id ledger.BookID) (*ledger.Book, error) {
	return getBook(ctx, ts.tx, id)
}

func (ts *txStore) ListBooks(ctx context.Context) ([]ledger.Book, error) {
	return listBooks(ctx, ts.tx)
}

func (ts *txStore) AdjustStock(ctx context.Context, id ledger.BookID, delta int) error {
	return adjustStock(ctx, ts.tx, id, delta)
}

func (ts *txStore) InsertSale(ctx context.Context, sale ledger.Sale) (ledger.SaleID, error) {
	return insertSale(ctx, ts.tx, sale)
}

func (ts *txStore) GetSale(ctx context.Context, id ledger.SaleID) (*ledger.Sale, error) {
	return getSale(ctx, ts.tx, id)
}

func (ts *txStore) UpdateSale(ctx context.Context, sale ledger.Sale) error {
	return updateSale(ctx, ts.tx, sale)
}

func (ts *txStore) DeleteSale(ctx context.Context, id ledger.SaleID) error {
	return deleteSale(ctx, ts.tx, id)
}

func (ts *txStore) ListSaleRows(ctx context.Context) ([]ledger.ReportRow, error) {
	return listSaleRows(ctx, ts.tx)
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func isCheckConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}
