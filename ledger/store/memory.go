// Package store provides TxStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/bookledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.TxStore with plain maps. WithTx works on a
// deep copy of the state and swaps it in on success, so a failing
// operation leaves no observable change - same contract as the SQLite
// store's rollback.
type Memory struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	members    map[ledger.MemberID]ledger.Member
	books      map[ledger.BookID]ledger.Book
	sales      map[ledger.SaleID]ledger.Sale
	nextSaleID ledger.SaleID
}

func NewMemory() *Memory {
	return &Memory{
		state: &state{
			members:    make(map[ledger.MemberID]ledger.Member),
			books:      make(map[ledger.BookID]ledger.Book),
			sales:      make(map[ledger.SaleID]ledger.Sale),
			nextSaleID: 1,
		},
	}
}

// AddMember seeds a member. Bootstrap-only; the ledger never writes members.
func (m *Memory) AddMember(member ledger.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.members[member.ID] = member
}

// AddBook seeds a book.
func (m *Memory) AddBook(book ledger.Book) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.books[book.ID] = book
}

func (s *state) clone() *state {
	next := &state{
		members:    make(map[ledger.MemberID]ledger.Member, len(s.members)),
		books:      make(map[ledger.BookID]ledger.Book, len(s.books)),
		sales:      make(map[ledger.SaleID]ledger.Sale, len(s.sales)),
		nextSaleID: s.nextSaleID,
	}
	for k, v := range s.members {
		next.members[k] = v
	}
	for k, v := range s.books {
		next.books[k] = v
	}
	for k, v := range s.sales {
		next.sales[k] = v
	}
	return next
}

// =============================================================================
// STORE INTERFACE (single operations run on the live state)
// =============================================================================

func (m *Memory) GetMember(_ context.Context, id ledger.MemberID) (*ledger.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getMember(id)
}

func (m *Memory) ListMembers(_ context.Context) ([]ledger.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listMembers()
}

func (m *Memory) GetBook(_ context.Context, id ledger.BookID) (*ledger.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getBook(id)
}

func (m *Memory) ListBooks(_ context.Context) ([]ledger.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listBooks()
}

func (m *Memory) AdjustStock(_ context.Context, id ledger.BookID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.adjustStock(id, delta)
}

func (m *Memory) InsertSale(_ context.Context, sale ledger.Sale) (ledger.SaleID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.insertSale(sale)
}

func (m *Memory) GetSale(_ context.Context, id ledger.SaleID) (*ledger.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getSale(id)
}

func (m *Memory) UpdateSale(_ context.Context, sale ledger.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateSale(sale)
}

func (m *Memory) DeleteSale(_ context.Context, id ledger.SaleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.deleteSale(id)
}

func (m *Memory) ListSaleRows(_ context.Context) ([]ledger.ReportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listSaleRows()
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx runs fn against a copy of the state. The copy replaces the live
// state only if fn succeeds.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft := m.state.clone()
	if err := fn(&txView{state: draft}); err != nil {
		return err
	}
	m.state = draft
	return nil
}

// txView exposes a draft state as a ledger.Store. No locking: the owning
// Memory holds its mutex for the whole transaction.
type txView struct {
	state *state
}

func (v *txView) GetMember(_ context.Context, id ledger.MemberID) (*ledger.Member, error) {
	return v.state.getMember(id)
}
func (v *txView) ListMembers(_ context.Context) ([]ledger.Member, error) {
	return v.state.listMembers()
}
func (v *txView) GetBook(_ context.Context, id ledger.BookID) (*ledger.Book, error) {
	return v.state.getBook(id)
}
func (v *txView) ListBooks(_ context.Context) ([]ledger.Book, error) {
	return v.state.listBooks()
}
func (v *txView) AdjustStock(_ context.Context, id ledger.BookID, delta int) error {
	return v.state.adjustStock(id, delta)
}
func (v *txView) InsertSale(_ context.Context, sale ledger.Sale) (ledger.SaleID, error) {
	return v.state.insertSale(sale)
}
func (v *txView) GetSale(_ context.Context, id ledger.SaleID) (*ledger.Sale, error) {
	return v.state.getSale(id)
}
func (v *txView) UpdateSale(_ context.Context, sale ledger.Sale) error {
	return v.state.updateSale(sale)
}
func (v *txView) DeleteSale(_ context.Context, id ledger.SaleID) error {
	return v.state.deleteSale(id)
}
func (v *txView) ListSaleRows(_ context.Context) ([]ledger.ReportRow, error) {
	return v.state.listSaleRows()
}

// =============================================================================
// STATE OPERATIONS
// =============================================================================

func (s *state) getMember(id ledger.MemberID) (*ledger.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *state) listMembers() ([]ledger.Member, error) {
	members := make([]ledger.Member, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (s *state) getBook(id ledger.BookID) (*ledger.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *state) listBooks() ([]ledger.Book, error) {
	books := make([]ledger.Book, 0, len(s.books))
	for _, b := range s.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func (s *state) adjustStock(id ledger.BookID, delta int) error {
	b, ok := s.books[id]
	if !ok {
		return ledger.ErrBookNotFound
	}
	if b.Stock+delta < 0 {
		return &ledger.InsufficientStockError{BookID: id, Available: b.Stock, Requested: -delta}
	}
	b.Stock += delta
	s.books[id] = b
	return nil
}

func (s *state) insertSale(sale ledger.Sale) (ledger.SaleID, error) {
	sale.ID = s.nextSaleID
	s.nextSaleID++
	s.sales[sale.ID] = sale
	return sale.ID, nil
}

func (s *state) getSale(id ledger.SaleID) (*ledger.Sale, error) {
	sale, ok := s.sales[id]
	if !ok {
		return nil, nil
	}
	return &sale, nil
}

func (s *state) updateSale(sale ledger.Sale) error {
	if _, ok := s.sales[sale.ID]; !ok {
		return ledger.ErrSaleNotFound
	}
	s.sales[sale.ID] = sale
	return nil
}

func (s *state) deleteSale(id ledger.SaleID) error {
	if _, ok := s.sales[id]; !ok {
		return ledger.ErrSaleNotFound
	}
	delete(s.sales, id)
	return nil
}

func (s *state) listSaleRows() ([]ledger.ReportRow, error) {
	rows := make([]ledger.ReportRow, 0, len(s.sales))
	for _, sale := range s.sales {
		row := ledger.ReportRow{
			SaleID:   sale.ID,
			Date:     sale.Date,
			Quantity: sale.Quantity,
			Discount: sale.Discount,
			Total:    sale.Total,
		}
		if m, ok := s.members[sale.MemberID]; ok {
			row.MemberName = m.Name
		}
		if b, ok := s.books[sale.BookID]; ok {
			row.BookTitle = b.Title
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].SaleID < rows[j].SaleID
	})
	return rows, nil
}

// SeedSample loads the same fixed sample data the SQLite store seeds.
func (m *Memory) SeedSample() {
	m.AddMember(ledger.Member{ID: "M001", Name: "Alice", Phone: "0912-345678", Email: "alice@example.com"})
	m.AddMember(ledger.Member{ID: "M002", Name: "Bob", Phone: "0923-456789", Email: "bob@example.com"})
	m.AddMember(ledger.Member{ID: "M003", Name: "Cathy", Phone: "0934-567890", Email: "cathy@example.com"})

	m.AddBook(ledger.Book{ID: "B001", Title: "Python Programming", Price: decimal.NewFromInt(600), Stock: 50})
	m.AddBook(ledger.Book{ID: "B002", Title: "Data Science Basics", Price: decimal.NewFromInt(800), Stock: 30})
	m.AddBook(ledger.Book{ID: "B003", Title: "Machine Learning Guide", Price: decimal.NewFromInt(1200), Stock: 20})
}
