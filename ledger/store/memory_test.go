package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookledger/ledger"
	"github.com/warp/bookledger/ledger/store"
)

func newSeededMemory() *store.Memory {
	m := store.NewMemory()
	m.SeedSample()
	return m
}

func TestMemory_AdjustStock_Guard(t *testing.T) {
	// GIVEN: B003 has 20 in stock
	// WHEN: Debiting 21
	// THEN: Rejected with availability; debiting 20 drains to zero

	m := newSeededMemory()
	ctx := context.Background()

	err := m.AdjustStock(ctx, "B003", -21)
	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 20, stockErr.Available)
	assert.Equal(t, 21, stockErr.Requested)

	require.NoError(t, m.AdjustStock(ctx, "B003", -20))
	book, err := m.GetBook(ctx, "B003")
	require.NoError(t, err)
	assert.Equal(t, 0, book.Stock)
}

func TestMemory_AdjustStock_MissingBook(t *testing.T) {
	m := newSeededMemory()
	err := m.AdjustStock(context.Background(), "NOPE", -1)
	assert.ErrorIs(t, err, ledger.ErrBookNotFound)
}

func TestMemory_WithTx_RollbackLeavesNoTrace(t *testing.T) {
	// GIVEN: A transaction that inserts a sale and debits stock
	// WHEN: The function fails afterwards
	// THEN: The live state never changes; the draft copy is discarded

	m := newSeededMemory()
	ctx := context.Background()

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s ledger.Store) error {
		if _, err := s.InsertSale(ctx, ledger.Sale{
			Date:     "2024-02-01",
			MemberID: "M001",
			BookID:   "B001",
			Quantity: 2,
			Discount: decimal.Zero,
			Total:    decimal.NewFromInt(1200),
		}); err != nil {
			return err
		}
		if err := s.AdjustStock(ctx, "B001", -2); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	book, err := m.GetBook(ctx, "B001")
	require.NoError(t, err)
	assert.Equal(t, 50, book.Stock)

	rows, err := m.ListSaleRows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemory_WithTx_CommitSwapsState(t *testing.T) {
	m := newSeededMemory()
	ctx := context.Background()

	var id ledger.SaleID
	err := m.WithTx(ctx, func(s ledger.Store) error {
		var err error
		id, err = s.InsertSale(ctx, ledger.Sale{
			Date:     "2024-02-01",
			MemberID: "M001",
			BookID:   "B001",
			Quantity: 2,
			Discount: decimal.Zero,
			Total:    decimal.NewFromInt(1200),
		})
		if err != nil {
			return err
		}
		return s.AdjustStock(ctx, "B001", -2)
	})
	require.NoError(t, err)

	sale, err := m.GetSale(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sale)
	assert.Equal(t, 2, sale.Quantity)

	book, err := m.GetBook(ctx, "B001")
	require.NoError(t, err)
	assert.Equal(t, 48, book.Stock)
}

func TestMemory_ListSaleRows_OrderedByDateThenID(t *testing.T) {
	m := newSeededMemory()
	ctx := context.Background()

	mk := func(date string) ledger.SaleID {
		id, err := m.InsertSale(ctx, ledger.Sale{
			Date:     date,
			MemberID: "M001",
			BookID:   "B001",
			Quantity: 1,
			Discount: decimal.Zero,
			Total:    decimal.NewFromInt(600),
		})
		require.NoError(t, err)
		return id
	}

	late := mk("2024-03-02")
	early := mk("2024-03-01")
	tied := mk("2024-03-01")

	rows, err := m.ListSaleRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, early, rows[0].SaleID)
	assert.Equal(t, tied, rows[1].SaleID, "same date breaks ties on id")
	assert.Equal(t, late, rows[2].SaleID)

	assert.Equal(t, "Alice", rows[0].MemberName)
	assert.Equal(t, "Python Programming", rows[0].BookTitle)
}

func TestMemory_DeleteSale_Missing(t *testing.T) {
	m := newSeededMemory()
	err := m.DeleteSale(context.Background(), 42)
	assert.ErrorIs(t, err, ledger.ErrSaleNotFound)
}
