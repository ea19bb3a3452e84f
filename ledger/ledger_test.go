package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookledger/ledger"
	"github.com/warp/bookledger/ledger/store"
	"github.com/warp/bookledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestLedger builds a ledger over a seeded in-memory SQLite store.
// Seed data: members M001-M003; books B001 (600, stock 50),
// B002 (800, stock 30), B003 (1200, stock 20); sales 1-4.
func newTestLedger(t *testing.T) (*ledger.SaleLedger, *sqlite.Store) {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Seed(context.Background()))
	return ledger.New(st), st
}

func bookStock(t *testing.T, l *ledger.SaleLedger, id ledger.BookID) int {
	t.Helper()
	book, err := l.GetBook(context.Background(), id)
	require.NoError(t, err)
	return book.Stock
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreateSale_Success(t *testing.T) {
	// GIVEN: Seeded catalog, B001 has 50 in stock at price 600
	// WHEN: M001 buys 2 copies with a 100 discount
	// THEN: Sale is recorded with total 1100 and stock drops to 48

	l, _ := newTestLedger(t)
	ctx := context.Background()

	sale, err := l.CreateSale(ctx, "2024-02-01", "M001", "B001", 2, 100)
	require.NoError(t, err)

	assert.True(t, sale.ID > 4, "id should continue after the seeded sales")
	assert.Equal(t, "2024-02-01", sale.Date)
	assert.Equal(t, 2, sale.Quantity)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(1100)), "total = 600*2 - 100")

	assert.Equal(t, 48, bookStock(t, l, "B001"))
}

func TestCreateSale_ValidationOrder_MemberFirst(t *testing.T) {
	// GIVEN: Neither the member nor the book exists
	// WHEN: Recording a sale
	// THEN: The member error wins; lookup order is member, then book

	l, _ := newTestLedger(t)

	_, err := l.CreateSale(context.Background(), "2024-02-01", "NOPE", "ALSO-NOPE", 1, 0)
	assert.ErrorIs(t, err, ledger.ErrMemberNotFound)
}

func TestCreateSale_BookNotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.CreateSale(context.Background(), "2024-02-01", "M001", "NOPE", 1, 0)
	assert.ErrorIs(t, err, ledger.ErrBookNotFound)
}

func TestCreateSale_InsufficientStock(t *testing.T) {
	// GIVEN: B001 has 50 in stock
	// WHEN: Requesting 51 copies
	// THEN: InsufficientStockError reports the available count and nothing changes

	l, _ := newTestLedger(t)
	ctx := context.Background()

	before, err := l.ListSales(ctx)
	require.NoError(t, err)

	_, err = l.CreateSale(ctx, "2024-02-01", "M001", "B001", 51, 0)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, ledger.BookID("B001"), stockErr.BookID)
	assert.Equal(t, 50, stockErr.Available)
	assert.Equal(t, 51, stockErr.Requested)

	assert.Equal(t, 50, bookStock(t, l, "B001"), "stock must be untouched")
	after, err := l.ListSales(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "no sale row may land")
}

func TestCreateSale_ExactStock_DrainsToZero(t *testing.T) {
	// Buying exactly the available stock is allowed; zero is a legal state.
	l, _ := newTestLedger(t)

	_, err := l.CreateSale(context.Background(), "2024-02-01", "M002", "B003", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, bookStock(t, l, "B003"))
}

func TestCreateSale_InvalidInput(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		date     string
		qty      int
		discount int64
	}{
		{"malformed date", "01/02/2024", 1, 0},
		{"zero quantity", "2024-02-01", 0, 0},
		{"negative quantity", "2024-02-01", -3, 0},
		{"negative discount", "2024-02-01", 1, -50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.CreateSale(ctx, tc.date, "M001", "B001", tc.qty, tc.discount)
			assert.ErrorIs(t, err, ledger.ErrInvalidInput)
		})
	}

	assert.Equal(t, 50, bookStock(t, l, "B001"))
}

func TestCreateSale_NegativeTotal_Preserved(t *testing.T) {
	// A discount above price*qty produces a negative total, stored as-is.
	l, _ := newTestLedger(t)

	sale, err := l.CreateSale(context.Background(), "2024-02-01", "M001", "B001", 1, 1000)
	require.NoError(t, err)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(-400)))
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdateSale_IncreaseQuantity(t *testing.T) {
	// GIVEN: A sale of 2 copies of B001 (stock 48 after the sale)
	// WHEN: Updating the quantity to 5
	// THEN: Stock absorbs the net delta of 3 and the total is recomputed

	l, _ := newTestLedger(t)
	ctx := context.Background()

	sale, err := l.CreateSale(ctx, "2024-02-01", "M001", "B001", 2, 100)
	require.NoError(t, err)
	require.Equal(t, 48, bookStock(t, l, "B001"))

	require.NoError(t, l.UpdateSale(ctx, sale.ID, 5, 100))

	assert.Equal(t, 45, bookStock(t, l, "B001"))
	updated, err := l.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)
	assert.True(t, updated.Total.Equal(decimal.NewFromInt(2900)), "total = 600*5 - 100")
}

func TestUpdateSale_DecreaseQuantity_RestoresStock(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	sale, err := l.CreateSale(ctx, "2024-02-01", "M001", "B001", 5, 0)
	require.NoError(t, err)
	require.Equal(t, 45, bookStock(t, l, "B001"))

	require.NoError(t, l.UpdateSale(ctx, sale.ID, 1, 0))
	assert.Equal(t, 49, bookStock(t, l, "B001"))
}

func TestUpdateSale_OwnReservationCountsAsAvailable(t *testing.T) {
	// GIVEN: A sale of 15 of B003 leaves 5 in stock
	// WHEN: Updating to 20 (all remaining stock plus the sale's own units)
	// THEN: Allowed; 21 is one too many and reports availability of 20

	l, _ := newTestLedger(t)
	ctx := context.Background()

	sale, err := l.CreateSale(ctx, "2024-02-01", "M003", "B003", 15, 0)
	require.NoError(t, err)
	require.Equal(t, 5, bookStock(t, l, "B003"))

	err = l.UpdateSale(ctx, sale.ID, 21, 0)
	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 20, stockErr.Available, "availability includes the sale's own reservation")
	assert.Equal(t, 21, stockErr.Requested)
	assert.Equal(t, 5, bookStock(t, l, "B003"), "failed update must not move stock")

	require.NoError(t, l.UpdateSale(ctx, sale.ID, 20, 0))
	assert.Equal(t, 0, bookStock(t, l, "B003"))
}

func TestUpdateSale_SameQuantity_NetNeutral(t *testing.T) {
	// Re-submitting the same quantity must not move stock at all.
	l, _ := newTestLedger(t)
	ctx := context.Background()

	sale, err := l.CreateSale(ctx, "2024-02-01", "M001", "B001", 4, 0)
	require.NoError(t, err)
	require.Equal(t, 46, bookStock(t, l, "B001"))

	require.NoError(t, l.UpdateSale(ctx, sale.ID, 4, 50))

	assert.Equal(t, 46, bookStock(t, l, "B001"))
	updated, err := l.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(decimal.NewFromInt(2350)), "total = 600*4 - 50")
}

func TestUpdateSale_RecomputesFromCurrentPrice(t *testing.T) {
	// GIVEN: A sale made while the book cost 600
	// WHEN: The price changes to 700 and the sale is updated
	// THEN: The new total uses the current price, not the one at sale time

	mem := store.NewMemory()
	mem.SeedSample()
	l := ledger.New(mem)
	ctx := context.Background()

	sale, err := l.CreateSale(ctx, "2024-02-01", "M001", "B001", 2, 0)
	require.NoError(t, err)
	require.True(t, sale.Total.Equal(decimal.NewFromInt(1200)))

	book, err := l.GetBook(ctx, "B001")
	require.NoError(t, err)
	book.Price = decimal.NewFromInt(700)
	mem.AddBook(*book)

	require.NoError(t, l.UpdateSale(ctx, sale.ID, 2, 0))
	updated, err := l.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(decimal.NewFromInt(1400)), "total = 700*2")
}

func TestUpdateSale_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)
	err := l.UpdateSale(context.Background(), 9999, 1, 0)
	assert.ErrorIs(t, err, ledger.ErrSaleNotFound)
}

func TestUpdateSale_InvalidInput(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	assert.ErrorIs(t, l.UpdateSale(ctx, 1, 0, 0), ledger.ErrInvalidInput)
	assert.ErrorIs(t, l.UpdateSale(ctx, 1, 2, -1), ledger.ErrInvalidInput)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteSale_RestoresStock(t *testing.T) {
	// GIVEN: A sale of 3 copies of B001
	// WHEN: Deleting the sale
	// THEN: Stock returns to its pre-sale level and the row is gone

	l, _ := newTestLedger(t)
	ctx := context.Background()

	sale, err := l.CreateSale(ctx, "2024-02-01", "M001", "B001", 3, 0)
	require.NoError(t, err)
	require.Equal(t, 47, bookStock(t, l, "B001"))

	require.NoError(t, l.DeleteSale(ctx, sale.ID))

	assert.Equal(t, 50, bookStock(t, l, "B001"))
	_, err = l.GetSale(ctx, sale.ID)
	assert.ErrorIs(t, err, ledger.ErrSaleNotFound)
}

func TestDeleteSale_Missing_IsAnError(t *testing.T) {
	// Deleting an unknown id must surface, never silently no-op.
	l, _ := newTestLedger(t)
	err := l.DeleteSale(context.Background(), 9999)
	assert.ErrorIs(t, err, ledger.ErrSaleNotFound)
}

func TestDeleteSale_IDNeverReused(t *testing.T) {
	// GIVEN: A deleted sale
	// WHEN: Recording a new sale
	// THEN: The dead id does not come back

	l, _ := newTestLedger(t)
	ctx := context.Background()

	sale, err := l.CreateSale(ctx, "2024-02-01", "M001", "B001", 1, 0)
	require.NoError(t, err)
	require.NoError(t, l.DeleteSale(ctx, sale.ID))

	next, err := l.CreateSale(ctx, "2024-02-02", "M001", "B001", 1, 0)
	require.NoError(t, err)
	assert.Greater(t, int64(next.ID), int64(sale.ID))
}

// =============================================================================
// REPORT
// =============================================================================

func TestListSales_OrderAndJoin(t *testing.T) {
	// GIVEN: Seeded sales on 2024-01-15..18 plus a new sale backdated to
	//        2024-01-15
	// WHEN: Listing the report
	// THEN: Rows come back date ascending with sale id as tie-break, with
	//       member names and book titles joined in

	l, _ := newTestLedger(t)
	ctx := context.Background()

	backdated, err := l.CreateSale(ctx, "2024-01-15", "M002", "B002", 1, 0)
	require.NoError(t, err)

	rows, err := l.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	gotIDs := make([]ledger.SaleID, len(rows))
	for i, r := range rows {
		gotIDs[i] = r.SaleID
	}
	assert.Equal(t, []ledger.SaleID{1, backdated.ID, 2, 3, 4}, gotIDs)

	assert.Equal(t, "Alice", rows[0].MemberName)
	assert.Equal(t, "Python Programming", rows[0].BookTitle)
	assert.Equal(t, "Bob", rows[1].MemberName)
	assert.Equal(t, "Data Science Basics", rows[1].BookTitle)
}

func TestFormatReport_Empty(t *testing.T) {
	assert.Equal(t, "no sales recorded\n", ledger.FormatReport(nil))
}

func TestFormatReport_RendersRows(t *testing.T) {
	rows := []ledger.ReportRow{{
		SaleID:     7,
		Date:       "2024-02-01",
		MemberName: "Alice",
		BookTitle:  "Python Programming",
		Quantity:   2,
		Discount:   decimal.NewFromInt(100),
		Total:      decimal.NewFromInt(1100),
	}}

	out := ledger.FormatReport(rows)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Python Programming")
	assert.Contains(t, out, "1100")
}
