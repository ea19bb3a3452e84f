/*
main.go - Interactive bookstore console

PURPOSE:
  A small menu-driven console over the sale ledger, intended for manual
  operation of a single store. Every action goes through the same ledger
  the HTTP server uses, so stock invariants hold regardless of entry
  point.

MENU:
  1. Record sale
  2. Sales report
  3. Update sale
  4. Delete sale
  5. Exit

COMMAND-LINE FLAGS:
  -db      SQLite database path (default: bookledger.db, env DB_PATH)
  -seed    Insert sample members/books/sales on startup

SEE ALSO:
  - ledger/ledger.go: Sale operations and validation
  - ledger/report.go: Report formatting
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/warp/bookledger/ledger"
	"github.com/warp/bookledger/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", getenv("DB_PATH", "bookledger.db"), "SQLite database path")
	seed := flag.Bool("seed", false, "insert sample members, books and sales")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	st, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("failed to initialize database")
	}
	defer st.Close()

	if *seed {
		if err := st.Seed(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to seed sample data")
		}
	}

	app := &console{
		ledger: ledger.New(st),
		in:     bufio.NewScanner(os.Stdin),
		out:    os.Stdout,
	}
	app.run(context.Background())
}

type console struct {
	ledger *ledger.SaleLedger
	in     *bufio.Scanner
	out    *os.File
}

func (c *console) run(ctx context.Context) {
	for {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, "=== Bookstore ===")
		fmt.Fprintln(c.out, "1. Record sale")
		fmt.Fprintln(c.out, "2. Sales report")
		fmt.Fprintln(c.out, "3. Update sale")
		fmt.Fprintln(c.out, "4. Delete sale")
		fmt.Fprintln(c.out, "5. Exit")

		switch c.promptInt("Choose an option: ") {
		case 1:
			c.recordSale(ctx)
		case 2:
			c.report(ctx)
		case 3:
			c.updateSale(ctx)
		case 4:
			c.deleteSale(ctx)
		case 5:
			fmt.Fprintln(c.out, "Goodbye.")
			return
		default:
			fmt.Fprintln(c.out, "Please choose 1-5.")
		}
	}
}

func (c *console) recordSale(ctx context.Context) {
	date := c.promptLine("Sale date (YYYY-MM-DD): ")
	memberID := ledger.MemberID(c.promptLine("Member ID: "))
	bookID := ledger.BookID(c.promptLine("Book ID: "))
	qty := c.promptInt("Quantity: ")
	discount := c.promptInt("Discount: ")

	sale, err := c.ledger.CreateSale(ctx, date, memberID, bookID, qty, int64(discount))
	if err != nil {
		c.renderError(err)
		return
	}
	fmt.Fprintf(c.out, "Sale %d recorded, total %s.\n", sale.ID, sale.Total.String())
}

func (c *console) report(ctx context.Context) {
	rows, err := c.ledger.ListSales(ctx)
	if err != nil {
		c.renderError(err)
		return
	}
	fmt.Fprint(c.out, ledger.FormatReport(rows))
}

func (c *console) updateSale(ctx context.Context) {
	id := ledger.SaleID(c.promptInt("Sale ID: "))
	qty := c.promptInt("New quantity: ")
	discount := c.promptInt("New discount: ")

	if err := c.ledger.UpdateSale(ctx, id, qty, int64(discount)); err != nil {
		c.renderError(err)
		return
	}
	fmt.Fprintf(c.out, "Sale %d updated.\n", id)
}

func (c *console) deleteSale(ctx context.Context) {
	id := ledger.SaleID(c.promptInt("Sale ID: "))

	if err := c.ledger.DeleteSale(ctx, id); err != nil {
		c.renderError(err)
		return
	}
	fmt.Fprintf(c.out, "Sale %d deleted, stock restored.\n", id)
}

// promptLine reads one trimmed line.
func (c *console) promptLine(label string) string {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		// stdin closed; treat as exit
		fmt.Fprintln(c.out)
		os.Exit(0)
	}
	return strings.TrimSpace(c.in.Text())
}

// promptInt re-prompts until the user types a valid integer.
func (c *console) promptInt(label string) int {
	for {
		raw := c.promptLine(label)
		n, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Fprintln(c.out, "Please enter a whole number.")
			continue
		}
		return n
	}
}

// renderError turns ledger error kinds into operator-facing messages.
func (c *console) renderError(err error) {
	var stockErr *ledger.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		fmt.Fprintf(c.out, "Not enough stock of %s: %d available, %d requested.\n",
			stockErr.BookID, stockErr.Available, stockErr.Requested)
	case errors.Is(err, ledger.ErrMemberNotFound):
		fmt.Fprintln(c.out, "No such member.")
	case errors.Is(err, ledger.ErrBookNotFound):
		fmt.Fprintln(c.out, "No such book.")
	case errors.Is(err, ledger.ErrSaleNotFound):
		fmt.Fprintln(c.out, "No such sale.")
	case errors.Is(err, ledger.ErrInvalidInput):
		fmt.Fprintf(c.out, "Invalid input: %v\n", err)
	case errors.Is(err, ledger.ErrStockConflict):
		fmt.Fprintln(c.out, "The database is busy, please retry.")
	default:
		fmt.Fprintf(c.out, "Operation failed: %v\n", err)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
