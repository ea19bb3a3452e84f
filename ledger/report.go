/*
report.go - Read-only sales report projection

PURPOSE:
  Helpers around the report rows returned by SaleLedger.ListSales. The
  rows are a pure join of sale + member + book state; nothing here mutates
  or caches anything.
*/
package ledger

import (
	"fmt"
	"strings"
)

// FormatReport renders report rows as a fixed-width text table. The
// ledger itself never prints; this exists for the CLI collaborator.
func FormatReport(rows []ReportRow) string {
	if len(rows) == 0 {
		return "no sales recorded\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-5s %-12s %-12s %-30s %5s %8s %10s\n",
		"ID", "Date", "Member", "Title", "Qty", "Disc", "Total")
	b.WriteString(strings.Repeat("-", 86) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-5d %-12s %-12s %-30s %5d %8s %10s\n",
			r.SaleID, r.Date, r.MemberName, r.BookTitle,
			r.Quantity, r.Discount.String(), r.Total.String())
	}
	b.WriteString(strings.Repeat("-", 86) + "\n")
	return b.String()
}
