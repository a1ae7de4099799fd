// Package export renders orders as a flat CSV file, one row per order item.
package export

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"bbqpos/internal/models"
)

const Header = "Order Number,Timestamp,Status,Total,Item Name,Quantity,Ready,Served"

var ErrNoOrders = errors.New("no orders to export")

// Filename is the download name for an export taken at now.
func Filename(now time.Time) string {
	return "bbq_orders_export_" + now.UTC().Format("2006-01-02") + ".csv"
}

// WriteCSV writes the header and one row per (order, item) pair, so N pairs
// give exactly N+1 lines. The item name column is always quoted with line
// breaks folded to spaces; every other column is unquoted.
func WriteCSV(w io.Writer, orders []models.Order) error {
	if len(orders) == 0 {
		return ErrNoOrders
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(Header)
	bw.WriteByte('\n')

	for _, order := range orders {
		for _, item := range order.Items {
			fields := []string{
				strconv.Itoa(order.OrderNumber),
				order.DisplayTime,
				order.Status,
				strconv.FormatFloat(order.Total, 'f', -1, 64),
				quote(item.Name),
				strconv.Itoa(item.Quantity),
				yesNo(bool(item.IsReady)),
				yesNo(bool(item.IsServed)),
			}
			bw.WriteString(strings.Join(fields, ","))
			bw.WriteByte('\n')
		}
	}

	return bw.Flush()
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func quote(s string) string {
	return `"` + strings.ReplaceAll(lineBreaks.Replace(s), `"`, `""`) + `"`
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
