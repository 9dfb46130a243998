package dbutils

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/tradingboat/tbot/src/eventmodels"
)

// RenderOrders writes a human-readable table of order rows, used by the
// export command and debug dumps.
func RenderOrders(w io.Writer, rows []eventmodels.OrderRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "OrderID", "Ticker", "Action", "Type", "Qty", "Lmt", "Aux", "AvgFill", "Status", "Ref", "Position"})
	table.SetBorder(false)

	for _, row := range rows {
		table.Append([]string{
			row.UniqueKey,
			fmt.Sprintf("%d", row.OrderID),
			row.Ticker,
			row.Action,
			row.OrderType,
			fmt.Sprintf("%.4f", row.Qty),
			fmt.Sprintf("%.2f", row.LmtPrice),
			fmt.Sprintf("%.2f", row.AuxPrice),
			fmt.Sprintf("%.2f", row.AvgFillPrice),
			row.OrderStatus,
			row.OrderRef,
			fmt.Sprintf("%.4f", row.Position),
		})
	}

	table.Render()
}

// RenderErrors writes a table of error rows.
func RenderErrors(w io.Writer, rows []eventmodels.ErrorRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Ticker", "Ref", "State", "Message"})
	table.SetBorder(false)

	for _, row := range rows {
		table.Append([]string{row.UniqueKey, row.Ticker, row.OrderRef, row.ErrorState, row.Message})
	}

	table.Render()
}
