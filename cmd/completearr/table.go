package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var labelCaser = cases.Title(language.English)

// label renders internal lowercase identifiers ("promote", "no-change") as
// display text.
func label(value string) string {
	return labelCaser.String(value)
}

// resultTable renders the CLI's status, history, and moves output. Counter
// columns are right-aligned; everything else is left-aligned.
type resultTable struct {
	tw table.Writer
}

func newResultTable(headers ...string) *resultTable {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	row := make(table.Row, len(headers))
	for i, header := range headers {
		row[i] = header
	}
	tw.AppendHeader(row)
	return &resultTable{tw: tw}
}

// rightAlign marks counter columns by 1-based number.
func (t *resultTable) rightAlign(columns ...int) {
	configs := make([]table.ColumnConfig, 0, len(columns))
	for _, column := range columns {
		configs = append(configs, table.ColumnConfig{
			Number:      column,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	t.tw.SetColumnConfigs(configs)
}

func (t *resultTable) addRow(cells ...string) {
	row := make(table.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	t.tw.AppendRow(row)
}

func (t *resultTable) render() string {
	return t.tw.Render()
}
