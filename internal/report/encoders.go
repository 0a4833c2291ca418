package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
)

// SheetName задаёт имя единственного листа XLSX-отчёта.
const SheetName = "Clientes"

// utf8BOM помогает табличным редакторам распознать кодировку CSV.
const utf8BOM = "\ufeff"

// txtAbsent выводится в TXT вместо отсутствующего значения.
const txtAbsent = "-"

func writeCSV(w io.Writer, t Table) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header(t.Columns)); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := writer.Write(record(r, t.Columns, "")); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	lines := make([][]string, 0, len(t.Rows)+1)
	lines = append(lines, header(t.Columns))
	for _, r := range t.Rows {
		lines = append(lines, record(r, t.Columns, ""))
	}

	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(line))
		for j, v := range line {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	return f.Write(w)
}

func writeTXT(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, strings.Join(header(t.Columns), "\t")); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if _, err := fmt.Fprintln(tw, strings.Join(record(r, t.Columns, txtAbsent), "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
