// Package export serializes a full result set for the clipboard, CSV and
// XLSX downloads. All exports cover every number in input order, ignoring
// any active view filter, and do nothing for an empty set.
package export

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/xuri/excelize/v2"

	"github.com/sw33tLie/opcheck/pkg/results"
)

const (
	TextFilename = "phone_lookup_results.txt"
	CSVFilename  = "phone_lookup_results.csv"
	XLSXFilename = "phone_lookup_results.xlsx"

	xlsxSheet = "Results"
)

var header = []string{"Number", "Operator"}

// Text renders one "<raw> - <operator>" line per number.
func Text(set *results.Set) string {
	if set.Empty() {
		return ""
	}
	rows := set.Rows()
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, r.Raw+" - "+r.Operator)
	}
	return strings.Join(lines, "\n")
}

// CSV renders a Number,Operator table. It returns nil for an empty set.
func CSV(set *results.Set) ([]byte, error) {
	if set.Empty() {
		return nil, nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range set.Rows() {
		if err := w.Write([]string{r.Raw, r.Operator}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// XLSX renders the same table as CSV into a single-sheet workbook. It returns
// nil for an empty set.
func XLSX(set *results.Set) ([]byte, error) {
	if set.Empty() {
		return nil, nil
	}
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, err
	}

	put := func(row int, values ...string) error {
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, row)
			if err != nil {
				return err
			}
			if err := x.SetCellStr(xlsxSheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := put(1, header...); err != nil {
		return nil, err
	}
	for i, r := range set.Rows() {
		if err := put(i+2, r.Raw, r.Operator); err != nil {
			return nil, err
		}
	}

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Copy writes Text(set) to the system clipboard. Empty sets are skipped and
// report false.
func Copy(set *results.Set) (bool, error) {
	if set.Empty() {
		return false, nil
	}
	if err := clipboard.WriteAll(Text(set)); err != nil {
		return false, err
	}
	return true, nil
}
