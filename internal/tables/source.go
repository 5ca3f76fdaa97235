package tables

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SourceName identifies one of the five input tables.
type SourceName string

const (
	SourceSubmissions    SourceName = "submissions"
	SourceInspections    SourceName = "inspections"
	SourcePerDiem        SourceName = "perdiem"
	SourceTransportation SourceName = "transportation"
	SourceProperty       SourceName = "property"
)

// AllSources lists the required sources in load order.
var AllSources = []SourceName{SourceSubmissions, SourceInspections, SourcePerDiem, SourceTransportation, SourceProperty}

// InspectionColumns is the fixed positional schema of the inspections export.
// The header row of that file is never used for naming.
var InspectionColumns = []string{
	"Submission Num",
	"Reimbursement RequestID",
	"Inspector Name",
	"Inspection Id_OG",
	colInspectionDate,
	"Property Id",
	"Inspection Id",
	"Status",
}

const bom = "\ufeff"

// decoderFor returns the text decoder for a configured encoding name.
func decoderFor(name string) (*encoding.Decoder, error) {
	switch conf.NormalizeEncoding(name) {
	case conf.EncodingUTF8:
		return unicode.UTF8.NewDecoder(), nil
	case conf.EncodingUTF8SIG:
		return unicode.UTF8BOM.NewDecoder(), nil
	case conf.EncodingCP1252:
		return charmap.Windows1252.NewDecoder(), nil
	case conf.EncodingLatin1:
		return charmap.ISO8859_1.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// isXLSX reports whether a path should be read through excelize.
func isXLSX(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// readRecords reads every row of a source, header included, as strings.
func readRecords(name SourceName, src conf.SourceConfig, path string) ([][]string, error) {
	if isXLSX(path) {
		return readXLSX(name, src, path)
	}
	return readCSV(name, src, path)
}

func readCSV(name SourceName, src conf.SourceConfig, path string) ([][]string, error) {
	dec, err := decoderFor(src.Encoding)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("source", string(name)).
			Build()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, accessError(name, path, err)
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(bufio.NewReader(f), dec))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryFileParsing).
				FileContext(path, 0).
				Context("source", string(name)).
				Build()
		}
		records = append(records, rec)
	}
	return records, nil
}

func readXLSX(name SourceName, src conf.SourceConfig, path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			FileContext(path, 0).
			Context("source", string(name)).
			Build()
	}
	defer f.Close()

	sheet := src.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.Newf("workbook %s has no sheets", filepath.Base(path)).
				Category(errors.CategoryFileParsing).
				Context("source", string(name)).
				Build()
		}
		sheet = sheets[0]
	}

	// raw values keep date cells as serials instead of the workbook's display format
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			FileContext(path, 0).
			Context("source", string(name)).
			Context("sheet", sheet).
			Build()
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	normalizeSerialDates(rows, dateColumns(name, rows), date1904)
	return rows, nil
}

// dateColumns returns the positions of the date columns of a source.
func dateColumns(name SourceName, rows [][]string) []int {
	switch name {
	case SourceInspections:
		return []int{slices.Index(InspectionColumns, colInspectionDate)}
	case SourcePerDiem:
		if len(rows) == 0 {
			return nil
		}
		header := newColumnIndex(rows[0])
		var cols []int
		for _, col := range []string{colFirstDay, colLastDay} {
			if i, ok := header[strings.ToLower(col)]; ok {
				cols = append(cols, i)
			}
		}
		return cols
	}
	return nil
}

// normalizeSerialDates rewrites Excel date serials in the given columns as
// MM/DD/YYYY. Text cells are left for the date parser to judge.
func normalizeSerialDates(rows [][]string, cols []int, date1904 bool) {
	for r := 1; r < len(rows); r++ {
		for _, c := range cols {
			if c < 0 || c >= len(rows[r]) {
				continue
			}
			raw := strings.TrimSpace(rows[r][c])
			serial, err := strconv.ParseFloat(raw, 64)
			if err != nil || serial <= 0 {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, date1904)
			if err != nil {
				continue
			}
			rows[r][c] = t.Format(dateLayout)
		}
	}
}

// columnIndex maps header names to positions. Names are matched after
// trimming whitespace and a UTF-8 BOM, case-insensitively.
type columnIndex map[string]int

func newColumnIndex(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, bom)))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// positionalIndex builds an index from a fixed column list.
func positionalIndex(columns []string) columnIndex {
	return newColumnIndex(columns)
}

// require checks that every column is present.
func (c columnIndex) require(name SourceName, path string, columns ...string) error {
	for _, col := range columns {
		if _, ok := c[strings.ToLower(col)]; !ok {
			return errors.Newf("%s source %s is missing required column %q", name, filepath.Base(path), col).
				Category(errors.CategoryFileParsing).
				Context("source", string(name)).
				Context("column", col).
				Build()
		}
	}
	return nil
}

// get returns the trimmed cell for a column, or "" when the row is short or
// the column is absent.
func (c columnIndex) get(row []string, column string) string {
	i, ok := c[strings.ToLower(column)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func accessError(name SourceName, path string, err error) error {
	return errors.New(err).
		Category(errors.CategoryFileAccess).
		FileContext(path, 0).
		Context("source", string(name)).
		Context("path", path).
		Build()
}
