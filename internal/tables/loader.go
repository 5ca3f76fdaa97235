package tables

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/logging"
)

// Column names of the header-driven sources.
const (
	colSubmissionNum      = "Submission Num"
	colReimbursementID    = "Reimbursement RequestID"
	colInspectorName      = "Inspector Name"
	colMilesDriven        = "Miles Driven"
	colTotalReimbursement = "Total Reimbursement"
	colTotalInspections   = "Total Inspections"
	colDepartCity         = "Depart City"
	colDepartState        = "Depart State"
	colDepartZip          = "Depart Zip"
	colDestCity           = "Dest City"
	colDestState          = "Dest State"
	colDestZip            = "Dest Zip"
	colComments           = "Comments"

	colFirstDay     = "First Day"
	colLastDay      = "Last Day"
	colPerDiem      = "Per Diem"
	colLodgingRate  = "Lodging Rate"
	colLodgingCost  = "Lodging Cost"
	colLodgingTaxes = "Lodging Taxes"
	colZipCode      = "Zip Code"
	colDayNumber    = "Day Number" // optional, one row per trip day when present

	colTransportationExpenses = "Transportation Expenses"

	colInspectionID          = "InspectionID"
	colPropertyID            = "PropertyID"
	colPropertyType          = "PropertyType"
	colPropertyName          = "PropertyName"
	colPropertyStreetAddress = "PropertyStreetAddress"
	colCityState             = "CityState"
	colPropertyZip           = "PropertyZip"

	colInspectionDate = "Inspection Date"
)

// dateLayout is the date format the parsers expect, MM/DD/YYYY.
const dateLayout = "01/02/2006"

// Loader reads the configured sources into a Dataset.
type Loader struct {
	sources conf.SourcesSettings
	logger  *slog.Logger
}

// NewLoader creates a loader for the given sources. A nil logger uses the
// package service logger.
func NewLoader(sources conf.SourcesSettings, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = logging.ForService("tables")
	}
	return &Loader{sources: sources, logger: logger}
}

// sourceConfig returns the configuration of a source with its path resolved.
func (l *Loader) sourceConfig(name SourceName) conf.SourceConfig {
	var src conf.SourceConfig
	switch name {
	case SourceSubmissions:
		src = l.sources.Submissions
	case SourceInspections:
		src = l.sources.Inspections
	case SourcePerDiem:
		src = l.sources.PerDiem
	case SourceTransportation:
		src = l.sources.Transportation
	case SourceProperty:
		src = l.sources.Property
	}
	src.Path = l.sources.ResolvePath(src.Path)
	return src
}

// Paths returns the resolved path of every required source.
func (l *Loader) Paths() map[SourceName]string {
	paths := make(map[SourceName]string, len(AllSources))
	for _, name := range AllSources {
		paths[name] = l.sourceConfig(name).Path
	}
	return paths
}

// CheckAccess verifies that every required source exists and can be opened
// for reading. It parses nothing. All failing files are named in one error.
func (l *Loader) CheckAccess() error {
	var failed []string
	for _, name := range AllSources {
		path := l.sourceConfig(name).Path
		if err := checkReadable(path); err != nil {
			l.logger.Warn("source not accessible", "source", string(name), "path", path, "error", err)
			failed = append(failed, fmt.Sprintf("%s (%s)", filepath.Base(path), name))
		}
	}
	if len(failed) > 0 {
		return errors.Newf("required source files not accessible: %s", strings.Join(failed, ", ")).
			Category(errors.CategoryFileAccess).
			Context("files", failed).
			Build()
	}
	return nil
}

func checkReadable(path string) error {
	if path == "" {
		return errors.NewStd("no path configured")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// Load checks access and then parses all five sources.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	start := time.Now()
	if err := l.CheckAccess(); err != nil {
		return nil, err
	}

	ds := &Dataset{}
	for _, name := range AllSources {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryCancellation).
				Context("source", string(name)).
				Build()
		}
		src := l.sourceConfig(name)
		records, err := readRecords(name, src, src.Path)
		if err != nil {
			return nil, err
		}
		if err := ds.parse(name, src.Path, records); err != nil {
			return nil, err
		}
	}

	for _, w := range ds.warnings {
		l.logger.Debug("skipped source row", "detail", w)
	}
	l.logger.Info("dataset loaded",
		"submissions", len(ds.submissions),
		"inspections", len(ds.inspections),
		"per_diem_rows", len(ds.perDiems),
		"transportation_rows", len(ds.transportation),
		"properties", len(ds.properties),
		"skipped_rows", len(ds.warnings),
		"duration_ms", time.Since(start).Milliseconds())
	return ds, nil
}

// parse fills the table for one source from its raw records.
func (ds *Dataset) parse(name SourceName, path string, records [][]string) error {
	if len(records) == 0 {
		return errors.Newf("%s source %s is empty", name, filepath.Base(path)).
			Category(errors.CategoryFileParsing).
			Context("source", string(name)).
			Build()
	}
	header, rows := records[0], records[1:]

	switch name {
	case SourceSubmissions:
		return ds.parseSubmissions(path, newColumnIndex(header), rows)
	case SourceInspections:
		// header row is skipped, the fixed schema names the columns
		return ds.parseInspections(positionalIndex(InspectionColumns), rows)
	case SourcePerDiem:
		return ds.parsePerDiems(path, newColumnIndex(header), rows)
	case SourceTransportation:
		return ds.parseTransportation(path, newColumnIndex(header), rows)
	case SourceProperty:
		return ds.parseProperties(path, newColumnIndex(header), rows)
	}
	return nil
}

// submissionNumber parses the submission number of a row, recording a
// warning for rows that carry something other than a number.
func (ds *Dataset) submissionNumber(name SourceName, line int, raw string) (int, bool) {
	if isBlankRow(raw) {
		return 0, false
	}
	n, ok := ParseSubmissionNumber(raw)
	if !ok {
		ds.warnings = append(ds.warnings, fmt.Sprintf("%s row %d: submission number %q is not a number", name, line, raw))
	}
	return n, ok
}

// dayNumber parses the optional per diem day number. Blank and invalid cells
// yield 0, which makes the line item span its First Day to Last Day range.
func (ds *Dataset) dayNumber(line int, raw string) int {
	if isBlankRow(raw) {
		return 0
	}
	d, ok := ParseSubmissionNumber(raw)
	if !ok || d <= 0 {
		ds.warnings = append(ds.warnings, fmt.Sprintf("%s row %d: day number %q is not a positive number", SourcePerDiem, line, raw))
		return 0
	}
	return d
}

func isBlankRow(cells ...string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (ds *Dataset) parseSubmissions(path string, c columnIndex, rows [][]string) error {
	if err := c.require(SourceSubmissions, path,
		colSubmissionNum, colInspectorName, colReimbursementID,
		colMilesDriven, colTotalReimbursement, colTotalInspections); err != nil {
		return err
	}
	for i, row := range rows {
		n, ok := ds.submissionNumber(SourceSubmissions, i+2, c.get(row, colSubmissionNum))
		if !ok {
			continue
		}
		ds.submissions = append(ds.submissions, Submission{
			Number:             n,
			Inspector:          c.get(row, colInspectorName),
			ReimbursementID:    NormalizeID(c.get(row, colReimbursementID)),
			TotalReimbursement: c.get(row, colTotalReimbursement),
			TotalInspections:   c.get(row, colTotalInspections),
			MilesDriven:        c.get(row, colMilesDriven),
			DepartCity:         c.get(row, colDepartCity),
			DepartState:        c.get(row, colDepartState),
			DepartZip:          c.get(row, colDepartZip),
			DestCity:           c.get(row, colDestCity),
			DestState:          c.get(row, colDestState),
			DestZip:            c.get(row, colDestZip),
			Comments:           c.get(row, colComments),
		})
	}
	return nil
}

func (ds *Dataset) parseInspections(c columnIndex, rows [][]string) error {
	for i, row := range rows {
		n, ok := ds.submissionNumber(SourceInspections, i+2, c.get(row, InspectionColumns[0]))
		if !ok {
			continue
		}
		ds.inspections = append(ds.inspections, Inspection{
			SubmissionNumber: n,
			ReimbursementID:  NormalizeID(c.get(row, InspectionColumns[1])),
			Inspector:        c.get(row, InspectionColumns[2]),
			OriginalID:       NormalizeID(c.get(row, InspectionColumns[3])),
			Date:             c.get(row, InspectionColumns[4]),
			PropertyID:       NormalizeID(c.get(row, InspectionColumns[5])),
			InspectionID:     NormalizeID(c.get(row, InspectionColumns[6])),
			Status:           c.get(row, InspectionColumns[7]),
		})
	}
	return nil
}

func (ds *Dataset) parsePerDiems(path string, c columnIndex, rows [][]string) error {
	if err := c.require(SourcePerDiem, path,
		colSubmissionNum, colReimbursementID, colFirstDay, colLastDay,
		colPerDiem, colLodgingRate, colLodgingCost, colLodgingTaxes, colZipCode); err != nil {
		return err
	}
	for i, row := range rows {
		n, ok := ds.submissionNumber(SourcePerDiem, i+2, c.get(row, colSubmissionNum))
		if !ok {
			continue
		}
		ds.perDiems = append(ds.perDiems, PerDiem{
			SubmissionNumber: n,
			ReimbursementID:  NormalizeID(c.get(row, colReimbursementID)),
			DayNumber:        ds.dayNumber(i+2, c.get(row, colDayNumber)),
			FirstDay:         c.get(row, colFirstDay),
			LastDay:          c.get(row, colLastDay),
			PerDiem:          c.get(row, colPerDiem),
			LodgingRate:      c.get(row, colLodgingRate),
			LodgingCost:      c.get(row, colLodgingCost),
			LodgingTaxes:     c.get(row, colLodgingTaxes),
			ZipCode:          c.get(row, colZipCode),
		})
	}
	return nil
}

func (ds *Dataset) parseTransportation(path string, c columnIndex, rows [][]string) error {
	if err := c.require(SourceTransportation, path, colSubmissionNum, colTransportationExpenses); err != nil {
		return err
	}
	for i, row := range rows {
		n, ok := ds.submissionNumber(SourceTransportation, i+2, c.get(row, colSubmissionNum))
		if !ok {
			continue
		}
		ds.transportation = append(ds.transportation, Transportation{
			SubmissionNumber: n,
			Expenses:         c.get(row, colTransportationExpenses),
		})
	}
	return nil
}

func (ds *Dataset) parseProperties(path string, c columnIndex, rows [][]string) error {
	if err := c.require(SourceProperty, path,
		colInspectionID, colPropertyID, colPropertyType, colPropertyName,
		colPropertyStreetAddress, colCityState, colPropertyZip); err != nil {
		return err
	}
	for _, row := range rows {
		if isBlankRow(row...) {
			continue
		}
		ds.properties = append(ds.properties, Property{
			InspectionID:  NormalizeID(c.get(row, colInspectionID)),
			PropertyID:    NormalizeID(c.get(row, colPropertyID)),
			Type:          c.get(row, colPropertyType),
			Name:          c.get(row, colPropertyName),
			StreetAddress: c.get(row, colPropertyStreetAddress),
			CityState:     c.get(row, colCityState),
			Zip:           c.get(row, colPropertyZip),
		})
	}
	return nil
}

// Dataset loads a fresh snapshot; it lets a Loader stand in for a SnapshotCache.
func (l *Loader) Dataset(ctx context.Context) (*Dataset, error) {
	return l.Load(ctx)
}
