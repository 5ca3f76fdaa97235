package tables

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tphakala/perdiem-go/internal/conf"
	"golang.org/x/text/encoding/charmap"
)

const (
	submissionsCSV = "Submission Num,Inspector Name,Reimbursement RequestID,Miles Driven,Total Reimbursement,Total Inspections,Depart City,Depart State,Dest City,Dest State,Dest Zip,Comments\r\n" +
		"268,René Côté,R-100,120,\"$1,700.00\",4,Atlanta,GA,Macon,GA,31201,Café stop\r\n" +
		"269,Ann Lee,R-101,0,$900.00,3,Macon,GA,Athens,GA,30601,\r\n" +
		",,,,,,,,,,,\r\n"

	// header names deliberately wrong; the loader must read by position
	inspectionsCSV = "Sub,Req,Who,Old,When,Prop,Insp,State\r\n" +
		"268,R-100,René Côté,9001,06/01/2024,P-1,1001,Complete\r\n" +
		"268,R-100,René Côté,9002,06/01/2024,P-2,1002,Complete\r\n" +
		"268.0,R-100,René Côté,9003,06/03/2024,P-3,1003.0,Complete\r\n" +
		"269,R-101,Ann Lee,9004,07/10/2024,P-4,1004,Complete\r\n"

	perDiemCSV = "Submission Num,Reimbursement RequestID,First Day,Last Day,Per Diem,Lodging Rate,Lodging Cost,Lodging Taxes,Zip Code\r\n" +
		"268,R-100,06/01/2024,06/03/2024,51.00,110,105.00,12.40,31201\r\n" +
		"269,R-101,07/10/2024,07/11/2024,59,98,98,10,\r\n"

	transportationCSV = "Submission Num,Transportation Expenses\r\n" +
		"268,$42.10\r\n"

	propertyCSV = "\ufeffInspectionID,PropertyID,PropertyType,PropertyName,PropertyStreetAddress,CityState,PropertyZip\r\n" +
		"1001,P-1,Multifamily,Oak Court,1 Oak St,\"Macon, GA\",31201\r\n" +
		"1003,P-3,Senior,Pine Manor,3 Pine Rd,\"Macon, GA\",31204\r\n"
)

// writeCP1252 writes text re-encoded as Windows-1252.
func writeCP1252(t *testing.T, path, text string) {
	t.Helper()
	encoded, err := charmap.Windows1252.NewEncoder().String(text)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o600))
}

// writeFixture lays out a complete set of sources in a temp dir and returns
// the matching settings.
func writeFixture(t *testing.T) conf.SourcesSettings {
	t.Helper()
	dir := t.TempDir()

	writeCP1252(t, filepath.Join(dir, "submissions.csv"), submissionsCSV)
	writeCP1252(t, filepath.Join(dir, "inspections.csv"), inspectionsCSV)
	writeCP1252(t, filepath.Join(dir, "perdiem.csv"), perDiemCSV)
	writeCP1252(t, filepath.Join(dir, "transportation.csv"), transportationCSV)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "property.csv"), []byte(propertyCSV), 0o600))

	return conf.SourcesSettings{
		Dir:            dir,
		Submissions:    conf.SourceConfig{Path: "submissions.csv", Encoding: conf.EncodingCP1252},
		Inspections:    conf.SourceConfig{Path: "inspections.csv", Encoding: conf.EncodingCP1252},
		PerDiem:        conf.SourceConfig{Path: "perdiem.csv", Encoding: conf.EncodingCP1252},
		Transportation: conf.SourceConfig{Path: "transportation.csv", Encoding: conf.EncodingCP1252},
		Property:       conf.SourceConfig{Path: "property.csv", Encoding: conf.EncodingUTF8SIG},
	}
}

func sourceXLSX(path, sheet string) conf.SourceConfig {
	return conf.SourceConfig{Path: path, Sheet: sheet}
}
