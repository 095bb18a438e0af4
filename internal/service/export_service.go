package service

import (
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
	appErrors "github.com/noah-isme/records-console/pkg/errors"
	"github.com/noah-isme/records-console/pkg/export"
)

// directoryReader is the export source: the student directory's local mirror.
// Exports never trigger a server round-trip.
type directoryReader interface {
	Records() []models.StudentRecord
}

// ExportService flattens the student directory into a roster table and
// renders it as CSV or PDF.
type ExportService struct {
	dir    directoryReader
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the roster exporter.
func NewExportService(dir directoryReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		dir:    dir,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var rosterColumns = []string{"Name", "Age", "Gender", "Major", "Class"}

// Render produces the roster in the given format ("csv" or "pdf") along with
// a suggested file name. Subject columns are the union of subjects across the
// directory in first-seen order; a record without a subject leaves the cell
// empty.
func (s *ExportService) Render(format string) ([]byte, string, error) {
	records := s.dir.Records()
	if len(records) == 0 {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "no student data to export")
	}

	table := buildRoster(records)
	switch format {
	case "csv":
		data, err := s.csv.Render(table)
		return data, "students.csv", err
	case "pdf":
		data, err := s.pdf.Render(table, "student roster")
		return data, "students.pdf", err
	}
	return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
}

func buildRoster(records []models.StudentRecord) export.Table {
	columns := append([]string{}, rosterColumns...)
	seen := make(map[string]bool)
	for _, record := range records {
		// Keep subject columns in first-seen directory order. Within one
		// record the mapping is unordered, so sort its unseen subjects via
		// the row expansion the edit buffer uses.
		for _, row := range gradeRowsInOrder(record.Grades) {
			if !seen[row.Subject] {
				seen[row.Subject] = true
				columns = append(columns, row.Subject)
			}
		}
	}

	table := export.Table{Columns: columns}
	for _, record := range records {
		row := []string{
			record.Name,
			strconv.Itoa(record.Age),
			record.Gender,
			record.Major,
			record.ClassName,
		}
		for _, subject := range columns[len(rosterColumns):] {
			if score, ok := record.Grades[subject]; ok {
				row = append(row, strconv.FormatFloat(score, 'f', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func gradeRowsInOrder(grades map[string]float64) []GradeRow {
	rows := make([]GradeRow, 0, len(grades))
	for subject, score := range grades {
		rows = append(rows, GradeRow{Subject: subject, Score: score})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Subject < rows[j].Subject })
	return rows
}
