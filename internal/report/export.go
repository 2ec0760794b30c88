package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Fixed export file names; every run overwrites them.
const (
	CSVFileName  = "relatorio_participacao.csv"
	XLSXFileName = "relatorio_participacao.xlsx"
)

const sheetName = "Sheet1"

// utf8BOM lets spreadsheet tools detect the CSV encoding.
const utf8BOM = "\xEF\xBB\xBF"

// Header is the column layout shared by both exports.
var Header = []string{"profile_name", "total_participations", "dates", "videos"} //nolint:gochecknoglobals // column layout

// Exporter writes report artifacts into a single directory.
type Exporter struct {
	dir string
}

// NewExporter creates an Exporter rooted at dir.
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Dir returns the export directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// Write regenerates both export files from s. Each file is written under a
// temporary name and renamed into place, so readers never see a partial file.
func (e *Exporter) Write(s Summary) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil { //nolint:gosec // reports are served publicly
		return nil, fmt.Errorf("report.Exporter.Write: create dir: %w", err)
	}

	if err := e.writeFile(CSVFileName, func(w io.Writer) error { return writeCSV(w, s) }); err != nil {
		return nil, fmt.Errorf("report.Exporter.Write: csv: %w", err)
	}
	if err := e.writeFile(XLSXFileName, func(w io.Writer) error { return writeXLSX(w, s) }); err != nil {
		return nil, fmt.Errorf("report.Exporter.Write: xlsx: %w", err)
	}

	return []string{CSVFileName, XLSXFileName}, nil
}

func (e *Exporter) writeFile(name string, render func(io.Writer) error) error {
	tmp, err := os.CreateTemp(e.dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	bw := bufio.NewWriter(tmp)
	if err := render(bw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil { //nolint:gosec // reports are served publicly
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, filepath.Join(e.dir, name))
}

func rowValues(row Row) []string {
	return []string{
		row.DisplayName,
		strconv.Itoa(row.Count),
		strings.Join(row.Dates, Separator),
		strings.Join(row.Labels, Separator),
	}
}

func writeCSV(w io.Writer, s Summary) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range s.Rows {
		if err := cw.Write(rowValues(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, s Summary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.DisplayName,
			row.Count,
			strings.Join(row.Dates, Separator),
			strings.Join(row.Labels, Separator),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	return f.Write(w)
}
