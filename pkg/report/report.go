// Package report renders stored courses for people and spreadsheets: CSV
// tables of courses and sections, and an iCalendar feed of meeting times.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

// WriteCsv marshals a slice of csv-tagged rows to w.
func WriteCsv(in interface{}, w io.Writer) error {
	if err := gocsv.Marshal(in, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteFile creates fileName and hands it to write.
func WriteFile(fileName string, write func(w io.Writer) error) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func joinList(values []string) string {
	return strings.Join(values, "; ")
}
