package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// WriteText writes records as url/title line pairs separated by newlines.
// There is no separator after the last record.
func WriteText(w io.Writer, records []PageRecord) error {
	bw := bufio.NewWriter(w)

	for i, record := range records {
		if i > 0 {
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(bw, "%s\n%s", record.URL, flattenTitle(record.Title)); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ExportText writes records to the file at path, replacing it if present
func ExportText(path string, records []PageRecord) error {
	var buf bytes.Buffer
	if err := WriteText(&buf, records); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	return nil
}

// ReadText parses the format produced by WriteText
func ReadText(r io.Reader) ([]PageRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	// A record with an empty title ends in a blank line which the scanner drops
	// when it is the last one.
	if len(lines)%2 == 1 {
		lines = append(lines, "")
	}

	records := make([]PageRecord, 0, len(lines)/2)
	for i := 0; i < len(lines); i += 2 {
		if lines[i] == "" {
			return nil, fmt.Errorf("empty url at line %d", i+1)
		}
		records = append(records, PageRecord{URL: lines[i], Title: lines[i+1]})
	}

	return records, nil
}

// ReadTextFile reads an export file from disk
func ReadTextFile(path string) ([]PageRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	return ReadText(file)
}

// flattenTitle keeps a title on one line so the two-line layout stays parseable
func flattenTitle(title string) string {
	if !strings.ContainsAny(title, "\r\n") {
		return title
	}
	return strings.Join(strings.Fields(title), " ")
}
