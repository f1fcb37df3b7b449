package pdbfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Header is the metadata carried by a structure file's leading records.
// Computed models leave Classification and ID empty.
type Header struct {
	Classification string
	Date           string
	ID             string
	Title          string
	Organisms      []string
	Methods        []string
	Genes          []string
	UniProt        []string
}

var monthNumbers = map[string]string{
	"JAN": "01", "FEB": "02", "MAR": "03", "APR": "04",
	"MAY": "05", "JUN": "06", "JUL": "07", "AUG": "08",
	"SEP": "09", "OCT": "10", "NOV": "11", "DEC": "12",
}

// ReadHeader opens a gzip-compressed structure file and parses its header
// records.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	defer gz.Close()
	return Parse(gz)
}

// Parse reads header records from plain structure-file text. Scanning
// stops at the first body record, so large files cost only their header.
func Parse(r io.Reader) (Header, error) {
	var (
		header Header
		titles []string
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "HEADER"):
			header.Classification = field(line, 10, 50)
			header.Date = sortableDate(field(line, 50, 59))
			header.ID = field(line, 62, 66)
		case strings.HasPrefix(line, "TITLE"):
			if t := field(line, 10, len(line)); t != "" {
				titles = append(titles, t)
			}
		case strings.HasPrefix(line, "SOURCE") && strings.Contains(line, "ORGANISM_SCIENTIFIC"):
			if v := strings.TrimRight(field(line, 32, len(line)), ";"); v != "" {
				header.Organisms = append(header.Organisms, v)
			}
		case strings.HasPrefix(line, "SOURCE") && strings.Contains(line, " GENE: "):
			if v := strings.TrimRight(field(line, 17, len(line)), ";"); v != "" {
				header.Genes = append(header.Genes, v)
			}
		case strings.HasPrefix(line, "EXPDTA"):
			if v := field(line, 7, len(line)); v != "" {
				header.Methods = append(header.Methods, v)
			}
		case strings.HasPrefix(line, "DBREF") && strings.Contains(line, "UNP "):
			if v := field(line, 32, 42); v != "" {
				header.UniProt = append(header.UniProt, v)
			}
		case bodyRecord(line):
			header.Title = strings.Join(titles, " ")
			return header, scanner.Err()
		}
	}
	header.Title = strings.Join(titles, " ")
	return header, scanner.Err()
}

// field slices a fixed-column range, tolerating short lines.
func field(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return strings.TrimSpace(line[from:to])
}

func bodyRecord(line string) bool {
	for _, prefix := range []string{"SEQRES", "CRYST1", "MODEL ", "ATOM "} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// sortableDate converts the two-digit-year record date (11-AUG-05) to
// ISO form (2005-08-11). Years at or past 50 read as nineteen-hundreds.
func sortableDate(recordDate string) string {
	parts := strings.Split(recordDate, "-")
	if len(parts) != 3 {
		return recordDate
	}
	month, ok := monthNumbers[parts[1]]
	if !ok {
		return recordDate
	}
	year := parts[2]
	if year < "50" {
		year = "20" + year
	} else {
		year = "19" + year
	}
	return year + "-" + month + "-" + parts[0]
}
