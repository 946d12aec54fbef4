package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"grocery-storefront/internal/domain"
)

// TermWriter stores a weighted suggestion term.
type TermWriter interface {
	Upsert(ctx context.Context, term string, weight int64) (*domain.SearchTerm, error)
}

// CSVImporter loads suggestion vocabulary from CSV files with a header row
// naming a "term" column and an optional "weight" column.
type CSVImporter struct {
	reader *csv.Reader
	writer TermWriter
}

func NewCSVImporter(r io.Reader, w TermWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	csvr.Comment = '#'
	return &CSVImporter{reader: csvr, writer: w}
}

type Summary struct {
	Imported int
	Skipped  int
}

// Run upserts every row. Blank terms are skipped; a malformed weight or a
// term the store rejects aborts the import with the offending line.
func (i *CSVImporter) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	headers, err := i.reader.Read()
	if err != nil {
		return sum, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	termCol, ok := index["term"]
	if !ok {
		return sum, errors.New(`missing "term" column`)
	}
	weightCol, hasWeight := index["weight"]

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)

		term := strings.TrimSpace(get(record, termCol))
		if term == "" {
			sum.Skipped++
			continue
		}
		var weight int64
		if hasWeight {
			if raw := strings.TrimSpace(get(record, weightCol)); raw != "" {
				weight, err = strconv.ParseInt(raw, 10, 64)
				if err != nil {
					return sum, fmt.Errorf("line %d: invalid weight %q", line, raw)
				}
			}
		}
		if _, err := i.writer.Upsert(ctx, term, weight); err != nil {
			return sum, fmt.Errorf("line %d: %w", line, err)
		}
		sum.Imported++
	}
	return sum, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func get(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return record[col]
}
