package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrUnknownFormat is returned for dataset files with an unrecognized extension.
var ErrUnknownFormat = errors.New("unknown dataset format")

// ParseRows reads all rows from a dataset stream. The format and optional
// compression are derived from the file name: .csv and .ndjson/.jsonl,
// optionally wrapped in .gz or .zst.
func ParseRows(name string, r io.Reader) ([]Row, error) {
	base := name

	switch path.Ext(base) {
	case ".gz":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip %s: %w", name, err)
		}
		defer gz.Close()
		r = gz
		base = strings.TrimSuffix(base, ".gz")
	case ".zst":
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd %s: %w", name, err)
		}
		defer zr.Close()
		r = zr
		base = strings.TrimSuffix(base, ".zst")
	}

	switch path.Ext(base) {
	case ".csv":
		return parseCSV(r)
	case ".ndjson", ".jsonl":
		return parseNDJSON(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// parseCSV reads a header row plus data rows. CSV carries no type
// information, so every value is kept verbatim as a string.
func parseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}

		fields := make([]Field, len(header))
		for i, name := range header {
			fields[i] = Field{Name: name, Value: String(record[i])}
		}
		rows = append(rows, NewRow(fields...))
	}

	return rows, nil
}

// parseNDJSON reads one JSON object per line, preserving key order via the
// token stream (a decoded map would scramble it).
func parseNDJSON(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var rows []Row
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		row, err := parseJSONObject(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return rows, nil
}

func parseJSONObject(text string) (Row, error) {
	dec := json.NewDecoder(strings.NewReader(text))

	tok, err := dec.Token()
	if err != nil {
		return Row{}, fmt.Errorf("parse object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Row{}, errors.New("expected JSON object")
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Row{}, fmt.Errorf("parse key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return Row{}, errors.New("non-string object key")
		}

		valTok, err := dec.Token()
		if err != nil {
			return Row{}, fmt.Errorf("parse value for %q: %w", key, err)
		}

		value, err := tokenToValue(valTok)
		if err != nil {
			return Row{}, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, Field{Name: key, Value: value})
	}

	return NewRow(fields...), nil
}

func tokenToValue(tok json.Token) (Value, error) {
	switch v := tok.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(v), nil
	case float64:
		return Number(v), nil
	case bool:
		return Boolean(v), nil
	case json.Delim:
		return Value{}, errors.New("nested values are not supported")
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", tok)
	}
}
