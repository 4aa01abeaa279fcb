// Package intake decodes uploaded CSV, XLSX and JSON files into the tabular
// dataset the pipeline consumes.
package intake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/model"
)

var (
	// ErrTooLarge is returned when an upload exceeds Options.MaxBytes.
	ErrTooLarge = errors.New("upload exceeds the size limit")
	// ErrTooManyRows is returned when a dataset exceeds Options.MaxRows.
	ErrTooManyRows = errors.New("dataset exceeds the row limit")
	// ErrUnsupportedFormat is returned for file types intake cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Options bounds a single upload.
type Options struct {
	MaxRows  int   // 0 = unlimited
	MaxBytes int64 // 0 = unlimited
	Sheet    int   // XLSX sheet index
}

// OptionsFromConfig builds Options from the intake configuration.
func OptionsFromConfig(cfg config.IntakeConfig) Options {
	return Options{MaxRows: cfg.MaxRows, MaxBytes: cfg.MaxBytes}
}

// Format is a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// DetectFormat maps a file name to its upload format by extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", eris.Wrapf(ErrUnsupportedFormat, "intake: %q", name)
}

// Read decodes r according to the extension of name.
func Read(ctx context.Context, name string, r io.Reader, opts Options) (model.Dataset, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return model.Dataset{}, err
	}

	var ds model.Dataset
	switch format {
	case FormatXLSX:
		ds, err = ReadXLSX(ctx, r, opts)
	case FormatJSON:
		ds, err = ReadJSON(ctx, r, opts)
	default:
		ds, err = ReadCSV(ctx, r, opts)
	}
	if err != nil {
		return model.Dataset{}, err
	}

	zap.L().Info("intake: decoded upload",
		zap.String("file", name),
		zap.String("format", string(format)),
		zap.Int("rows", len(ds.Rows)),
		zap.Int("columns", len(ds.Columns)),
	)
	return ds, nil
}

// readAll reads r up to the byte cap.
func readAll(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "intake: read upload")
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, eris.Wrapf(ErrTooLarge, "intake: limit is %d bytes", limit)
	}
	return data, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns data as UTF-8. Input that is not valid UTF-8 is
// decoded as Latin-1.
func decodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return nil, eris.Wrap(err, "intake: decode latin-1")
	}
	zap.L().Debug("intake: upload is not utf-8, decoded as latin-1")
	return out, nil
}

// NormalizeHeader folds a column heading to the canonical column name:
// lower case, trimmed, with inner spaces and hyphens as underscores.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	}), "_")
}

// tabulate turns a header plus cell rows into a dataset. Blank rows are
// skipped, short rows padded, and cells beyond the header ignored.
func tabulate(header []string, rows [][]string, maxRows int) (model.Dataset, error) {
	columns := make([]string, 0, len(header))
	positions := make([]int, 0, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		columns = append(columns, name)
		positions = append(positions, i)
	}

	ds := model.Dataset{Columns: columns, Rows: make([]model.RawRow, 0, len(rows))}
	for _, cells := range rows {
		if blank(cells) {
			continue
		}
		if maxRows > 0 && len(ds.Rows) >= maxRows {
			return model.Dataset{}, eris.Wrapf(ErrTooManyRows, "intake: limit is %d rows", maxRows)
		}
		fields := make(map[string]string, len(columns))
		for j, col := range columns {
			if p := positions[j]; p < len(cells) {
				fields[col] = cells[p]
			} else {
				fields[col] = ""
			}
		}
		ds.Rows = append(ds.Rows, model.RawRow{Index: len(ds.Rows) + 1, Fields: fields})
	}
	return ds, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
