// Package output reads and writes lead files and owns their naming scheme.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"supplier_leads_scraper/internal/lead"
)

// TimestampLayout is the run timestamp embedded in file names.
const TimestampLayout = "20060102_150405"

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnsupportedFormat is returned for file extensions without a codec.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// RunFileName is the definitive output name for a run started at t.
func RunFileName(prefix string, t time.Time, format string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, t.Format(TimestampLayout), format)
}

// RunPath returns the output path in dir for a run started at t. When a file
// of that name already exists, a _2, _3, ... suffix follows the timestamp.
func RunPath(dir, prefix string, t time.Time, format string) (string, error) {
	name := RunFileName(prefix, t, format)
	base := strings.TrimSuffix(name, "."+format)
	path := filepath.Join(dir, name)
	for n := 2; ; n++ {
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.%s", base, n, format))
	}
}

// CheckpointPath derives the progress file path for page from the run's output path.
func CheckpointPath(path string, page int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_temp_page%d%s", strings.TrimSuffix(path, ext), page, ext)
}

// Latest returns the most recently modified file in dir named <prefix>_*.csv or
// <prefix>_*.xlsx. It returns "" when there is none or dir does not exist.
func Latest(dir, prefix string) (string, error) {
	type candidate struct {
		path string
		mod  time.Time
	}

	var found []candidate
	for _, format := range []string{FormatCSV, FormatXLSX} {
		matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*."+format))
		if err != nil {
			return "", fmt.Errorf("glob %s: %w", dir, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				return "", fmt.Errorf("stat %s: %w", m, err)
			}
			if info.Mode().IsRegular() {
				found = append(found, candidate{path: m, mod: info.ModTime()})
			}
		}
	}
	if len(found) == 0 {
		return "", nil
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].mod.Equal(found[j].mod) {
			return found[i].path > found[j].path
		}
		return found[i].mod.After(found[j].mod)
	})
	return found[0].path, nil
}

// Write writes records with a header row to path, in the format its extension names.
// The file is replaced atomically.
func Write(path string, records []lead.Record) error {
	switch formatOf(path) {
	case FormatCSV:
		return writeAtomic(path, func(tmp string) error { return writeCSV(tmp, records) })
	case FormatXLSX:
		return writeAtomic(path, func(tmp string) error { return writeXLSX(tmp, records) })
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Read parses a lead file written by Write or by hand. Rows are mapped by header name.
func Read(path string) ([]lead.Record, error) {
	var (
		rows [][]string
		err  error
	)
	switch formatOf(path) {
	case FormatCSV:
		rows, err = readCSV(path)
	case FormatXLSX:
		rows, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header, err := lead.ParseHeader(rows[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	records := make([]lead.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		records = append(records, header.Record(row))
	}
	return records, nil
}

func formatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func writeAtomic(path string, write func(tmp string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".partial-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("create temp file: %w", err)
	}

	if err := write(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
