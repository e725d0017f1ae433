// Package csvio is the CSV source/sink: generic, struct-tag-driven
// readers and writers for the row types internal/spotify defines,
// following a header-then-append-record pattern generalized from one
// hand-written record to any `csv`-tagged struct.
package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// Writer appends csv-tagged struct rows to a file, writing the header
// row once when the file is first created (empty).
type Writer struct {
	f      *os.File
	w      *csv.Writer
	header []string
}

// OpenWriter opens path for append (creating it if missing) and
// prepares a Writer for row type T. If the file is empty, the header
// row derived from T's `csv` tags is written immediately.
func OpenWriter[T any](path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvio: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvio: stat %s: %w", path, err)
	}

	var zero T
	header := headerFor(reflect.TypeOf(zero))

	w := &Writer{f: f, w: csv.NewWriter(f), header: header}
	if info.Size() == 0 {
		if err := w.w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvio: write header to %s: %w", path, err)
		}
		w.w.Flush()
		if err := w.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvio: flush header to %s: %w", path, err)
		}
	}
	return w, nil
}

// Write appends one row, flushing and surfacing any write error
// immediately: flushing after every record instead of batching means a
// crashed crawl loses at most the in-flight row.
func (w *Writer) Write(row any) error {
	record, err := recordFor(reflect.ValueOf(row))
	if err != nil {
		return err
	}
	if err := w.w.Write(record); err != nil {
		return fmt.Errorf("csvio: write record: %w", err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("csvio: flush: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}

// ReadRows reads every row of path into a []T, matching columns to T's
// `csv` tags by header name (order-independent) so seed/input files can
// be edited by hand without breaking the reader.
func ReadRows[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvio: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvio: read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	header := all[0]
	colByName := make(map[string]int, len(header))
	for i, name := range header {
		colByName[name] = i
	}

	var zero T
	fields := flattenFields(reflect.TypeOf(zero))

	rows := make([]T, 0, len(all)-1)
	for _, rec := range all[1:] {
		var out T
		v := reflect.ValueOf(&out).Elem()
		for _, fl := range fields {
			idx, ok := colByName[fl.name]
			if !ok || idx >= len(rec) {
				continue
			}
			if err := setField(v.FieldByIndex(fl.index), fl.arrayIndex, rec[idx]); err != nil {
				return nil, fmt.Errorf("csvio: row value for %s in %s: %w", fl.name, path, err)
			}
		}
		rows = append(rows, out)
	}
	return rows, nil
}

// flatField is one scalar CSV column: a path to a struct field, and
// (for [N]float64 fields) which array slot it flattens.
type flatField struct {
	name       string
	index      []int
	arrayIndex int // -1 for non-array fields
}

func headerFor(t reflect.Type) []string {
	fields := flattenFields(t)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

// flattenFields walks t's exported fields, expanding any [N]float64
// field into N numbered columns ("<tag>_0".."<tag>_N-1") so FeaturesCsv's
// per-dimension statistics round-trip without 96 hand-named struct
// fields.
func flattenFields(t reflect.Type) []flatField {
	var out []flatField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("csv")
		if tag == "" {
			continue
		}

		if sf.Type.Kind() == reflect.Array && sf.Type.Elem().Kind() == reflect.Float64 {
			n := sf.Type.Len()
			for j := 0; j < n; j++ {
				out = append(out, flatField{
					name:       fmt.Sprintf("%s_%d", tag, j),
					index:      sf.Index,
					arrayIndex: j,
				})
			}
			continue
		}

		out = append(out, flatField{name: tag, index: sf.Index, arrayIndex: -1})
	}
	return out
}

func recordFor(v reflect.Value) ([]string, error) {
	fields := flattenFields(v.Type())
	record := make([]string, len(fields))
	for i, fl := range fields {
		fieldVal := v.FieldByIndex(fl.index)
		if fl.arrayIndex >= 0 {
			fieldVal = fieldVal.Index(fl.arrayIndex)
		}
		record[i] = formatField(fieldVal)
	}
	return record, nil
}

func formatField(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func setField(v reflect.Value, arrayIndex int, raw string) error {
	if arrayIndex >= 0 {
		v = v.Index(arrayIndex)
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		v.SetBool(b)
	}
	return nil
}
