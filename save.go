package salesql

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"github.com/nao1215/salesql/domain/model"
)

// Output file names inside the report directory.
const (
	ReportFileName   = "report.md"
	WorkbookFileName = "charts.xlsx"
)

// writeFileAtomic writes path through a temporary file in the same
// directory and renames it into place, so path is either the old file or
// the complete new one.
func writeFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// SaveDatabase writes the whole in-memory database to path as a SQLite file.
func SaveDatabase(ctx context.Context, sink *Sink, path string) error {
	ec := NewErrorContext("save database", path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ec.Wrap(ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return ec.Wrap(ErrPersistence, err)
	}
	tmpName := tmp.Name()
	// VACUUM INTO refuses to write over an existing file.
	if err := errors.Join(tmp.Close(), os.Remove(tmpName)); err != nil {
		return ec.Wrap(ErrPersistence, err)
	}

	if _, err := sink.DB().ExecContext(ctx, "VACUUM INTO ?", tmpName); err != nil {
		_ = os.Remove(tmpName)
		return ec.Wrap(ErrPersistence, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return ec.Wrap(ErrPersistence, err)
	}
	return nil
}

// SaveQueries writes the catalog SQL to path.
func SaveQueries(c *Catalog, path string) error {
	err := writeFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, c.SQL())
		return err
	})
	if err != nil {
		return NewErrorContext("save queries", path).Wrap(ErrPersistence, err)
	}
	return nil
}

// SaveWorkbook writes charts.xlsx into dir and returns its path.
func SaveWorkbook(rep *Report, dir string) (string, error) {
	path := filepath.Join(dir, WorkbookFileName)
	err := writeFileAtomic(path, func(w io.Writer) error {
		return WriteWorkbook(w, rep)
	})
	if err != nil {
		return "", NewErrorContext("save charts", path).Wrap(ErrPersistence, err)
	}
	return path, nil
}

// SaveMarkdown writes report.md into dir and returns its path.
func SaveMarkdown(rep *Report, dir string) (string, error) {
	path := filepath.Join(dir, ReportFileName)
	err := writeFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, rep.Markdown)
		return err
	})
	if err != nil {
		return "", NewErrorContext("save report", path).Wrap(ErrPersistence, err)
	}
	return path, nil
}

// SaveReport writes charts.xlsx and then report.md into dir and returns
// their paths. The markdown is not written when the workbook fails, since
// it would describe charts that do not exist.
func SaveReport(rep *Report, dir string) ([]string, error) {
	xlsxPath, err := SaveWorkbook(rep, dir)
	if err != nil {
		return nil, err
	}
	mdPath, err := SaveMarkdown(rep, dir)
	if err != nil {
		return []string{xlsxPath}, err
	}
	return []string{xlsxPath, mdPath}, nil
}

// ExportTable writes table as a flat file in dir and returns its path.
func ExportTable(ctx context.Context, q Querier, table, dir string, opts DumpOptions) (string, error) {
	name := model.NewTableName(table).Sanitize().String()
	path := filepath.Join(dir, name+opts.FileExtension())
	ec := NewErrorContext("export table", path).WithTable(name)

	if err := opts.Validate(); err != nil {
		return "", ec.Wrap(ErrPersistence, err)
	}
	if !opts.Enabled() {
		return "", ec.WithDetails("export disabled").Wrap(ErrPersistence, nil)
	}

	cols, err := tableColumns(ctx, q, name)
	if err != nil {
		return "", ec.Wrap(ErrPersistence, err)
	}
	if len(cols) == 0 {
		return "", ec.Wrap(ErrPersistence, ErrEmptyData)
	}
	rows, err := readTable(ctx, q, name, cols)
	if err != nil {
		return "", ec.Wrap(ErrPersistence, err)
	}

	err = writeFileAtomic(path, func(w io.Writer) error {
		if opts.Format == OutputFormatParquet {
			return writeParquet(w, cols, rows, opts.Compression)
		}
		return writeCSV(w, cols, rows, opts.Compression)
	})
	if err != nil {
		return "", ec.Wrap(ErrPersistence, err)
	}
	return path, nil
}

func readTable(ctx context.Context, q Querier, table string, cols []string) ([][]any, error) {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}
	query := fmt.Sprintf(`SELECT %s FROM "%s"`, strings.Join(quoted, ", "), table)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

func writeCSV(w io.Writer, cols []string, rows [][]any, ct CompressionType) error {
	cw, closeCompressor, err := newCompressor(ct, w)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(cw)
	if err := writer.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, v := range row {
			record[i] = asText(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return closeCompressor()
}

// arrowType maps a declared column to its Parquet physical representation.
func arrowType(col string) arrow.DataType {
	for _, c := range model.TransactionSchema {
		if c.Name != col {
			continue
		}
		switch c.Type {
		case model.ColumnTypeInteger:
			return arrow.PrimitiveTypes.Int64
		case model.ColumnTypeReal:
			return arrow.PrimitiveTypes.Float64
		}
	}
	return arrow.BinaryTypes.String
}

func parquetCodec(ct CompressionType) compress.Compression {
	switch ct {
	case CompressionGZ:
		return compress.Codecs.Gzip
	case CompressionZSTD:
		return compress.Codecs.Zstd
	default:
		return compress.Codecs.Uncompressed
	}
}

func writeParquet(w io.Writer, cols []string, rows [][]any, ct CompressionType) error {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c, Type: arrowType(c), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for _, row := range rows {
		for i, v := range row {
			if v == nil {
				b.Field(i).AppendNull()
				continue
			}
			switch fb := b.Field(i).(type) {
			case *array.Int64Builder:
				n, err := asInt(v)
				if err != nil {
					return err
				}
				fb.Append(n)
			case *array.Float64Builder:
				f, err := asFloat(v)
				if err != nil {
					return err
				}
				fb.Append(f)
			case *array.StringBuilder:
				fb.Append(asText(v))
			}
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(parquetCodec(ct)))
	// The parquet writer closes its sink; the temp file is closed by the caller.
	fw, err := pqarrow.NewFileWriter(schema, struct{ io.Writer }{w}, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return err
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}
