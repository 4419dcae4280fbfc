package salesql

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/nao1215/salesql/domain/model"
)

// Encoding is the text encoding of the input file.
type Encoding string

const (
	// EncodingLatin1 is ISO-8859-1, the encoding of the published dataset
	EncodingLatin1 Encoding = "latin1"
	// EncodingWindows1252 is the Windows superset of Latin-1
	EncodingWindows1252 Encoding = "windows1252"
	// EncodingUTF8 reads the input as is
	EncodingUTF8 Encoding = "utf8"
)

// ParseEncoding converts a configuration value into an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "", "latin1", "iso88591":
		return EncodingLatin1, nil
	case "windows1252", "cp1252":
		return EncodingWindows1252, nil
	case "utf8":
		return EncodingUTF8, nil
	default:
		return "", fmt.Errorf("unknown encoding %q", s)
	}
}

// utf8BOMBytes marks a UTF-8 file regardless of the configured encoding.
var utf8BOMBytes = []byte{0xEF, 0xBB, 0xBF}

// RecordStore is the parsed input: a validated header and the raw rows.
type RecordStore struct {
	path    string
	header  model.Header
	extra   []string
	records []model.RawTransaction
}

// Path returns the file the store was loaded from, or "" for a reader.
func (s *RecordStore) Path() string {
	return s.path
}

// Header returns the header as read from the input.
func (s *RecordStore) Header() model.Header {
	return s.header
}

// ExtraColumns returns header columns the schema does not declare. They are
// not read.
func (s *RecordStore) ExtraColumns() []string {
	return s.extra
}

// Records returns a copy of the parsed rows.
func (s *RecordStore) Records() []model.RawTransaction {
	out := make([]model.RawTransaction, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of parsed rows.
func (s *RecordStore) Len() int {
	return len(s.records)
}

type loadConfig struct {
	encoding Encoding
	logger   *zap.Logger
}

// LoadOption configures Load and LoadReader.
type LoadOption func(*loadConfig)

// WithEncoding sets the text encoding of the input. The default is Latin-1.
func WithEncoding(enc Encoding) LoadOption {
	return func(c *loadConfig) {
		c.encoding = enc
	}
}

// WithLoadLogger sets the logger used while loading.
func WithLoadLogger(l *zap.Logger) LoadOption {
	return func(c *loadConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newLoadConfig(opts []LoadOption) *loadConfig {
	c := &loadConfig{
		encoding: EncodingLatin1,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load parses the transaction CSV at path. Compression is chosen from the
// file extension (.gz, .bz2, .xz, .zst).
func Load(ctx context.Context, path string, opts ...LoadOption) (*RecordStore, error) {
	if err := newValidator().validateInputPath(path); err != nil {
		return nil, err
	}
	ec := NewErrorContext("load", path)

	r, closeReader, err := openCompressed(path)
	if err != nil {
		return nil, ec.Wrap(ErrInputParse, err)
	}
	defer func() {
		_ = closeReader()
	}()

	store, err := loadReader(ctx, r, newLoadConfig(opts), ec)
	if err != nil {
		return nil, err
	}
	store.path = path
	return store, nil
}

// LoadReader parses transaction CSV from r. r must not be compressed.
func LoadReader(ctx context.Context, r io.Reader, opts ...LoadOption) (*RecordStore, error) {
	return loadReader(ctx, r, newLoadConfig(opts), NewErrorContext("load", ""))
}

func loadReader(ctx context.Context, r io.Reader, cfg *loadConfig, ec *ErrorContext) (*RecordStore, error) {
	decoded, err := decodeText(r, cfg.encoding)
	if err != nil {
		return nil, ec.Wrap(ErrInputParse, err)
	}

	cr := csv.NewReader(decoded)
	cr.LazyQuotes = true
	// Field counts are checked below to report them as parse errors with a line number.
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ec.WithDetails("no header").Wrap(ErrSchemaMismatch, ErrEmptyData)
		}
		return nil, ec.Wrap(ErrInputParse, err)
	}
	header := model.NewHeader(first)

	index, extra, err := model.TransactionSchema.Validate(header)
	if err != nil {
		return nil, ec.Wrap(ErrSchemaMismatch, err)
	}
	if len(extra) > 0 {
		cfg.logger.Warn("ignoring undeclared input columns", zap.Strings("columns", extra))
	}

	store := &RecordStore{header: header, extra: extra}
	for {
		if err := ctx.Err(); err != nil {
			return nil, ec.Error(err)
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ec.Wrap(ErrInputParse, err)
		}
		line, _ := cr.FieldPos(0)
		if len(fields) != len(header) {
			return nil, ec.WithDetails(fmt.Sprintf("line %d: expected %d fields, got %d", line, len(header), len(fields))).
				Wrap(ErrInputParse, nil)
		}

		rec, err := parseRow(fields, index, line)
		if err != nil {
			return nil, ec.WithDetails(err.Error()).Wrap(ErrInputParse, nil)
		}
		store.records = append(store.records, rec)
	}

	cfg.logger.Info("input loaded",
		zap.String("encoding", string(cfg.encoding)),
		zap.Int("rows", len(store.records)),
	)
	return store, nil
}

// decodeText strips a UTF-8 BOM and converts the rest of r to UTF-8.
// A BOM means the file is UTF-8 whatever the configured encoding says.
func decodeText(r io.Reader, enc Encoding) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(utf8BOMBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if bytes.Equal(head, utf8BOMBytes) {
		if _, err := br.Discard(len(utf8BOMBytes)); err != nil {
			return nil, err
		}
		return br, nil
	}

	switch enc {
	case EncodingLatin1, "":
		return charmap.ISO8859_1.NewDecoder().Reader(br), nil
	case EncodingWindows1252:
		return charmap.Windows1252.NewDecoder().Reader(br), nil
	case EncodingUTF8:
		return br, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}

// parseRow maps one CSV record onto a RawTransaction using the header index.
func parseRow(fields []string, index map[string]int, line int) (model.RawTransaction, error) {
	get := func(col string) string {
		return strings.TrimSpace(fields[index[col]])
	}
	nullable := func(col string) sql.NullString {
		v := get(col)
		return sql.NullString{String: v, Valid: v != ""}
	}

	qty, err := strconv.ParseInt(get(model.ColumnQuantity), 10, 64)
	if err != nil {
		return model.RawTransaction{}, fmt.Errorf("line %d: column %s: invalid integer %q",
			line, model.ColumnQuantity, get(model.ColumnQuantity))
	}
	price, err := decimal.NewFromString(get(model.ColumnUnitPrice))
	if err != nil {
		return model.RawTransaction{}, fmt.Errorf("line %d: column %s: invalid decimal %q",
			line, model.ColumnUnitPrice, get(model.ColumnUnitPrice))
	}

	return model.RawTransaction{
		Line:        line,
		InvoiceNo:   get(model.ColumnInvoiceNo),
		StockCode:   get(model.ColumnStockCode),
		Description: nullable(model.ColumnDescription),
		Quantity:    qty,
		InvoiceDate: get(model.ColumnInvoiceDate),
		UnitPrice:   price,
		CustomerID:  nullable(model.ColumnCustomerID),
		Country:     get(model.ColumnCountry),
	}, nil
}
