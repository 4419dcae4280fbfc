package salesql

import (
	"bytes"
	"compress/gzip"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/salesql/domain/model"
)

func TestParseEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Encoding
		wantErr bool
	}{
		{in: "", want: EncodingLatin1},
		{in: "latin1", want: EncodingLatin1},
		{in: "ISO-8859-1", want: EncodingLatin1},
		{in: "cp1252", want: EncodingWindows1252},
		{in: "windows-1252", want: EncodingWindows1252},
		{in: "UTF-8", want: EncodingUTF8},
		{in: "ebcdic", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseEncoding(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_Sample(t *testing.T) {
	t.Parallel()

	store, err := Load(context.Background(), sampleCSV)
	require.NoError(t, err)

	assert.Equal(t, sampleCSV, store.Path())
	assert.Equal(t, sampleRowsIn, store.Len())
	assert.True(t, store.Header().Equal(model.NewHeader(model.TransactionSchema.Input().Names())))
	assert.Empty(t, store.ExtraColumns())

	recs := store.Records()
	first := recs[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "536365", first.InvoiceNo)
	assert.Equal(t, "WHITE HANGING HEART T-LIGHT HOLDER", first.Description.String)
	assert.Equal(t, int64(6), first.Quantity)
	assert.Equal(t, "12/1/2010 8:26", first.InvoiceDate)
	assert.True(t, first.UnitPrice.Equal(decimal.RequireFromString("2.55")))
	assert.Equal(t, "United Kingdom", first.Country)

	// Quoted field with a comma.
	assert.Equal(t, "HOT WATER BOTTLE, TEA AND SYMPATHY", recs[7].Description.String)

	// Empty CustomerID is null, and the line number points at the file line.
	assert.False(t, recs[6].CustomerID.Valid)
	assert.Equal(t, 8, recs[6].Line)

	// Latin-1 0xE9 decodes to U+00E9.
	assert.Equal(t, "CAFÉ CREME MUG", recs[11].Description.String)
}

func TestLoad_BOMForcesUTF8(t *testing.T) {
	t.Parallel()

	// The configured Latin-1 would turn the UTF-8 bytes of É into two characters.
	store, err := Load(context.Background(), sampleBOMCSV, WithEncoding(EncodingLatin1))
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())
	assert.Equal(t, model.ColumnInvoiceNo, store.Header()[0])
	assert.Equal(t, "CAFÉ CREME MUG", store.Records()[0].Description.String)
}

func TestLoad_Compressed(t *testing.T) {
	t.Parallel()

	plain, err := Load(context.Background(), sampleCSV)
	require.NoError(t, err)

	data := mustReadFile(t, sampleCSV)
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err = gw.Write(data)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	path := writeTestFile(t, t.TempDir(), "sample.csv.gz", buf.Bytes())

	store, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, plain.Records(), store.Records())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(context.Background(), dir+"/absent.csv")
		assert.ErrorIs(t, err, ErrInputNotFound)
		assert.True(t, IsFatal(err))
	})
	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		_, err := Load(context.Background(), "")
		assert.ErrorIs(t, err, ErrInputNotFound)
	})
	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		_, err := Load(context.Background(), dir)
		assert.ErrorIs(t, err, ErrInputParse)
	})
}

func TestLoadReader(t *testing.T) {
	t.Parallel()

	row := "536365,71053,WHITE METAL LANTERN,6,12/1/2010 8:26,3.39,17850,United Kingdom\n"

	tests := []struct {
		name     string
		input    string
		wantErrs []error
		wantIn   string
	}{
		{
			name:     "empty input",
			input:    "",
			wantErrs: []error{ErrSchemaMismatch, ErrEmptyData},
		},
		{
			name:     "missing column",
			input:    "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,Country\n",
			wantErrs: []error{ErrSchemaMismatch, model.ErrMissingColumn},
			wantIn:   "CustomerID",
		},
		{
			name:     "duplicate column",
			input:    strings.TrimSuffix(sampleHeader, "\n") + ",Country\n",
			wantErrs: []error{ErrSchemaMismatch, model.ErrDuplicateColumnName},
		},
		{
			name:     "ragged row",
			input:    sampleHeader + row + "536366,22633,HAND WARMER\n",
			wantErrs: []error{ErrInputParse},
			wantIn:   "line 3",
		},
		{
			name:     "bad quantity",
			input:    sampleHeader + "536365,71053,WHITE METAL LANTERN,six,12/1/2010 8:26,3.39,17850,United Kingdom\n",
			wantErrs: []error{ErrInputParse},
			wantIn:   "Quantity",
		},
		{
			name:     "bad price",
			input:    sampleHeader + "536365,71053,WHITE METAL LANTERN,6,12/1/2010 8:26,£3,17850,United Kingdom\n",
			wantErrs: []error{ErrInputParse},
			wantIn:   "UnitPrice",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadReader(context.Background(), strings.NewReader(tt.input), WithEncoding(EncodingUTF8))
			require.Error(t, err)
			for _, want := range tt.wantErrs {
				assert.ErrorIs(t, err, want)
			}
			if tt.wantIn != "" {
				assert.Contains(t, err.Error(), tt.wantIn)
			}
		})
	}
}

func TestLoadReader_ExtraColumnsIgnored(t *testing.T) {
	t.Parallel()

	input := "Notes," + sampleHeader +
		"gift wrap,536365,71053,WHITE METAL LANTERN, 6 ,12/1/2010 8:26,3.39,17850,United Kingdom\n"
	store, err := LoadReader(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Notes"}, store.ExtraColumns())
	require.Equal(t, 1, store.Len())
	rec := store.Records()[0]
	assert.Equal(t, "536365", rec.InvoiceNo)
	assert.Equal(t, int64(6), rec.Quantity)
	assert.Empty(t, store.Path())
}

func TestLoadReader_Windows1252(t *testing.T) {
	t.Parallel()

	input := []byte(sampleHeader + "536365,1,EURO MUG \x80,1,12/1/2010 8:26,1.00,17850,France\n")

	store, err := LoadReader(context.Background(), bytes.NewReader(input), WithEncoding(EncodingWindows1252))
	require.NoError(t, err)
	assert.Equal(t, "EURO MUG €", store.Records()[0].Description.String)

	store, err = LoadReader(context.Background(), bytes.NewReader(input), WithEncoding(EncodingLatin1))
	require.NoError(t, err)
	assert.Equal(t, "EURO MUG \u0080", store.Records()[0].Description.String)
}

func TestLoadReader_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadReader(ctx, strings.NewReader(sampleHeader))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordStore_RecordsIsCopy(t *testing.T) {
	t.Parallel()

	store, err := Load(context.Background(), sampleCSV)
	require.NoError(t, err)

	recs := store.Records()
	recs[0].InvoiceNo = "changed"
	assert.Equal(t, "536365", store.Records()[0].InvoiceNo)
}
