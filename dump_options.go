package salesql

import (
	"fmt"
	"strings"
)

// OutputFormat represents the flat export file format
type OutputFormat int

const (
	// OutputFormatNone disables the flat export
	OutputFormatNone OutputFormat = iota
	// OutputFormatCSV represents CSV output format
	OutputFormatCSV
	// OutputFormatParquet represents Parquet output format
	OutputFormatParquet
)

// String returns the string representation of OutputFormat
func (f OutputFormat) String() string {
	switch f {
	case OutputFormatCSV:
		return "csv"
	case OutputFormatParquet:
		return "parquet"
	default:
		return "none"
	}
}

// Extension returns the file extension for the format
func (f OutputFormat) Extension() string {
	switch f {
	case OutputFormatCSV:
		return ".csv"
	case OutputFormatParquet:
		return ".parquet"
	default:
		return ""
	}
}

// ParseOutputFormat converts a configuration value into an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return OutputFormatNone, nil
	case "csv":
		return OutputFormatCSV, nil
	case "parquet":
		return OutputFormatParquet, nil
	default:
		return OutputFormatNone, fmt.Errorf("unknown export format %q", s)
	}
}

// CompressionType represents the compression type
type CompressionType int

const (
	// CompressionNone represents no compression
	CompressionNone CompressionType = iota
	// CompressionGZ represents gzip compression
	CompressionGZ
	// CompressionBZ2 represents bzip2 compression (read only)
	CompressionBZ2
	// CompressionXZ represents xz compression
	CompressionXZ
	// CompressionZSTD represents zstd compression
	CompressionZSTD
)

// String returns the string representation of CompressionType
func (c CompressionType) String() string {
	switch c {
	case CompressionGZ:
		return "gz"
	case CompressionBZ2:
		return "bz2"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file extension for the compression type
func (c CompressionType) Extension() string {
	switch c {
	case CompressionGZ:
		return extGZ
	case CompressionBZ2:
		return extBZ2
	case CompressionXZ:
		return extXZ
	case CompressionZSTD:
		return extZSTD
	default:
		return ""
	}
}

// ParseCompressionType converts a configuration value into a CompressionType.
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "gz", "gzip":
		return CompressionGZ, nil
	case "bz2", "bzip2":
		return CompressionBZ2, nil
	case "xz":
		return CompressionXZ, nil
	case "zst", "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", s)
	}
}

// DumpOptions configures the flat export of the cleaned relation.
//
// Example:
//
//	options := NewDumpOptions().
//		WithFormat(OutputFormatCSV).
//		WithCompression(CompressionZSTD)
//
//	path, err := ExportTable(ctx, sink, "sales", "./out", options)
type DumpOptions struct {
	// Format specifies the output file format
	Format OutputFormat
	// Compression wraps CSV output in a compressed stream. For Parquet it
	// selects the column chunk codec instead.
	Compression CompressionType
}

// NewDumpOptions creates default export options (CSV, no compression).
func NewDumpOptions() DumpOptions {
	return DumpOptions{
		Format:      OutputFormatCSV,
		Compression: CompressionNone,
	}
}

// WithFormat sets the output file format.
func (o DumpOptions) WithFormat(format OutputFormat) DumpOptions {
	o.Format = format
	return o
}

// WithCompression sets the compression type.
func (o DumpOptions) WithCompression(compression CompressionType) DumpOptions {
	o.Compression = compression
	return o
}

// Enabled reports whether an export was requested.
func (o DumpOptions) Enabled() bool {
	return o.Format != OutputFormatNone
}

// Validate rejects combinations that cannot be written.
func (o DumpOptions) Validate() error {
	switch o.Format {
	case OutputFormatNone:
		return nil
	case OutputFormatCSV:
		if o.Compression == CompressionBZ2 {
			return fmt.Errorf("%s compression is not supported for writing", o.Compression)
		}
	case OutputFormatParquet:
		switch o.Compression {
		case CompressionNone, CompressionGZ, CompressionZSTD:
		default:
			return fmt.Errorf("%s compression is not supported for parquet", o.Compression)
		}
	default:
		return fmt.Errorf("unknown export format %d", o.Format)
	}
	return nil
}

// FileExtension returns the complete file extension including compression
func (o DumpOptions) FileExtension() string {
	if o.Format == OutputFormatParquet {
		return o.Format.Extension()
	}
	return o.Format.Extension() + o.Compression.Extension()
}
