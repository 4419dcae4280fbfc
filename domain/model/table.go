package model

import "strings"

// defaultTableName is used when a name sanitizes to nothing.
const defaultTableName = "table"

// TableName represents a table name with validation
type TableName struct {
	value string
}

// NewTableName creates a new TableName with validation
func NewTableName(name string) TableName {
	if strings.TrimSpace(name) == "" {
		return TableName{value: defaultTableName}
	}
	return TableName{value: strings.TrimSpace(name)}
}

// String returns the string representation of TableName
func (tn TableName) String() string {
	return tn.value
}

// Equal compares two table names
func (tn TableName) Equal(other TableName) bool {
	return tn.value == other.value
}

// Sanitize returns a name safe to splice into SQL as an identifier:
// ASCII letters, digits and underscores, never starting with a digit.
func (tn TableName) Sanitize() TableName {
	r := strings.NewReplacer(" ", "_", "-", "_", ".", "_")
	var b strings.Builder
	for _, c := range r.Replace(tn.value) {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		}
	}

	out := b.String()
	if out == "" {
		return TableName{value: defaultTableName}
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "table_" + out
	}
	return TableName{value: out}
}
