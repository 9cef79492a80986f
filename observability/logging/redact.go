package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces masked attribute values.
const RedactedValue = "[REDACTED]"

// Court identities are public ledger data; everything else passed through
// MaskField is treated as client metadata.
var publicKeys = map[string]bool{
	"court":      true,
	"dispute":    true,
	"voter":      true,
	"user":       true,
	"request_id": true,
}

// MaskField builds a string attribute, masking the value unless key names a
// public ledger field. Empty values are kept so missing data stays visible.
func MaskField(key, value string) slog.Attr {
	if value == "" || publicKeys[strings.ToLower(key)] {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
