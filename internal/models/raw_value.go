package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strconv"
)

// RawValue holds a JSON value exactly as a client stored it and persists it as text.
// Numeric cells read back from loosely typed columns are accepted as well.
type RawValue []byte

func (v RawValue) IsNull() bool {
	trimmed := bytes.TrimSpace(v)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (v RawValue) String() string {
	return string(v)
}

// Value implements driver.Valuer
func (v RawValue) Value() (driver.Value, error) {
	if v.IsNull() {
		return nil, nil
	}
	return string(v), nil
}

// Scan implements sql.Scanner
func (v *RawValue) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = nil
	case []byte:
		*v = append(RawValue(nil), s...)
	case string:
		*v = RawValue(s)
	case int64:
		*v = RawValue(strconv.FormatInt(s, 10))
	case float64:
		*v = RawValue(strconv.FormatFloat(s, 'f', -1, 64))
	default:
		return fmt.Errorf("unsupported raw value type %T", src)
	}
	return nil
}

func (v RawValue) MarshalJSON() ([]byte, error) {
	if v.IsNull() {
		return []byte("null"), nil
	}
	return v, nil
}

func (v *RawValue) UnmarshalJSON(data []byte) error {
	if RawValue(data).IsNull() {
		*v = nil
		return nil
	}
	*v = append((*v)[:0], data...)
	return nil
}
