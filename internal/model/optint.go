package model

import (
	"encoding/json"
	"strconv"
)

// OptInt is an optional integer for attributes the source may omit (floor
// number, room count). The zero value is "absent". Absent values normalize to
// the "-1" sentinel string at the identity-hashing boundary; that sentinel is
// part of identity contract v1 and must not change without a key migration.
type OptInt struct {
	Value int
	Valid bool
}

// NewOptInt returns a present OptInt.
func NewOptInt(v int) OptInt {
	return OptInt{Value: v, Valid: true}
}

// SentinelString returns the normalized string form used in the identity key:
// the decimal value when present, "-1" when absent.
func (o OptInt) SentinelString() string {
	if !o.Valid {
		return "-1"
	}
	return strconv.Itoa(o.Value)
}

// MarshalJSON encodes absent values as null.
func (o OptInt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON decodes null as absent.
func (o *OptInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = OptInt{}
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = OptInt{Value: v, Valid: true}
	return nil
}
