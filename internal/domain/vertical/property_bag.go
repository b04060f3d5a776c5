package vertical

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PropertyBag is a typed key→value extension carried by vertical entities.
// Values are stored in a JSON-compatible representation (strings, bools,
// float64 numbers, string-encoded decimals and timestamps) so that bags
// round-trip through the database without schema changes. Missing keys and
// type mismatches are reported through the ok return, never as errors.
type PropertyBag map[string]any

// NewPropertyBag creates an empty property bag
func NewPropertyBag() PropertyBag {
	return make(PropertyBag)
}

// Has reports whether the key is present
func (b PropertyBag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Keys returns all keys currently in the bag
func (b PropertyBag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	return keys
}

// Delete removes a key from the bag
func (b PropertyBag) Delete(key string) {
	delete(b, key)
}

// SetString stores a string value
func (b PropertyBag) SetString(key, value string) {
	b[key] = value
}

// GetString returns the string value for key
func (b PropertyBag) GetString(key string) (string, bool) {
	v, ok := b[key].(string)
	return v, ok
}

// SetBool stores a boolean value
func (b PropertyBag) SetBool(key string, value bool) {
	b[key] = value
}

// GetBool returns the boolean value for key
func (b PropertyBag) GetBool(key string) (bool, bool) {
	v, ok := b[key].(bool)
	return v, ok
}

// SetInt stores an integer value
func (b PropertyBag) SetInt(key string, value int64) {
	b[key] = float64(value)
}

// GetInt returns the integer value for key. Whole float64 values are
// accepted because JSON decoding turns every number into float64.
func (b PropertyBag) GetInt(key string) (int64, bool) {
	switch v := b[key].(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

// SetFloat stores a floating point value
func (b PropertyBag) SetFloat(key string, value float64) {
	b[key] = value
}

// GetFloat returns the float value for key
func (b PropertyBag) GetFloat(key string) (float64, bool) {
	switch v := b[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// SetDecimal stores an exact decimal value, serialized as a string so that
// money and quantity attributes never lose precision in transit.
func (b PropertyBag) SetDecimal(key string, value decimal.Decimal) {
	b[key] = value.String()
}

// GetDecimal returns the decimal value for key
func (b PropertyBag) GetDecimal(key string) (decimal.Decimal, bool) {
	s, ok := b[key].(string)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// SetTime stores a timestamp in RFC 3339 form
func (b PropertyBag) SetTime(key string, value time.Time) {
	b[key] = value.Format(time.RFC3339Nano)
}

// GetTime returns the timestamp value for key
func (b PropertyBag) GetTime(key string) (time.Time, bool) {
	s, ok := b[key].(string)
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Clone returns a shallow copy of the bag
func (b PropertyBag) Clone() PropertyBag {
	out := make(PropertyBag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// MarshalJSON serializes the bag; an empty bag marshals as {} not null
func (b PropertyBag) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(b))
}
