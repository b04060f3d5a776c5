package vertical

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyBag_TypedAccessors(t *testing.T) {
	bag := NewPropertyBag()

	t.Run("string round trip", func(t *testing.T) {
		bag.SetString("license_number", "PH-2024-001")
		v, ok := bag.GetString("license_number")
		assert.True(t, ok)
		assert.Equal(t, "PH-2024-001", v)
	})

	t.Run("bool round trip", func(t *testing.T) {
		bag.SetBool("requires_refrigeration", true)
		v, ok := bag.GetBool("requires_refrigeration")
		assert.True(t, ok)
		assert.True(t, v)
	})

	t.Run("int survives json number representation", func(t *testing.T) {
		bag.SetInt("shelf_life_days", 14)
		v, ok := bag.GetInt("shelf_life_days")
		assert.True(t, ok)
		assert.Equal(t, int64(14), v)
	})

	t.Run("fractional number is not an int", func(t *testing.T) {
		bag.SetFloat("batch_yield", 2.5)
		_, ok := bag.GetInt("batch_yield")
		assert.False(t, ok)
	})

	t.Run("decimal keeps precision", func(t *testing.T) {
		price := decimal.RequireFromString("19.99")
		bag.SetDecimal("unit_price", price)
		v, ok := bag.GetDecimal("unit_price")
		assert.True(t, ok)
		assert.True(t, price.Equal(v))
	})

	t.Run("time round trip", func(t *testing.T) {
		ts := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
		bag.SetTime("inspection_date", ts)
		v, ok := bag.GetTime("inspection_date")
		assert.True(t, ok)
		assert.True(t, ts.Equal(v))
	})

	t.Run("missing key reports absent", func(t *testing.T) {
		_, ok := bag.GetString("no_such_key")
		assert.False(t, ok)
	})

	t.Run("type mismatch reports absent", func(t *testing.T) {
		bag.SetString("labelled", "yes")
		_, ok := bag.GetBool("labelled")
		assert.False(t, ok)
	})
}

func TestPropertyBag_JSONRoundTrip(t *testing.T) {
	bag := NewPropertyBag()
	bag.SetString("license_number", "PH-2024-001")
	bag.SetInt("shelf_life_days", 14)
	bag.SetDecimal("unit_price", decimal.RequireFromString("19.99"))

	data, err := json.Marshal(bag)
	require.NoError(t, err)

	var decoded PropertyBag
	require.NoError(t, json.Unmarshal(data, &decoded))

	v, ok := decoded.GetString("license_number")
	assert.True(t, ok)
	assert.Equal(t, "PH-2024-001", v)

	n, ok := decoded.GetInt("shelf_life_days")
	assert.True(t, ok)
	assert.Equal(t, int64(14), n)

	d, ok := decoded.GetDecimal("unit_price")
	assert.True(t, ok)
	assert.Equal(t, "19.99", d.String())
}

func TestPropertyBag_Clone(t *testing.T) {
	bag := NewPropertyBag()
	bag.SetString("a", "1")

	clone := bag.Clone()
	clone.SetString("a", "2")

	v, _ := bag.GetString("a")
	assert.Equal(t, "1", v)
}

func TestPropertyBag_NilMarshalsAsObject(t *testing.T) {
	var bag PropertyBag
	data, err := json.Marshal(bag)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
