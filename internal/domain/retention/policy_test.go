package retention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testPolicy() *Policy {
	return &Policy{
		BaseYears: map[string]int{
			"invoice":  10,
			"shipment": 5,
		},
		DefaultYears: 7,
		CategoryAdjustments: map[string]int{
			"regulated": 5,
			"standard":  0,
		},
		ProtectedTypes: []string{"audit_log"},
	}
}

func TestPolicy_Resolve(t *testing.T) {
	p := testPolicy()

	t.Run("base plus adjustment", func(t *testing.T) {
		r := p.Resolve("invoice", "regulated")
		assert.False(t, r.Infinite)
		assert.Equal(t, 15, r.Years)
	})

	t.Run("unknown type falls back to default", func(t *testing.T) {
		r := p.Resolve("memo", "standard")
		assert.Equal(t, 7, r.Years)
	})

	t.Run("unknown category adds zero", func(t *testing.T) {
		r := p.Resolve("shipment", "no_such_category")
		assert.Equal(t, 5, r.Years)
	})

	t.Run("protected type is infinite for any category", func(t *testing.T) {
		for _, category := range []string{"regulated", "standard", "no_such_category"} {
			r := p.Resolve("audit_log", category)
			assert.True(t, r.Infinite)
		}
	})
}

func TestPolicy_CutoffBefore(t *testing.T) {
	p := testPolicy()
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	t.Run("cutoff subtracts resolved years", func(t *testing.T) {
		cutoff, ok := p.CutoffBefore(asOf, "shipment", "standard")
		assert.True(t, ok)
		assert.Equal(t, time.Date(2021, 8, 31, 0, 0, 0, 0, time.UTC), cutoff)
	})

	t.Run("protected type has no cutoff", func(t *testing.T) {
		_, ok := p.CutoffBefore(asOf, "audit_log", "standard")
		assert.False(t, ok)
	})
}
