package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyPctChanges(t *testing.T) {
	t.Run("fewer than two closes yields empty series", func(t *testing.T) {
		assert.Empty(t, monthlyPctChanges(nil))
		assert.Empty(t, monthlyPctChanges([]monthlyClose{{month: "2024-01", close: 100}}))
	})

	t.Run("computes close-to-close changes and compounds the cumulative", func(t *testing.T) {
		points := monthlyPctChanges([]monthlyClose{
			{month: "2024-01", close: 100},
			{month: "2024-02", close: 110},
			{month: "2024-03", close: 99},
		})
		require.Len(t, points, 2)

		assert.Equal(t, "2024-02", points[0].Month)
		assert.InDelta(t, 10, points[0].ReturnPct, 1e-9)
		assert.InDelta(t, 10, points[0].CumulativeReturn, 1e-9)

		assert.Equal(t, "2024-03", points[1].Month)
		assert.InDelta(t, -10, points[1].ReturnPct, 1e-9)
		// 1.10 * 0.90 - 1 = -1%, compounded rather than summed.
		assert.InDelta(t, -1, points[1].CumulativeReturn, 1e-9)
	})

	t.Run("zero previous close yields zero change", func(t *testing.T) {
		points := monthlyPctChanges([]monthlyClose{
			{month: "2024-01", close: 0},
			{month: "2024-02", close: 110},
		})
		require.Len(t, points, 1)
		assert.Zero(t, points[0].ReturnPct)
	})
}
