package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTabularizeKeysRowsByHeader(t *testing.T) {
	grid := [][]string{
		{"Place", "Time", "Excursion"},
		{"Helsinki", "09:00", "Walk", "extra"},
		{"Stockholm"},
		{},
	}

	table, err := Tabularize(grid)
	require.NoError(t, err)
	assert.Equal(t, []string{"Place", "Time", "Excursion"}, table.Columns)
	require.Len(t, table.Records, len(grid)-1)

	for _, rec := range table.Records {
		for _, col := range table.Columns {
			_, ok := rec[col]
			assert.True(t, ok, "column %q missing", col)
		}
	}
	assert.Equal(t, "Walk", table.Records[0].Field("Excursion"))
	assert.Equal(t, "", table.Records[1].Field("Time"))
	assert.Equal(t, "", table.Records[2].Field("Place"))
	assert.Equal(t, "", table.Records[0].Field("Start POI"))
}

func TestTabularizeEmpty(t *testing.T) {
	_, err := Tabularize(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Tabularize([][]string{{"Place", "Time"}})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestTabularizeDuplicateHeaderLastWins(t *testing.T) {
	table, err := Tabularize([][]string{
		{"Place", "Place "},
		{"first", "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, "second", table.Records[0].Field("Place"))
}
