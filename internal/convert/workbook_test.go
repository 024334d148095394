package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dkwon17/csvflow/internal/models"
)

func TestBaseSheetName(t *testing.T) {
	tests := []struct {
		name       string
		objectName string
		want       string
	}{
		{"plain csv", "csvfiles/jan.csv", "jan"},
		{"uppercase extension stripped", "csvfiles/FEB.CSV", "FEB"},
		{"nested path uses base name", "csvfiles/2024/march.csv", "march"},
		{"no extension", "csvfiles/readme", "readme"},
		{"dot in middle kept", "csvfiles/q1.final.csv", "q1.final"},
		{"invalid characters replaced", "csvfiles/a[b]c:d.csv", "a_b_c_d"},
		{"edge apostrophes trimmed", "csvfiles/'jan'.csv", "jan"},
		{"interior apostrophe kept", "csvfiles/don't.csv", "don't"},
		{"extension-only name gets placeholder", "csvfiles/.csv", "Sheet"},
		{
			"apostrophe at truncation boundary trimmed",
			"csvfiles/" + strings.Repeat("x", 30) + "'x.csv",
			strings.Repeat("x", 30),
		},
		{
			"long name cut at sheet limit",
			"csvfiles/" + strings.Repeat("x", 40) + ".csv",
			strings.Repeat("x", 31),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, baseSheetName(tt.objectName))
		})
	}
}

func TestUniqueSheetNames(t *testing.T) {
	toTables := func(names ...string) []models.SheetTable {
		tables := make([]models.SheetTable, len(names))
		for i, n := range names {
			tables[i] = models.SheetTable{SheetName: n}
		}
		return tables
	}

	t.Run("no collisions unchanged", func(t *testing.T) {
		got := uniqueSheetNames(toTables("jan", "feb", "mar"))
		assert.Equal(t, []string{"jan", "feb", "mar"}, got)
	})

	t.Run("collisions get numeric suffixes", func(t *testing.T) {
		got := uniqueSheetNames(toTables("report", "report", "report"))
		assert.Equal(t, []string{"report", "report 2", "report 3"}, got)
	})

	t.Run("collision detection is case-insensitive", func(t *testing.T) {
		got := uniqueSheetNames(toTables("Report", "report"))
		assert.Equal(t, []string{"Report", "report 2"}, got)
	})

	t.Run("suffixed names stay within the limit", func(t *testing.T) {
		long := strings.Repeat("y", 31)
		got := uniqueSheetNames(toTables(long, long))
		assert.Equal(t, long, got[0])
		assert.Equal(t, strings.Repeat("y", 29)+" 2", got[1])
		assert.LessOrEqual(t, len(got[1]), maxSheetNameLen)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		first := uniqueSheetNames(toTables("a", "a", "b", "a"))
		second := uniqueSheetNames(toTables("a", "a", "b", "a"))
		assert.Equal(t, first, second)
	})
}

func TestAssembleWorkbookRoundTrip(t *testing.T) {
	tables := []models.SheetTable{
		{SheetName: "jan", Rows: [][]string{{"x", "y"}, {"1", "2"}}},
		{SheetName: "feb", Rows: [][]string{{"name", "amount"}, {"rent", "1200"}, {"food", "340"}}},
	}

	f, err := assembleWorkbook(tables)
	require.NoError(t, err)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	// Re-open the serialized workbook and verify content verbatim.
	got, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer got.Close()

	require.Equal(t, []string{"jan", "feb"}, got.GetSheetList())

	janRows, err := got.GetRows("jan")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x", "y"}, {"1", "2"}}, janRows)

	febRows, err := got.GetRows("feb")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "amount"}, {"rent", "1200"}, {"food", "340"}}, febRows)
}

func TestAssembleWorkbookSheetPerTable(t *testing.T) {
	// Duplicate base names must not lose a table.
	tables := []models.SheetTable{
		{SheetName: "data", Rows: [][]string{{"a"}, {"1"}}},
		{SheetName: "data", Rows: [][]string{{"b"}, {"2"}}},
	}

	f, err := assembleWorkbook(tables)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"data", "data 2"}, f.GetSheetList())

	rows, err := f.GetRows("data 2")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b"}, {"2"}}, rows)
}

func TestAssembleWorkbookPreservesRaggedRows(t *testing.T) {
	// CSV parsing never produces ragged rows, but assembly must place
	// whatever it is given verbatim.
	tables := []models.SheetTable{
		{SheetName: "only", Rows: [][]string{{"h1", "h2", "h3"}, {"v1", "", "v3"}}},
	}

	f, err := assembleWorkbook(tables)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("only")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"h1", "h2", "h3"}, {"v1", "", "v3"}}, rows)
}
