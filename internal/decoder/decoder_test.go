package decoder

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
)

// buildWorkbook writes the given rows to the first sheet, starting at row
// startRow (zero-based), and returns the serialized bytes.
func buildWorkbook(t *testing.T, startRow int, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeHeaderOnFirstRow(t *testing.T) {
	data := buildWorkbook(t, 0,
		[]interface{}{"Cliente", "ene 2024"},
		[]interface{}{"Acme", 100},
	)

	table, err := New(nil).Decode(data, "ventas.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cliente", "ene 2024"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Acme", table.Rows[0][0])
}

func TestDecodeSniffsHeaderPastPreamble(t *testing.T) {
	// Three banner rows before the real header.
	data := buildWorkbook(t, 0,
		[]interface{}{"Informe de ventas"},
		[]interface{}{},
		[]interface{}{"Generado 2024-07-01"},
		[]interface{}{"Cliente", "ene 2023", "ene 2024"},
		[]interface{}{"Acme", 100, 150},
		[]interface{}{"Beta", 50, 60},
	)

	table, err := New(nil).Decode(data, "ventas.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "Cliente", table.Columns[0])
	assert.Len(t, table.Rows, 2)
}

func TestDecodeFallsBackToConventionalRow(t *testing.T) {
	// No cell matches the client column; the seventh row is assumed to be
	// the header.
	rows := make([][]interface{}, 8)
	for i := range rows {
		rows[i] = []interface{}{"x", "y"}
	}
	rows[6] = []interface{}{"Nombre", "ene 2024"}
	rows[7] = []interface{}{"Acme", 100}
	data := buildWorkbook(t, 0, rows...)

	table, err := New(nil).Decode(data, "ventas.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Nombre", "ene 2024"}, table.Columns)
	require.Len(t, table.Rows, 1)
}

func TestDecodeHeaderNotFound(t *testing.T) {
	data := buildWorkbook(t, 0, []interface{}{"just", "noise"})
	_, err := New(nil).Decode(data, "ventas.xlsx")
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestDecodeRejectsUnsupportedInput(t *testing.T) {
	t.Run("wrong extension", func(t *testing.T) {
		_, err := New(nil).Decode([]byte("a,b\n1,2\n"), "ventas.csv")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("legacy binary xls", func(t *testing.T) {
		data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 64)...)
		_, err := New(nil).Decode(data, "ventas.xls")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("garbage bytes", func(t *testing.T) {
		_, err := New(nil).Decode([]byte("not a workbook"), "ventas.xlsx")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestTableCache(t *testing.T) {
	data := buildWorkbook(t, 0,
		[]interface{}{"Cliente", "ene 2024"},
		[]interface{}{"Acme", 100},
	)
	other := buildWorkbook(t, 0,
		[]interface{}{"Cliente", "feb 2024"},
		[]interface{}{"Beta", 50},
	)

	t.Run("hit after miss", func(t *testing.T) {
		cache := NewTableCache(New(nil), 4, nil)

		first, err := cache.GetOrDecode(data, "ventas.xlsx")
		require.NoError(t, err)
		second, err := cache.GetOrDecode(data, "ventas.xlsx")
		require.NoError(t, err)
		assert.Equal(t, first, second)

		stats := cache.Stats()
		assert.Equal(t, 1, stats.Size)
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
	})

	t.Run("returned tables are independent copies", func(t *testing.T) {
		cache := NewTableCache(New(nil), 4, nil)

		first, err := cache.GetOrDecode(data, "ventas.xlsx")
		require.NoError(t, err)
		first.Rows[0][0] = "mutated"

		second, err := cache.GetOrDecode(data, "ventas.xlsx")
		require.NoError(t, err)
		assert.Equal(t, "Acme", second.Rows[0][0])
	})

	t.Run("concurrent callers get distinct copies", func(t *testing.T) {
		cache := NewTableCache(New(nil), 4, nil)

		const callers = 16
		start := make(chan struct{})
		tables := make([]*analysis.Table, callers)
		errs := make([]error, callers)

		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				tables[i], errs[i] = cache.GetOrDecode(data, "ventas.xlsx")
			}(i)
		}
		close(start)
		wg.Wait()

		seen := make(map[*analysis.Table]bool, callers)
		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			assert.False(t, seen[tables[i]], "caller %d shares a table with another caller", i)
			seen[tables[i]] = true
		}

		// Mutating one caller's table must not leak into another's.
		tables[0].Rows[0][0] = "mutated"
		assert.Equal(t, "Acme", tables[1].Rows[0][0])
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		cache := NewTableCache(New(nil), 1, nil)

		_, err := cache.GetOrDecode(data, "ventas.xlsx")
		require.NoError(t, err)
		_, err = cache.GetOrDecode(other, "ventas.xlsx")
		require.NoError(t, err)

		stats := cache.Stats()
		assert.Equal(t, 1, stats.Size)
		assert.Equal(t, int64(1), stats.Evictions)
	})

	t.Run("decode errors are not cached", func(t *testing.T) {
		cache := NewTableCache(New(nil), 4, nil)
		_, err := cache.GetOrDecode([]byte("junk"), "ventas.xlsx")
		require.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.Equal(t, 0, cache.Stats().Size)
	})

	t.Run("clear empties the cache", func(t *testing.T) {
		cache := NewTableCache(New(nil), 4, nil)
		_, err := cache.GetOrDecode(data, "ventas.xlsx")
		require.NoError(t, err)
		cache.Clear()
		assert.Equal(t, 0, cache.Stats().Size)
	})
}

func TestKeyIsContentAddressed(t *testing.T) {
	a := Key([]byte("same"))
	b := Key([]byte("same"))
	c := Key([]byte("different"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
