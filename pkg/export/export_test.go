package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(rows int) Table {
	t := Table{
		Title: "Loans",
		Columns: []Column{
			{Key: "id", Title: "ID", Width: 1},
			{Key: "borrower", Title: "Borrower", Width: 3},
			{Key: "status"},
		},
	}
	for i := 0; i < rows; i++ {
		t.Rows = append(t.Rows, map[string]string{"id": "1", "borrower": "Ana, \"Jr\"", "status": "active"})
	}
	return t
}

func TestRenderCSV(t *testing.T) {
	out, err := RenderCSV(sampleTable(1))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Borrower,status", lines[0])
	assert.Equal(t, `1,"Ana, ""Jr""",active`, lines[1])
}

func TestRenderRequiresColumns(t *testing.T) {
	_, err := RenderCSV(Table{})
	assert.Error(t, err)
	_, err = RenderPDF(Table{})
	assert.Error(t, err)
}

func TestRenderPDFPaginates(t *testing.T) {
	out, err := RenderPDF(sampleTable(80))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsUseWeights(t *testing.T) {
	widths := columnWidths([]Column{{Width: 1}, {Width: 3}})
	assert.InDelta(t, pageWidth/4, widths[0], 0.001)
	assert.InDelta(t, pageWidth*3/4, widths[1], 0.001)
}
