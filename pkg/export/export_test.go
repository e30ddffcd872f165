package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"ID", "Listing", "Status"},
		Rows: []map[string]string{
			{"ID": "1", "Listing": "42", "Status": "PENDING"},
			{"ID": "2", "Listing": "43", "Status": "APPROVED"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Listing,Status", lines[0])
	assert.Equal(t, "2,43,APPROVED", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"ID", "Status"},
		Rows:    []map[string]string{{"ID": "1", "Status": "PENDING"}},
	}

	out, err := NewPDFExporter().Render(data, "promotion requests")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}
