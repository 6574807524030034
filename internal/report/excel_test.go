package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/faxfinity/faxsort/internal/journal"
)

func TestWrite(t *testing.T) {
	entries := []journal.Entry{
		{
			CreatedAt: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
			Original:  "fax_0042.pdf",
			FinalName: "Arztbrief_Dr._Müller_20240115.pdf",
			State:     "PLACED",
			Category:  "Arztbrief",
			Sender:    "Dr. Müller",
			Patient:   "Wagner",
		},
		{
			CreatedAt: time.Date(2024, 1, 15, 9, 35, 0, 0, time.UTC),
			Original:  "fax_0043.pdf",
			State:     "QUARANTINED",
			Detail:    "classification failed: upstream 503",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(entries, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Verarbeitung"}, f.GetSheetList())

	rows, err := f.GetRows("Verarbeitung")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Zeitpunkt", rows[0][0])
	assert.Equal(t, "Status", rows[0][3])

	assert.Equal(t, "2024-01-15 09:30:00", rows[1][0])
	assert.Equal(t, "Arztbrief_Dr._Müller_20240115.pdf", rows[1][2])
	assert.Equal(t, "PLACED", rows[1][3])

	assert.Equal(t, "fax_0043.pdf", rows[2][1])
	assert.Equal(t, "classification failed: upstream 503", rows[2][7])
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(nil, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Verarbeitung")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
