package listener

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tripvoucher/internal"
	"tripvoucher/internal/config"
	"tripvoucher/internal/storage"
)

func itineraryMail(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Trip / Ref", "PAX", "Place", "Time", "Excursion", "Start POI"},
		{"SCN-9", 3, "вт, 16.03.25", "", "", ""},
		{"", "", "", "10:00", "Helsinki city tour", "Hotel Kämp"},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	var sheetBuf bytes.Buffer
	_, err := f.WriteTo(&sheetBuf)
	require.NoError(t, err)

	part, err := enmime.Builder().
		From("Tour Desk", "desk@example.com").
		To("Ops", "ops@example.com").
		Subject("Itinerary SCN-9").
		Date(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)).
		Text([]byte("Trip itinerary attached")).
		AddAttachment(sheetBuf.Bytes(), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "scn-9.xlsx").
		Build()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, part.Encode(&buf))
	return buf.Bytes()
}

func TestRunCycleFromDropDir(t *testing.T) {
	tmp := t.TempDir()
	inbox := filepath.Join(tmp, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "scn-9.eml"), itineraryMail(t), 0o644))

	db, err := storage.Open(filepath.Join(tmp, "vouchers.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := config.Config{
		RawMailDir:               filepath.Join(tmp, "raw"),
		OutputDir:                filepath.Join(tmp, "out"),
		MailDropDir:              inbox,
		MailListenerProvider:     "dir",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
		MailListenerAutoExport:   true,
	}
	svc := NewService(db, cfg, nil)

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Provider: "dir", Fetched: 1, Stored: 1, Processed: 1, Vouchers: 1, Exported: 1}, res)

	exported, err := filepath.Glob(filepath.Join(cfg.OutputDir, "listener", "*_SCN-9_*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, exported, 1)

	emails, err := db.ListEmailsByStatus(internal.EmailExported, 10)
	require.NoError(t, err)
	assert.Len(t, emails, 1)

	last, err := db.GetMetadata(lastCycleKey)
	require.NoError(t, err)
	assert.NotNil(t, last)

	res, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Provider: "dir", Fetched: 1}, res)
}

func TestConnectorUnknownProvider(t *testing.T) {
	_, err := Connector(config.Config{}, "pop3")
	assert.Error(t, err)
}

func TestExportFileName(t *testing.T) {
	name := ExportFileName(internal.EmailRow{ID: 4, MessageID: "<a b@x.io>"}, internal.VoucherRow{TripRef: "SCN/1"})
	assert.Equal(t, "4_SCN_1__a_b_x.io_.xlsx", name)
}

func TestSanitizeKeepsRunesWhole(t *testing.T) {
	ref := strings.Repeat("a", 79) + "Ж" + "x"
	assert.Equal(t, strings.Repeat("a", 79), sanitize(ref))

	long := sanitize(strings.Repeat("Маршрут", 10))
	assert.True(t, utf8.ValidString(long))
	assert.Len(t, long, 80)
	assert.Equal(t, "short", sanitize("short"))
}
