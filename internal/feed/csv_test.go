package feed

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/set-night/cardpost/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "tran_id,type_code,category_code,source,description,amount,merchant_id,merchant_name,merchant_city,merchant_zip,card_number,orig_ts\n"

func readAll(t *testing.T, content string) []domain.TransactionInput {
	t.Helper()
	r, err := NewCSVReader(strings.NewReader(content))
	require.NoError(t, err)

	var out []domain.TransactionInput
	for {
		in, err := r.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, in)
	}
}

func TestCSVReader_Valid(t *testing.T) {
	content := header +
		"T1,01,0001,POS TERM,Purchase,-50.00,800000001,Corner Store,Springfield,12345,4000123412341234,2026-10-13T18:04:00Z\n" +
		",02,0003, OPERATOR ,\"Refund, partial\",25.10,,,,,4000123412341234,2026-10-13 09:00:00\n"

	records := readAll(t, content)
	require.Len(t, records, 2)

	assert.Equal(t, domain.TransactionInput{
		ID:           "T1",
		TypeCode:     "01",
		CategoryCode: "0001",
		Source:       "POS TERM",
		Description:  "Purchase",
		Amount:       "-50.00",
		MerchantID:   "800000001",
		MerchantName: "Corner Store",
		MerchantCity: "Springfield",
		MerchantZip:  "12345",
		CardNumber:   "4000123412341234",
		OriginalTS:   time.Date(2026, 10, 13, 18, 4, 0, 0, time.UTC),
	}, records[0])

	assert.Empty(t, records[1].ID)
	assert.Equal(t, "OPERATOR", records[1].Source)
	assert.Equal(t, "Refund, partial", records[1].Description)
	assert.Equal(t, time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC), records[1].OriginalTS)
}

func TestCSVReader_ColumnOrderFollowsHeader(t *testing.T) {
	content := "Card_Number,Amount,Orig_TS,Type_Code,Category_Code\n" +
		"4000123412341234,1.00,2026-10-13 09:00:00,01,0001\n"

	records := readAll(t, content)
	require.Len(t, records, 1)
	assert.Equal(t, "4000123412341234", records[0].CardNumber)
	assert.Equal(t, "1.00", records[0].Amount)
	assert.Empty(t, records[0].MerchantName)
}

func TestCSVReader_MalformedRowsAreKept(t *testing.T) {
	content := header +
		"T1,01,0001,POS,short row\n" +
		"T2,01,0001,POS,Bad ts,1.00,,,,,4000123412341234,yesterday\n" +
		"T3,01,0001,POS,Ok,1.00,,,,,4000123412341234,2026-10-13 09:00:00\n"

	records := readAll(t, content)
	require.Len(t, records, 3)

	assert.Equal(t, "T1", records[0].ID)
	assert.Empty(t, records[0].CardNumber)
	assert.Equal(t, "T1,01,0001,POS,short row", records[0].Raw)
	assert.True(t, records[1].OriginalTS.IsZero())
	assert.Equal(t, "T2,01,0001,POS,Bad ts,1.00,,,,,4000123412341234,yesterday", records[1].Raw)
	assert.Equal(t, "T3", records[2].ID)
	assert.Empty(t, records[2].Raw)
}

func TestCSVReader_UndecodableRowKeepsRawText(t *testing.T) {
	content := header +
		"T1,01,0001,POS,Ok,1.00,,,,,4000123412341234,2026-10-13 09:00:00\r\n" +
		"T2,01,0001,POS,\"unterminated,1.00,,,,,4000123412341234,2026-10-13 09:00:00\n"

	records := readAll(t, content)
	require.Len(t, records, 2)

	assert.Equal(t, "T1", records[0].ID)
	assert.Empty(t, records[0].Raw)
	assert.Equal(t, "T2", records[1].ID)
	assert.Empty(t, records[1].CardNumber)
	assert.True(t, records[1].OriginalTS.IsZero())
	assert.Equal(t, "T2,01,0001,POS,\"unterminated,1.00,,,,,4000123412341234,2026-10-13 09:00:00", records[1].Raw)
}

func TestCSVReader_RawTextSpansReadBuffer(t *testing.T) {
	long := strings.Repeat("d", 5000)
	row := "T9,01,0001,POS," + long + ",1.00,,,,,4000123412341234,not a time"
	content := header + strings.Repeat("T1,01,0001,POS,Ok,1.00,,,,,4000123412341234,2026-10-13 09:00:00\n", 100) + row + "\n"

	records := readAll(t, content)
	require.Len(t, records, 101)
	assert.Equal(t, row, records[100].Raw)
}

func TestNewCSVReader_Errors(t *testing.T) {
	_, err := NewCSVReader(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty input")

	_, err = NewCSVReader(strings.NewReader("tran_id,amount\n"))
	assert.ErrorContains(t, err, "missing column")
}

func TestCSVReader_HeaderOnly(t *testing.T) {
	assert.Empty(t, readAll(t, header))
}

func TestCSVReader_StopsOnCancel(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader(header + "T1,01,0001,,,1.00,,,,,4000123412341234,2026-10-13 09:00:00\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-10-13T18:04:00Z", time.Date(2026, 10, 13, 18, 4, 0, 0, time.UTC)},
		{"2026-10-13T18:04:00+03:00", time.Date(2026, 10, 13, 15, 4, 0, 0, time.UTC)},
		{"2026-10-13 18:04:00", time.Date(2026, 10, 13, 18, 4, 0, 0, time.UTC)},
		{"2026-10-13 18:04:00.250000", time.Date(2026, 10, 13, 18, 4, 0, 250000000, time.UTC)},
		{"2026-10-13-18.04.00.000000", time.Date(2026, 10, 13, 18, 4, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTimestamp("13/10/2026")
	assert.Error(t, err)
}
