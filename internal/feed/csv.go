package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/set-night/cardpost/internal/domain"
)

const (
	ColTranID       = "tran_id"
	ColTypeCode     = "type_code"
	ColCategoryCode = "category_code"
	ColSource       = "source"
	ColDescription  = "description"
	ColAmount       = "amount"
	ColMerchantID   = "merchant_id"
	ColMerchantName = "merchant_name"
	ColMerchantCity = "merchant_city"
	ColMerchantZip  = "merchant_zip"
	ColCardNumber   = "card_number"
	ColOrigTS       = "orig_ts"
)

var requiredColumns = []string{ColTypeCode, ColCategoryCode, ColAmount, ColCardNumber, ColOrigTS}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
	"2006-01-02-15.04.05.000000",
}

// CSVReader decodes daily transaction records from a headed CSV stream.
// Rows that cannot be decoded are still returned, with whatever fields were
// recovered, so they reach the pipeline and get rejected there.
type CSVReader struct {
	r       *csv.Reader
	capture *lineCapture
	columns map[string]int
	width   int
	line    int
}

func NewCSVReader(src io.Reader) (*CSVReader, error) {
	capture := &lineCapture{src: src}
	r := csv.NewReader(capture)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := columns[c]; !ok {
			return nil, fmt.Errorf("read header: missing column %q", c)
		}
	}

	capture.drop(r.InputOffset())

	return &CSVReader{r: r, capture: capture, columns: columns, width: len(header), line: 1}, nil
}

// Next returns the next record, or io.EOF after the last one.
func (c *CSVReader) Next(ctx context.Context) (domain.TransactionInput, error) {
	if err := ctx.Err(); err != nil {
		return domain.TransactionInput{}, err
	}

	record, err := c.r.Read()
	c.line++
	end := c.r.InputOffset()
	defer c.capture.drop(end)
	received := func() string {
		return strings.TrimRight(string(c.capture.upTo(end)), "\r\n")
	}

	if errors.Is(err, io.EOF) {
		return domain.TransactionInput{}, io.EOF
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		slog.Warn("malformed input row", "line", c.line, "error", err)
		return domain.TransactionInput{Raw: received()}, nil
	}
	if err != nil {
		return domain.TransactionInput{}, fmt.Errorf("read line %d: %w", c.line, err)
	}

	field := func(name string) string {
		i, ok := c.columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	in := domain.TransactionInput{
		ID:           field(ColTranID),
		TypeCode:     field(ColTypeCode),
		CategoryCode: field(ColCategoryCode),
		Source:       field(ColSource),
		Description:  field(ColDescription),
		Amount:       field(ColAmount),
		MerchantID:   field(ColMerchantID),
		MerchantName: field(ColMerchantName),
		MerchantCity: field(ColMerchantCity),
		MerchantZip:  field(ColMerchantZip),
		CardNumber:   field(ColCardNumber),
	}
	if len(record) < c.width {
		in.Raw = received()
	}

	if raw := field(ColOrigTS); raw != "" {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			slog.Warn("unparseable original timestamp", "line", c.line, "value", raw)
			in.Raw = received()
		}
		in.OriginalTS = ts
	}
	return in, nil
}

// Line is the number of the last line read, counting the header as 1.
func (c *CSVReader) Line() int {
	return c.line
}

// lineCapture keeps the bytes the csv reader has pulled from the source but
// not yet returned as a record, so a record can be reported as received.
type lineCapture struct {
	src  io.Reader
	buf  []byte
	base int64
}

func (l *lineCapture) Read(p []byte) (int, error) {
	n, err := l.src.Read(p)
	l.buf = append(l.buf, p[:n]...)
	return n, err
}

// upTo returns the captured input before offset end. The slice is valid
// until the next drop.
func (l *lineCapture) upTo(end int64) []byte {
	n := min(max(int(end-l.base), 0), len(l.buf))
	return l.buf[:n]
}

func (l *lineCapture) drop(end int64) {
	n := len(l.upTo(end))
	l.buf = append(l.buf[:0], l.buf[n:]...)
	l.base += int64(n)
}

// ParseTimestamp accepts RFC 3339 and the common fixed layouts. Values
// without a zone are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
