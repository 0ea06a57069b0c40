package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionInput is one decoded daily transaction record. Amount is kept as
// the decoded text so a rejection can carry the record verbatim. Raw holds the
// record as received when the decoder could not recover every field from it.
type TransactionInput struct {
	ID           string    `json:"tran_id"`
	TypeCode     string    `json:"type_code"`
	CategoryCode string    `json:"category_code"`
	Source       string    `json:"source"`
	Description  string    `json:"description"`
	Amount       string    `json:"amount"`
	MerchantID   string    `json:"merchant_id"`
	MerchantName string    `json:"merchant_name"`
	MerchantCity string    `json:"merchant_city"`
	MerchantZip  string    `json:"merchant_zip"`
	CardNumber   string    `json:"card_number"`
	OriginalTS   time.Time `json:"orig_ts"`
	Raw          string    `json:"raw,omitempty"`
}

type PostedTransaction struct {
	ID           string
	RunID        string
	Offset       int64
	TypeCode     string
	CategoryCode string
	Source       string
	Description  string
	Amount       decimal.Decimal
	MerchantID   string
	MerchantName string
	MerchantCity string
	MerchantZip  string
	CardNumber   string
	AccountID    int64
	OriginalTS   time.Time
	ProcessedTS  time.Time
}
