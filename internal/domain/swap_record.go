package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Swap direction as encoded in program logs.
const (
	DirectionBuy  = 0
	DirectionSell = 1
)

// SwapRecord is one executed swap, shaped for the per-token history cache
// and the durable swap archive.
type SwapRecord struct {
	ID        string
	Mint      string
	User      string
	Direction int
	AmountIn  float64
	AmountOut float64
	Price     float64
	PriceUSD  float64
	TxID      string
	Slot      int64
	Timestamp time.Time
}

// SwapRecordID derives a stable identifier for a swap from its transaction
// signature, mint and log position, so reprocessing the same transaction
// produces the same record.
func SwapRecordID(signature, mint string, index int) string {
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{signature, mint, strconv.Itoa(index)}, "|")))
	return hex.EncodeToString(h.Sum(nil))
}
