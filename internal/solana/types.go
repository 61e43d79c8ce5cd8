package solana

// Well-known program addresses.
const (
	// TokenProgramID is the SPL Token program, owner of all token
	// accounts scanned for holder snapshots.
	TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

// Block represents a Solana block.
type Block struct {
	Slot         int64
	BlockTime    *int64
	Transactions []Transaction
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// Failed reports whether the transaction errored on chain.
func (t *Transaction) Failed() bool {
	return t.Meta != nil && t.Meta.Err != nil
}

// Logs returns the transaction's log output, or nil.
func (t *Transaction) Logs() []string {
	if t.Meta == nil {
		return nil
	}
	return t.Meta.LogMessages
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// TokenAccount is one SPL token account holding a given mint.
type TokenAccount struct {
	Address string
	Owner   string
	Amount  float64 // UI amount, decimals applied
}
