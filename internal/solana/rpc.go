package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface the engine uses.
type RPCClient interface {
	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockTime retrieves the estimated production time of a block.
	// Returns nil for slots with no available timestamp.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)

	// GetBlock retrieves a block with full transaction details.
	GetBlock(ctx context.Context, slot int64) (*Block, error)

	// GetBlocks retrieves the confirmed slots in [start, end].
	GetBlocks(ctx context.Context, start, end int64) ([]int64, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenAccountsByMint scans all SPL token accounts holding mint.
	GetTokenAccountsByMint(ctx context.Context, mint string) ([]TokenAccount, error)
}
