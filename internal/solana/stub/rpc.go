package stub

import (
	"context"
	"errors"
	"sort"
	"sync"

	"curve-engine/internal/solana"
)

// ErrNotFound is returned when a block or account is not scripted.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing. Scripted blocks,
// block times and accounts are looked up from maps; unscripted slots
// fail the way a node reports skipped slots. Safe for concurrent use.
type RPCClient struct {
	mu sync.Mutex

	Slot       int64
	Blocks     map[int64]*solana.Block
	BlockTimes map[int64]*int64
	Accounts   map[string]*solana.AccountInfo
	Holders    map[string][]solana.TokenAccount

	// FailSlots makes GetBlock error for specific slots.
	FailSlots map[int64]bool

	// BlockTimeCalls counts GetBlockTime invocations, for asserting
	// binary search probe counts.
	BlockTimeCalls int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Blocks:     make(map[int64]*solana.Block),
		BlockTimes: make(map[int64]*int64),
		Accounts:   make(map[string]*solana.AccountInfo),
		Holders:    make(map[string][]solana.TokenAccount),
		FailSlots:  make(map[int64]bool),
	}
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// GetSlot returns the scripted head slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Slot, nil
}

// GetBlockTime returns the scripted time for a slot, nil when unscripted.
func (c *RPCClient) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BlockTimeCalls++
	return c.BlockTimes[slot], nil
}

// GetBlock retrieves a block by slot from the stub store.
func (c *RPCClient) GetBlock(_ context.Context, slot int64) (*solana.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailSlots[slot] {
		return nil, errors.New("slot unavailable")
	}
	block, ok := c.Blocks[slot]
	if !ok {
		return nil, ErrNotFound
	}
	return block, nil
}

// GetBlocks returns the scripted slots within [start, end], ascending.
func (c *RPCClient) GetBlocks(_ context.Context, start, end int64) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[int64]bool)
	var slots []int64
	for slot := range c.Blocks {
		if slot >= start && slot <= end && !seen[slot] {
			seen[slot] = true
			slots = append(slots, slot)
		}
	}
	for slot := range c.FailSlots {
		if slot >= start && slot <= end && !seen[slot] {
			seen[slot] = true
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots, nil
}

// GetAccountInfo returns the scripted account, nil when unscripted.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetTokenAccountsByMint returns the scripted holder accounts.
func (c *RPCClient) GetTokenAccountsByMint(_ context.Context, mint string) ([]solana.TokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]solana.TokenAccount(nil), c.Holders[mint]...), nil
}

// AddBlock adds a block to the stub store.
func (c *RPCClient) AddBlock(block *solana.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Blocks[block.Slot] = block
	if block.BlockTime != nil {
		c.BlockTimes[block.Slot] = block.BlockTime
	}
	if block.Slot > c.Slot {
		c.Slot = block.Slot
	}
}

// SetBlockTime scripts a block time without a full block.
func (c *RPCClient) SetBlockTime(slot, unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := unix
	c.BlockTimes[slot] = &t
}
