package ledger

import (
	"fmt"
	"sync"

	"xdao.co/keygate/keys"
)

// Transferer moves fungible value out of the ledger: refunds on overpayment
// and owner withdrawals. The ledger applies its own state transitions fully
// before invoking Transfer, so a re-entering implementation observes
// committed state only.
type Transferer interface {
	Transfer(to keys.Identity, amount uint64) error
}

// MemoryBook is an in-memory account book implementing Transferer. It backs
// tests and the single-process daemon; a production deployment would plug a
// real payment rail in instead.
type MemoryBook struct {
	mu       sync.Mutex
	balances map[keys.Identity]uint64
}

func NewMemoryBook() *MemoryBook {
	return &MemoryBook{balances: make(map[keys.Identity]uint64)}
}

func (b *MemoryBook) Transfer(to keys.Identity, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[to] += amount
	return nil
}

// Debit removes funds from an account, failing on insufficient balance.
// Used by callers that model the payer side of Subscribe.
func (b *MemoryBook) Debit(from keys.Identity, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[from] < amount {
		return fmt.Errorf("insufficient balance: have %d, need %d", b.balances[from], amount)
	}
	b.balances[from] -= amount
	return nil
}

// Credit adds funds to an account.
func (b *MemoryBook) Credit(to keys.Identity, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[to] += amount
}

// Balance returns the current balance of an account.
func (b *MemoryBook) Balance(of keys.Identity) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[of]
}
