package ledger

import (
	"xdao.co/keygate/keys"
)

// Params are the subscription terms applied to future Subscribe calls.
// Changing them never rewrites existing records.
type Params struct {
	// Price in fungible units required per subscription period.
	Price uint64
	// Duration of one subscription period in seconds. Must be > 0.
	Duration uint64
}

// SubscriptionRecord tracks one subscriber. Expiration is unix seconds;
// zero means the identity never subscribed. Records are never deleted,
// expiry simply lapses.
type SubscriptionRecord struct {
	Identity   keys.Identity
	Expiration uint64
}

// State is the explicit mutable ledger state. It is owned by exactly one
// Ledger and must only be touched while that Ledger serializes access.
type State struct {
	Owner  keys.Identity
	Params Params

	// Subscribers maps identity to expiration (unix seconds).
	Subscribers map[keys.Identity]uint64

	// Capabilities is the monotonically-growing capability-grant set.
	// Entries are never removed. The owner is implicitly always a member.
	Capabilities map[keys.Identity]bool

	// WrappedKey is the custody key in capability-encrypted form. Set-once.
	WrappedKey []byte
	KeySet     bool

	// Balance is accumulated revenue not yet withdrawn.
	Balance uint64

	// Refunds maps identity to overpayment owed after a failed refund
	// transfer. Entries are settled through ClaimRefund.
	Refunds map[keys.Identity]uint64
}

// NewState builds an empty ledger state for owner under params.
func NewState(owner keys.Identity, params Params) *State {
	return &State{
		Owner:        owner,
		Params:       params,
		Subscribers:  make(map[keys.Identity]uint64),
		Capabilities: make(map[keys.Identity]bool),
		Refunds:      make(map[keys.Identity]uint64),
	}
}
