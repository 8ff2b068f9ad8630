// Package ledger implements the serialized subscription ledger and the
// custody-key vault. All state lives in an explicit State owned by one
// Ledger; every mutating operation is an atomic, all-or-nothing transition
// serialized through a single-writer discipline. Value leaves the ledger
// only through a Transferer, and only after the state transition has fully
// committed.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"xdao.co/keygate/keys"
)

// MaxPrice bounds the configured price so that accumulated revenue cannot
// overflow the balance counter within any realistic subscriber count.
const MaxPrice = 1 << 62

// MaxDuration bounds a subscription or grant period so that stacked
// renewals cannot wrap the expiration counter.
const MaxDuration = 1 << 35

// Receipt describes one successful Subscribe call.
type Receipt struct {
	Identity   keys.Identity
	Paid       uint64
	Price      uint64
	Refund     uint64
	Expiration uint64
	// Renewed is true when a prior record existed for the identity.
	Renewed bool
	// RefundOwed is true when the refund transfer failed and the amount
	// was booked for a later ClaimRefund instead.
	RefundOwed bool
}

// Ledger serializes all access to one State.
type Ledger struct {
	mu       sync.Mutex
	state    *State
	treasury Transferer
	events   EventSink
	now      func() time.Time
}

type Option func(*Ledger)

// WithTreasury sets the value-transfer boundary. Defaults to a MemoryBook.
func WithTreasury(t Transferer) Option {
	return func(l *Ledger) { l.treasury = t }
}

// WithEventSink sets the committed-event sink. Defaults to discarding.
func WithEventSink(s EventSink) Option {
	return func(l *Ledger) { l.events = s }
}

// WithClock overrides the time source. Tests use this to advance expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New builds a ledger owned by owner under the given initial params.
func New(owner keys.Identity, params Params, opts ...Option) (*Ledger, error) {
	if err := checkParams(params); err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, NewError(KindConfig, RuleNotOwner, "owner identity must not be zero")
	}
	l := &Ledger{
		state:  NewState(owner, params),
		events: nopSink{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.treasury == nil {
		l.treasury = NewMemoryBook()
	}
	return l, nil
}

func checkParams(p Params) error {
	if p.Duration == 0 {
		return NewError(KindConfig, RuleInvalidDuration, "duration must be greater than zero seconds")
	}
	if p.Duration > MaxDuration {
		return NewError(KindConfig, RuleInvalidDuration, fmt.Sprintf("duration exceeds maximum of %d seconds", uint64(MaxDuration)))
	}
	if p.Price > MaxPrice {
		return NewError(KindConfig, RuleInvalidPrice, fmt.Sprintf("price exceeds maximum of %d units", uint64(MaxPrice)))
	}
	return nil
}

func (l *Ledger) nowUnix() uint64 {
	return uint64(l.now().Unix())
}

// Owner returns the depositor identity.
func (l *Ledger) Owner() keys.Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Owner
}

// CurrentParams returns the params applied to future Subscribe calls.
func (l *Ledger) CurrentParams() Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Params
}

// Revenue returns the accumulated, not-yet-withdrawn balance.
func (l *Ledger) Revenue() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Balance
}

// Subscribe extends or creates the payer's subscription record under the
// current params. The transition commits before the refund leaves through
// the treasury; the paid price accrues to the ledger balance and the payer
// gains a permanent decryption capability.
//
// A failed refund transfer never undoes the committed transition: by the
// time the transfer runs, the lock is released and other Subscribe calls
// (including one re-entered by the transferer itself) may have committed
// on top of it. The overpayment is booked instead and settled through
// ClaimRefund.
func (l *Ledger) Subscribe(payer keys.Identity, paidAmount uint64) (Receipt, error) {
	l.mu.Lock()

	price := l.state.Params.Price
	duration := l.state.Params.Duration
	if paidAmount < price {
		l.mu.Unlock()
		return Receipt{}, NewError(KindPayment, RuleInsufficientPayment,
			fmt.Sprintf("insufficient payment: required %d units, provided %d", price, paidAmount))
	}

	now := l.nowUnix()
	prior := l.state.Subscribers[payer]
	renewed := prior != 0
	base := prior
	if now > base {
		base = now
	}
	expiration := base + duration

	l.state.Subscribers[payer] = expiration
	l.state.Balance += price
	newlyGranted := l.grantCapability(payer)

	refund := paidAmount - price
	l.mu.Unlock()

	refundOwed := false
	if refund > 0 {
		if err := l.treasury.Transfer(payer, refund); err != nil {
			l.mu.Lock()
			l.state.Refunds[payer] += refund
			l.mu.Unlock()
			refundOwed = true
		}
	}

	l.mu.Lock()
	kind := EventPurchased
	if renewed {
		kind = EventRenewed
	}
	l.events.Record(Event{Kind: kind, Identity: payer, Amount: price, Expiration: expiration, Time: l.now()})
	if newlyGranted {
		l.events.Record(Event{Kind: EventCapabilityGranted, Identity: payer, Time: l.now()})
	}
	if refundOwed {
		l.events.Record(Event{Kind: EventRefundOwed, Identity: payer, Amount: refund, Time: l.now()})
	}
	l.mu.Unlock()

	return Receipt{
		Identity:   payer,
		Paid:       paidAmount,
		Price:      price,
		Refund:     refund,
		Expiration: expiration,
		Renewed:    renewed,
		RefundOwed: refundOwed,
	}, nil
}

// RefundOwed returns the overpayment still owed to identity after failed
// refund transfers.
func (l *Ledger) RefundOwed(identity keys.Identity) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Refunds[identity]
}

// ClaimRefund retries paying out a booked refund. The entry is zeroed
// before the external transfer and restored additively on failure, so a
// re-entering transferer observes nothing left to claim.
func (l *Ledger) ClaimRefund(caller keys.Identity) (uint64, error) {
	l.mu.Lock()
	amount := l.state.Refunds[caller]
	if amount == 0 {
		l.mu.Unlock()
		return 0, NewError(KindFunds, RuleNoRefundOwed, "no refund owed")
	}
	delete(l.state.Refunds, caller)
	l.mu.Unlock()

	if err := l.treasury.Transfer(caller, amount); err != nil {
		l.mu.Lock()
		l.state.Refunds[caller] += amount
		l.mu.Unlock()
		return 0, WrapError(KindFunds, RuleTransferFailed, "refund transfer failed", err)
	}

	l.mu.Lock()
	l.events.Record(Event{Kind: EventRefundClaimed, Identity: caller, Amount: amount, Time: l.now()})
	l.mu.Unlock()
	return amount, nil
}

// Grant is the owner-only privileged path: it extends or creates a record
// with zero payment. No refund, no revenue change.
func (l *Ledger) Grant(caller, identity keys.Identity, duration uint64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Owner {
		return Receipt{}, NewError(KindAuth, RuleNotOwner, "grant is restricted to the owner")
	}
	if duration == 0 {
		return Receipt{}, NewError(KindConfig, RuleInvalidDuration, "duration must be greater than zero seconds")
	}
	if duration > MaxDuration {
		return Receipt{}, NewError(KindConfig, RuleInvalidDuration, fmt.Sprintf("duration exceeds maximum of %d seconds", uint64(MaxDuration)))
	}

	now := l.nowUnix()
	prior := l.state.Subscribers[identity]
	renewed := prior != 0
	base := prior
	if now > base {
		base = now
	}
	expiration := base + duration

	l.state.Subscribers[identity] = expiration
	newlyGranted := l.grantCapability(identity)

	l.events.Record(Event{Kind: EventGranted, Identity: identity, Expiration: expiration, Time: l.now()})
	if newlyGranted {
		l.events.Record(Event{Kind: EventCapabilityGranted, Identity: identity, Time: l.now()})
	}

	return Receipt{Identity: identity, Expiration: expiration, Renewed: renewed}, nil
}

// IsValid reports whether identity holds an unexpired subscription.
func (l *Ledger) IsValid(identity keys.Identity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Subscribers[identity] > l.nowUnix()
}

// SubscriptionDetails returns the record for identity. A zero expiration
// means the identity never subscribed.
func (l *Ledger) SubscriptionDetails(identity keys.Identity) SubscriptionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return SubscriptionRecord{Identity: identity, Expiration: l.state.Subscribers[identity]}
}

// UpdateParams replaces the subscription terms for all future Subscribe
// calls. Existing records are untouched.
func (l *Ledger) UpdateParams(caller keys.Identity, newParams Params) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Owner {
		return NewError(KindAuth, RuleNotOwner, "updateParams is restricted to the owner")
	}
	if err := checkParams(newParams); err != nil {
		return err
	}
	l.state.Params = newParams
	l.events.Record(Event{Kind: EventParamsUpdated, Identity: caller, Amount: newParams.Price, Time: l.now()})
	return nil
}

// Withdraw transfers the accumulated balance to the owner. The balance is
// zeroed before the external transfer; a re-entering transferer therefore
// observes an empty balance and cannot double-pay. On transfer failure the
// balance is restored.
func (l *Ledger) Withdraw(caller keys.Identity) (uint64, error) {
	l.mu.Lock()
	if caller != l.state.Owner {
		l.mu.Unlock()
		return 0, NewError(KindAuth, RuleNotOwner, "withdraw is restricted to the owner")
	}
	amount := l.state.Balance
	if amount == 0 {
		l.mu.Unlock()
		return 0, NewError(KindFunds, RuleNoFundsToWithdraw, "no funds to withdraw")
	}
	l.state.Balance = 0
	owner := l.state.Owner
	l.mu.Unlock()

	if err := l.treasury.Transfer(owner, amount); err != nil {
		l.mu.Lock()
		l.state.Balance += amount
		l.mu.Unlock()
		return 0, WrapError(KindFunds, RuleTransferFailed, "withdrawal transfer failed", err)
	}

	l.mu.Lock()
	l.events.Record(Event{Kind: EventWithdrawn, Identity: owner, Amount: amount, Time: l.now()})
	l.mu.Unlock()
	return amount, nil
}
