package ledger

import (
	"xdao.co/keygate/keys"
	"xdao.co/keygate/storage"
)

// SetKey deposits the wrapped custody key. One-way: the vault accepts
// exactly one deposit for the lifetime of the resource, and every later
// attempt fails regardless of content. proof must be the CIDv1
// (raw + sha2-256) of the wrapped bytes; it commits the depositor to the
// ciphertext without revealing anything about the key.
func (l *Ledger) SetKey(caller keys.Identity, wrappedCiphertext []byte, proof string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Owner {
		return NewError(KindAuth, RuleNotOwner, "setKey is restricted to the owner")
	}
	if l.state.KeySet {
		return NewError(KindVault, RuleKeyAlreadySet, "content key already set")
	}
	if len(wrappedCiphertext) == 0 {
		return NewError(KindVault, RuleProofMismatch, "wrapped ciphertext must not be empty")
	}
	want, err := storage.HandleFor(wrappedCiphertext)
	if err != nil {
		return WrapError(KindInternal, RuleProofMismatch, "proof computation failed", err)
	}
	if proof != want.String() {
		return NewError(KindVault, RuleProofMismatch, "proof does not commit to the wrapped ciphertext")
	}

	cp := make([]byte, len(wrappedCiphertext))
	copy(cp, wrappedCiphertext)
	l.state.WrappedKey = cp
	l.state.KeySet = true
	l.grantCapability(l.state.Owner)

	l.events.Record(Event{Kind: EventKeyDeposited, Identity: caller, Time: l.now()})
	return nil
}

// KeySet reports whether the vault holds a wrapped key.
func (l *Ledger) KeySet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.KeySet
}

// WrappedKey returns the wrapped custody key to the owner or to a caller
// with a live subscription at call time.
//
// The read gate is live-checked even though the decryption capability
// granted on subscribe is permanent: an identity whose subscription lapsed
// keeps its capability forever but loses this read path until it renews.
func (l *Ledger) WrappedKey(caller keys.Identity) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.state.KeySet {
		return nil, NewError(KindVault, RuleKeyNotSet, "content key not set")
	}
	if err := l.authorizeLocked(caller); err != nil {
		return nil, err
	}
	cp := make([]byte, len(l.state.WrappedKey))
	copy(cp, l.state.WrappedKey)
	return cp, nil
}

// AuthorizeReveal re-derives the vault's live gate for the reveal service:
// owner always passes; everyone else needs an unexpired subscription now.
func (l *Ledger) AuthorizeReveal(caller keys.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.KeySet {
		return NewError(KindVault, RuleKeyNotSet, "content key not set")
	}
	return l.authorizeLocked(caller)
}

func (l *Ledger) authorizeLocked(caller keys.Identity) error {
	if caller == l.state.Owner {
		return nil
	}
	if l.state.Subscribers[caller] > l.nowUnix() {
		return nil
	}
	return NewError(KindAuth, RuleNoValidSubscription,
		"no valid subscription: subscribe (or renew) to regain access to the wrapped key")
}
