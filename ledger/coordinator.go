package ledger

import "xdao.co/keygate/keys"

// Capability coordination: every successful Subscribe, Grant, or SetKey
// synchronously adds the identity to the capability set. The set only ever
// grows; nothing in this module removes entries.

// grantCapability records the grant and reports whether it was new.
// Callers must hold l.mu. Granting twice has no additional effect.
func (l *Ledger) grantCapability(identity keys.Identity) bool {
	if l.state.Capabilities[identity] {
		return false
	}
	l.state.Capabilities[identity] = true
	return true
}

// HasCapability reports whether identity ever obtained a decryption
// capability. The owner is implicitly always a member. Note this is the
// permanent set, not the live read gate; see WrappedKey.
func (l *Ledger) HasCapability(identity keys.Identity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return identity == l.state.Owner || l.state.Capabilities[identity]
}

// Capabilities returns a snapshot of the permanent capability set.
func (l *Ledger) Capabilities() []keys.Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]keys.Identity, 0, len(l.state.Capabilities))
	for id := range l.state.Capabilities {
		out = append(out, id)
	}
	return out
}
