// Package handshake drives the caller side of the reveal protocol: build a
// signed authorization statement around a fresh ephemeral key, present it to
// the reveal service, and unwrap the custody key from the sealed response.
// The ephemeral keypair lives for exactly one exchange.
package handshake

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"xdao.co/keygate/authstmt"
	"xdao.co/keygate/envelope"
	"xdao.co/keygate/keys"
	"xdao.co/keygate/ledger"
	"xdao.co/keygate/storage"
)

// Revealer is the external decryption boundary. *reveald.Client satisfies it.
type Revealer interface {
	Reveal(ctx context.Context, statement []byte) ([]byte, error)
}

// Handshake requests custody keys on behalf of one signing identity.
type Handshake struct {
	revealer Revealer
	resource keys.Identity
	priv     ed25519.PrivateKey

	window   time.Duration
	hashAlg  string
	attempts int
	backoff  time.Duration
	store    storage.Store

	mu       sync.Mutex
	inflight map[string]*call
}

type call struct {
	done chan struct{}
	key  []byte
	err  error
}

type Option func(*Handshake)

// WithWindow overrides the statement validity window.
func WithWindow(w time.Duration) Option {
	return func(h *Handshake) { h.window = w }
}

// WithHashAlg overrides the statement digest algorithm.
func WithHashAlg(alg string) Option {
	return func(h *Handshake) { h.hashAlg = alg }
}

// WithRetry retries transient service failures up to attempts times with a
// fixed backoff. Deterministic refusals are never retried.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(h *Handshake) {
		h.attempts = attempts
		h.backoff = backoff
	}
}

// WithStore enables Open: envelopes are fetched by handle before decryption.
func WithStore(s storage.Store) Option {
	return func(h *Handshake) { h.store = s }
}

// New builds a handshake client for the given resource, signing as priv.
func New(revealer Revealer, resource keys.Identity, priv ed25519.PrivateKey, opts ...Option) *Handshake {
	h := &Handshake{
		revealer: revealer,
		resource: resource,
		priv:     priv,
		attempts: 1,
		inflight: make(map[string]*call),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.attempts < 1 {
		h.attempts = 1
	}
	return h
}

// RequestKey performs one full handshake and returns the custody key.
//
// Concurrent requests for the same handle set share a single exchange: the
// duplicate waits for the in-flight one instead of issuing a second
// statement. Results are not cached past completion, so every later call
// re-runs the gate.
func (h *Handshake) RequestKey(ctx context.Context, handles []string) ([]byte, error) {
	if len(handles) == 0 {
		return nil, ledger.NewError(ledger.KindCrypto, ledger.RuleStatementRejected,
			"at least one handle required")
	}

	dk := dedupKey(handles)
	h.mu.Lock()
	if c, ok := h.inflight[dk]; ok {
		h.mu.Unlock()
		select {
		case <-c.done:
			return c.key, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	h.inflight[dk] = c
	h.mu.Unlock()

	c.key, c.err = h.exchange(ctx, handles)
	h.mu.Lock()
	delete(h.inflight, dk)
	h.mu.Unlock()
	close(c.done)
	return c.key, c.err
}

// Open fetches each envelope by handle, requests the custody key once, and
// returns the plaintexts in handle order. Requires WithStore.
func (h *Handshake) Open(ctx context.Context, handles []string) ([][]byte, error) {
	if h.store == nil {
		return nil, ledger.NewError(ledger.KindInternal, "", "no envelope store configured")
	}
	envs := make([]*envelope.Envelope, len(handles))
	for i, hs := range handles {
		id, err := storage.ParseHandle(hs)
		if err != nil {
			return nil, err
		}
		raw, err := h.store.Get(id)
		if err != nil {
			return nil, err
		}
		env, err := envelope.Unmarshal(raw)
		if err != nil {
			return nil, err
		}
		envs[i] = env
	}

	key, err := h.RequestKey(ctx, handles)
	if err != nil {
		return nil, err
	}
	plaintexts := make([][]byte, len(envs))
	for i, env := range envs {
		pt, err := envelope.Open(env, key)
		if err != nil {
			return nil, err
		}
		plaintexts[i] = pt
	}
	return plaintexts, nil
}

func (h *Handshake) exchange(ctx context.Context, handles []string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < h.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(h.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		key, err := h.once(ctx, handles)
		if err == nil {
			return key, nil
		}
		lastErr = err
		if !ledger.IsTransient(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (h *Handshake) once(ctx context.Context, handles []string) ([]byte, error) {
	ephPub, ephPriv, err := keys.GenerateBoxKeypair(rand.Reader)
	if err != nil {
		return nil, ledger.WrapError(ledger.KindInternal, "", "ephemeral key generation failed", err)
	}
	defer zero(ephPriv[:])

	stmt, err := authstmt.BuildSignedEd25519(authstmt.Params{
		Resource:     h.resource.String(),
		Handles:      handles,
		EphemeralKey: keys.BoxKeyString(ephPub),
		Window:       h.window,
		HashAlg:      h.hashAlg,
	}, h.priv)
	if err != nil {
		return nil, ledger.WrapError(ledger.KindCrypto, ledger.RuleStatementRejected,
			"statement construction failed", err)
	}

	sealed, err := h.revealer.Reveal(ctx, stmt)
	if err != nil {
		return nil, err
	}
	key, err := keys.UnwrapWithBoxKey(sealed, ephPub, ephPriv)
	if err != nil {
		return nil, ledger.WrapError(ledger.KindCrypto, ledger.RuleStatementRejected,
			"response does not open under the ephemeral key", err)
	}
	if len(key) != envelope.KeySize {
		return nil, ledger.NewError(ledger.KindCrypto, ledger.RuleStatementRejected,
			"revealed key has wrong length")
	}
	return key, nil
}

func dedupKey(handles []string) string {
	sorted := append([]string(nil), handles...)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
