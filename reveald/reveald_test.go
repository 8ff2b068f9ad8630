package reveald

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/keygate/authstmt"
	"xdao.co/keygate/keys"
	"xdao.co/keygate/ledger"
	"xdao.co/keygate/storage"
	"xdao.co/keygate/storage/memstore"
)

type fixture struct {
	client  *Client
	ledger  *ledger.Ledger
	owner   keys.Identity
	custody []byte
	store   storage.Store
}

func identityFor(t *testing.T, priv ed25519.PrivateKey) keys.Identity {
	t.Helper()
	return keys.IdentityFromPublicKey(priv.Public().(ed25519.PublicKey))
}

func privFor(fill byte) ed25519.PrivateKey {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = fill
	}
	return ed25519.NewKeyFromSeed(seed)
}

func newFixture(t *testing.T, params ledger.Params) *fixture {
	t.Helper()

	ownerPriv := privFor(0x01)
	owner := identityFor(t, ownerPriv)

	l, err := ledger.New(owner, params)
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}

	servicePub, servicePriv, err := keys.GenerateBoxKeypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateBoxKeypair: %v", err)
	}

	// Owner wraps the custody key to the service and deposits it.
	custody := make([]byte, 32)
	for i := range custody {
		custody[i] = byte(i)
	}
	wrapped, err := keys.WrapToBoxKey(custody, servicePub)
	if err != nil {
		t.Fatalf("WrapToBoxKey: %v", err)
	}
	if err := l.SetKey(owner, wrapped, storage.HandleString(wrapped)); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	store := memstore.New()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterRevealServer(srv, &Server{
		Ledger:      l,
		Resource:    owner,
		ServicePub:  servicePub,
		ServicePriv: servicePriv,
		Envelopes:   store,
	})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	client := NewClient(cc)
	client.Timeout = 2 * time.Second
	return &fixture{client: client, ledger: l, owner: owner, custody: custody, store: store}
}

func (f *fixture) statement(t *testing.T, priv ed25519.PrivateKey, ephPub *[keys.BoxKeySize]byte) []byte {
	t.Helper()
	handle, err := f.store.Put([]byte("sealed envelope bytes"))
	if err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	raw, err := authstmt.BuildSignedEd25519(authstmt.Params{
		Resource:     f.owner.String(),
		Handles:      []string{handle.String()},
		EphemeralKey: keys.BoxKeyString(ephPub),
	}, priv)
	if err != nil {
		t.Fatalf("BuildSignedEd25519: %v", err)
	}
	return raw
}

func TestReveal_OwnerRecoversCustodyKey(t *testing.T) {
	f := newFixture(t, ledger.Params{Price: 10, Duration: 3600})

	ephPub, ephPriv, err := keys.GenerateBoxKeypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateBoxKeypair: %v", err)
	}
	sealed, err := f.client.Reveal(context.Background(), f.statement(t, privFor(0x01), ephPub))
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}

	got, err := keys.UnwrapWithBoxKey(sealed, ephPub, ephPriv)
	if err != nil {
		t.Fatalf("UnwrapWithBoxKey: %v", err)
	}
	if string(got) != string(f.custody) {
		t.Fatalf("custody key mismatch")
	}
}

func TestReveal_SubscriberGate(t *testing.T) {
	f := newFixture(t, ledger.Params{Price: 10, Duration: 3600})

	alicePriv := privFor(0x02)
	alice := identityFor(t, alicePriv)
	ephPub, ephPriv, err := keys.GenerateBoxKeypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateBoxKeypair: %v", err)
	}
	stmt := f.statement(t, alicePriv, ephPub)

	// No subscription yet: refused with a deterministic auth error.
	_, err = f.client.Reveal(context.Background(), stmt)
	if ledger.RuleID(err) != ledger.RuleNoValidSubscription {
		t.Fatalf("unsubscribed reveal: got %v", err)
	}
	if ledger.IsTransient(err) {
		t.Fatalf("gate refusal must not be transient")
	}

	if _, err := f.ledger.Subscribe(alice, 10); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	sealed, err := f.client.Reveal(context.Background(), stmt)
	if err != nil {
		t.Fatalf("subscribed reveal: %v", err)
	}
	if _, err := keys.UnwrapWithBoxKey(sealed, ephPub, ephPriv); err != nil {
		t.Fatalf("UnwrapWithBoxKey: %v", err)
	}
}

func TestReveal_RejectsTamperedStatement(t *testing.T) {
	f := newFixture(t, ledger.Params{Price: 10, Duration: 3600})

	ephPub, _, err := keys.GenerateBoxKeypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateBoxKeypair: %v", err)
	}
	stmt := f.statement(t, privFor(0x01), ephPub)
	stmt[len(stmt)/2] ^= 0x01

	_, err = f.client.Reveal(context.Background(), stmt)
	if ledger.RuleID(err) != ledger.RuleStatementRejected {
		t.Fatalf("tampered reveal: got %v", err)
	}
}

func TestReveal_RejectsForeignResource(t *testing.T) {
	f := newFixture(t, ledger.Params{Price: 10, Duration: 3600})

	ephPub, _, err := keys.GenerateBoxKeypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateBoxKeypair: %v", err)
	}
	handle, err := f.store.Put([]byte("sealed envelope bytes"))
	if err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	raw, err := authstmt.BuildSignedEd25519(authstmt.Params{
		Resource:     identityFor(t, privFor(0x0F)).String(),
		Handles:      []string{handle.String()},
		EphemeralKey: keys.BoxKeyString(ephPub),
	}, privFor(0x01))
	if err != nil {
		t.Fatalf("BuildSignedEd25519: %v", err)
	}

	_, err = f.client.Reveal(context.Background(), raw)
	if ledger.RuleID(err) != ledger.RuleNoValidSubscription {
		t.Fatalf("foreign resource: got %v", err)
	}
}

func TestReveal_RejectsUnknownHandle(t *testing.T) {
	f := newFixture(t, ledger.Params{Price: 10, Duration: 3600})

	ephPub, _, err := keys.GenerateBoxKeypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateBoxKeypair: %v", err)
	}
	unknown, err := storage.HandleFor([]byte("never stored"))
	if err != nil {
		t.Fatalf("HandleFor: %v", err)
	}
	raw, err := authstmt.BuildSignedEd25519(authstmt.Params{
		Resource:     f.owner.String(),
		Handles:      []string{unknown.String()},
		EphemeralKey: keys.BoxKeyString(ephPub),
	}, privFor(0x01))
	if err != nil {
		t.Fatalf("BuildSignedEd25519: %v", err)
	}

	_, err = f.client.Reveal(context.Background(), raw)
	if ledger.RuleID(err) != ledger.RuleStatementRejected {
		t.Fatalf("unknown handle: got %v", err)
	}
}

func TestReveal_RejectsLapsedWindow(t *testing.T) {
	f := newFixture(t, ledger.Params{Price: 10, Duration: 3600})

	ephPub, _, err := keys.GenerateBoxKeypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateBoxKeypair: %v", err)
	}
	handle, err := f.store.Put([]byte("sealed envelope bytes"))
	if err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	raw, err := authstmt.BuildSignedEd25519(authstmt.Params{
		Resource:     f.owner.String(),
		Handles:      []string{handle.String()},
		EphemeralKey: keys.BoxKeyString(ephPub),
		IssuedAt:     time.Now().Add(-11 * 24 * time.Hour),
	}, privFor(0x01))
	if err != nil {
		t.Fatalf("BuildSignedEd25519: %v", err)
	}

	_, err = f.client.Reveal(context.Background(), raw)
	if ledger.RuleID(err) != ledger.RuleStatementRejected {
		t.Fatalf("lapsed statement: got %v", err)
	}
}
