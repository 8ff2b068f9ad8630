package ledgerd

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/keygate/keys"
	"xdao.co/keygate/ledger"
	"xdao.co/keygate/storage"
)

var (
	testOwner = keys.IdentityFromPublicKey([]byte("owner key material"))
	testAlice = keys.IdentityFromPublicKey([]byte("alice key material"))
)

func newTestClient(t *testing.T, params ledger.Params, opts ...ledger.Option) (*Client, *ledger.Ledger) {
	t.Helper()
	l, err := ledger.New(testOwner, params, opts...)
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterLedgerServer(srv, &Server{Ledger: l})
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
	return client, l
}

func TestSubscribeAndDetails_OverWire(t *testing.T) {
	client, _ := newTestClient(t, ledger.Params{Price: 100, Duration: 3600})
	ctx := context.Background()

	receipt, err := client.Subscribe(ctx, SubscribeRequest{Identity: testAlice.String(), Payment: 150})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if receipt.Refund != 50 || receipt.Price != 100 || receipt.Renewed {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	details, err := client.Details(ctx, DetailsRequest{Identity: testAlice.String()})
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if !details.Valid || !details.Capability || details.Expiration != receipt.Expiration {
		t.Fatalf("unexpected details: %+v", details)
	}
}

func TestSubscribe_RuleRoundTrip(t *testing.T) {
	client, _ := newTestClient(t, ledger.Params{Price: 100, Duration: 3600})

	_, err := client.Subscribe(context.Background(), SubscribeRequest{Identity: testAlice.String(), Payment: 99})
	if ledger.RuleID(err) != ledger.RuleInsufficientPayment {
		t.Fatalf("expected payment rule over the wire, got %v", err)
	}
	if !ledger.IsKind(err, ledger.KindPayment) {
		t.Fatalf("expected payment kind, got %v", err)
	}
	if ledger.IsTransient(err) {
		t.Fatalf("deterministic refusal must not be transient")
	}
}

func TestSetKeyAndStatus_OverWire(t *testing.T) {
	client, _ := newTestClient(t, ledger.Params{Price: 100, Duration: 3600})
	ctx := context.Background()

	wrapped := []byte("wrapped custody key bytes")
	proof := storage.HandleString(wrapped)

	if _, err := client.SetKey(ctx, SetKeyRequest{Caller: testAlice.String(), Wrapped: wrapped, Proof: proof}); ledger.RuleID(err) != ledger.RuleNotOwner {
		t.Fatalf("non-owner setKey: got %v", err)
	}
	if _, err := client.SetKey(ctx, SetKeyRequest{Caller: testOwner.String(), Wrapped: wrapped, Proof: proof}); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	st, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.KeySet || st.Owner != testOwner.String() || st.Price != 100 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestWithdraw_OverWire(t *testing.T) {
	client, _ := newTestClient(t, ledger.Params{Price: 100, Duration: 3600})
	ctx := context.Background()

	if _, err := client.Subscribe(ctx, SubscribeRequest{Identity: testAlice.String(), Payment: 100}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	got, err := client.Withdraw(ctx, WithdrawRequest{Caller: testOwner.String()})
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if got.Amount != 100 {
		t.Fatalf("expected 100 withdrawn, got %d", got.Amount)
	}
	if _, err := client.Withdraw(ctx, WithdrawRequest{Caller: testOwner.String()}); ledger.RuleID(err) != ledger.RuleNoFundsToWithdraw {
		t.Fatalf("empty withdraw: got %v", err)
	}
}

type failingTransferer struct{ fail bool }

func (f *failingTransferer) Transfer(keys.Identity, uint64) error {
	if f.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func TestClaimRefund_OverWire(t *testing.T) {
	rail := &failingTransferer{fail: true}
	client, _ := newTestClient(t, ledger.Params{Price: 100, Duration: 3600},
		ledger.WithTreasury(rail))
	ctx := context.Background()

	receipt, err := client.Subscribe(ctx, SubscribeRequest{Identity: testAlice.String(), Payment: 150})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !receipt.RefundOwed || receipt.Refund != 50 {
		t.Fatalf("expected booked refund in receipt: %+v", receipt)
	}

	rail.fail = false
	got, err := client.ClaimRefund(ctx, ClaimRefundRequest{Identity: testAlice.String()})
	if err != nil {
		t.Fatalf("ClaimRefund: %v", err)
	}
	if got.Amount != 50 {
		t.Fatalf("expected 50 claimed, got %d", got.Amount)
	}

	_, err = client.ClaimRefund(ctx, ClaimRefundRequest{Identity: testAlice.String()})
	if ledger.RuleID(err) != ledger.RuleNoRefundOwed {
		t.Fatalf("empty claim: got %v", err)
	}
	if !ledger.IsKind(err, ledger.KindFunds) {
		t.Fatalf("expected funds kind, got %v", err)
	}
}

func TestGrantAndUpdateParams_OverWire(t *testing.T) {
	client, _ := newTestClient(t, ledger.Params{Price: 100, Duration: 3600})
	ctx := context.Background()

	receipt, err := client.Grant(ctx, GrantRequest{Caller: testOwner.String(), Identity: testAlice.String(), Duration: 60})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if receipt.Paid != 0 || receipt.Expiration == 0 {
		t.Fatalf("unexpected grant receipt: %+v", receipt)
	}

	if _, err := client.UpdateParams(ctx, UpdateParamsRequest{Caller: testOwner.String(), Price: 200, Duration: 7200}); err != nil {
		t.Fatalf("UpdateParams: %v", err)
	}
	st, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Price != 200 || st.Duration != 7200 {
		t.Fatalf("params not updated: %+v", st)
	}

	if _, err := client.UpdateParams(ctx, UpdateParamsRequest{Caller: testOwner.String(), Price: 1, Duration: 0}); ledger.RuleID(err) != ledger.RuleInvalidDuration {
		t.Fatalf("zero duration: got %v", err)
	}
}
