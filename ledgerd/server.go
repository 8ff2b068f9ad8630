package ledgerd

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/keygate/keys"
	"xdao.co/keygate/ledger"
)

// Server exposes a ledger over the Ledger admin gRPC service.
//
// The admin surface trusts the caller identity named in each request body.
// It carries no authentication of its own; deployments bind it to loopback
// (the daemon default) and keep the reveal path as the only exposed service.
type Server struct {
	UnimplementedLedgerServer
	Ledger *ledger.Ledger
}

func decode[T any](in *wrapperspb.BytesValue) (T, error) {
	var req T
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return req, status.Error(codes.InvalidArgument, "malformed request body")
	}
	return req, nil
}

func encode(v interface{}) (*wrapperspb.BytesValue, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "response encoding failed")
	}
	return wrapperspb.Bytes(b), nil
}

func parseIdentity(s string) (keys.Identity, error) {
	id, err := keys.ParseIdentity(s)
	if err != nil {
		return keys.ZeroIdentity, status.Error(codes.InvalidArgument, "malformed identity")
	}
	return id, nil
}

func (s *Server) ready() error {
	if s == nil || s.Ledger == nil {
		return status.Error(codes.FailedPrecondition, "ledger not configured")
	}
	return nil
}

func (s *Server) Subscribe(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	req, err := decode[SubscribeRequest](in)
	if err != nil {
		return nil, err
	}
	payer, err := parseIdentity(req.Identity)
	if err != nil {
		return nil, err
	}
	receipt, err := s.Ledger.Subscribe(payer, req.Payment)
	if err != nil {
		return nil, statusFromLedger(err)
	}
	return encode(receiptResponse(receipt))
}

func (s *Server) Grant(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	req, err := decode[GrantRequest](in)
	if err != nil {
		return nil, err
	}
	caller, err := parseIdentity(req.Caller)
	if err != nil {
		return nil, err
	}
	identity, err := parseIdentity(req.Identity)
	if err != nil {
		return nil, err
	}
	receipt, err := s.Ledger.Grant(caller, identity, req.Duration)
	if err != nil {
		return nil, statusFromLedger(err)
	}
	return encode(receiptResponse(receipt))
}

func (s *Server) SetKey(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	req, err := decode[SetKeyRequest](in)
	if err != nil {
		return nil, err
	}
	caller, err := parseIdentity(req.Caller)
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.SetKey(caller, req.Wrapped, req.Proof); err != nil {
		return nil, statusFromLedger(err)
	}
	return encode(SetKeyResponse{Proof: req.Proof})
}

func (s *Server) Details(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	req, err := decode[DetailsRequest](in)
	if err != nil {
		return nil, err
	}
	identity, err := parseIdentity(req.Identity)
	if err != nil {
		return nil, err
	}
	record := s.Ledger.SubscriptionDetails(identity)
	return encode(DetailsResponse{
		Identity:   identity.String(),
		Expiration: record.Expiration,
		Valid:      s.Ledger.IsValid(identity),
		Capability: s.Ledger.HasCapability(identity),
	})
}

func (s *Server) UpdateParams(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	req, err := decode[UpdateParamsRequest](in)
	if err != nil {
		return nil, err
	}
	caller, err := parseIdentity(req.Caller)
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.UpdateParams(caller, ledger.Params{Price: req.Price, Duration: req.Duration}); err != nil {
		return nil, statusFromLedger(err)
	}
	return encode(UpdateParamsResponse{})
}

func (s *Server) Withdraw(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	req, err := decode[WithdrawRequest](in)
	if err != nil {
		return nil, err
	}
	caller, err := parseIdentity(req.Caller)
	if err != nil {
		return nil, err
	}
	amount, err := s.Ledger.Withdraw(caller)
	if err != nil {
		return nil, statusFromLedger(err)
	}
	return encode(WithdrawResponse{Amount: amount})
}

func (s *Server) ClaimRefund(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	req, err := decode[ClaimRefundRequest](in)
	if err != nil {
		return nil, err
	}
	identity, err := parseIdentity(req.Identity)
	if err != nil {
		return nil, err
	}
	amount, err := s.Ledger.ClaimRefund(identity)
	if err != nil {
		return nil, statusFromLedger(err)
	}
	return encode(ClaimRefundResponse{Amount: amount})
}

func (s *Server) Status(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	_ = in
	if err := s.ready(); err != nil {
		return nil, err
	}
	params := s.Ledger.CurrentParams()
	return encode(StatusResponse{
		Owner:    s.Ledger.Owner().String(),
		Price:    params.Price,
		Duration: params.Duration,
		Revenue:  s.Ledger.Revenue(),
		KeySet:   s.Ledger.KeySet(),
	})
}

func receiptResponse(r ledger.Receipt) ReceiptResponse {
	return ReceiptResponse{
		Identity:   r.Identity.String(),
		Paid:       r.Paid,
		Price:      r.Price,
		Refund:     r.Refund,
		Expiration: r.Expiration,
		Renewed:    r.Renewed,
		RefundOwed: r.RefundOwed,
	}
}
