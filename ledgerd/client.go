package ledgerd

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/keygate/ledger"
)

// Client calls a remote Ledger admin service with typed requests.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
}

func Dial(target string, opts DialOptions) (*Client, error) {
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	cc, err := grpc.DialContext(ctx, target,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewLedgerClient(cc)}, nil
}

// NewClient wraps an existing connection, e.g. an in-process bufconn.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewLedgerClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func call[Req, Resp any](c *Client, ctx context.Context, req Req, rpc func(context.Context, *wrapperspb.BytesValue, ...grpc.CallOption) (*wrapperspb.BytesValue, error)) (Resp, error) {
	var resp Resp
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	body, err := json.Marshal(req)
	if err != nil {
		return resp, ledger.WrapError(ledger.KindInternal, "", "request encoding failed", err)
	}
	reply, err := rpc(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return resp, errFromStatus(err)
	}
	if err := json.Unmarshal(reply.GetValue(), &resp); err != nil {
		return resp, ledger.WrapError(ledger.KindInternal, "", "response decoding failed", err)
	}
	return resp, nil
}

func (c *Client) Subscribe(ctx context.Context, req SubscribeRequest) (ReceiptResponse, error) {
	return call[SubscribeRequest, ReceiptResponse](c, ctx, req, c.client.Subscribe)
}

func (c *Client) Grant(ctx context.Context, req GrantRequest) (ReceiptResponse, error) {
	return call[GrantRequest, ReceiptResponse](c, ctx, req, c.client.Grant)
}

func (c *Client) SetKey(ctx context.Context, req SetKeyRequest) (SetKeyResponse, error) {
	return call[SetKeyRequest, SetKeyResponse](c, ctx, req, c.client.SetKey)
}

func (c *Client) Details(ctx context.Context, req DetailsRequest) (DetailsResponse, error) {
	return call[DetailsRequest, DetailsResponse](c, ctx, req, c.client.Details)
}

func (c *Client) UpdateParams(ctx context.Context, req UpdateParamsRequest) (UpdateParamsResponse, error) {
	return call[UpdateParamsRequest, UpdateParamsResponse](c, ctx, req, c.client.UpdateParams)
}

func (c *Client) Withdraw(ctx context.Context, req WithdrawRequest) (WithdrawResponse, error) {
	return call[WithdrawRequest, WithdrawResponse](c, ctx, req, c.client.Withdraw)
}

func (c *Client) ClaimRefund(ctx context.Context, req ClaimRefundRequest) (ClaimRefundResponse, error) {
	return call[ClaimRefundRequest, ClaimRefundResponse](c, ctx, req, c.client.ClaimRefund)
}

func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, ctx, StatusRequest{}, c.client.Status)
}
