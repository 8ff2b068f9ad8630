package reveald

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls a remote Reveal service.
type Client struct {
	cc     *grpc.ClientConn
	client RevealClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewRevealClient(cc), Timeout: 0}, nil
}

// NewClient wraps an existing connection, e.g. an in-process bufconn.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewRevealClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Reveal submits canonical statement bytes and returns the custody key
// sealed to the statement's ephemeral key. Errors are mapped back into
// ledger error kinds so callers can branch on transience.
func (c *Client) Reveal(ctx context.Context, statement []byte) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	reply, err := c.client.Reveal(ctx, wrapperspb.Bytes(statement))
	if err != nil {
		return nil, mapRPC(err)
	}
	return reply.GetValue(), nil
}
