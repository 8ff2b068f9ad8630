package reveald

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/keygate/authstmt"
	"xdao.co/keygate/keys"
	"xdao.co/keygate/ledger"
	"xdao.co/keygate/storage"
)

// Server exposes a ledger's vault over the Reveal gRPC service.
//
// The server holds the service half of the custody wrapping: the vault's
// ciphertext was sealed to ServicePub, and the server re-seals the recovered
// key to the ephemeral key bound into each authorized statement. The
// plaintext custody key never crosses the wire and is never persisted here.
type Server struct {
	UnimplementedRevealServer

	Ledger *ledger.Ledger

	// Resource is the identity statements must name to be honored here.
	Resource keys.Identity

	// ServicePub and ServicePriv open the vault's wrapped ciphertext.
	ServicePub  *[keys.BoxKeySize]byte
	ServicePriv *[keys.BoxKeySize]byte

	// Envelopes, when set, lets the server refuse statements naming handles
	// it has never stored.
	Envelopes storage.Store

	// Now overrides the validity-window clock. Nil means time.Now.
	Now func() time.Time
}

func (s *Server) Reveal(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Ledger == nil || s.ServicePub == nil || s.ServicePriv == nil {
		return nil, status.Error(codes.FailedPrecondition, "reveal service not configured")
	}

	stmt, err := authstmt.Parse(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := stmt.VerifyAt(s.now()); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	resource, err := keys.ParseIdentity(stmt.Resource())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed resource identity")
	}
	if resource != s.Resource {
		return nil, status.Error(codes.PermissionDenied, "statement names a different resource")
	}
	if s.Envelopes != nil {
		for _, h := range stmt.Handles() {
			handle, derr := storage.ParseHandle(h)
			if derr != nil {
				return nil, status.Error(codes.InvalidArgument, "malformed handle")
			}
			if !s.Envelopes.Has(handle) {
				return nil, status.Error(codes.NotFound, "unknown envelope handle")
			}
		}
	}

	// The gate is the ledger's: owner or live subscription at call time.
	caller, err := stmt.CallerIdentity()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed caller identity")
	}
	wrapped, err := s.Ledger.WrappedKey(caller)
	if err != nil {
		return nil, mapErr(err)
	}

	custody, err := keys.UnwrapWithBoxKey(wrapped, s.ServicePub, s.ServicePriv)
	if err != nil {
		return nil, status.Error(codes.Internal, "vault ciphertext does not open under the service key")
	}
	eph, err := keys.ParseBoxKey(stmt.EphemeralKey())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed ephemeral key")
	}
	sealed, err := keys.WrapToBoxKey(custody, eph)
	if err != nil {
		return nil, status.Error(codes.Internal, "resealing failed")
	}
	return wrapperspb.Bytes(sealed), nil
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
