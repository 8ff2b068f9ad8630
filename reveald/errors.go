package reveald

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/keygate/ledger"
)

// mapErr translates ledger errors into gRPC status codes for the wire.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var le *ledger.Error
	if !errors.As(err, &le) {
		return status.Error(codes.Internal, err.Error())
	}
	switch le.Kind {
	case ledger.KindAuth:
		return status.Error(codes.PermissionDenied, le.Message)
	case ledger.KindVault:
		return status.Error(codes.FailedPrecondition, le.Message)
	default:
		return status.Error(codes.Internal, le.Message)
	}
}

// mapRPC translates gRPC status codes back into ledger errors on the client
// side. Transport-level failures become transient Service errors; gate
// refusals stay deterministic Auth errors.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return ledger.WrapError(ledger.KindService, ledger.RuleServiceUnavailable,
			"reveal service unreachable", err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return ledger.WrapError(ledger.KindService, ledger.RuleServiceUnavailable,
			"reveal service unavailable: "+st.Message(), err)
	case codes.PermissionDenied:
		return ledger.NewError(ledger.KindAuth, ledger.RuleNoValidSubscription, st.Message())
	case codes.FailedPrecondition:
		return ledger.NewError(ledger.KindVault, ledger.RuleKeyNotSet, st.Message())
	case codes.InvalidArgument, codes.Unauthenticated:
		return ledger.NewError(ledger.KindCrypto, ledger.RuleStatementRejected, st.Message())
	case codes.NotFound:
		return ledger.NewError(ledger.KindCrypto, ledger.RuleStatementRejected,
			"unknown envelope handle: "+st.Message())
	default:
		return ledger.WrapError(ledger.KindInternal, "", st.Message(), err)
	}
}
