package ledgerd

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/keygate/ledger"
)

// ruleKinds maps every stable RuleID back to its kind so the client can
// reconstruct the structured error from the wire.
var ruleKinds = map[string]ledger.Kind{
	ledger.RuleInsufficientPayment: ledger.KindPayment,
	ledger.RuleKeyAlreadySet:       ledger.KindVault,
	ledger.RuleKeyNotSet:           ledger.KindVault,
	ledger.RuleProofMismatch:       ledger.KindVault,
	ledger.RuleNoValidSubscription: ledger.KindAuth,
	ledger.RuleNotOwner:            ledger.KindAuth,
	ledger.RuleInvalidDuration:     ledger.KindConfig,
	ledger.RuleInvalidPrice:        ledger.KindConfig,
	ledger.RuleNoFundsToWithdraw:   ledger.KindFunds,
	ledger.RuleTransferFailed:      ledger.KindFunds,
	ledger.RuleNoRefundOwed:        ledger.KindFunds,
	ledger.RuleServiceUnavailable:  ledger.KindService,
	ledger.RuleStatementRejected:   ledger.KindCrypto,
}

// statusFromLedger encodes a ledger error as a gRPC status whose message
// carries the RuleID prefix, "KG-XXX-NNN: human text".
func statusFromLedger(err error) error {
	if err == nil {
		return nil
	}
	var le *ledger.Error
	if !errors.As(err, &le) {
		return status.Error(codes.Internal, err.Error())
	}
	msg := le.Message
	if le.RuleID != "" {
		msg = le.RuleID + ": " + le.Message
	}
	switch le.Kind {
	case ledger.KindAuth:
		return status.Error(codes.PermissionDenied, msg)
	case ledger.KindConfig:
		return status.Error(codes.InvalidArgument, msg)
	case ledger.KindPayment, ledger.KindVault, ledger.KindFunds:
		return status.Error(codes.FailedPrecondition, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

// errFromStatus is the inverse mapping: transport failures become transient
// Service errors, everything else is rebuilt from the RuleID prefix.
func errFromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return ledger.WrapError(ledger.KindService, ledger.RuleServiceUnavailable,
			"ledger service unreachable", err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return ledger.WrapError(ledger.KindService, ledger.RuleServiceUnavailable,
			"ledger service unavailable: "+st.Message(), err)
	}

	msg := st.Message()
	if rule, rest, ok := strings.Cut(msg, ": "); ok {
		if kind, known := ruleKinds[rule]; known {
			return ledger.NewError(kind, rule, rest)
		}
	}
	return ledger.WrapError(ledger.KindInternal, "", msg, err)
}
