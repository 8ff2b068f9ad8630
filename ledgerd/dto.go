package ledgerd

// Wire bodies for the Ledger admin service. Identities travel as 0x-hex
// strings; wrapped ciphertext travels base64 via encoding/json's []byte
// handling.

type SubscribeRequest struct {
	Identity string `json:"identity"`
	Payment  uint64 `json:"payment"`
}

type GrantRequest struct {
	Caller   string `json:"caller"`
	Identity string `json:"identity"`
	Duration uint64 `json:"duration"`
}

type ReceiptResponse struct {
	Identity   string `json:"identity"`
	Paid       uint64 `json:"paid"`
	Price      uint64 `json:"price"`
	Refund     uint64 `json:"refund"`
	Expiration uint64 `json:"expiration"`
	Renewed    bool   `json:"renewed"`
	// RefundOwed mirrors the ledger receipt: the refund transfer failed
	// and the amount waits for ClaimRefund.
	RefundOwed bool `json:"refund_owed,omitempty"`
}

type SetKeyRequest struct {
	Caller  string `json:"caller"`
	Wrapped []byte `json:"wrapped"`
	Proof   string `json:"proof"`
}

type SetKeyResponse struct {
	Proof string `json:"proof"`
}

type DetailsRequest struct {
	Identity string `json:"identity"`
}

type DetailsResponse struct {
	Identity   string `json:"identity"`
	Expiration uint64 `json:"expiration"`
	Valid      bool   `json:"valid"`
	Capability bool   `json:"capability"`
}

type UpdateParamsRequest struct {
	Caller   string `json:"caller"`
	Price    uint64 `json:"price"`
	Duration uint64 `json:"duration"`
}

type UpdateParamsResponse struct{}

type WithdrawRequest struct {
	Caller string `json:"caller"`
}

type WithdrawResponse struct {
	Amount uint64 `json:"amount"`
}

type ClaimRefundRequest struct {
	Identity string `json:"identity"`
}

type ClaimRefundResponse struct {
	Amount uint64 `json:"amount"`
}

type StatusRequest struct{}

type StatusResponse struct {
	Owner    string `json:"owner"`
	Price    uint64 `json:"price"`
	Duration uint64 `json:"duration"`
	Revenue  uint64 `json:"revenue"`
	KeySet   bool   `json:"key_set"`
}
