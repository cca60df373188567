package api

// Addresses and owner identities travel as 64-character hex strings, amounts
// as base units.

type ChallengeRequest struct {
	Owner string `json:"owner"`
}

type ChallengeResponse struct {
	Nonce string `json:"nonce"`
	// Message is the exact text the owner must sign.
	Message string `json:"message"`
}

type LoginRequest struct {
	Owner     string `json:"owner"`
	Nonce     string `json:"nonce"`
	Signature []byte `json:"signature"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// VaultRef names the owner a vault operation acts for and the derived
// addresses it acts upon.
type VaultRef struct {
	Owner   string `json:"owner"`
	Vault   string `json:"vault"`
	Holding string `json:"holding"`
}

type InitializeRequest struct {
	VaultRef
	UnlockTime int64 `json:"unlock_time"`
}

type DepositRequest struct {
	VaultRef
	Amount uint64 `json:"amount"`
}

type WithdrawRequest struct {
	VaultRef
}

type CloseVaultRequest struct {
	VaultRef
}

type Vault struct {
	Address     string `json:"address"`
	Owner       string `json:"owner"`
	Holding     string `json:"holding"`
	UnlockTime  int64  `json:"unlock_time"`
	Initialized bool   `json:"initialized"`
	Deposit     uint64 `json:"deposit"`
	LifecycleID string `json:"lifecycle_id"`
	Balance     uint64 `json:"balance"`
	Unlockable  bool   `json:"unlockable"`
}

type Event struct {
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	Kind        string `json:"kind"`
	Vault       string `json:"vault"`
	LifecycleID string `json:"lifecycle_id"`
	Owner       string `json:"owner"`
	Amount      uint64 `json:"amount,omitempty"`
	UnlockTime  int64  `json:"unlock_time,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// OperationResponse reports the committed outcome of a mutating call.
type OperationResponse struct {
	// Vault is absent after CloseVault.
	Vault        *Vault `json:"vault,omitempty"`
	Holding      uint64 `json:"holding"`
	OwnerBalance uint64 `json:"owner_balance"`
	Event        Event  `json:"event"`
}

type GetVaultRequest struct {
	Address string `json:"address"`
}

type GetVaultResponse struct {
	Vault  Vault   `json:"vault"`
	Events []Event `json:"events,omitempty"`
}

type GetBalanceRequest struct {
	Address string `json:"address"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

type DeriveAddressesRequest struct {
	Owner string `json:"owner"`
}

type DeriveAddressesResponse struct {
	Program string `json:"program"`
	Vault   string `json:"vault"`
	Holding string `json:"holding"`
}

type AirdropRequest struct {
	Amount uint64 `json:"amount"`
}
