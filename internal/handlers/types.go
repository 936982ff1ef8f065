package handlers

import (
	"encoding/json"
	"time"
)

// FeeQuoteResp is the fee split of one transfer. The recipient receives the
// whole amount and the sender is debited SenderDebit. MaxSendable treats
// amount as a balance and gives the largest transfer it can cover with fees.
type FeeQuoteResp struct {
	Amount         uint64 `json:"amount"`
	OpsFee         uint64 `json:"ops_fee"`
	BurnFee        uint64 `json:"burn_fee"`
	InstitutionFee uint64 `json:"institution_fee"`
	TotalFee       uint64 `json:"total_fee"`
	SenderDebit    uint64 `json:"sender_debit"`
	MaxSendable    uint64 `json:"max_sendable"`
}

// PDAResp is a derived address with the record stored there, if any.
type PDAResp struct {
	Address string      `json:"address"`
	Bump    uint8       `json:"bump"`
	Exists  bool        `json:"exists"`
	Record  interface{} `json:"record,omitempty"`
}

type InstitutionConfigResp struct {
	Owner             string `json:"owner"`
	InstitutionWallet string `json:"institution_wallet,omitempty"`
	Status            string `json:"status"`
}

type TokenConfigResp struct {
	Mint      string `json:"mint"`
	OpsWallet string `json:"ops_wallet"`
	Authority string `json:"authority"`
}

type UserLinkResp struct {
	UserWallet   string `json:"user_wallet"`
	SchoolWallet string `json:"school_wallet,omitempty"`
	Linked       bool   `json:"linked"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

type AccountMetaResp struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

// ExtraAccountMetasResp lists the accounts a transfer by Owner must append
// after the validation account.
type ExtraAccountMetasResp struct {
	Mint              string            `json:"mint"`
	Owner             string            `json:"owner"`
	ValidationAccount string            `json:"validation_account"`
	Accounts          []AccountMetaResp `json:"accounts"`
}

// AccountResp is a raw account. Parsed is filled for accounts owned by a
// known program.
type AccountResp struct {
	Address    string      `json:"address"`
	Owner      string      `json:"owner"`
	Lamports   uint64      `json:"lamports"`
	Executable bool        `json:"executable"`
	Data       []byte      `json:"data"`
	Kind       string      `json:"kind,omitempty"`
	Parsed     interface{} `json:"parsed,omitempty"`
}

type MintResp struct {
	Supply        uint64 `json:"supply"`
	Decimals      uint8  `json:"decimals"`
	MintAuthority string `json:"mint_authority,omitempty"`
	HookProgram   string `json:"hook_program,omitempty"`
	Name          string `json:"name,omitempty"`
	Symbol        string `json:"symbol,omitempty"`
	URI           string `json:"uri,omitempty"`
}

type TokenAccountResp struct {
	Mint         string `json:"mint"`
	Owner        string `json:"owner"`
	Amount       uint64 `json:"amount"`
	Frozen       bool   `json:"frozen"`
	Transferring bool   `json:"transferring"`
}

type ExtraAccountMetaListResp struct {
	Rules []ExtraAccountRuleResp `json:"rules"`
}

type ExtraAccountRuleResp struct {
	Discriminator uint8  `json:"discriminator"`
	AddressConfig []byte `json:"address_config"`
	IsSigner      bool   `json:"is_signer"`
	IsWritable    bool   `json:"is_writable"`
}

type ProgramEventResp struct {
	ID        uint            `json:"id"`
	Signature string          `json:"signature"`
	Ordinal   int             `json:"ordinal"`
	Slot      uint64          `json:"slot"`
	ProgramID string          `json:"program_id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	BlockTime int64           `json:"block_time"`
	CreatedAt int64           `json:"created_at"`
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
