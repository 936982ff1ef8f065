package feehook

// Event names.
const (
	EventTokenInitialized                = "TokenInitialized"
	EventExtraAccountMetaListInitialized = "ExtraAccountMetaListInitialized"
	EventInstitutionWalletSet            = "InstitutionWalletSet"
	EventInstitutionWalletCleared        = "InstitutionWalletCleared"
	EventFeesDistributed                 = "FeesDistributed"
)

type TokenInitialized struct {
	Mint      string `json:"mint"`
	Authority string `json:"authority"`
	OpsWallet string `json:"ops_wallet"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Decimals  uint8  `json:"decimals"`
}

type ExtraAccountMetaListInitialized struct {
	Mint       string `json:"mint"`
	ExtraMetas string `json:"extra_metas"`
	Rules      int    `json:"rules"`
}

type InstitutionWalletSet struct {
	Owner             string `json:"owner"`
	InstitutionWallet string `json:"institution_wallet"`
	Previous          string `json:"previous,omitempty"`
}

type InstitutionWalletCleared struct {
	Owner             string `json:"owner"`
	InstitutionWallet string `json:"institution_wallet"`
}

// FeesDistributed is emitted once per hooked transfer.
type FeesDistributed struct {
	Mint              string `json:"mint"`
	Source            string `json:"source"`
	Authority         string `json:"authority"`
	Amount            uint64 `json:"amount"`
	InstitutionWallet string `json:"institution_wallet,omitempty"`
	Fees
}
