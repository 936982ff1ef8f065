package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"divisionone/internal/client"
	"divisionone/internal/ledger"
	"divisionone/internal/programs/feehook"
	"divisionone/internal/programs/token2022"
	"divisionone/internal/programs/walletlink"
	"divisionone/pkg/solana/divisionone"
	"divisionone/pkg/solana/extrameta"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GetInstitutionConfig returns the config PDA of an owner and its contents.
func (h *Handler) GetInstitutionConfig(c *gin.Context) {
	owner, ok := pathKey(c, "owner")
	if !ok {
		return
	}
	pda, err := divisionone.GetUserInstitutionConfigPDA(owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	config, err := h.Chain.InstitutionConfig(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := PDAResp{Address: pda.Address.String(), Bump: pda.Bump}
	if config != nil {
		resp.Exists = true
		resp.Record = institutionConfigResp(config)
	}
	c.JSON(http.StatusOK, resp)
}

// GetUserLink returns the link PDA of a user and its contents.
func (h *Handler) GetUserLink(c *gin.Context) {
	user, ok := pathKey(c, "user")
	if !ok {
		return
	}
	pda, err := divisionone.GetUserLinkPDA(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	link, err := h.Chain.UserLink(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := PDAResp{Address: pda.Address.String(), Bump: pda.Bump}
	if link != nil {
		resp.Exists = true
		resp.Record = userLinkResp(link)
	}
	c.JSON(http.StatusOK, resp)
}

// GetExtraAccountMetas resolves the accounts a transfer of mint signed by
// owner has to carry for the fee hook.
func (h *Handler) GetExtraAccountMetas(c *gin.Context) {
	mint, ok := pathKey(c, "mint")
	if !ok {
		return
	}
	owner, ok := queryKey(c, "owner")
	if !ok {
		return
	}

	metas, err := h.Chain.ExtraAccounts(c.Request.Context(), mint, owner)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "mint not found"})
		return
	case errors.Is(err, client.ErrTransferHookMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.WithError(err).WithField("mint", mint.String()).Error("Failed to resolve extra accounts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	validation, err := divisionone.GetExtraAccountMetaListPDA(mint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := ExtraAccountMetasResp{
		Mint:              mint.String(),
		Owner:             owner.String(),
		ValidationAccount: validation.Address.String(),
		Accounts:          make([]AccountMetaResp, 0, len(metas)),
	}
	for _, m := range metas {
		resp.Accounts = append(resp.Accounts, AccountMetaResp{
			Pubkey:     m.PublicKey.String(),
			IsSigner:   m.IsSigner,
			IsWritable: m.IsWritable,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GetAccount returns a ledger account, decoded when its owner is one of the
// known programs.
func (h *Handler) GetAccount(c *gin.Context) {
	address, ok := pathKey(c, "address")
	if !ok {
		return
	}
	acct, err := h.Chain.Ledger().GetAccount(c.Request.Context(), address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := AccountResp{
		Address:    address.String(),
		Owner:      acct.Owner.String(),
		Lamports:   acct.Lamports,
		Executable: acct.Executable,
		Data:       acct.Data,
	}
	kind, parsed, err := parseAccount(acct)
	if err != nil {
		log.WithError(err).WithField("address", address.String()).Warn("Failed to parse account data")
	} else {
		resp.Kind = kind
		resp.Parsed = parsed
	}
	c.JSON(http.StatusOK, resp)
}

// parseAccount decodes data by owner. Unknown owners return an empty kind.
func parseAccount(acct *ledger.Account) (string, interface{}, error) {
	data := acct.Data
	switch acct.Owner {
	case divisionone.TOKEN_2022_PROGRAM_ID:
		if len(data) == token2022.MintBaseSize ||
			(len(data) > token2022.AccountTypeOffset && token2022.AccountType(data[token2022.AccountTypeOffset]) == token2022.AccountTypeMint) {
			m, err := token2022.DecodeMint(data)
			if err != nil {
				return "", nil, err
			}
			return "mint", mintResp(m), nil
		}
		a, err := token2022.DecodeAccount(data)
		if err != nil {
			return "", nil, err
		}
		return "token_account", tokenAccountResp(a), nil

	case divisionone.FEE_HOOK_PROGRAM_ID:
		switch {
		case bytes.HasPrefix(data, feehook.UserInstitutionConfigDiscriminator):
			cfg, err := feehook.DecodeUserInstitutionConfig(data)
			if err != nil {
				return "", nil, err
			}
			return "institution_config", institutionConfigResp(cfg), nil
		case bytes.HasPrefix(data, feehook.TokenConfigDiscriminator):
			cfg, err := feehook.DecodeTokenConfig(data)
			if err != nil {
				return "", nil, err
			}
			return "token_config", TokenConfigResp{
				Mint:      cfg.Mint.String(),
				OpsWallet: cfg.OpsWallet.String(),
				Authority: cfg.Authority.String(),
			}, nil
		case bytes.HasPrefix(data, extrameta.ExecuteDiscriminator):
			metas, err := extrameta.Decode(data)
			if err != nil {
				return "", nil, err
			}
			list := ExtraAccountMetaListResp{Rules: make([]ExtraAccountRuleResp, 0, len(metas))}
			for _, m := range metas {
				list.Rules = append(list.Rules, ExtraAccountRuleResp{
					Discriminator: m.Discriminator,
					AddressConfig: m.AddressConfig[:],
					IsSigner:      m.IsSigner,
					IsWritable:    m.IsWritable,
				})
			}
			return "extra_account_meta_list", list, nil
		}

	case divisionone.WALLET_LINK_PROGRAM_ID:
		link, err := walletlink.DecodeUserLink(data)
		if err != nil {
			return "", nil, err
		}
		return "user_link", userLinkResp(link), nil
	}
	return "", nil, nil
}

func institutionConfigResp(cfg *feehook.UserInstitutionConfig) InstitutionConfigResp {
	resp := InstitutionConfigResp{
		Owner:  cfg.Owner.String(),
		Status: cfg.Status.String(),
	}
	if wallet, ok := cfg.Institution(); ok {
		resp.InstitutionWallet = wallet.String()
	}
	return resp
}

func userLinkResp(link *walletlink.UserLink) UserLinkResp {
	resp := UserLinkResp{
		UserWallet: link.UserWallet.String(),
		Linked:     link.Linked,
		CreatedAt:  link.CreatedAt,
		UpdatedAt:  link.UpdatedAt,
	}
	if school, ok := link.School(); ok {
		resp.SchoolWallet = school.String()
	}
	return resp
}

func mintResp(m *token2022.Mint) MintResp {
	resp := MintResp{Supply: m.Supply, Decimals: m.Decimals}
	if m.MintAuthority != nil {
		resp.MintAuthority = m.MintAuthority.String()
	}
	if hook, ok := m.HookProgram(); ok {
		resp.HookProgram = hook.String()
	}
	if md := m.TokenMetadata; md != nil {
		resp.Name = md.Name
		resp.Symbol = md.Symbol
		resp.URI = md.URI
	}
	return resp
}

func tokenAccountResp(a *token2022.Account) TokenAccountResp {
	resp := TokenAccountResp{
		Mint:   a.Mint.String(),
		Owner:  a.Owner.String(),
		Amount: a.Amount,
		Frozen: a.IsFrozen(),
	}
	if a.TransferHookAccount != nil {
		resp.Transferring = a.TransferHookAccount.Transferring
	}
	return resp
}
