// Package walletlink is the registry linking a user wallet to the school
// wallet it belongs to.
package walletlink

import (
	"bytes"

	"divisionone/internal/ledger"
	"divisionone/pkg/solana/divisionone"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

var programID = divisionone.WALLET_LINK_PROGRAM_ID

var (
	ErrUnauthorizedAccess    = ledger.NewProgramError(programID, 6000, "UnauthorizedAccess", "Unauthorized access to user link")
	ErrInvalidSchoolWallet   = ledger.NewProgramError(programID, 6001, "InvalidSchoolWallet", "Invalid school wallet provided")
	ErrUserLinkAlreadyExists = ledger.NewProgramError(programID, 6002, "UserLinkAlreadyExists", "User link already exists")
	ErrUserLinkNotFound      = ledger.NewProgramError(programID, 6003, "UserLinkNotFound", "User link does not exist")
)

var (
	InitializeUserLinkDiscriminator = bin.Sighash("global", "initialize_user_link")
	UpdateSchoolWalletDiscriminator = bin.Sighash("global", "update_school_wallet")
	RemoveSchoolLinkDiscriminator   = bin.Sighash("global", "remove_school_link")
)

const (
	EventUserLinkCreated     = "UserLinkCreated"
	EventSchoolWalletUpdated = "SchoolWalletUpdated"
	EventSchoolLinkRemoved   = "SchoolLinkRemoved"
)

type UserLinkCreated struct {
	UserWallet   string `json:"user_wallet"`
	SchoolWallet string `json:"school_wallet"`
}

type SchoolWalletUpdated struct {
	UserWallet      string `json:"user_wallet"`
	OldSchoolWallet string `json:"old_school_wallet,omitempty"`
	NewSchoolWallet string `json:"new_school_wallet"`
}

type SchoolLinkRemoved struct {
	UserWallet   string `json:"user_wallet"`
	SchoolWallet string `json:"school_wallet"`
}

// Program is the wallet link program.
type Program struct{}

func (Program) ID() solana.PublicKey {
	return programID
}

func (p Program) Process(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error {
	if len(data) < 8 || len(accounts) < 2 {
		return ledger.ErrInvalidInstruction
	}
	userLink, user := accounts[0], accounts[1]

	switch {
	case bytes.Equal(data[:8], InitializeUserLinkDiscriminator):
		if len(data) != 8+32 {
			return ledger.ErrInvalidInstruction
		}
		ctx.Logf("Instruction: InitializeUserLink")
		return p.initializeUserLink(ctx, userLink, user, solana.PublicKeyFromBytes(data[8:]))
	case bytes.Equal(data[:8], UpdateSchoolWalletDiscriminator):
		if len(data) != 8+32 {
			return ledger.ErrInvalidInstruction
		}
		ctx.Logf("Instruction: UpdateSchoolWallet")
		return p.updateSchoolWallet(ctx, userLink, user, solana.PublicKeyFromBytes(data[8:]))
	case bytes.Equal(data[:8], RemoveSchoolLinkDiscriminator):
		ctx.Logf("Instruction: RemoveSchoolLink")
		return p.removeSchoolLink(ctx, userLink, user)
	}
	return ledger.ErrInvalidInstruction
}

func validSchool(user, school solana.PublicKey) bool {
	return !school.IsZero() && !school.Equals(user)
}

func (Program) initializeUserLink(ctx *ledger.InvokeContext, userLink, user *ledger.AccountInfo, school solana.PublicKey) error {
	if !user.IsSigner {
		return ErrUnauthorizedAccess
	}
	pda, err := divisionone.GetUserLinkPDA(user.Key)
	if err != nil {
		return err
	}
	if !pda.Address.Equals(userLink.Key) {
		return ErrUnauthorizedAccess
	}
	if userLink.Exists() {
		return ErrUserLinkAlreadyExists
	}
	if !validSchool(user.Key, school) {
		return ErrInvalidSchoolWallet
	}

	create := system.NewCreateAccountInstruction(ledger.MinimumBalance(UserLinkSize), UserLinkSize, programID, user.Key, userLink.Key).Build()
	if err := ctx.Invoke(create, [][]byte{divisionone.SEED_USER_LINK, user.Key.Bytes(), {pda.Bump}}); err != nil {
		return err
	}

	now := ctx.UnixTimestamp()
	link := &UserLink{
		UserWallet:   user.Key,
		SchoolWallet: school,
		CreatedAt:    now,
		UpdatedAt:    now,
		Bump:         pda.Bump,
		Linked:       true,
	}
	if err := store(ctx, userLink, link); err != nil {
		return err
	}

	ctx.Emit(EventUserLinkCreated, UserLinkCreated{
		UserWallet:   user.Key.String(),
		SchoolWallet: school.String(),
	})
	return nil
}

// loadLink returns the link of user, enforcing that user signed and owns it.
func loadLink(userLink, user *ledger.AccountInfo) (*UserLink, error) {
	if !userLink.Exists() || !userLink.IsOwnedBy(programID) {
		return nil, ErrUserLinkNotFound
	}
	link, err := DecodeUserLink(userLink.Data())
	if err != nil {
		return nil, err
	}
	pda, err := divisionone.GetUserLinkPDA(link.UserWallet)
	if err != nil {
		return nil, err
	}
	if !pda.Address.Equals(userLink.Key) || pda.Bump != link.Bump {
		return nil, ErrUnauthorizedAccess
	}
	if !user.IsSigner || !user.Key.Equals(link.UserWallet) {
		return nil, ErrUnauthorizedAccess
	}
	return link, nil
}

func (Program) updateSchoolWallet(ctx *ledger.InvokeContext, userLink, user *ledger.AccountInfo, school solana.PublicKey) error {
	link, err := loadLink(userLink, user)
	if err != nil {
		return err
	}
	if !validSchool(user.Key, school) {
		return ErrInvalidSchoolWallet
	}

	event := SchoolWalletUpdated{UserWallet: user.Key.String(), NewSchoolWallet: school.String()}
	if old, ok := link.School(); ok {
		event.OldSchoolWallet = old.String()
	}
	link.SchoolWallet = school
	link.Linked = true
	link.UpdatedAt = ctx.UnixTimestamp()
	if err := store(ctx, userLink, link); err != nil {
		return err
	}

	ctx.Emit(EventSchoolWalletUpdated, event)
	return nil
}

func (Program) removeSchoolLink(ctx *ledger.InvokeContext, userLink, user *ledger.AccountInfo) error {
	link, err := loadLink(userLink, user)
	if err != nil {
		return err
	}
	old, ok := link.School()
	if !ok {
		return ErrUserLinkNotFound
	}

	link.SchoolWallet = solana.PublicKey{}
	link.Linked = false
	link.UpdatedAt = ctx.UnixTimestamp()
	if err := store(ctx, userLink, link); err != nil {
		return err
	}

	ctx.Emit(EventSchoolLinkRemoved, SchoolLinkRemoved{
		UserWallet:   user.Key.String(),
		SchoolWallet: old.String(),
	})
	return nil
}

func store(ctx *ledger.InvokeContext, acct *ledger.AccountInfo, link *UserLink) error {
	data, err := link.encode()
	if err != nil {
		return err
	}
	return ctx.SetData(acct, data)
}
