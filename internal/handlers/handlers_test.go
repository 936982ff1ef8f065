package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"divisionone/internal/client"
	"divisionone/internal/eventlog"
	"divisionone/internal/handlers"
	"divisionone/internal/ledger"
	"divisionone/internal/ledger/ledgertest"
	"divisionone/internal/models"
	"divisionone/internal/programs/feehook"
	"divisionone/pkg/solana/divisionone"
	"divisionone/pkg/solana/extrameta"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvents struct {
	filter eventlog.Filter
	events []models.ProgramEvent
	err    error
}

func (f *fakeEvents) List(_ context.Context, filter eventlog.Filter) ([]models.ProgramEvent, error) {
	f.filter = filter
	return f.events, f.err
}

type fixture struct {
	engine      *gin.Engine
	handler     *handlers.Handler
	events      *fakeEvents
	authority   solana.PrivateKey
	mint        solana.PublicKey
	institution solana.PublicKey
	user        solana.PrivateKey
	school      solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	chain := client.New(ledger.New())
	authority := ledgertest.FundedWallet(t, chain.Ledger(), 100_000_000_000)
	mint := ledgertest.NewWallet(t)
	_, err := chain.InitializeToken(ctx, authority, mint, feehook.InitializeTokenArgs{
		Name:                 "Division One",
		Symbol:               "DIV1",
		URI:                  "https://example.com/div1.json",
		Decimals:             6,
		InstitutionOpsWallet: authority.PublicKey(),
	})
	require.NoError(t, err)
	_, err = chain.InitializeExtraAccountMetaList(ctx, authority, mint.PublicKey())
	require.NoError(t, err)

	institution := ledgertest.NewWallet(t).PublicKey()
	_, err = chain.SetInstitutionWallet(ctx, authority, institution)
	require.NoError(t, err)

	user := ledgertest.FundedWallet(t, chain.Ledger(), 1_000_000_000)
	school := ledgertest.NewWallet(t).PublicKey()
	_, err = chain.LinkSchool(ctx, user, school)
	require.NoError(t, err)

	events := &fakeEvents{}
	h := handlers.New(chain, events, handlers.NewHub(nil))

	r := gin.New()
	r.GET("/fees/quote", h.QuoteFees)
	r.GET("/pda/institution-config/:owner", h.GetInstitutionConfig)
	r.GET("/pda/user-link/:user", h.GetUserLink)
	r.GET("/mints/:mint/extra-account-metas", h.GetExtraAccountMetas)
	r.GET("/accounts/:address", h.GetAccount)
	r.GET("/events", h.ListEvents)
	r.GET("/events/ws", h.StreamEvents)

	return &fixture{
		engine:      r,
		handler:     h,
		events:      events,
		authority:   authority,
		mint:        mint.PublicKey(),
		institution: institution,
		user:        user,
		school:      school,
	}
}

func (f *fixture) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	f.engine.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w.Code
}

func TestQuoteFees(t *testing.T) {
	f := newFixture(t)

	t.Run("1000 base units", func(t *testing.T) {
		var resp handlers.FeeQuoteResp
		require.Equal(t, http.StatusOK, f.get(t, "/fees/quote?amount=1000", &resp))
		assert.Equal(t, handlers.FeeQuoteResp{
			Amount:         1000,
			OpsFee:         5,
			BurnFee:        5,
			InstitutionFee: 20,
			TotalFee:       30,
			SenderDebit:    1030,
			MaxSendable:    973,
		}, resp)
	})

	t.Run("below the smallest fee", func(t *testing.T) {
		var resp handlers.FeeQuoteResp
		require.Equal(t, http.StatusOK, f.get(t, "/fees/quote?amount=10", &resp))
		assert.Zero(t, resp.OpsFee)
		assert.Zero(t, resp.BurnFee)
		assert.Zero(t, resp.InstitutionFee)
		assert.Equal(t, uint64(10), resp.SenderDebit)
	})

	t.Run("bad input", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, f.get(t, "/fees/quote", nil))
		assert.Equal(t, http.StatusBadRequest, f.get(t, "/fees/quote?amount=-1", nil))
		assert.Equal(t, http.StatusBadRequest, f.get(t, "/fees/quote?amount=18446744073709551615", nil))
	})
}

func TestPDAEndpoints(t *testing.T) {
	f := newFixture(t)

	t.Run("configured institution", func(t *testing.T) {
		var resp struct {
			Address string                         `json:"address"`
			Bump    uint8                          `json:"bump"`
			Exists  bool                           `json:"exists"`
			Record  handlers.InstitutionConfigResp `json:"record"`
		}
		owner := f.authority.PublicKey()
		require.Equal(t, http.StatusOK, f.get(t, "/pda/institution-config/"+owner.String(), &resp))

		pda, err := divisionone.GetUserInstitutionConfigPDA(owner)
		require.NoError(t, err)
		assert.Equal(t, pda.Address.String(), resp.Address)
		assert.Equal(t, pda.Bump, resp.Bump)
		assert.True(t, resp.Exists)
		assert.Equal(t, handlers.InstitutionConfigResp{
			Owner:             owner.String(),
			InstitutionWallet: f.institution.String(),
			Status:            "set",
		}, resp.Record)
	})

	t.Run("owner without a config", func(t *testing.T) {
		var resp map[string]interface{}
		stranger := solana.NewWallet().PublicKey()
		require.Equal(t, http.StatusOK, f.get(t, "/pda/institution-config/"+stranger.String(), &resp))
		assert.Equal(t, false, resp["exists"])
		assert.NotContains(t, resp, "record")
	})

	t.Run("user link", func(t *testing.T) {
		var resp struct {
			Exists bool                  `json:"exists"`
			Record handlers.UserLinkResp `json:"record"`
		}
		require.Equal(t, http.StatusOK, f.get(t, "/pda/user-link/"+f.user.PublicKey().String(), &resp))
		assert.True(t, resp.Exists)
		assert.Equal(t, f.school.String(), resp.Record.SchoolWallet)
		assert.True(t, resp.Record.Linked)
	})

	t.Run("invalid key", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, f.get(t, "/pda/user-link/not-a-key", nil))
	})
}

func TestGetExtraAccountMetas(t *testing.T) {
	f := newFixture(t)
	owner := f.authority.PublicKey()

	t.Run("resolves the three hook accounts", func(t *testing.T) {
		var resp handlers.ExtraAccountMetasResp
		path := "/mints/" + f.mint.String() + "/extra-account-metas?owner=" + owner.String()
		require.Equal(t, http.StatusOK, f.get(t, path, &resp))

		config, err := divisionone.GetUserInstitutionConfigPDA(owner)
		require.NoError(t, err)
		validation, err := divisionone.GetExtraAccountMetaListPDA(f.mint)
		require.NoError(t, err)

		assert.Equal(t, validation.Address.String(), resp.ValidationAccount)
		assert.Equal(t, []handlers.AccountMetaResp{
			{Pubkey: config.Address.String()},
			{Pubkey: divisionone.MustAssociatedTokenAddress(owner, f.mint).String(), IsWritable: true},
			{Pubkey: divisionone.MustAssociatedTokenAddress(f.institution, f.mint).String(), IsWritable: true},
		}, resp.Accounts)
	})

	t.Run("owner is required", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, f.get(t, "/mints/"+f.mint.String()+"/extra-account-metas", nil))
	})

	t.Run("unknown mint", func(t *testing.T) {
		path := "/mints/" + solana.NewWallet().PublicKey().String() + "/extra-account-metas?owner=" + owner.String()
		assert.Equal(t, http.StatusNotFound, f.get(t, path, nil))
	})
}

func TestGetAccount(t *testing.T) {
	f := newFixture(t)

	t.Run("mint", func(t *testing.T) {
		var resp struct {
			Owner  string            `json:"owner"`
			Kind   string            `json:"kind"`
			Parsed handlers.MintResp `json:"parsed"`
		}
		require.Equal(t, http.StatusOK, f.get(t, "/accounts/"+f.mint.String(), &resp))
		assert.Equal(t, divisionone.TOKEN_2022_PROGRAM_ID.String(), resp.Owner)
		assert.Equal(t, "mint", resp.Kind)
		assert.Equal(t, "DIV1", resp.Parsed.Symbol)
		assert.Equal(t, uint8(6), resp.Parsed.Decimals)
		assert.Equal(t, divisionone.FEE_HOOK_PROGRAM_ID.String(), resp.Parsed.HookProgram)
	})

	t.Run("validation account", func(t *testing.T) {
		validation, err := divisionone.GetExtraAccountMetaListPDA(f.mint)
		require.NoError(t, err)
		var resp struct {
			Kind   string                            `json:"kind"`
			Parsed handlers.ExtraAccountMetaListResp `json:"parsed"`
		}
		require.Equal(t, http.StatusOK, f.get(t, "/accounts/"+validation.Address.String(), &resp))
		assert.Equal(t, "extra_account_meta_list", resp.Kind)
		require.Len(t, resp.Parsed.Rules, 3)
		assert.Equal(t, extrameta.DiscriminatorAssociatedToken, resp.Parsed.Rules[2].Discriminator)
	})

	t.Run("user link", func(t *testing.T) {
		pda, err := divisionone.GetUserLinkPDA(f.user.PublicKey())
		require.NoError(t, err)
		var resp struct {
			Kind   string                `json:"kind"`
			Parsed handlers.UserLinkResp `json:"parsed"`
		}
		require.Equal(t, http.StatusOK, f.get(t, "/accounts/"+pda.Address.String(), &resp))
		assert.Equal(t, "user_link", resp.Kind)
		assert.Equal(t, f.user.PublicKey().String(), resp.Parsed.UserWallet)
	})

	t.Run("wallet has no parsed view", func(t *testing.T) {
		var resp map[string]interface{}
		require.Equal(t, http.StatusOK, f.get(t, "/accounts/"+f.user.PublicKey().String(), &resp))
		assert.NotContains(t, resp, "kind")
		assert.NotContains(t, resp, "parsed")
	})

	t.Run("missing", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, f.get(t, "/accounts/"+solana.NewWallet().PublicKey().String(), nil))
	})
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)
	f.events.events = []models.ProgramEvent{{
		ID:        7,
		Signature: "sig",
		Ordinal:   1,
		Slot:      3,
		ProgramID: divisionone.FEE_HOOK_PROGRAM_ID.String(),
		Name:      feehook.EventFeesDistributed,
		Payload:   `{"amount":1000}`,
		BlockTime: time.Unix(1_700_000_000, 0),
	}}

	t.Run("passes the filter through", func(t *testing.T) {
		var resp []handlers.ProgramEventResp
		require.Equal(t, http.StatusOK, f.get(t, "/events?name=FeesDistributed&signature=sig&limit=10&offset=5", &resp))
		assert.Equal(t, eventlog.Filter{Name: "FeesDistributed", Signature: "sig", Limit: 10, Offset: 5}, f.events.filter)
		require.Len(t, resp, 1)
		assert.JSONEq(t, `{"amount":1000}`, string(resp[0].Payload))
		assert.Equal(t, int64(1_700_000_000), resp[0].BlockTime)
	})

	t.Run("bad paging", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, f.get(t, "/events?limit=x", nil))
		assert.Equal(t, http.StatusBadRequest, f.get(t, "/events?offset=-1", nil))
	})

	t.Run("repository failure", func(t *testing.T) {
		f.events.err = errors.New("db down")
		defer func() { f.events.err = nil }()
		assert.Equal(t, http.StatusInternalServerError, f.get(t, "/events", nil))
	})

	t.Run("not configured", func(t *testing.T) {
		f.handler.Events = nil
		assert.Equal(t, http.StatusServiceUnavailable, f.get(t, "/events", nil))
	})
}

func TestStreamEvents(t *testing.T) {
	f := newFixture(t)
	server := httptest.NewServer(f.engine)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/events/ws?name=" + feehook.EventFeesDistributed
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hub := f.handler.Hub
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.HandleMessage([]byte(`{"signature":"a","name":"InstitutionWalletSet"}`)))
	require.NoError(t, hub.HandleMessage([]byte(`{"signature":"b","ordinal":2,"name":"FeesDistributed","payload":{"amount":1000}}`)))
	require.NoError(t, hub.HandleMessage([]byte(`not json`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, body, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg eventlog.Message
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, "b", msg.Signature)
	assert.Equal(t, 2, msg.Ordinal)
	assert.JSONEq(t, `{"amount":1000}`, string(msg.Payload))

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
