package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/betting-pool/internal/pool"
	"github.com/radieske/betting-pool/internal/pool/dto"
	"github.com/radieske/betting-pool/internal/pool/memstore"
	"github.com/radieske/betting-pool/pkg/contracts/events"
)

func newAPI(t *testing.T) (http.Handler, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	m, err := pool.NewManager(context.Background(), pool.ManagerConfig{Admin: "admin", FeeRate: 2}, store)
	require.NoError(t, err)
	return NewServer(zap.NewNop(), m, store, nil).Router(), store
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestRoundLifecycle(t *testing.T) {
	h, _ := newAPI(t)

	for _, u := range []string{"alice", "bob"} {
		rec := do(t, h, http.MethodPost, "/v1/wallets/fund", dto.FundRequest{UserID: u, AmountCents: 1000})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/v1/rounds", dto.OpenRoundRequest{UserID: "admin", RequiredCount: 2, StakeCents: 100})
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decode[events.RoundSnapshot](t, rec)
	assert.Equal(t, 1, snap.State)
	assert.Equal(t, 2, snap.RequiredCount)
	assert.Equal(t, int64(100), snap.StakeCents)

	rec = do(t, h, http.MethodPost, "/v1/rounds", dto.OpenRoundRequest{UserID: "admin", RequiredCount: 2, StakeCents: 100})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", decode[dto.ErrorResponse](t, rec).Kind)

	rec = do(t, h, http.MethodPost, "/v1/rounds/deposit", dto.DepositRequest{UserID: "alice", AmountCents: 50})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/rounds/deposit", dto.DepositRequest{UserID: "alice", AmountCents: 100})
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[dto.DepositResponse](t, rec)
	assert.False(t, first.Resolved)
	assert.Equal(t, snap.RoundID, first.RoundID)
	assert.Equal(t, 0, first.Position)

	rec = do(t, h, http.MethodPost, "/v1/rounds/deposit", dto.DepositRequest{UserID: "bob", AmountCents: 100})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[dto.DepositResponse](t, rec)
	assert.True(t, second.Resolved)
	assert.Equal(t, snap.RoundID, second.RoundID)
	assert.Equal(t, 1, second.Position)
	assert.Equal(t, int64(196), second.PayoutCents)
	assert.Equal(t, int64(4), second.FeeCents)

	rec = do(t, h, http.MethodGet, "/v1/wallets/"+second.Winner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1096), decode[dto.WalletResponse](t, rec).BalanceCents)

	rec = do(t, h, http.MethodGet, "/v1/rounds/current", nil)
	cur := decode[events.RoundSnapshot](t, rec)
	assert.Equal(t, 0, cur.State)
	assert.Empty(t, cur.Participants)

	rec = do(t, h, http.MethodPost, "/v1/fees/withdraw", dto.AdminRequest{UserID: "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), decode[dto.WithdrawResponse](t, rec).AmountCents)
}

func TestCancelEndpoint(t *testing.T) {
	h, store := newAPI(t)
	ctx := context.Background()
	_, err := store.Fund(ctx, "alice", 1000, "seed")
	require.NoError(t, err)

	require.Equal(t, http.StatusCreated,
		do(t, h, http.MethodPost, "/v1/rounds", dto.OpenRoundRequest{UserID: "admin", RequiredCount: 2, StakeCents: 100}).Code)
	require.Equal(t, http.StatusOK,
		do(t, h, http.MethodPost, "/v1/rounds/deposit", dto.DepositRequest{UserID: "alice", AmountCents: 100}).Code)

	rec := do(t, h, http.MethodPost, "/v1/rounds/cancel", dto.AdminRequest{UserID: "alice"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/rounds/cancel", dto.AdminRequest{UserID: "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[events.RoundSnapshot](t, rec).State)

	bal, _ := store.Balance(ctx, "alice")
	assert.Equal(t, int64(1000), bal)
}

func TestErrorMapping(t *testing.T) {
	h, _ := newAPI(t)

	rec := do(t, h, http.MethodPost, "/v1/rounds", dto.OpenRoundRequest{UserID: "mallory", RequiredCount: 2, StakeCents: 100})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/rounds", dto.OpenRoundRequest{UserID: "admin", RequiredCount: 1, StakeCents: 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_parameters", decode[dto.ErrorResponse](t, rec).Kind)

	rec = do(t, h, http.MethodPost, "/v1/rounds/deposit", dto.DepositRequest{UserID: "alice", AmountCents: 100})
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusCreated,
		do(t, h, http.MethodPost, "/v1/rounds", dto.OpenRoundRequest{UserID: "admin", RequiredCount: 2, StakeCents: 100}).Code)
	rec = do(t, h, http.MethodPost, "/v1/rounds/deposit", dto.DepositRequest{UserID: "broke", AmountCents: 100})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "transfer_failure", decode[dto.ErrorResponse](t, rec).Kind)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/rounds/deposit", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/wallets/fund", dto.FundRequest{UserID: "alice", AmountCents: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFundRejectsPoolAccounts(t *testing.T) {
	h, store := newAPI(t)

	for _, acc := range []string{pool.EscrowAccount, pool.FeeAccount} {
		rec := do(t, h, http.MethodPost, "/v1/wallets/fund", dto.FundRequest{UserID: acc, AmountCents: 500})
		assert.Equal(t, http.StatusBadRequest, rec.Code, acc)

		bal, err := store.Balance(context.Background(), acc)
		require.NoError(t, err)
		assert.Zero(t, bal)
	}

	rec := do(t, h, http.MethodPost, "/v1/rounds", dto.OpenRoundRequest{UserID: "admin", RequiredCount: 2, StakeCents: 100})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/v1/rounds/deposit", dto.DepositRequest{UserID: pool.EscrowAccount, AmountCents: 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_parameters", decode[dto.ErrorResponse](t, rec).Kind)
}
