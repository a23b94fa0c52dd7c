package pool

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWinnerIndexDeterministicAndInRange(t *testing.T) {
	secret := bytes.Repeat([]byte{1}, secretSize)
	players := []string{"a", "b", "c", "d", "e"}

	first := winnerIndex(secret, "round-1", players)
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, len(players))
	assert.Equal(t, first, winnerIndex(secret, "round-1", players))
}

func TestWinnerIndexSpreads(t *testing.T) {
	players := []string{"a", "b"}
	seen := map[int]int{}
	for i := 0; i < 200; i++ {
		secret := bytes.Repeat([]byte{byte(i)}, secretSize)
		seen[winnerIndex(secret, fmt.Sprintf("round-%d", i), players)]++
	}
	// com 200 sorteios os dois lados precisam aparecer
	assert.Len(t, seen, 2)
}

func TestVerifyWinner(t *testing.T) {
	secret := bytes.Repeat([]byte{3}, secretSize)
	players := []string{"alice", "bob", "carol"}

	idx, ok := VerifyWinner(secret, commitment(secret), "r1", players)
	assert.True(t, ok)
	assert.Equal(t, winnerIndex(secret, "r1", players), idx)

	_, ok = VerifyWinner(bytes.Repeat([]byte{4}, secretSize), commitment(secret), "r1", players)
	assert.False(t, ok)

	_, ok = VerifyWinner(secret, commitment(secret), "r1", nil)
	assert.False(t, ok)
}

func TestSplitPool(t *testing.T) {
	cases := []struct {
		count          int
		stake, feeRate int64
		total, fee     int64
	}{
		{2, 100, 2, 200, 4},
		{3, 33, 3, 99, 2},
		{2, 1, 2, 2, 0},
		{10, 100, 0, 1000, 0},
		{2, 50, 100, 100, 100},
	}
	for _, tc := range cases {
		total, fee, payout := splitPool(tc.count, tc.stake, tc.feeRate)
		assert.Equal(t, tc.total, total)
		assert.Equal(t, tc.fee, fee)
		assert.Equal(t, total-fee, payout)
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "unauthorized", Kind(ErrUnauthorized))
	assert.Equal(t, "invalid_state", Kind(fmt.Errorf("x: %w", ErrInvalidState)))
	assert.Equal(t, "incorrect_amount", Kind(ErrIncorrectAmount))
	assert.Equal(t, "invalid_parameters", Kind(ErrInvalidParameters))
	assert.Equal(t, "transfer_failure", Kind(fmt.Errorf("%w: refund: %w", ErrTransferFailure, errors.New("x"))))
	assert.Equal(t, "internal", Kind(errors.New("boom")))
}

func TestRoundEscrowAndSnapshot(t *testing.T) {
	r := Round{ID: "r1", State: StateBetting, RequiredCount: 3, Stake: 100, Participants: []string{"a", "b"}, Secret: []byte{1}}
	assert.Equal(t, int64(200), r.Escrow())
	assert.NotEmpty(t, r.Commitment())

	snap := r.Snapshot()
	assert.Equal(t, 1, snap.State)
	assert.Equal(t, "BETTING", snap.StateName)
	snap.Participants[0] = "z"
	assert.Equal(t, "a", r.Participants[0])

	r.State = StateIdle
	assert.Zero(t, r.Escrow())
	assert.Empty(t, r.Commitment())
}
