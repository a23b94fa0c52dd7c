package pool

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/sha3"
)

const secretSize = 32

func keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// commitment é publicado na abertura da rodada e permite verificar o sorteio depois
func commitment(secret []byte) []byte {
	return keccak256(secret)
}

// winnerIndex sorteia um índice em [0, len(participants)).
// A semente é secreta até a resolução, então o último depositante não consegue prever o resultado.
func winnerIndex(secret []byte, roundID string, participants []string) int {
	h := sha3.NewLegacyKeccak256()
	h.Write(secret)
	h.Write([]byte(roundID))
	var n [4]byte
	for _, p := range participants {
		// prefixo de tamanho evita ambiguidade entre ids concatenados
		binary.BigEndian.PutUint32(n[:], uint32(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}

	v := new(big.Int).SetBytes(h.Sum(nil))
	return int(v.Mod(v, big.NewInt(int64(len(participants)))).Int64())
}

// VerifyWinner recalcula o sorteio a partir da semente revelada.
// Retorna false se a semente não bate com o commitment publicado.
func VerifyWinner(secret, publishedCommitment []byte, roundID string, participants []string) (int, bool) {
	if len(participants) == 0 || !bytes.Equal(commitment(secret), publishedCommitment) {
		return 0, false
	}
	return winnerIndex(secret, roundID, participants), true
}
