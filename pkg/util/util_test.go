package util

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"go.firedancer.io/lp/pkg/accounts"
)

func TestDedupePubkeys(t *testing.T) {
	a := solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	b := solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")

	deduped := DedupePubkeys([]solana.PublicKey{b, a, b, a})
	assert.Equal(t, []solana.PublicKey{a, b}, deduped)
}

func TestCalculateAcctHash(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	acct := accounts.Account{Key: key, Lamports: 10, Data: []byte{1, 2, 3}}

	h1 := CalculateAcctHash(acct)
	assert.Len(t, h1, 32)

	acct.Data = []byte{1, 2, 4}
	assert.NotEqual(t, h1, CalculateAcctHash(acct))

	acct.Lamports = 0
	assert.Equal(t, make([]byte, 32), CalculateAcctHash(acct))
}
