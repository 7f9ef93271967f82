package rent

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/sealevel"
)

func newTxCtx(accts ...accounts.Account) *sealevel.TransactionCtx {
	return sealevel.NewDefaultTransactionCtx(*sealevel.NewTransactionAccounts(accts))
}

func TestRentState(t *testing.T) {
	rent := sealevel.DefaultRent()

	assert.Equal(t, uint64(RentStateUninitialized), rentStateFromAcct(&accounts.Account{}, &rent).RentState)
	assert.Equal(t, uint64(RentStateRentExempt), rentStateFromAcct(&accounts.Account{Lamports: 890880}, &rent).RentState)

	paying := rentStateFromAcct(&accounts.Account{Lamports: 890879}, &rent)
	assert.Equal(t, uint64(RentStateRentPaying), paying.RentState)
	assert.Equal(t, uint64(890879), paying.RentPayingInfo.Lamports)
}

func TestVerifyRentStateChanges(t *testing.T) {
	rent := sealevel.DefaultRent()
	key := solana.NewWallet().PublicKey()

	txCtx := newTxCtx(accounts.Account{Key: key}, accounts.Account{Key: solana.NewWallet().PublicKey(), Lamports: 5})
	writable := []bool{true, false}

	pre, err := NewRentStateInfo(&rent, txCtx, writable)
	require.NoError(t, err)
	assert.Nil(t, pre[1])

	acct, err := txCtx.AccountAtIndex(0)
	require.NoError(t, err)

	// funding below the exemption threshold is rejected
	acct.Lamports = 1000
	post, err := NewRentStateInfo(&rent, txCtx, writable)
	require.NoError(t, err)
	err = VerifyRentStateChanges(pre, post, txCtx)
	var rentErr *InsufficientFundsForRentError
	require.True(t, errors.As(err, &rentErr))
	assert.Equal(t, uint64(0), rentErr.AccountIndex)

	acct.Lamports = rent.MinimumBalance(0)
	post, err = NewRentStateInfo(&rent, txCtx, writable)
	require.NoError(t, err)
	assert.NoError(t, VerifyRentStateChanges(pre, post, txCtx))
}

func TestVerifyRentStateChanges_RentPayingMayShrink(t *testing.T) {
	rent := sealevel.DefaultRent()
	txCtx := newTxCtx(accounts.Account{Key: solana.NewWallet().PublicKey(), Lamports: 1000})
	writable := []bool{true}

	pre, err := NewRentStateInfo(&rent, txCtx, writable)
	require.NoError(t, err)

	acct, _ := txCtx.AccountAtIndex(0)
	acct.Lamports = 900
	post, err := NewRentStateInfo(&rent, txCtx, writable)
	require.NoError(t, err)
	assert.NoError(t, VerifyRentStateChanges(pre, post, txCtx))

	acct.Lamports = 1100
	post, err = NewRentStateInfo(&rent, txCtx, writable)
	require.NoError(t, err)
	assert.Error(t, VerifyRentStateChanges(pre, post, txCtx))
}
