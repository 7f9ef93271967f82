package rent

import (
	"fmt"

	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/sealevel"
)

const (
	RentStateUninitialized = iota
	RentStateRentPaying
	RentStateRentExempt
)

type RentPayingInfo struct {
	Lamports uint64
	DataSize uint64
}

type RentStateInfo struct {
	RentState      uint64
	RentPayingInfo RentPayingInfo
}

// InsufficientFundsForRentError reports the transaction account left
// rent paying by the transaction.
type InsufficientFundsForRentError struct {
	AccountIndex uint64
}

func (e *InsufficientFundsForRentError) Error() string {
	return fmt.Sprintf("Transaction results in an account (%d) with insufficient funds for rent", e.AccountIndex)
}

func rentStateFromAcct(acct *accounts.Account, rent *sealevel.SysvarRent) *RentStateInfo {
	if acct.Lamports == 0 {
		return &RentStateInfo{RentState: RentStateUninitialized}
	} else if rent.IsExempt(acct.Lamports, uint64(len(acct.Data))) {
		return &RentStateInfo{RentState: RentStateRentExempt}
	} else {
		return &RentStateInfo{RentState: RentStateRentPaying, RentPayingInfo: RentPayingInfo{Lamports: acct.Lamports, DataSize: uint64(len(acct.Data))}}
	}
}

// NewRentStateInfo captures the rent state of every writable transaction
// account. Read-only accounts get a nil entry.
func NewRentStateInfo(rent *sealevel.SysvarRent, txCtx *sealevel.TransactionCtx, writable []bool) ([]*RentStateInfo, error) {
	rentStateInfos := make([]*RentStateInfo, 0, len(writable))

	for idx, isWritable := range writable {
		if !isWritable {
			rentStateInfos = append(rentStateInfos, nil)
			continue
		}

		acct, err := txCtx.AccountAtIndex(uint64(idx))
		if err != nil {
			return nil, err
		}
		rentStateInfos = append(rentStateInfos, rentStateFromAcct(acct, rent))
	}

	return rentStateInfos, nil
}

func checkRentStateTransitionAllowed(preRentState *RentStateInfo, postRentState *RentStateInfo, txCtx *sealevel.TransactionCtx, idx uint64) error {
	if preRentState == nil || postRentState == nil {
		return nil
	}

	acct, err := txCtx.AccountAtIndex(idx)
	if err != nil {
		return err
	}

	if acct.Key == sealevel.IncineratorAddr {
		return nil
	}

	switch postRentState.RentState {
	case RentStateUninitialized, RentStateRentExempt:
		return nil
	}

	if preRentState.RentState == RentStateRentPaying &&
		postRentState.RentPayingInfo.DataSize == preRentState.RentPayingInfo.DataSize &&
		postRentState.RentPayingInfo.Lamports <= preRentState.RentPayingInfo.Lamports {
		return nil
	}

	return &InsufficientFundsForRentError{AccountIndex: idx}
}

func VerifyRentStateChanges(preStates []*RentStateInfo, postStates []*RentStateInfo, txCtx *sealevel.TransactionCtx) error {
	if len(preStates) != len(postStates) {
		return fmt.Errorf("rent state length mismatch: %d pre, %d post", len(preStates), len(postStates))
	}

	for count := uint64(0); count < uint64(len(preStates)); count++ {
		err := checkRentStateTransitionAllowed(preStates[count], postStates[count], txCtx, count)
		if err != nil {
			return err
		}
	}

	return nil
}
