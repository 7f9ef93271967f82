package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/base58"
)

const SysvarRentAddrStr = "SysvarRent111111111111111111111111111111111"

var SysvarRentAddr = base58.MustDecodeFromString(SysvarRentAddrStr)

const SysvarRentStructLen = 17

// AccountStorageOverhead is charged on top of the data length of every account.
const AccountStorageOverhead = 128

type SysvarRent struct {
	LamportsPerUint8Year uint64
	ExemptionThreshold   float64
	BurnPercent          byte
}

// DefaultRent mirrors mainnet rent parameters.
func DefaultRent() SysvarRent {
	return SysvarRent{LamportsPerUint8Year: 3480, ExemptionThreshold: 2.0, BurnPercent: 50}
}

func (sr *SysvarRent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	lamportsPerUint8Year, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LamportsPerUint8Year when decoding SysvarRent: %w", err)
	}
	sr.LamportsPerUint8Year = lamportsPerUint8Year

	exemptionThreshold, err := decoder.ReadFloat64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read ExemptionThreshold when decoding SysvarRent: %w", err)
	}
	sr.ExemptionThreshold = exemptionThreshold

	burnPercent, err := decoder.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read BurnPercent when decoding SysvarRent: %w", err)
	}
	sr.BurnPercent = burnPercent

	return
}

func (sr *SysvarRent) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(sr.LamportsPerUint8Year, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteFloat64(sr.ExemptionThreshold, bin.LE); err != nil {
		return err
	}
	return encoder.WriteByte(sr.BurnPercent)
}

func (sr *SysvarRent) MinimumBalance(dataLen uint64) uint64 {
	bytes := dataLen + AccountStorageOverhead
	return uint64(float64(bytes*sr.LamportsPerUint8Year) * sr.ExemptionThreshold)
}

func (sr *SysvarRent) IsExempt(lamports uint64, dataLen uint64) bool {
	return lamports >= sr.MinimumBalance(dataLen)
}

func ReadRentSysvar(accts accounts.Accounts) (SysvarRent, error) {
	var rent SysvarRent
	rentAcct, err := accts.GetAccount(&SysvarRentAddr)
	if err != nil {
		return rent, err
	}
	if rentAcct == nil {
		return rent, InstrErrUninitializedAccount
	}
	err = rent.UnmarshalWithDecoder(bin.NewBinDecoder(rentAcct.Data))
	return rent, err
}

func WriteRentSysvar(accts accounts.Accounts, rent SysvarRent) error {
	writer := new(bytes.Buffer)
	if err := rent.MarshalWithEncoder(bin.NewBinEncoder(writer)); err != nil {
		return err
	}
	return writeSysvarAccount(accts, SysvarRentAddr, writer.Bytes())
}

// SysvarCache holds the sysvars visible to programs during a transaction.
type SysvarCache struct {
	Clock SysvarClock
	Rent  SysvarRent
}
