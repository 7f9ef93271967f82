package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/base58"
)

const SysvarClockAddrStr = "SysvarC1ock11111111111111111111111111111111"

var SysvarClockAddr = base58.MustDecodeFromString(SysvarClockAddrStr)

const SysvarOwnerAddrStr = "Sysvar1111111111111111111111111111111111111"

var SysvarOwnerAddr = base58.MustDecodeFromString(SysvarOwnerAddrStr)

const SysvarClockStructLen = 40

type SysvarClock struct {
	Slot                uint64
	EpochStartTimestamp int64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       int64
}

func (sc *SysvarClock) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	slot, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Slot when decoding SysvarClock: %w", err)
	}
	sc.Slot = slot

	epochStartTimestamp, err := decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read EpochStartTimestamp when decoding SysvarClock: %w", err)
	}
	sc.EpochStartTimestamp = epochStartTimestamp

	epoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Epoch when decoding SysvarClock: %w", err)
	}
	sc.Epoch = epoch

	leaderScheduleEpoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LeaderScheduleEpoch when decoding SysvarClock: %w", err)
	}
	sc.LeaderScheduleEpoch = leaderScheduleEpoch

	unixTimestamp, err := decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read UnixTimestamp when decoding SysvarClock: %w", err)
	}
	sc.UnixTimestamp = unixTimestamp
	return
}

func (sc *SysvarClock) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(sc.Slot, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteInt64(sc.EpochStartTimestamp, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(sc.Epoch, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(sc.LeaderScheduleEpoch, bin.LE); err != nil {
		return err
	}
	return encoder.WriteInt64(sc.UnixTimestamp, bin.LE)
}

func ReadClockSysvar(accts accounts.Accounts) (SysvarClock, error) {
	var clock SysvarClock
	clockAcct, err := accts.GetAccount(&SysvarClockAddr)
	if err != nil {
		return clock, err
	}
	if clockAcct == nil {
		return clock, InstrErrUninitializedAccount
	}
	err = clock.UnmarshalWithDecoder(bin.NewBinDecoder(clockAcct.Data))
	return clock, err
}

func WriteClockSysvar(accts accounts.Accounts, clock SysvarClock) error {
	writer := new(bytes.Buffer)
	if err := clock.MarshalWithEncoder(bin.NewBinEncoder(writer)); err != nil {
		return err
	}
	return writeSysvarAccount(accts, SysvarClockAddr, writer.Bytes())
}

func writeSysvarAccount(accts accounts.Accounts, addr [32]byte, data []byte) error {
	acct, err := accts.GetAccount(&addr)
	if err != nil {
		return err
	}
	if acct == nil {
		acct = &accounts.Account{Key: addr, Owner: SysvarOwnerAddr, Lamports: 1}
	}
	acct.SetData(data)
	return accts.SetAccount(&addr, acct)
}
