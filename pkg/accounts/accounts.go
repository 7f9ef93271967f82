package accounts

import (
	"bytes"
	"io"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Accounts is a keyed account store. A missing account is reported as a nil
// account with a nil error.
type Accounts interface {
	GetAccount(pubkey *[32]byte) (*Account, error)
	SetAccount(pubkey *[32]byte, acc *Account) error
}

type Account struct {
	Key        solana.PublicKey
	Lamports   uint64
	Data       []byte
	Owner      [32]byte
	Executable bool
	RentEpoch  uint64
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = bytes.Clone(a.Data)
	if c.Data == nil {
		c.Data = make([]byte, 0)
	}
	return &c
}

func (a *Account) SetData(data []byte) {
	a.Data = make([]byte, len(data))
	copy(a.Data, data)
}

// Equal compares account state, ignoring the key.
func (a *Account) Equal(other *Account) bool {
	return a.Lamports == other.Lamports &&
		a.Owner == other.Owner &&
		a.Executable == other.Executable &&
		a.RentEpoch == other.RentEpoch &&
		bytes.Equal(a.Data, other.Data)
}

func (a *Account) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	key, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	a.Key = solana.PublicKeyFromBytes(key)
	a.Lamports, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	var dataLen uint64
	dataLen, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	if dataLen > uint64(decoder.Remaining()) {
		return io.ErrUnexpectedEOF
	}
	a.Data, err = decoder.ReadNBytes(int(dataLen))
	if err != nil {
		return err
	}
	owner, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(a.Owner[:], owner)
	a.Executable, err = decoder.ReadBool()
	if err != nil {
		return err
	}
	a.RentEpoch, err = decoder.ReadUint64(bin.LE)
	return
}

func (a *Account) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(a.Key[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(a.Lamports, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(uint64(len(a.Data)), bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteBytes(a.Data, false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(a.Owner[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBool(a.Executable); err != nil {
		return err
	}
	return encoder.WriteUint64(a.RentEpoch, bin.LE)
}

func (a *Account) Marshal() ([]byte, error) {
	writer := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(writer)
	if err := a.MarshalWithEncoder(encoder); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

func Unmarshal(data []byte) (*Account, error) {
	acct := new(Account)
	if err := acct.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, err
	}
	return acct, nil
}
