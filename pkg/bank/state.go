package bank

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/lp/pkg/sealevel"
)

const stateMetaKey = "bank"

// ledgerState is the part of the bank that survives a restart besides the
// accounts themselves.
type ledgerState struct {
	Slot        uint64
	Clock       sealevel.SysvarClock
	Blockhashes []solana.Hash
	Modified    []solana.PublicKey
	Faucet      solana.PrivateKey
}

func (s *ledgerState) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(s.Slot, bin.LE); err != nil {
		return err
	}
	if err := s.Clock.MarshalWithEncoder(encoder); err != nil {
		return err
	}

	if err := encoder.WriteUint32(uint32(len(s.Blockhashes)), bin.LE); err != nil {
		return err
	}
	for _, h := range s.Blockhashes {
		if err := encoder.WriteBytes(h[:], false); err != nil {
			return err
		}
	}

	if err := encoder.WriteUint32(uint32(len(s.Modified)), bin.LE); err != nil {
		return err
	}
	for _, pk := range s.Modified {
		if err := encoder.WriteBytes(pk[:], false); err != nil {
			return err
		}
	}

	return encoder.WriteBytes(s.Faucet, false)
}

func (s *ledgerState) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	s.Slot, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read slot: %w", err)
	}

	if err = s.Clock.UnmarshalWithDecoder(decoder); err != nil {
		return fmt.Errorf("failed to read clock: %w", err)
	}

	numHashes, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read blockhash count: %w", err)
	}
	s.Blockhashes = make([]solana.Hash, 0, numHashes)
	for i := uint32(0); i < numHashes; i++ {
		b, err := decoder.ReadNBytes(32)
		if err != nil {
			return fmt.Errorf("failed to read blockhash: %w", err)
		}
		s.Blockhashes = append(s.Blockhashes, solana.HashFromBytes(b))
	}

	numModified, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read modified count: %w", err)
	}
	s.Modified = make([]solana.PublicKey, 0, numModified)
	for i := uint32(0); i < numModified; i++ {
		b, err := decoder.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return fmt.Errorf("failed to read modified account: %w", err)
		}
		s.Modified = append(s.Modified, solana.PublicKeyFromBytes(b))
	}

	faucet, err := decoder.ReadNBytes(ed25519.PrivateKeySize)
	if err != nil {
		return fmt.Errorf("failed to read faucet key: %w", err)
	}
	s.Faucet = solana.PrivateKey(faucet)
	return nil
}

func (s *ledgerState) marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := s.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalLedgerState(data []byte) (*ledgerState, error) {
	s := new(ledgerState)
	if err := s.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, err
	}
	return s, nil
}
