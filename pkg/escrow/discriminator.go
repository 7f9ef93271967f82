package escrow

import (
	"github.com/minio/sha256-simd"
)

const DiscriminatorLen = 8

type Discriminator [DiscriminatorLen]byte

func sighash(namespace string, name string) Discriminator {
	var d Discriminator
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	copy(d[:], sum[:DiscriminatorLen])
	return d
}

// InstructionDiscriminator prefixes the data of the named instruction.
func InstructionDiscriminator(name string) Discriminator {
	return sighash("global", name)
}

// AccountDiscriminator prefixes the data of accounts of the named type.
func AccountDiscriminator(typeName string) Discriminator {
	return sighash("account", typeName)
}

var (
	JobPostDiscriminator     = AccountDiscriminator("JobPost")
	ApplicationDiscriminator = AccountDiscriminator("Application")
)
