package escrow

import (
	"github.com/gagliardetto/solana-go"
	pda "go.firedancer.io/lp/pkg/solana"
)

const (
	JobPostSeed     = "job_post"
	EscrowSeed      = "escrow"
	ApplicationSeed = "application"
)

func jobPostSeeds(client solana.PublicKey, title string) [][]byte {
	return [][]byte{[]byte(JobPostSeed), client[:], []byte(title)}
}

func escrowSeeds(jobPost solana.PublicKey) [][]byte {
	return [][]byte{[]byte(EscrowSeed), jobPost[:]}
}

func applicationSeeds(jobPost solana.PublicKey, freelancer solana.PublicKey) [][]byte {
	return [][]byte{[]byte(ApplicationSeed), jobPost[:], freelancer[:]}
}

func findAddress(seeds [][]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := pda.FindProgramAddress(seeds, ProgramID)
	return addr, bump, err
}

// FindJobPostAddress derives the job post PDA. Titles longer than a seed
// (32 bytes) have no address.
func FindJobPostAddress(client solana.PublicKey, title string) (solana.PublicKey, uint8, error) {
	return findAddress(jobPostSeeds(client, title))
}

func FindEscrowAddress(jobPost solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findAddress(escrowSeeds(jobPost))
}

func FindApplicationAddress(jobPost solana.PublicKey, freelancer solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findAddress(applicationSeeds(jobPost, freelancer))
}
