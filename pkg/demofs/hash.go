package demofs

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/sha3"
)

type Hashes struct {
	XXH3 string `json:"xxh3"`
	SHA3 string `json:"sha3"`
}

// HashFile computes every digest of path in one read.
func HashFile(path string) (Hashes, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hashes{}, err
	}
	defer f.Close()

	hx := xxh3.New()
	hs := sha3.New256()
	if _, err := io.Copy(io.MultiWriter(hx, hs), f); err != nil {
		return Hashes{}, err
	}

	return Hashes{
		XXH3: fmt.Sprintf("%016x", hx.Sum64()),
		SHA3: hex.EncodeToString(hs.Sum(nil)),
	}, nil
}

// HashBytes is HashFile for a demo already in memory.
func HashBytes(b []byte) Hashes {
	sum := sha3.Sum256(b)
	return Hashes{
		XXH3: fmt.Sprintf("%016x", xxh3.Hash(b)),
		SHA3: hex.EncodeToString(sum[:]),
	}
}
