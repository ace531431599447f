package intake

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
)

// HashFile fingerprints the artifact. SHA-1 matches what the catalogue
// already stores for historic revisions.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return Hash(file)
}

func Hash(reader io.Reader) (string, error) {
	digest := sha1.New()
	if _, err := io.Copy(digest, reader); err != nil {
		return "", err
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}
