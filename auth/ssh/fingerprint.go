package ssh

import (
	"crypto/sha256"
	"encoding/base64"

	gossh "golang.org/x/crypto/ssh"
)

// ComputeFingerprint computes the SHA256 fingerprint of a key blob.
func ComputeFingerprint(keyBlob []byte) string {
	hash := sha256.Sum256(keyBlob)
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(hash[:])
}

// Fingerprint computes the SHA256 fingerprint of a public key.
func Fingerprint(pub gossh.PublicKey) string {
	return ComputeFingerprint(pub.Marshal())
}
