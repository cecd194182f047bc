package testutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gossh "golang.org/x/crypto/ssh"
)

// Key algorithms accepted by GenerateKey.
const (
	KeyEd25519 = "ed25519"
	KeyECDSA   = "ecdsa"
	KeyRSA     = "rsa"
)

// KeyComment is the comment written into generated key files.
const KeyComment = "test@example.com"

// GenerateKey returns a fresh private key of the given algorithm.
func GenerateKey(t *testing.T, alg string) crypto.Signer {
	t.Helper()

	var (
		key crypto.Signer
		err error
	)
	switch alg {
	case KeyEd25519:
		_, key, err = ed25519.GenerateKey(rand.Reader)
	case KeyECDSA:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case KeyRSA:
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	default:
		t.Fatalf("unknown key algorithm %q", alg)
	}
	if err != nil {
		t.Fatalf("generate %s key: %v", alg, err)
	}
	return key
}

// NewSigner returns an ssh.Signer over a fresh ed25519 key.
func NewSigner(t *testing.T) gossh.Signer {
	t.Helper()

	s, err := gossh.NewSignerFromKey(GenerateKey(t, KeyEd25519))
	if err != nil {
		t.Fatalf("NewSignerFromKey: %v", err)
	}
	return s
}

// WriteKeyPair generates a key and writes it in OpenSSH format to dir/name
// and dir/name.pub. An empty passphrase writes an unencrypted private key.
// Returns the private key path and the public key.
func WriteKeyPair(t *testing.T, dir, name, alg, passphrase string) (string, gossh.PublicKey) {
	t.Helper()

	key := GenerateKey(t, alg)

	var (
		block *pem.Block
		err   error
	)
	if passphrase == "" {
		block, err = gossh.MarshalPrivateKey(key, KeyComment)
	} else {
		block, err = gossh.MarshalPrivateKeyWithPassphrase(key, KeyComment, []byte(passphrase))
	}
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}

	pub, err := gossh.NewPublicKey(key.Public())
	if err != nil {
		t.Fatalf("NewPublicKey: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("failed to write key %s: %v", path, err)
	}
	if err := os.WriteFile(path+".pub", []byte(AuthorizedKey(pub)+" "+KeyComment+"\n"), 0o644); err != nil {
		t.Fatalf("failed to write key %s.pub: %v", path, err)
	}

	return path, pub
}

// AuthorizedKey returns the "keytype base64" form of pub.
func AuthorizedKey(pub gossh.PublicKey) string {
	return strings.TrimSpace(string(gossh.MarshalAuthorizedKey(pub)))
}

// WriteAllowedSigners writes an allowed_signers file trusting each key for
// principal and returns its path.
func WriteAllowedSigners(t *testing.T, dir, principal string, keys ...gossh.PublicKey) string {
	t.Helper()

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(principal + " " + AuthorizedKey(k) + "\n")
	}

	path := filepath.Join(dir, "allowed_signers")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// TempFile creates a temporary file with the given content.
// Returns the file path. File is automatically cleaned up when the test ends.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to create temp file %s: %v", name, err)
	}

	return path
}
