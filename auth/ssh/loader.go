package ssh

import (
	"crypto/dsa" //nolint:staticcheck // legacy DSA keys are still accepted
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gossh "golang.org/x/crypto/ssh"
)

// AgentKeyPrefix marks a signing key given inline as an authorized_keys
// line, as accepted by git's user.signingKey.
const AgentKeyPrefix = "key::"

// PassphraseFunc supplies the passphrase for an encrypted private key.
// It is called at most once per load. The returned slice is cleared after use.
type PassphraseFunc func() ([]byte, error)

// StaticPassphrase returns a PassphraseFunc that always supplies p.
func StaticPassphrase(p string) PassphraseFunc {
	return func() ([]byte, error) {
		return []byte(p), nil
	}
}

// Key is a loaded signing key. It is owned by the caller for a single
// signing operation and must be released with Destroy.
type Key struct {
	path   string
	signer gossh.Signer
	raw    any
	closer io.Closer

	mu        sync.Mutex
	destroyed bool
}

// Path returns the file path or agent reference the key was loaded from.
func (k *Key) Path() string {
	return k.path
}

// Type returns the SSH key algorithm, e.g. "ssh-ed25519".
func (k *Key) Type() string {
	return k.signer.PublicKey().Type()
}

// Fingerprint returns the SHA256 fingerprint of the public key.
func (k *Key) Fingerprint() string {
	return Fingerprint(k.signer.PublicKey())
}

// FromAgent reports whether signing is delegated to ssh-agent.
func (k *Key) FromAgent() bool {
	return k.raw == nil
}

// Destroy zeroes the private key material and closes any agent connection.
// It is safe to call more than once.
func (k *Key) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return
	}
	k.destroyed = true

	zeroKey(k.raw)
	k.raw = nil
	if k.closer != nil {
		_ = k.closer.Close()
		k.closer = nil
	}
}

// Load loads a signing key using the default configuration.
// See LoadWithConfig.
func Load(path string, passphrase PassphraseFunc) (*Key, error) {
	return LoadWithConfig(Config{}, path, passphrase)
}

// LoadWithConfig loads a signing key.
//
// An empty path selects the first readable private key in the key store in
// preference order. A path ending in ".pub" or a "key::" reference selects
// the matching key held by ssh-agent; for ".pub" paths the private key next
// to it is used when the agent does not hold the key.
//
// The passphrase supplier is only consulted when the key is encrypted.
func LoadWithConfig(cfg Config, path string, passphrase PassphraseFunc) (*Key, error) {
	if line, ok := strings.CutPrefix(path, AgentKeyPrefix); ok {
		info, err := ParsePublicKey(path, line)
		if err != nil {
			return nil, err
		}
		return loadAgentKey(path, info.Key)
	}

	if path == "" {
		return loadDefault(cfg, passphrase)
	}

	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	if priv, ok := strings.CutSuffix(path, ".pub"); ok {
		info, err := ReadPublicKey(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
			}
			return nil, err
		}
		key, agentErr := loadAgentKey(path, info.Key)
		if agentErr == nil {
			return key, nil
		}
		if info.PrivateKeyPath == "" {
			return nil, agentErr
		}
		return loadFile(priv, passphrase)
	}

	return loadFile(path, passphrase)
}

func loadDefault(cfg Config, passphrase PassphraseFunc) (*Key, error) {
	sshDir, err := cfg.sshDir()
	if err != nil {
		return nil, err
	}

	for _, name := range cfg.preferredKeys() {
		path := filepath.Join(sshDir, name)
		data, err := os.ReadFile(path) //nolint:gosec // key store path
		if err != nil {
			continue
		}
		return ParsePrivateKey(path, data, passphrase)
	}

	return nil, fmt.Errorf("%w: no default key in %s", ErrKeyNotFound, sshDir)
}

func loadFile(path string, passphrase PassphraseFunc) (*Key, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided path expected
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return ParsePrivateKey(path, data, passphrase)
}

// ParsePrivateKey parses PEM or OpenSSH encoded private key data. The path
// is only used for error messages and Key.Path.
func ParsePrivateKey(path string, data []byte, passphrase PassphraseFunc) (*Key, error) {
	raw, err := gossh.ParseRawPrivateKey(data)

	var missing *gossh.PassphraseMissingError
	switch {
	case errors.As(err, &missing):
		raw, err = decrypt(path, data, passphrase)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedKeyFormat, path, err)
	}

	signer, err := gossh.NewSignerFromKey(raw)
	if err != nil {
		zeroKey(raw)
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedKeyFormat, path, err)
	}

	return &Key{path: path, signer: signer, raw: raw}, nil
}

func decrypt(path string, data []byte, passphrase PassphraseFunc) (any, error) {
	if passphrase == nil {
		return nil, fmt.Errorf("%w: %s", ErrPassphraseRequired, path)
	}

	pass, err := passphrase()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPassphraseRequired, path, err)
	}
	defer clear(pass)

	if len(pass) == 0 {
		return nil, fmt.Errorf("%w: %s: empty passphrase", ErrPassphraseRequired, path)
	}

	raw, err := gossh.ParseRawPrivateKeyWithPassphrase(data, pass)
	switch {
	case errors.Is(err, x509.IncorrectPasswordError):
		return nil, fmt.Errorf("%w: %s", ErrDecryptionFailed, path)
	case err != nil && isLegacyEncrypted(data):
		// Legacy CBC padding passes for a wrong passphrase about 1 time in
		// 256, leaving garbage that fails to parse.
		return nil, fmt.Errorf("%w: %s", ErrDecryptionFailed, path)
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedKeyFormat, path, err)
	}
	return raw, nil
}

// isLegacyEncrypted reports whether data is a PEM block encrypted with
// the legacy Proc-Type/DEK-Info scheme.
func isLegacyEncrypted(data []byte) bool {
	block, _ := pem.Decode(data)
	if block == nil {
		return false
	}
	_, ok := block.Headers["DEK-Info"]
	return ok
}

func zeroKey(raw any) {
	switch k := raw.(type) {
	case *rsa.PrivateKey:
		zeroInt(k.D)
		for _, p := range k.Primes {
			zeroInt(p)
		}
		zeroInt(k.Precomputed.Dp)
		zeroInt(k.Precomputed.Dq)
		zeroInt(k.Precomputed.Qinv)
	case *ecdsa.PrivateKey:
		zeroInt(k.D)
	case *dsa.PrivateKey:
		zeroInt(k.X)
	case *ed25519.PrivateKey:
		clear(*k)
	case ed25519.PrivateKey:
		clear(k)
	}
}

func zeroInt(n *big.Int) {
	if n == nil {
		return
	}
	clear(n.Bits())
	n.SetInt64(0)
}
