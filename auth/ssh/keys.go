package ssh

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gossh "golang.org/x/crypto/ssh"
)

// Config holds configuration for SSH key operations.
type Config struct {
	// SSHDir is the SSH directory path.
	// Defaults to ~/.ssh if empty.
	SSHDir string

	// PreferredKeys is the preference order for private key file names.
	// Public keys are looked up next to them with a ".pub" suffix.
	// Defaults to id_ed25519, id_ecdsa, id_rsa if empty.
	PreferredKeys []string
}

// DefaultPreferredKeys is the default key preference order.
var DefaultPreferredKeys = []string{
	"id_ed25519",
	"id_ecdsa",
	"id_rsa",
}

func (c Config) sshDir() (string, error) {
	if c.SSHDir != "" {
		return c.SSHDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".ssh"), nil
}

func (c Config) preferredKeys() []string {
	if len(c.PreferredKeys) > 0 {
		return c.PreferredKeys
	}
	return DefaultPreferredKeys
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// KeyInfo describes an SSH public key found in the key store.
type KeyInfo struct {
	// Path is the path to the public key file.
	Path string

	// PrivateKeyPath is the path of the matching private key, or empty when
	// no private key sits next to the public key.
	PrivateKeyPath string

	// Encrypted reports whether the matching private key needs a passphrase.
	Encrypted bool

	// Key is the parsed public key.
	Key gossh.PublicKey

	// KeyType is the key algorithm (e.g., "ssh-ed25519", "ssh-rsa").
	KeyType string

	// Fingerprint is the SHA256 fingerprint of the key.
	Fingerprint string

	// Comment is the optional key comment.
	Comment string
}

// AuthorizedKey returns the key in authorized_keys format without a trailing newline.
func (k *KeyInfo) AuthorizedKey() string {
	line := strings.TrimSpace(string(gossh.MarshalAuthorizedKey(k.Key)))
	if k.Comment != "" {
		line += " " + k.Comment
	}
	return line
}

// FindDefaultKey finds the default SSH public key using default configuration.
func FindDefaultKey() (*KeyInfo, error) {
	return FindDefaultKeyWithConfig(Config{})
}

// FindDefaultKeyWithConfig finds the first public key in preference order.
func FindDefaultKeyWithConfig(cfg Config) (*KeyInfo, error) {
	sshDir, err := cfg.sshDir()
	if err != nil {
		return nil, err
	}

	for _, name := range cfg.preferredKeys() {
		if info, err := ReadPublicKey(filepath.Join(sshDir, name+".pub")); err == nil {
			return info, nil
		}
	}

	return nil, ErrNoSSHKeys
}

// ReadPublicKey reads and parses an SSH public key file. When the file name
// ends in ".pub" and the private key exists next to it, PrivateKeyPath and
// Encrypted are filled in.
func ReadPublicKey(path string) (*KeyInfo, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided path expected
	if err != nil {
		return nil, err
	}

	info, err := ParsePublicKey(path, string(data))
	if err != nil {
		return nil, err
	}

	if priv, ok := strings.CutSuffix(path, ".pub"); ok {
		if pem, err := os.ReadFile(priv); err == nil { //nolint:gosec // derived from user path
			info.PrivateKeyPath = priv
			_, err := gossh.ParseRawPrivateKey(pem)
			var missing *gossh.PassphraseMissingError
			info.Encrypted = errors.As(err, &missing)
		}
	}

	return info, nil
}

// ParsePublicKey parses a public key in authorized_keys format.
func ParsePublicKey(path, keyData string) (*KeyInfo, error) {
	keyData = strings.TrimSpace(keyData)
	if len(strings.Fields(keyData)) < 2 {
		return nil, ErrInvalidKeyFormat
	}

	pub, comment, _, _, err := gossh.ParseAuthorizedKey([]byte(keyData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}

	return &KeyInfo{
		Path:        path,
		Key:         pub,
		KeyType:     pub.Type(),
		Fingerprint: Fingerprint(pub),
		Comment:     comment,
	}, nil
}

// ListLocalKeys lists all SSH public keys in the SSH directory.
func ListLocalKeys() ([]*KeyInfo, error) {
	return ListLocalKeysWithConfig(Config{})
}

// ListLocalKeysWithConfig lists all SSH public keys using custom configuration.
// Keys named in PreferredKeys come first, in preference order; the rest
// follow sorted by file name.
func ListLocalKeysWithConfig(cfg Config) ([]*KeyInfo, error) {
	sshDir, err := cfg.sshDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(sshDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSSHKeys
		}
		return nil, fmt.Errorf("read ssh directory: %w", err)
	}

	rank := make(map[string]int)
	for i, name := range cfg.preferredKeys() {
		rank[name+".pub"] = i + 1
	}

	var keys []*KeyInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pub") {
			continue
		}

		info, err := ReadPublicKey(filepath.Join(sshDir, entry.Name()))
		if err != nil {
			continue // Skip invalid key files
		}
		keys = append(keys, info)
	}

	if len(keys) == 0 {
		return nil, ErrNoSSHKeys
	}

	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := rank[filepath.Base(keys[i].Path)], rank[filepath.Base(keys[j].Path)]
		switch {
		case ri != 0 && rj != 0:
			return ri < rj
		case ri != 0 || rj != 0:
			return ri != 0
		default:
			return keys[i].Path < keys[j].Path
		}
	})

	return keys, nil
}
