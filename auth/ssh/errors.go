package ssh

import "errors"

// SSH key errors.
var (
	// ErrNoSSHAgent is returned when the SSH agent is not available.
	ErrNoSSHAgent = errors.New("ssh-agent not available")

	// ErrNoSSHKeys is returned when no SSH public keys are found.
	ErrNoSSHKeys = errors.New("no SSH keys found")

	// ErrKeyNotFound is returned when a key file does not exist, no default
	// key exists in the key store, or the agent does not hold the key.
	ErrKeyNotFound = errors.New("SSH key not found")

	// ErrInvalidKeyFormat is returned when a public key file has invalid format.
	ErrInvalidKeyFormat = errors.New("invalid SSH public key format")

	// ErrUnsupportedKeyFormat is returned when a private key is not an
	// OpenSSH or PEM encoded key of a supported algorithm.
	ErrUnsupportedKeyFormat = errors.New("unsupported SSH private key format")

	// ErrDecryptionFailed is returned when the passphrase does not decrypt
	// the private key.
	ErrDecryptionFailed = errors.New("SSH private key decryption failed")

	// ErrPassphraseRequired is returned when a private key is encrypted and
	// no passphrase could be obtained.
	ErrPassphraseRequired = errors.New("SSH private key requires a passphrase")

	// ErrKeyDestroyed is returned when a destroyed key is used for signing.
	ErrKeyDestroyed = errors.New("SSH key has been destroyed")
)
