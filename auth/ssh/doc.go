// Package ssh loads SSH signing keys.
//
// This package includes:
//   - Private key loading from the key store, with passphrase decryption
//   - Agent-backed keys selected by public key
//   - Public key discovery and fingerprint computation
//
// # Loading a Signing Key
//
// Load the default key (~/.ssh/id_ed25519, id_ecdsa, then id_rsa):
//
//	key, err := ssh.Load("", prompt.Passphrase("Enter passphrase: "))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer key.Destroy()
//
// The passphrase supplier is only called when the key is encrypted. A wrong
// passphrase returns ErrDecryptionFailed; the loader never retries, callers
// re-prompt if they want to.
//
// # Agent Keys
//
// A path ending in ".pub" or a "key::ssh-ed25519 AAAA..." reference signs
// through the running ssh-agent with the matching key:
//
//	key, err := ssh.Load("~/.ssh/id_ed25519.pub", nil)
//
// # Finding SSH Keys
//
// List all SSH public keys in ~/.ssh:
//
//	keys, err := ssh.ListLocalKeys()
//	for _, key := range keys {
//	    fmt.Printf("%s: %s\n", key.KeyType, key.Fingerprint)
//	}
//
// # Custom Configuration
//
// Use Config for a custom SSH directory or key preferences:
//
//	cfg := ssh.Config{
//	    SSHDir:        "/custom/path/.ssh",
//	    PreferredKeys: []string{"id_ed25519", "id_ecdsa"},
//	}
//
//	key, err := ssh.LoadWithConfig(cfg, "", nil)
package ssh
