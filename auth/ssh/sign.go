package ssh

import (
	"fmt"
	"io"

	gossh "golang.org/x/crypto/ssh"
)

// Key implements gossh.AlgorithmSigner so it can be handed to anything that
// signs with an ssh.Signer. Signing fails with ErrKeyDestroyed after Destroy.
var _ gossh.AlgorithmSigner = (*Key)(nil)

// PublicKey returns the public half of the key.
func (k *Key) PublicKey() gossh.PublicKey {
	return k.signer.PublicKey()
}

// Sign signs data with the key's default algorithm.
func (k *Key) Sign(rand io.Reader, data []byte) (*gossh.Signature, error) {
	return k.SignWithAlgorithm(rand, data, "")
}

// SignWithAlgorithm signs data with the given signature algorithm, e.g.
// rsa-sha2-512 for RSA keys. An empty algorithm selects the key's default.
func (k *Key) SignWithAlgorithm(rand io.Reader, data []byte, algorithm string) (*gossh.Signature, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return nil, ErrKeyDestroyed
	}

	if as, ok := k.signer.(gossh.AlgorithmSigner); ok {
		return as.SignWithAlgorithm(rand, data, algorithm)
	}

	if algorithm != "" && algorithm != k.signer.PublicKey().Type() {
		return nil, fmt.Errorf("sign with %s: algorithm not supported by %s key", algorithm, k.Type())
	}
	return k.signer.Sign(rand, data)
}
