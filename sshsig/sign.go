package sshsig

import (
	"crypto/rand"
	"errors"
	"fmt"

	gossh "golang.org/x/crypto/ssh"
)

// Sign produces a detached signature over message for namespace. An empty
// alg selects DefaultHashAlgorithm. RSA keys sign with rsa-sha2-512.
func Sign(signer gossh.Signer, message []byte, namespace string, alg HashAlgorithm) (*Signature, error) {
	if namespace == "" {
		return nil, fmt.Errorf("%w: empty namespace", ErrSigningFailed)
	}
	if alg == "" {
		alg = DefaultHashAlgorithm
	}

	digest, err := alg.digest(message)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	pub := signer.PublicKey()
	sig, err := signData(signer, signedData(namespace, alg, digest))
	if err != nil {
		return nil, fmt.Errorf("%w: %s key: %w", ErrSigningFailed, pub.Type(), err)
	}

	return &Signature{
		PublicKey:     pub,
		Namespace:     namespace,
		HashAlgorithm: alg,
		Signature:     sig,
	}, nil
}

func signData(signer gossh.Signer, data []byte) (*gossh.Signature, error) {
	if signer.PublicKey().Type() != gossh.KeyAlgoRSA {
		return signer.Sign(rand.Reader, data)
	}

	as, ok := signer.(gossh.AlgorithmSigner)
	if !ok {
		return nil, errors.New("RSA signer does not support rsa-sha2-512")
	}
	return as.SignWithAlgorithm(rand.Reader, data, gossh.KeyAlgoRSASHA512)
}
