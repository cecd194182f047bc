package sshsig

import (
	"fmt"

	gossh "golang.org/x/crypto/ssh"
)

// Verify checks the signature over message for namespace against the
// embedded public key. Callers decide separately whether that key is trusted.
func (s *Signature) Verify(message []byte, namespace string) error {
	if s.Namespace != namespace {
		return fmt.Errorf("%w: signed for %q, want %q", ErrNamespaceMismatch, s.Namespace, namespace)
	}

	// ssh-keygen refuses SHA-1 RSA signatures for SSHSIG.
	if s.Signature.Format == gossh.KeyAlgoRSA {
		return fmt.Errorf("%w: ssh-rsa (SHA-1) signatures are not accepted", ErrVerificationFailed)
	}

	digest, err := s.HashAlgorithm.digest(message)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	if err := s.PublicKey.Verify(signedData(s.Namespace, s.HashAlgorithm, digest), s.Signature); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	return nil
}
