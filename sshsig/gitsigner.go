package sshsig

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	gossh "golang.org/x/crypto/ssh"
)

var _ git.Signer = (*GitSigner)(nil)

// GitSigner signs commits created through go-git (CommitOptions.Signer)
// with SSH signatures instead of OpenPGP.
type GitSigner struct {
	Signer gossh.Signer

	// Namespace defaults to NamespaceGit.
	Namespace string

	// Hash defaults to DefaultHashAlgorithm.
	Hash HashAlgorithm
}

// Sign returns the armored signature over the encoded object read from message.
func (g *GitSigner) Sign(message io.Reader) ([]byte, error) {
	data, err := io.ReadAll(message)
	if err != nil {
		return nil, fmt.Errorf("%w: read message: %w", ErrSigningFailed, err)
	}

	ns := g.Namespace
	if ns == "" {
		ns = NamespaceGit
	}

	sig, err := Sign(g.Signer, data, ns, g.Hash)
	if err != nil {
		return nil, err
	}
	return sig.Armor(), nil
}
