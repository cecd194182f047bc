package sshsig

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	gossh "golang.org/x/crypto/ssh"
)

const (
	pemType     = "SSH SIGNATURE"
	magicHeader = "SSHSIG"
	sigVersion  = 1

	// NamespaceGit is the namespace git uses for commit and tag signatures.
	NamespaceGit = "git"
)

// HashAlgorithm names the digest applied to the message before signing.
type HashAlgorithm string

// Supported hash algorithms.
const (
	SHA256 HashAlgorithm = "sha256"
	SHA512 HashAlgorithm = "sha512"

	// DefaultHashAlgorithm matches ssh-keygen -Y sign.
	DefaultHashAlgorithm = SHA512
)

var hashFuncs = map[HashAlgorithm]func() hash.Hash{
	SHA256: sha256.New,
	SHA512: sha512.New,
}

// ParseHashAlgorithm validates a hash algorithm name. An empty name selects
// DefaultHashAlgorithm.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	if name == "" {
		return DefaultHashAlgorithm, nil
	}
	alg := HashAlgorithm(name)
	if _, ok := hashFuncs[alg]; !ok {
		return "", fmt.Errorf("unsupported hash algorithm %q (want sha256 or sha512)", name)
	}
	return alg, nil
}

func (a HashAlgorithm) digest(message []byte) ([]byte, error) {
	newHash, ok := hashFuncs[a]
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm %q", string(a))
	}
	h := newHash()
	h.Write(message)
	return h.Sum(nil), nil
}

// Signature is a detached SSHSIG signature.
type Signature struct {
	PublicKey     gossh.PublicKey
	Namespace     string
	HashAlgorithm HashAlgorithm
	Signature     *gossh.Signature
}

// https://github.com/openssh/openssh-portable/blob/master/PROTOCOL.sshsig#L81
type messageWrapper struct {
	Namespace     string
	Reserved      string
	HashAlgorithm string
	Hash          string
}

// https://github.com/openssh/openssh-portable/blob/master/PROTOCOL.sshsig#L34
type wrappedSig struct {
	MagicHeader   [6]byte
	Version       uint32
	PublicKey     string
	Namespace     string
	Reserved      string
	HashAlgorithm string
	Signature     string
}

// signedData returns the blob the key actually signs.
func signedData(namespace string, alg HashAlgorithm, digest []byte) []byte {
	wrapped := gossh.Marshal(messageWrapper{
		Namespace:     namespace,
		HashAlgorithm: string(alg),
		Hash:          string(digest),
	})
	return append([]byte(magicHeader), wrapped...)
}
