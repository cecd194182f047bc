package sshsig

import (
	"bytes"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	gossh "golang.org/x/crypto/ssh"
)

// armorWidth is the base64 line width ssh-keygen writes.
const armorWidth = 70

// Marshal returns the binary SSHSIG blob.
func (s *Signature) Marshal() []byte {
	w := wrappedSig{
		Version:       sigVersion,
		PublicKey:     string(s.PublicKey.Marshal()),
		Namespace:     s.Namespace,
		HashAlgorithm: string(s.HashAlgorithm),
		Signature:     string(gossh.Marshal(s.Signature)),
	}
	copy(w.MagicHeader[:], magicHeader)
	return gossh.Marshal(w)
}

// Armor returns the signature in the "SSH SIGNATURE" armored form, with a
// trailing newline, exactly as ssh-keygen -Y sign writes it.
func (s *Signature) Armor() []byte {
	body := base64.StdEncoding.EncodeToString(s.Marshal())

	var buf bytes.Buffer
	buf.WriteString("-----BEGIN " + pemType + "-----\n")
	for len(body) > armorWidth {
		buf.WriteString(body[:armorWidth])
		buf.WriteByte('\n')
		body = body[armorWidth:]
	}
	buf.WriteString(body)
	buf.WriteString("\n-----END " + pemType + "-----\n")
	return buf.Bytes()
}

// IsArmored reports whether data starts with an SSH signature armor header,
// ignoring leading whitespace.
func IsArmored(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("-----BEGIN "+pemType+"-----"))
}

// Unarmor decodes an armored signature. Any base64 line width is accepted.
func Unarmor(armored []byte) (*Signature, error) {
	block, rest := pem.Decode(armored)
	if block == nil {
		return nil, fmt.Errorf("%w: no armored signature found", ErrMalformedSignature)
	}
	if block.Type != pemType {
		return nil, fmt.Errorf("%w: armor type %q, want %q", ErrMalformedSignature, block.Type, pemType)
	}
	if len(bytes.TrimSpace(rest)) != 0 {
		return nil, fmt.Errorf("%w: trailing data after armor", ErrMalformedSignature)
	}
	return Parse(block.Bytes)
}

// Parse decodes a binary SSHSIG blob.
func Parse(blob []byte) (*Signature, error) {
	var w wrappedSig
	if err := gossh.Unmarshal(blob, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}

	if string(w.MagicHeader[:]) != magicHeader {
		return nil, fmt.Errorf("%w: invalid magic header %q", ErrMalformedSignature, w.MagicHeader[:])
	}
	if w.Version != sigVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedSignature, w.Version)
	}
	alg, err := ParseHashAlgorithm(w.HashAlgorithm)
	if err != nil || w.HashAlgorithm == "" {
		return nil, fmt.Errorf("%w: unsupported hash algorithm %q", ErrMalformedSignature, w.HashAlgorithm)
	}

	sig := new(gossh.Signature)
	if err := gossh.Unmarshal([]byte(w.Signature), sig); err != nil {
		return nil, fmt.Errorf("%w: signature blob: %v", ErrMalformedSignature, err)
	}

	pub, err := gossh.ParsePublicKey([]byte(w.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrMalformedSignature, err)
	}

	return &Signature{
		PublicKey:     pub,
		Namespace:     w.Namespace,
		HashAlgorithm: alg,
		Signature:     sig,
	}, nil
}
