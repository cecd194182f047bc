package commit

import (
	"bytes"
	"fmt"
	"strings"
)

// Signature header names.
const (
	HeaderGPGSig       = "gpgsig"
	HeaderGPGSigSHA256 = "gpgsig-sha256"
)

func isSignatureHeader(name string) bool {
	return name == HeaderGPGSig || name == HeaderGPGSigSHA256
}

func signatureHeaderFor(tree string) string {
	if len(tree) == SHA256HexSize {
		return HeaderGPGSigSHA256
	}
	return HeaderGPGSig
}

// Embed inserts an armored signature into payload as a multi-line signature
// header at the end of the header block. Every other byte of payload is
// preserved.
func Embed(payload, armored []byte) ([]byte, error) {
	headers, _, err := splitObject(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	var tree string
	var hasAuthor, hasCommitter bool
	for _, h := range headerFields(headers) {
		switch {
		case h.Name == "tree" && tree == "":
			tree = h.Value
		case h.Name == "author":
			hasAuthor = true
		case h.Name == "committer":
			hasCommitter = true
		case isSignatureHeader(h.Name):
			return nil, fmt.Errorf("%w: payload already has a %s header", ErrEmbeddingFailed, h.Name)
		}
	}
	if !hasAuthor || !hasCommitter {
		return nil, fmt.Errorf("%w: payload lacks author or committer", ErrEmbeddingFailed)
	}

	sig := strings.TrimRight(string(armored), "\n")
	if sig == "" {
		return nil, fmt.Errorf("%w: empty signature", ErrEmbeddingFailed)
	}

	var b bytes.Buffer
	b.Grow(len(payload) + len(sig) + 32)
	b.Write(headers)
	writeHeader(&b, signatureHeaderFor(tree), sig)
	b.Write(payload[len(headers):])
	return b.Bytes(), nil
}

// Extract removes every signature header from a signed commit object. It
// returns the signed payload byte-for-byte and the armored signature with a
// trailing newline. When both gpgsig and gpgsig-sha256 are present, the one
// matching the tree id width is returned.
func Extract(signed []byte) (payload, signature []byte, err error) {
	headers, _, err := splitObject(signed)
	if err != nil {
		return nil, nil, err
	}

	var tree, sigName string
	var inSig, keep bool
	sigs := make(map[string]string)
	var out bytes.Buffer
	out.Grow(len(signed))
	for _, line := range strings.SplitAfter(string(headers), "\n") {
		if line == "" {
			continue
		}
		if inSig && strings.HasPrefix(line, " ") {
			if keep {
				sigs[sigName] += "\n" + strings.TrimSuffix(line[1:], "\n")
			}
			continue
		}
		inSig = false

		name, value, _ := strings.Cut(strings.TrimSuffix(line, "\n"), " ")
		if name == "tree" && tree == "" {
			tree = value
		}
		if isSignatureHeader(name) {
			_, dup := sigs[name]
			inSig, keep, sigName = true, !dup, name
			if keep {
				sigs[name] = value
			}
			continue
		}
		out.WriteString(line)
	}

	if len(sigs) == 0 {
		return nil, nil, ErrNotSigned
	}

	sig, ok := sigs[signatureHeaderFor(tree)]
	if !ok {
		for _, v := range sigs {
			sig = v
		}
	}

	out.Write(signed[len(headers):])
	return out.Bytes(), []byte(sig + "\n"), nil
}
