package commit

import (
	"bytes"
	"fmt"
	"strings"
)

// Object id widths in hex.
const (
	SHA1HexSize   = 40
	SHA256HexSize = 64
)

// Header is a commit header outside tree/parent/author/committer, such as
// encoding or mergetag. Multi-line values hold "\n" between lines.
type Header struct {
	Name  string
	Value string
}

// Payload holds the fields of an unsigned commit object.
type Payload struct {
	Tree      string
	Parents   []string
	Author    Identity
	Committer Identity

	// ExtraHeaders are written after committer, in order.
	ExtraHeaders []Header

	Message string
}

// Build serializes a commit without signature. It is a pure function of its
// arguments; parent order is preserved.
func Build(tree string, parents []string, author, committer Identity, message string) []byte {
	p := &Payload{
		Tree:      tree,
		Parents:   parents,
		Author:    author,
		Committer: committer,
		Message:   message,
	}
	return p.Bytes()
}

// Bytes serializes the payload in git's commit object format.
func (p *Payload) Bytes() []byte {
	var b bytes.Buffer

	b.WriteString("tree " + p.Tree + "\n")
	for _, parent := range p.Parents {
		b.WriteString("parent " + parent + "\n")
	}
	b.WriteString("author " + p.Author.String() + "\n")
	b.WriteString("committer " + p.Committer.String() + "\n")
	for _, h := range p.ExtraHeaders {
		writeHeader(&b, h.Name, h.Value)
	}
	b.WriteString("\n")
	b.WriteString(p.Message)

	return b.Bytes()
}

// writeHeader writes a header, continuing each extra line with a leading space.
func writeHeader(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strings.ReplaceAll(value, "\n", "\n "))
	b.WriteByte('\n')
}

// Validate checks that Bytes produces a well-formed commit object.
func (p *Payload) Validate() error {
	width, err := objectIDWidth(p.Tree)
	if err != nil {
		return fmt.Errorf("%w: tree: %v", ErrInvalidPayload, err)
	}

	for i, parent := range p.Parents {
		w, err := objectIDWidth(parent)
		if err != nil {
			return fmt.Errorf("%w: parent %d: %v", ErrInvalidPayload, i, err)
		}
		if w != width {
			return fmt.Errorf("%w: parent %d has %d hex digits, tree has %d", ErrInvalidPayload, i, w, width)
		}
	}

	if err := p.Author.Validate(); err != nil {
		return fmt.Errorf("author: %w", err)
	}
	if err := p.Committer.Validate(); err != nil {
		return fmt.Errorf("committer: %w", err)
	}

	for _, h := range p.ExtraHeaders {
		if h.Name == "" || strings.ContainsAny(h.Name, " \n") {
			return fmt.Errorf("%w: header name %q", ErrInvalidPayload, h.Name)
		}
		if isSignatureHeader(h.Name) {
			return fmt.Errorf("%w: payload already carries %s", ErrInvalidPayload, h.Name)
		}
		if isCoreHeader(h.Name) {
			return fmt.Errorf("%w: %s is not an extra header", ErrInvalidPayload, h.Name)
		}
	}
	return nil
}

// SignatureHeader returns the header name git uses for the signature of
// this payload: gpgsig-sha256 in SHA-256 repositories, gpgsig otherwise.
func (p *Payload) SignatureHeader() string {
	return signatureHeaderFor(p.Tree)
}

// Parse reads a commit object back into its fields. Headers must appear in
// git's order; Parse(raw).Bytes() reproduces raw exactly.
func Parse(raw []byte) (*Payload, error) {
	headers, message, err := splitObject(raw)
	if err != nil {
		return nil, err
	}

	lines := headerFields(headers)
	p := &Payload{Message: string(message)}

	next := func(name string) (string, bool) {
		if len(lines) == 0 || lines[0].Name != name {
			return "", false
		}
		v := lines[0].Value
		lines = lines[1:]
		return v, true
	}

	tree, ok := next("tree")
	if !ok {
		return nil, fmt.Errorf("%w: missing tree header", ErrInvalidPayload)
	}
	p.Tree = tree

	for {
		parent, ok := next("parent")
		if !ok {
			break
		}
		p.Parents = append(p.Parents, parent)
	}

	author, ok := next("author")
	if !ok {
		return nil, fmt.Errorf("%w: missing author header", ErrInvalidPayload)
	}
	if p.Author, err = ParseIdentity(author); err != nil {
		return nil, err
	}

	committer, ok := next("committer")
	if !ok {
		return nil, fmt.Errorf("%w: missing committer header", ErrInvalidPayload)
	}
	if p.Committer, err = ParseIdentity(committer); err != nil {
		return nil, err
	}

	for _, h := range lines {
		if isCoreHeader(h.Name) {
			return nil, fmt.Errorf("%w: %s header out of order", ErrInvalidPayload, h.Name)
		}
	}
	p.ExtraHeaders = lines

	if !bytes.Equal(p.Bytes(), raw) {
		return nil, fmt.Errorf("%w: object is not in canonical form", ErrInvalidPayload)
	}
	return p, nil
}

// splitObject splits a commit object at the blank line ending the headers.
// The returned header block keeps its final newline.
func splitObject(raw []byte) (headers, message []byte, err error) {
	if !bytes.HasPrefix(raw, []byte("tree ")) {
		return nil, nil, fmt.Errorf("%w: object does not start with a tree header", ErrInvalidPayload)
	}
	i := bytes.Index(raw, []byte("\n\n"))
	if i < 0 {
		return nil, nil, fmt.Errorf("%w: missing blank line after headers", ErrInvalidPayload)
	}
	return raw[:i+1], raw[i+2:], nil
}

// headerFields splits a header block into headers, folding continuation
// lines into the preceding value.
func headerFields(block []byte) []Header {
	var out []Header
	for _, line := range strings.Split(strings.TrimSuffix(string(block), "\n"), "\n") {
		if strings.HasPrefix(line, " ") && len(out) > 0 {
			out[len(out)-1].Value += "\n" + line[1:]
			continue
		}
		name, value, _ := strings.Cut(line, " ")
		out = append(out, Header{Name: name, Value: value})
	}
	return out
}

func objectIDWidth(id string) (int, error) {
	if len(id) != SHA1HexSize && len(id) != SHA256HexSize {
		return 0, fmt.Errorf("object id %q: want %d or %d hex digits", id, SHA1HexSize, SHA256HexSize)
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return 0, fmt.Errorf("object id %q: not lowercase hex", id)
		}
	}
	return len(id), nil
}

func isCoreHeader(name string) bool {
	switch name {
	case "tree", "parent", "author", "committer":
		return true
	}
	return false
}
