package verify

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	gossh "golang.org/x/crypto/ssh"

	sshkeys "github.com/randalmurphal/sshcommit/auth/ssh"
)

// Entry is a trusted SSH key, as read from one allowed_signers line.
type Entry struct {
	// Principals are the identities (usually email addresses) the key may
	// sign for. Empty for keys added without a principal.
	Principals []string

	Key gossh.PublicKey

	// Namespaces restricts the key to these signature namespaces. Empty
	// means any namespace.
	Namespaces []string

	// ValidAfter and ValidBefore bound the signature time when non-zero.
	ValidAfter  time.Time
	ValidBefore time.Time
}

// AllowsNamespace reports whether the entry may sign in namespace.
func (e *Entry) AllowsNamespace(namespace string) bool {
	return len(e.Namespaces) == 0 || slices.Contains(e.Namespaces, namespace)
}

// ValidAt reports whether t falls inside the entry's validity window.
func (e *Entry) ValidAt(t time.Time) bool {
	if !e.ValidAfter.IsZero() && t.Before(e.ValidAfter) {
		return false
	}
	if !e.ValidBefore.IsZero() && !t.Before(e.ValidBefore) {
		return false
	}
	return true
}

// Keyring is the set of trusted signer keys. The zero value trusts nobody.
type Keyring struct {
	entries []*Entry
	byFP    map[string][]*Entry
	pgp     openpgp.EntityList
}

// NewKeyring returns a keyring trusting keys for every namespace.
func NewKeyring(keys ...gossh.PublicKey) *Keyring {
	k := &Keyring{}
	for _, key := range keys {
		k.Add(key)
	}
	return k
}

// Add trusts key for every namespace under the given principals.
func (k *Keyring) Add(key gossh.PublicKey, principals ...string) {
	k.AddEntry(&Entry{Principals: principals, Key: key})
}

// AddEntry adds a trusted key entry.
func (k *Keyring) AddEntry(e *Entry) {
	if k.byFP == nil {
		k.byFP = make(map[string][]*Entry)
	}
	fp := sshkeys.Fingerprint(e.Key)
	k.entries = append(k.entries, e)
	k.byFP[fp] = append(k.byFP[fp], e)
}

// AddArmoredPGP adds OpenPGP public keys from an armored key ring.
func (k *Keyring) AddArmoredPGP(r io.Reader) error {
	list, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		return fmt.Errorf("read armored key ring: %w", err)
	}
	k.pgp = append(k.pgp, list...)
	return nil
}

// Len returns the number of trusted SSH and OpenPGP keys.
func (k *Keyring) Len() int {
	if k == nil {
		return 0
	}
	return len(k.entries) + len(k.pgp)
}

// Entries returns the trusted SSH key entries in insertion order.
func (k *Keyring) Entries() []*Entry {
	if k == nil {
		return nil
	}
	return slices.Clone(k.entries)
}

// lookup returns the entries whose key matches pub. An entry restricted to
// other namespaces is reported through excluded.
func (k *Keyring) lookup(pub gossh.PublicKey, namespace string) (allowed []*Entry, excluded bool) {
	if k == nil {
		return nil, false
	}
	blob := pub.Marshal()
	for _, e := range k.byFP[sshkeys.Fingerprint(pub)] {
		if !bytes.Equal(e.Key.Marshal(), blob) {
			continue
		}
		if !e.AllowsNamespace(namespace) {
			excluded = true
			continue
		}
		allowed = append(allowed, e)
	}
	return allowed, excluded
}
