package verify

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gossh "golang.org/x/crypto/ssh"
)

func authorizedKey(t *testing.T) (string, gossh.PublicKey) {
	t.Helper()
	pub := newSigner(t).PublicKey()
	return strings.TrimSpace(string(gossh.MarshalAuthorizedKey(pub))), pub
}

func TestParseAllowedSigners(t *testing.T) {
	k1, pub1 := authorizedKey(t)
	k2, _ := authorizedKey(t)
	k3, _ := authorizedKey(t)
	k4, _ := authorizedKey(t)

	input := strings.Join([]string{
		"# team keys",
		"",
		"alice@example.com " + k1 + " alice laptop",
		`"bob@example.com,bob@work.example" namespaces="git,file" ` + k2,
		`carol@example.com valid-after="20240101",valid-before="20250101Z" ` + k3,
		"*@example.com cert-authority " + k4,
	}, "\n")

	entries, err := ParseAllowedSigners(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAllowedSigners() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3 (cert-authority skipped)", len(entries))
	}

	alice := entries[0]
	if len(alice.Principals) != 1 || alice.Principals[0] != "alice@example.com" {
		t.Errorf("alice principals = %v", alice.Principals)
	}
	if string(alice.Key.Marshal()) != string(pub1.Marshal()) {
		t.Error("alice key mismatch")
	}
	if !alice.AllowsNamespace("anything") {
		t.Error("entry without namespaces should allow any namespace")
	}

	bob := entries[1]
	if strings.Join(bob.Principals, ",") != "bob@example.com,bob@work.example" {
		t.Errorf("bob principals = %v", bob.Principals)
	}
	if !bob.AllowsNamespace("git") || !bob.AllowsNamespace("file") || bob.AllowsNamespace("email") {
		t.Errorf("bob namespaces = %v", bob.Namespaces)
	}

	carol := entries[2]
	if got := carol.ValidBefore; !got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("carol ValidBefore = %v", got)
	}
	if carol.ValidAfter.IsZero() {
		t.Error("carol ValidAfter not set")
	}
	if carol.ValidAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("carol should not be valid after ValidBefore")
	}
}

func TestParseAllowedSigners_Errors(t *testing.T) {
	k, _ := authorizedKey(t)

	tests := []struct {
		name string
		line string
	}{
		{"principal only", "alice@example.com"},
		{"bad key", "alice@example.com ssh-ed25519 AAAA"},
		{"unterminated quote", `"alice@example.com ` + k},
		{"empty principals", `"" ` + k},
		{"bad time", `alice@example.com valid-after="2024" ` + k},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAllowedSigners(strings.NewReader("# header\n" + tt.line + "\n"))
			if !errors.Is(err, ErrInvalidAllowedSigners) {
				t.Fatalf("error = %v, want ErrInvalidAllowedSigners", err)
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Errorf("error %q does not name the line", err)
			}
		})
	}
}

func TestParseSignerTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"20240102Z", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"202401021530Z", time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)},
		{"20240102153045Z", time.Date(2024, 1, 2, 15, 30, 45, 0, time.UTC)},
		{"20240102", time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseSignerTime(tt.in)
		if err != nil {
			t.Errorf("parseSignerTime(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseSignerTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadAllowedSigners(t *testing.T) {
	signer := newSigner(t)
	line := "a@example.com " + strings.TrimSpace(string(gossh.MarshalAuthorizedKey(signer.PublicKey()))) + "\n"
	path := filepath.Join(t.TempDir(), "allowed_signers")
	if err := os.WriteFile(path, []byte(line), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	ring, err := LoadAllowedSigners(path)
	if err != nil {
		t.Fatalf("LoadAllowedSigners() error = %v", err)
	}
	if ring.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", ring.Len())
	}

	res, err := Verify(signCommit(t, signer, testPayload(t), "git"), ring)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if res.Status != StatusValid || res.Principal != "a@example.com" {
		t.Errorf("Status = %v, Principal = %q", res.Status, res.Principal)
	}

	if _, err := LoadAllowedSigners(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("LoadAllowedSigners() expected error for missing file")
	}
}
