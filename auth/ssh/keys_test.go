package ssh

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gossh "golang.org/x/crypto/ssh"

	"github.com/randalmurphal/sshcommit/testutil"
)

// writeKeyPair writes an ed25519 key pair to dir/name and dir/name.pub. An
// empty passphrase writes an unencrypted private key.
func writeKeyPair(t *testing.T, dir, name, passphrase string) gossh.PublicKey {
	t.Helper()
	_, pub := testutil.WriteKeyPair(t, dir, name, testutil.KeyEd25519, passphrase)
	return pub
}

func authorizedLine(t *testing.T) string {
	t.Helper()
	return testutil.AuthorizedKey(testutil.NewSigner(t).PublicKey())
}

func TestParsePublicKey(t *testing.T) {
	line := authorizedLine(t)

	t.Run("valid ed25519 key", func(t *testing.T) {
		info, err := ParsePublicKey("/test/path", line+" test@example.com")
		if err != nil {
			t.Fatalf("ParsePublicKey() error = %v", err)
		}
		if info.KeyType != "ssh-ed25519" {
			t.Errorf("KeyType = %q, want %q", info.KeyType, "ssh-ed25519")
		}
		if info.Comment != "test@example.com" {
			t.Errorf("Comment = %q, want %q", info.Comment, "test@example.com")
		}
		if !strings.HasPrefix(info.Fingerprint, "SHA256:") {
			t.Errorf("Fingerprint = %q, want SHA256: prefix", info.Fingerprint)
		}
		if info.Path != "/test/path" {
			t.Errorf("Path = %q, want %q", info.Path, "/test/path")
		}
	})

	t.Run("key without comment", func(t *testing.T) {
		info, err := ParsePublicKey("/test", line)
		if err != nil {
			t.Fatalf("ParsePublicKey() error = %v", err)
		}
		if info.Comment != "" {
			t.Errorf("Comment = %q, want empty", info.Comment)
		}
		if info.AuthorizedKey() != line {
			t.Errorf("AuthorizedKey() = %q, want %q", info.AuthorizedKey(), line)
		}
	})

	t.Run("invalid format - too few parts", func(t *testing.T) {
		_, err := ParsePublicKey("/test", "ssh-ed25519")
		if !errors.Is(err, ErrInvalidKeyFormat) {
			t.Errorf("error = %v, want ErrInvalidKeyFormat", err)
		}
	})

	t.Run("invalid format - bad base64", func(t *testing.T) {
		_, err := ParsePublicKey("/test", "ssh-ed25519 not-valid-base64")
		if !errors.Is(err, ErrInvalidKeyFormat) {
			t.Errorf("error = %v, want ErrInvalidKeyFormat", err)
		}
	})

	t.Run("trims whitespace", func(t *testing.T) {
		info, err := ParsePublicKey("/test", "  "+line+"  \n")
		if err != nil {
			t.Fatalf("ParsePublicKey() error = %v", err)
		}
		if info.KeyType != "ssh-ed25519" {
			t.Errorf("KeyType = %q, want %q", info.KeyType, "ssh-ed25519")
		}
	})
}

func TestComputeFingerprint(t *testing.T) {
	blob := []byte("test-key-blob")
	fp := ComputeFingerprint(blob)

	if !strings.HasPrefix(fp, "SHA256:") {
		t.Errorf("fingerprint should start with 'SHA256:', got %q", fp)
	}
	if fp != ComputeFingerprint(blob) {
		t.Error("fingerprint should be deterministic")
	}
	if fp == ComputeFingerprint([]byte("different-blob")) {
		t.Error("different inputs should give different fingerprints")
	}
}

func TestFingerprint_MatchesLibrary(t *testing.T) {
	info, err := ParsePublicKey("/test", authorizedLine(t))
	if err != nil {
		t.Fatalf("ParsePublicKey() error = %v", err)
	}
	if got, want := Fingerprint(info.Key), gossh.FingerprintSHA256(info.Key); got != want {
		t.Errorf("Fingerprint() = %q, want %q", got, want)
	}
}

func TestConfig_Defaults(t *testing.T) {
	preferredKeys := Config{}.preferredKeys()
	want := []string{"id_ed25519", "id_ecdsa", "id_rsa"}
	if strings.Join(preferredKeys, ",") != strings.Join(want, ",") {
		t.Errorf("preferredKeys = %v, want %v", preferredKeys, want)
	}
}

func TestConfig_CustomValues(t *testing.T) {
	cfg := Config{
		SSHDir:        "/custom/ssh",
		PreferredKeys: []string{"my_key"},
	}

	sshDir, err := cfg.sshDir()
	if err != nil {
		t.Fatalf("sshDir() error = %v", err)
	}
	if sshDir != "/custom/ssh" {
		t.Errorf("sshDir = %q, want %q", sshDir, "/custom/ssh")
	}

	preferredKeys := cfg.preferredKeys()
	if len(preferredKeys) != 1 || preferredKeys[0] != "my_key" {
		t.Errorf("preferredKeys = %v, want [my_key]", preferredKeys)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/.ssh/id_ed25519", filepath.Join(home, ".ssh/id_ed25519")},
		{"~", home},
		{"/abs/key", "/abs/key"},
		{"relative/key", "relative/key"},
		{"~user/key", "~user/key"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			if err != nil {
				t.Fatalf("ExpandPath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestReadPublicKey(t *testing.T) {
	t.Run("public key only", func(t *testing.T) {
		keyPath := filepath.Join(t.TempDir(), "test.pub")
		if err := os.WriteFile(keyPath, []byte(authorizedLine(t)), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		info, err := ReadPublicKey(keyPath)
		if err != nil {
			t.Fatalf("ReadPublicKey() error = %v", err)
		}
		if info.Path != keyPath {
			t.Errorf("Path = %q, want %q", info.Path, keyPath)
		}
		if info.PrivateKeyPath != "" {
			t.Errorf("PrivateKeyPath = %q, want empty", info.PrivateKeyPath)
		}
	})

	t.Run("with unencrypted private key", func(t *testing.T) {
		dir := t.TempDir()
		writeKeyPair(t, dir, "id_ed25519", "")

		info, err := ReadPublicKey(filepath.Join(dir, "id_ed25519.pub"))
		if err != nil {
			t.Fatalf("ReadPublicKey() error = %v", err)
		}
		if info.PrivateKeyPath != filepath.Join(dir, "id_ed25519") {
			t.Errorf("PrivateKeyPath = %q", info.PrivateKeyPath)
		}
		if info.Encrypted {
			t.Error("Encrypted = true, want false")
		}
	})

	t.Run("with encrypted private key", func(t *testing.T) {
		dir := t.TempDir()
		writeKeyPair(t, dir, "id_ed25519", "secret")

		info, err := ReadPublicKey(filepath.Join(dir, "id_ed25519.pub"))
		if err != nil {
			t.Fatalf("ReadPublicKey() error = %v", err)
		}
		if !info.Encrypted {
			t.Error("Encrypted = false, want true")
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := ReadPublicKey("/nonexistent/path/key.pub"); err == nil {
			t.Error("expected error for nonexistent file")
		}
	})
}

func TestFindDefaultKeyWithConfig(t *testing.T) {
	t.Run("prefers ed25519", func(t *testing.T) {
		dir := t.TempDir()
		writeKeyPair(t, dir, "id_rsa", "")
		writeKeyPair(t, dir, "id_ed25519", "")

		info, err := FindDefaultKeyWithConfig(Config{SSHDir: dir})
		if err != nil {
			t.Fatalf("FindDefaultKeyWithConfig() error = %v", err)
		}
		if want := filepath.Join(dir, "id_ed25519.pub"); info.Path != want {
			t.Errorf("Path = %q, want %q", info.Path, want)
		}
	})

	t.Run("no keys", func(t *testing.T) {
		_, err := FindDefaultKeyWithConfig(Config{SSHDir: t.TempDir()})
		if !errors.Is(err, ErrNoSSHKeys) {
			t.Errorf("error = %v, want ErrNoSSHKeys", err)
		}
	})
}

func TestListLocalKeysWithConfig(t *testing.T) {
	t.Run("orders preferred keys first", func(t *testing.T) {
		dir := t.TempDir()
		writeKeyPair(t, dir, "aaa_work", "")
		writeKeyPair(t, dir, "id_ecdsa", "")
		writeKeyPair(t, dir, "id_ed25519", "")
		if err := os.WriteFile(filepath.Join(dir, "broken.pub"), []byte("garbage"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "config"), []byte("Host *\n"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		keys, err := ListLocalKeysWithConfig(Config{SSHDir: dir})
		if err != nil {
			t.Fatalf("ListLocalKeysWithConfig() error = %v", err)
		}

		var names []string
		for _, k := range keys {
			names = append(names, filepath.Base(k.Path))
		}
		want := "id_ed25519.pub,id_ecdsa.pub,aaa_work.pub"
		if got := strings.Join(names, ","); got != want {
			t.Errorf("keys = %s, want %s", got, want)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := ListLocalKeysWithConfig(Config{SSHDir: t.TempDir()})
		if !errors.Is(err, ErrNoSSHKeys) {
			t.Errorf("error = %v, want ErrNoSSHKeys", err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := ListLocalKeysWithConfig(Config{SSHDir: filepath.Join(t.TempDir(), "nope")})
		if !errors.Is(err, ErrNoSSHKeys) {
			t.Errorf("error = %v, want ErrNoSSHKeys", err)
		}
	})
}
