package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/sshcommit/commit"
	"github.com/randalmurphal/sshcommit/testutil"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// runCLI runs the command line with buffered streams.
func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(testutil.TestContext(t), append([]string{"sshcommit"}, args...),
		strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// isolate points HOME and the git global config away from the user's.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("SSH_AUTH_SOCK", "")
	for _, v := range []string{"GIT_AUTHOR_NAME", "GIT_AUTHOR_EMAIL", "GIT_AUTHOR_DATE",
		"GIT_COMMITTER_NAME", "GIT_COMMITTER_EMAIL", "GIT_COMMITTER_DATE"} {
		t.Setenv(v, "")
	}
}

func TestRun_CommitAndVerify(t *testing.T) {
	testutil.RequireGit(t)
	isolate(t)

	for _, backend := range []string{"cli", "gogit"} {
		t.Run(backend, func(t *testing.T) {
			repo := testutil.SetupEmptyRepo(t)
			keyDir := t.TempDir()
			keyPath, pub := testutil.WriteKeyPair(t, keyDir, "id_ed25519", testutil.KeyEd25519, "")
			allowed := testutil.WriteAllowedSigners(t, keyDir, "test@test.com", pub)

			testutil.StageFile(t, repo, "README.md", "# signed\n")
			res := runCLI(t, "", "-C", repo, "--backend", backend, "-S", keyPath, "commit", "-m", "first commit")
			if res.code != 0 {
				t.Fatalf("commit exit %d: %s", res.code, res.stderr)
			}
			if !strings.Contains(res.stdout, "(root-commit)") || !strings.Contains(res.stdout, "] first commit") {
				t.Errorf("commit output = %q", res.stdout)
			}

			head := testutil.GetHeadSHA(t, repo)
			if !strings.Contains(res.stdout, head[:7]) {
				t.Errorf("commit output %q does not name HEAD %s", res.stdout, head)
			}
			raw := testutil.GitOutput(t, repo, "cat-file", "commit", "HEAD")
			if !strings.Contains(raw, "gpgsig -----BEGIN SSH SIGNATURE-----") {
				t.Errorf("HEAD is not signed:\n%s", raw)
			}

			res = runCLI(t, "", "-C", repo, "--backend", backend, "verify", "--allowed-signers", allowed)
			if res.code != 0 {
				t.Fatalf("verify exit %d: %s", res.code, res.stderr)
			}
			if !strings.Contains(res.stderr, `Good "git" signature for test@test.com with ED25519 key SHA256:`) {
				t.Errorf("verify output = %q", res.stderr)
			}

			// A second commit gets HEAD as its parent.
			testutil.StageFile(t, repo, "b.txt", "b\n")
			res = runCLI(t, "", "-C", repo, "--backend", backend, "-S", keyPath, "commit", "-m", "second")
			if res.code != 0 {
				t.Fatalf("second commit exit %d: %s", res.code, res.stderr)
			}
			if parent := testutil.GitOutput(t, repo, "rev-parse", "HEAD^"); parent != head {
				t.Errorf("HEAD^ = %s, want %s", parent, head)
			}
		})
	}
}

func TestRun_VerifyUntrusted(t *testing.T) {
	testutil.RequireGit(t)
	isolate(t)

	repo := testutil.SetupEmptyRepo(t)
	keyDir := t.TempDir()
	keyPath, _ := testutil.WriteKeyPair(t, keyDir, "id_ed25519", testutil.KeyEd25519, "")
	otherPath, _ := testutil.WriteKeyPair(t, keyDir, "other", testutil.KeyECDSA, "")

	testutil.StageFile(t, repo, "README.md", "x\n")
	if res := runCLI(t, "", "-C", repo, "-S", keyPath, "commit", "-m", "init"); res.code != 0 {
		t.Fatalf("commit exit %d: %s", res.code, res.stderr)
	}

	res := runCLI(t, "", "-C", repo, "verify", "--key", otherPath+".pub")
	if res.code != 1 {
		t.Fatalf("verify exit %d, want 1: %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stderr, "untrusted ED25519 key") {
		t.Errorf("verify output = %q", res.stderr)
	}
}

func TestRun_VerifyUnsigned(t *testing.T) {
	testutil.RequireGit(t)
	isolate(t)

	repo := testutil.SetupTestRepo(t)
	keyDir := t.TempDir()
	_, pub := testutil.WriteKeyPair(t, keyDir, "id_ed25519", testutil.KeyEd25519, "")
	allowed := testutil.WriteAllowedSigners(t, keyDir, "test@test.com", pub)

	res := runCLI(t, "", "-C", repo, "verify", "--allowed-signers", allowed)
	if res.code != 1 {
		t.Fatalf("verify exit %d, want 1: %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stderr, "is not signed") {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestRun_SignFilter(t *testing.T) {
	isolate(t)

	keyDir := t.TempDir()
	keyPath, _ := testutil.WriteKeyPair(t, keyDir, "id_ed25519", testutil.KeyEd25519, "")
	id := commit.Identity{Name: "Test User", Email: "test@test.com", When: time.Unix(1700000000, 0).UTC()}
	unsigned := string(commit.Build("4b825dc642cb6eb9a060e54bf8d69288fbee4904", nil, id, id, "init\n"))

	// Outside a repository sign works as a pure filter.
	outside := t.TempDir()
	res := runCLI(t, unsigned, "-C", outside, "-S", keyPath, "sign")
	if res.code != 0 {
		t.Fatalf("sign exit %d: %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "gpgsig -----BEGIN SSH SIGNATURE-----") {
		t.Fatalf("sign output:\n%s", res.stdout)
	}

	verified := runCLI(t, res.stdout, "-C", outside, "verify", "--key", keyPath+".pub", "-")
	if verified.code != 0 {
		t.Fatalf("verify exit %d: %s", verified.code, verified.stderr)
	}

	payload := runCLI(t, res.stdout, "-C", outside, "payload", "-")
	if payload.code != 0 {
		t.Fatalf("payload exit %d: %s", payload.code, payload.stderr)
	}
	if payload.stdout != unsigned {
		t.Errorf("payload = %q, want %q", payload.stdout, unsigned)
	}

	write := runCLI(t, unsigned, "-C", outside, "-S", keyPath, "sign", "--write")
	if write.code != 128 || !strings.Contains(write.stderr, "git repository") {
		t.Errorf("sign --write outside repo: exit %d, stderr %q", write.code, write.stderr)
	}
}

func TestRun_SignWriteAndPayload(t *testing.T) {
	testutil.RequireGit(t)
	isolate(t)

	repo := testutil.SetupTestRepo(t)
	keyDir := t.TempDir()
	keyPath, _ := testutil.WriteKeyPair(t, keyDir, "id_ed25519", testutil.KeyEd25519, "")
	unsigned := testutil.GitOutput(t, repo, "cat-file", "commit", "HEAD") + "\n"

	res := runCLI(t, unsigned, "-C", repo, "-S", keyPath, "sign", "--write")
	if res.code != 0 {
		t.Fatalf("sign exit %d: %s", res.code, res.stderr)
	}
	id := strings.TrimSpace(res.stdout)
	if got := testutil.GitOutput(t, repo, "cat-file", "-t", id); got != "commit" {
		t.Fatalf("object %s type = %q", id, got)
	}

	payload := runCLI(t, "", "-C", repo, "payload", id)
	if payload.code != 0 {
		t.Fatalf("payload exit %d: %s", payload.code, payload.stderr)
	}
	if payload.stdout != unsigned {
		t.Errorf("payload = %q, want %q", payload.stdout, unsigned)
	}

	sig := runCLI(t, "", "-C", repo, "payload", "--signature", id)
	if !strings.HasPrefix(sig.stdout, "-----BEGIN SSH SIGNATURE-----") {
		t.Errorf("signature = %q", sig.stdout)
	}
}

func TestRun_ConfigSetGet(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if res := runCLI(t, "", "-C", dir, "--config", cfgPath, "config", "set", "namespace", "file"); res.code != 0 {
		t.Fatalf("config set exit %d: %s", res.code, res.stderr)
	}

	res := runCLI(t, "", "-C", dir, "--config", cfgPath, "config", "get", "namespace")
	if res.code != 0 || strings.TrimSpace(res.stdout) != "file" {
		t.Errorf("config get = %q (exit %d, %s)", res.stdout, res.code, res.stderr)
	}

	res = runCLI(t, "", "-C", dir, "--config", cfgPath, "config", "list")
	if !strings.Contains(res.stdout, "(global)") || !strings.Contains(res.stdout, "(default)") {
		t.Errorf("config list = %q", res.stdout)
	}

	if res := runCLI(t, "", "-C", dir, "--config", cfgPath, "config", "unset", "namespace"); res.code != 0 {
		t.Fatalf("config unset exit %d: %s", res.code, res.stderr)
	}
	res = runCLI(t, "", "-C", dir, "--config", cfgPath, "config", "get", "namespace")
	if strings.TrimSpace(res.stdout) != "git" {
		t.Errorf("namespace after unset = %q", res.stdout)
	}

	if res := runCLI(t, "", "-C", dir, "--config", cfgPath, "config", "set", "backend", "libgit2"); res.code != 128 {
		t.Errorf("invalid set exit %d, want 128", res.code)
	}
	if res := runCLI(t, "", "-C", dir, "config", "get", "colour"); res.code != 128 {
		t.Errorf("unknown key exit %d, want 128", res.code)
	}
}

func TestRun_Keys(t *testing.T) {
	isolate(t)

	sshDir := t.TempDir()
	testutil.WriteKeyPair(t, sshDir, "id_ed25519", testutil.KeyEd25519, "")
	testutil.WriteKeyPair(t, sshDir, "id_ecdsa", testutil.KeyECDSA, "hunter2")

	res := runCLI(t, "", "-C", t.TempDir(), "--ssh-dir", sshDir, "keys")
	if res.code != 0 {
		t.Fatalf("keys exit %d: %s", res.code, res.stderr)
	}
	for _, want := range []string{"ssh-ed25519", "ecdsa-sha2-nistp256", "(encrypted)", "SHA256:"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("keys output missing %q:\n%s", want, res.stdout)
		}
	}

	if res := runCLI(t, "", "keys", "--agent"); res.code != 128 {
		t.Errorf("keys --agent without agent exit %d, want 128", res.code)
	}
}

func TestRun_Errors(t *testing.T) {
	testutil.RequireGit(t)
	isolate(t)

	repo := testutil.SetupEmptyRepo(t)
	keyDir := t.TempDir()
	keyPath, _ := testutil.WriteKeyPair(t, keyDir, "id_ed25519", testutil.KeyEd25519, "")

	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{
			name:   "empty message",
			args:   []string{"-C", repo, "-S", keyPath, "commit", "-m", "  "},
			stderr: "empty commit message",
		},
		{
			name:   "not a repository",
			args:   []string{"-C", t.TempDir(), "-S", keyPath, "commit", "-m", "x"},
			stderr: "git repository",
		},
		{
			name:   "no default key",
			args:   []string{"-C", repo, "--ssh-dir", t.TempDir(), "commit", "-m", "x"},
			stderr: "No signing key",
		},
		{
			name:   "no trusted keys",
			args:   []string{"-C", repo, "verify"},
			stderr: "allowed_signers",
		},
		{
			name:   "bad author",
			args:   []string{"-C", repo, "-S", keyPath, "commit", "-m", "x", "--author", "nobody"},
			stderr: "Name <email>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, "", tt.args...)
			if res.code != 128 {
				t.Errorf("exit %d, want 128 (stderr %q)", res.code, res.stderr)
			}
			if !strings.Contains(res.stderr, tt.stderr) {
				t.Errorf("stderr = %q, want %q", res.stderr, tt.stderr)
			}
		})
	}
}

func TestParseAuthor(t *testing.T) {
	tests := []struct {
		in        string
		name      string
		email     string
		wantError bool
	}{
		{in: "Jane Doe <jane@example.com>", name: "Jane Doe", email: "jane@example.com"},
		{in: "<bot@example.com>", email: "bot@example.com"},
		{in: "Jane Doe", wantError: true},
		{in: "Jane <jane@example.com> extra", wantError: true},
	}
	for _, tt := range tests {
		name, email, err := parseAuthor(tt.in)
		if tt.wantError {
			if err == nil {
				t.Errorf("parseAuthor(%q) succeeded", tt.in)
			}
			continue
		}
		if err != nil || name != tt.name || email != tt.email {
			t.Errorf("parseAuthor(%q) = %q, %q, %v", tt.in, name, email, err)
		}
	}
}

func TestDisplayKeyType(t *testing.T) {
	tests := map[string]string{
		"ssh-ed25519":                        "ED25519",
		"ssh-rsa":                            "RSA",
		"ecdsa-sha2-nistp256":                "ECDSA",
		"sk-ssh-ed25519@openssh.com":         "ED25519-SK",
		"sk-ecdsa-sha2-nistp256@openssh.com": "ECDSA",
		"":                                   "unknown",
	}
	for in, want := range tests {
		if got := displayKeyType(in); got != want {
			t.Errorf("displayKeyType(%q) = %q, want %q", in, got, want)
		}
	}
}
