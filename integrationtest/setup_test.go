package integrationtest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/sshcommit"
	"github.com/randalmurphal/sshcommit/git"
	"github.com/randalmurphal/sshcommit/testutil"
)

// fixture is a repository with a signing key and a file trusting it.
type fixture struct {
	repo    string
	keyPath string
	allowed string
}

// setupFixture creates a repository with one staged file and an ed25519
// key trusted for test@test.com.
func setupFixture(t *testing.T, alg string) *fixture {
	t.Helper()
	testutil.RequireGit(t)

	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	repo := testutil.SetupEmptyRepo(t)
	testutil.StageFile(t, repo, "README.md", "# Test Repo\n")

	keyDir := t.TempDir()
	keyPath, pub := testutil.WriteKeyPair(t, keyDir, "id_"+alg, alg, "")
	allowed := testutil.WriteAllowedSigners(t, keyDir, "test@test.com", pub)

	return &fixture{repo: repo, keyPath: keyPath, allowed: allowed}
}

// signer opens the repository with the given backend and returns a
// Signer using the fixture key.
func (f *fixture) signer(t *testing.T, kind git.Kind) *sshcommit.Signer {
	t.Helper()
	b, err := git.Open(kind, f.repo)
	require.NoError(t, err)
	return sshcommit.New(b, sshcommit.WithKey(f.keyPath))
}

// commit creates a signed commit on HEAD and returns its id.
func (f *fixture) commit(t *testing.T, kind git.Kind, message string) string {
	t.Helper()
	res, err := f.signer(t, kind).Commit(context.Background(), sshcommit.CommitRequest{Message: message})
	require.NoError(t, err)
	return res.ID
}

// gitVerify runs git verify-commit trusting the fixture's allowed
// signers file and returns its combined output.
func (f *fixture) gitVerify(t *testing.T, rev string) (string, error) {
	t.Helper()
	cmd := exec.Command("git",
		"-c", "gpg.format=ssh",
		"-c", "gpg.ssh.allowedSignersFile="+f.allowed,
		"verify-commit", "-v", rev)
	cmd.Dir = f.repo
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// requireSSHSigningGit skips unless ssh-keygen is installed and git
// supports SSH signatures (2.34+).
func requireSSHSigningGit(t *testing.T, dir string) {
	t.Helper()
	if _, err := exec.LookPath("ssh-keygen"); err != nil {
		t.Skip("ssh-keygen not installed")
	}

	fields := strings.Fields(testutil.GitOutput(t, dir, "version"))
	require.GreaterOrEqual(t, len(fields), 3)
	parts := strings.SplitN(fields[2], ".", 3)
	require.GreaterOrEqual(t, len(parts), 2)
	major, _ := strconv.Atoi(parts[0])
	minor, _ := strconv.Atoi(parts[1])
	if major < 2 || (major == 2 && minor < 34) {
		t.Skipf("git %s lacks SSH signature support", fields[2])
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
