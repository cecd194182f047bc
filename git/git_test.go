package git

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func mockContext(t *testing.T, runner CommandRunner) *Context {
	t.Helper()
	dir := t.TempDir()
	return &Context{repoPath: dir, workDir: dir, gitBin: "git", runner: runner}
}

func lastArgs(calls []MockCall) string {
	return strings.Join(calls[len(calls)-1].Args, " ")
}

func TestNewContext(t *testing.T) {
	t.Run("repository", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput(".git\n", nil) // git rev-parse --git-dir

		g, err := NewContext(t.TempDir(), WithRunner(runner), WithGitBinary("/usr/bin/git"))
		if err != nil {
			t.Fatalf("NewContext failed: %v", err)
		}
		if g.WorkDir() != g.RepoPath() {
			t.Errorf("WorkDir = %q, want %q", g.WorkDir(), g.RepoPath())
		}
		if runner.Calls[0].Command != "/usr/bin/git" {
			t.Errorf("command = %q, want /usr/bin/git", runner.Calls[0].Command)
		}
	})

	t.Run("not a repository", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutputError("", "fatal: not a git repository", nil)

		_, err := NewContext(t.TempDir(), WithRunner(runner))
		if !errors.Is(err, ErrNotGitRepo) {
			t.Errorf("error = %v, want ErrNotGitRepo", err)
		}
	})
}

func TestContext_WriteObject(t *testing.T) {
	runner := NewSequentialMockRunner()
	runner.AddOutput("1e5a0f0b2d9bb1f5d5a1a4c3c52fb7d1f0f8e111\n", nil)
	g := mockContext(t, runner)

	id, err := WriteCommit(context.Background(), g, []byte("tree x\n\nmsg\n"))
	if err != nil {
		t.Fatalf("WriteCommit failed: %v", err)
	}
	if id != "1e5a0f0b2d9bb1f5d5a1a4c3c52fb7d1f0f8e111" {
		t.Errorf("id = %q", id)
	}
	if got := lastArgs(runner.Calls); got != "hash-object -t commit -w --stdin" {
		t.Errorf("args = %q", got)
	}
	if string(runner.Calls[0].Stdin) != "tree x\n\nmsg\n" {
		t.Errorf("stdin = %q", runner.Calls[0].Stdin)
	}
}

func TestContext_WriteObject_Error(t *testing.T) {
	runner := NewSequentialMockRunner()
	runner.AddOutputError("", "fatal: corrupt commit", nil)
	g := mockContext(t, runner)

	_, err := g.WriteObject(context.Background(), ObjectCommit, []byte("junk"))
	var gitErr *Error
	if !errors.As(err, &gitErr) {
		t.Fatalf("error should be *Error, got %T", err)
	}
	if gitErr.Op != "write object" || gitErr.Output != "fatal: corrupt commit" {
		t.Errorf("Error = %+v", gitErr)
	}
	if !strings.HasPrefix(gitErr.Cmd, "git hash-object") {
		t.Errorf("Cmd = %q", gitErr.Cmd)
	}
}

func TestContext_ReadObject(t *testing.T) {
	raw := "tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904\n\ninit\n"

	t.Run("commit", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput("commit\n", nil) // git cat-file -t
		runner.AddOutput(raw, nil)        // git cat-file commit
		g := mockContext(t, runner)

		typ, data, err := g.ReadObject(context.Background(), "abc")
		if err != nil {
			t.Fatalf("ReadObject failed: %v", err)
		}
		if typ != ObjectCommit {
			t.Errorf("type = %q, want commit", typ)
		}
		if string(data) != raw {
			t.Errorf("data = %q, want %q", data, raw)
		}
		if got := lastArgs(runner.Calls); got != "cat-file commit abc" {
			t.Errorf("args = %q", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput("", &CommandError{Command: "git", Output: "fatal: Not a valid object name abc", ExitCode: 128, Err: errors.New("exit status 128")})
		g := mockContext(t, runner)

		if _, _, err := g.ReadObject(context.Background(), "abc"); !errors.Is(err, ErrObjectNotFound) {
			t.Errorf("error = %v, want ErrObjectNotFound", err)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput("weird\n", nil)
		g := mockContext(t, runner)

		if _, _, err := g.ReadObject(context.Background(), "abc"); !errors.Is(err, ErrUnknownObjectType) {
			t.Errorf("error = %v, want ErrUnknownObjectType", err)
		}
	})
}

func TestReadCommit(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput("abc\n", nil)    // git rev-parse
		runner.AddOutput("commit\n", nil) // git cat-file -t
		runner.AddOutput("tree t\n", nil) // git cat-file commit
		g := mockContext(t, runner)

		data, err := ReadCommit(context.Background(), g, "HEAD")
		if err != nil {
			t.Fatalf("ReadCommit failed: %v", err)
		}
		if string(data) != "tree t\n" {
			t.Errorf("data = %q", data)
		}
	})

	t.Run("not a commit", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput("abc\n", nil)
		runner.AddOutput("tree\n", nil)
		runner.AddOutput("", nil)
		g := mockContext(t, runner)

		if _, err := ReadCommit(context.Background(), g, "abc"); !errors.Is(err, ErrNotCommit) {
			t.Errorf("error = %v, want ErrNotCommit", err)
		}
	})
}

func TestContext_WriteTree(t *testing.T) {
	runner := NewSequentialMockRunner()
	runner.AddOutput("4b825dc642cb6eb9a060e54bf8d69288fbee4904\n", nil)
	g := mockContext(t, runner)

	id, err := g.WriteTree(context.Background())
	if err != nil {
		t.Fatalf("WriteTree failed: %v", err)
	}
	if id != "4b825dc642cb6eb9a060e54bf8d69288fbee4904" {
		t.Errorf("id = %q", id)
	}
}

func TestContext_ResolveRef(t *testing.T) {
	t.Run("resolves", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput("abc123\n", nil)
		g := mockContext(t, runner)

		id, err := g.ResolveRef(context.Background(), "main")
		if err != nil {
			t.Fatalf("ResolveRef failed: %v", err)
		}
		if id != "abc123" {
			t.Errorf("id = %q, want abc123", id)
		}
		if got := lastArgs(runner.Calls); got != "rev-parse --verify --quiet --end-of-options main^{commit}" {
			t.Errorf("args = %q", got)
		}
	})

	t.Run("unborn", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutputError("", "", nil)
		g := mockContext(t, runner)

		if _, err := g.ResolveRef(context.Background(), "HEAD"); !errors.Is(err, ErrRefNotFound) {
			t.Errorf("error = %v, want ErrRefNotFound", err)
		}
	})
}

func TestContext_UpdateRef(t *testing.T) {
	t.Run("with old value and reason", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput("", nil)
		g := mockContext(t, runner)

		if err := g.UpdateRef(context.Background(), "HEAD", "new", "old", "commit: msg"); err != nil {
			t.Fatalf("UpdateRef failed: %v", err)
		}
		if got := lastArgs(runner.Calls); got != "update-ref -m commit: msg HEAD new old" {
			t.Errorf("args = %q", got)
		}
	})

	t.Run("helper omits old value", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput("", nil)
		g := mockContext(t, runner)

		if err := UpdateRef(context.Background(), g, "refs/heads/main", "new", ""); err != nil {
			t.Fatalf("UpdateRef failed: %v", err)
		}
		if got := lastArgs(runner.Calls); got != "update-ref refs/heads/main new" {
			t.Errorf("args = %q", got)
		}
	})

	t.Run("conflict", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutputError("", "fatal: cannot lock ref 'HEAD': is at abc but expected def", nil)
		g := mockContext(t, runner)

		err := g.UpdateRef(context.Background(), "HEAD", "new", "def", "")
		if !errors.Is(err, ErrRefConflict) {
			t.Errorf("error = %v, want ErrRefConflict", err)
		}
	})
}

func TestContext_ConfigValue(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput("~/.ssh/id_ed25519.pub\n", nil)
		g := mockContext(t, runner)

		v, ok, err := g.ConfigValue(context.Background(), "user.signingkey")
		if err != nil || !ok {
			t.Fatalf("ConfigValue = %q, %v, %v", v, ok, err)
		}
		if v != "~/.ssh/id_ed25519.pub" {
			t.Errorf("value = %q", v)
		}
	})

	t.Run("unset", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutputError("", "", nil)
		g := mockContext(t, runner)

		v, ok, err := g.ConfigValue(context.Background(), "user.signingkey")
		if err != nil || ok || v != "" {
			t.Errorf("ConfigValue = %q, %v, %v; want unset", v, ok, err)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		runner := NewSequentialMockRunner()
		runner.AddOutput("", &CommandError{Command: "git", Output: "error: key does not contain a section", ExitCode: 2, Err: errors.New("exit status 2")})
		g := mockContext(t, runner)

		if _, _, err := g.ConfigValue(context.Background(), "nosection"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("svn", t.TempDir()); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("error = %v, want ErrUnknownBackend", err)
	}
}

func TestParseObjectType(t *testing.T) {
	for _, s := range []string{"commit", "tree", "blob", "tag", "commit\n"} {
		if _, err := ParseObjectType(s); err != nil {
			t.Errorf("ParseObjectType(%q) error = %v", s, err)
		}
	}
	if _, err := ParseObjectType("ofs-delta"); !errors.Is(err, ErrUnknownObjectType) {
		t.Errorf("error = %v, want ErrUnknownObjectType", err)
	}
}

func TestContextHelpers(t *testing.T) {
	g := mockContext(t, NewMockRunner())
	ctx := ContextWithBackend(context.Background(), g)

	if BackendFromContext(ctx) != Backend(g) {
		t.Error("BackendFromContext did not return the stored backend")
	}
	if BackendFromContext(context.Background()) != nil {
		t.Error("BackendFromContext should return nil for an empty context")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustBackendFromContext should panic without a backend")
		}
	}()
	MustBackendFromContext(context.Background())
}
