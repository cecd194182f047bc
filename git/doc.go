// Package git stores commit objects and moves references.
//
// Core types:
//   - Backend: object and ref access shared by both implementations
//   - Context: Backend that runs git plumbing commands (hash-object, cat-file,
//     write-tree, rev-parse, update-ref, config)
//   - GoGit: pure-Go Backend on go-git's object store
//   - CommandRunner: Interface for executing commands (with mocks for testing)
//
// Example usage:
//
//	b, err := git.Open(git.KindCLI, "/path/to/repo")
//	id, err := git.WriteCommit(ctx, b, signed)
//	err = git.UpdateRef(ctx, b, "HEAD", id, "commit: add feature")
package git
