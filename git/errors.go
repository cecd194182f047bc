package git

import "errors"

// Git operation errors.
var (
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrObjectNotFound indicates the object id is not in the object store.
	ErrObjectNotFound = errors.New("object not found")

	// ErrNotCommit indicates a revision names an object that is not a commit.
	ErrNotCommit = errors.New("not a commit")

	// ErrUnknownObjectType indicates an unrecognized object type name.
	ErrUnknownObjectType = errors.New("unknown object type")

	// ErrRefNotFound indicates the ref or revision does not resolve.
	ErrRefNotFound = errors.New("ref not found")

	// ErrRefConflict indicates the ref did not hold the expected old value.
	ErrRefConflict = errors.New("ref changed concurrently")

	// ErrUnknownBackend indicates an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown git backend")
)

// Error wraps a git command error with context.
type Error struct {
	Op     string // Operation that failed (e.g., "write object", "update ref")
	Cmd    string // Git command that was run
	Output string // stderr output
	Err    error  // Underlying error
}

func (e *Error) Error() string {
	if e.Output != "" {
		return e.Op + ": " + e.Output
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
