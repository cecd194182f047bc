// Package commit builds, parses and signs git commit objects at the byte
// level.
//
// Build produces the exact bytes a signature covers: the commit object
// without any signature header. Embed splices an armored signature into
// those bytes as a gpgsig header, and Extract reverses it:
//
//	payload := commit.Build(tree, parents, author, committer, "init\n")
//	signed, err := commit.Embed(payload, sig.Armor())
//
//	unsigned, armored, err := commit.Extract(signed) // unsigned == payload
package commit
