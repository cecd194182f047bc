// Package sshcommit signs git commits with SSH keys.
//
// A Signer runs the whole pipeline for one commit: load the key, build and
// validate the payload, sign it, embed the signature as a gpgsig header,
// write the object and move the branch. The key is destroyed after every
// signing operation.
//
// The package is organized into subpackages by concern:
//
//   - auth/ssh: key loading, decryption, ssh-agent and fingerprints
//   - sshsig: SSHSIG signatures and armor
//   - commit: commit payloads, gpgsig embed and extract
//   - verify: signature verification, keyrings and allowed_signers
//   - git: object backends (git executable and go-git)
//   - config: layered settings
//   - prompt: terminal passphrase entry
//   - errors: CLI error rendering
//   - testutil: test fixtures
//
// # Quick Start
//
//	backend, _ := git.Open(git.KindCLI, ".")
//	signer := sshcommit.New(backend,
//	    sshcommit.WithKey("~/.ssh/id_ed25519"),
//	    sshcommit.WithPassphrase(prompt.NewTerminal().Passphrase("~/.ssh/id_ed25519")),
//	)
//
//	res, err := signer.Commit(ctx, sshcommit.CommitRequest{Message: "Add feature\n"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.ID)
//
// Verification reads the commit back through the same backend:
//
//	keyring, _ := verify.LoadAllowedSigners("/etc/ssh/allowed_signers")
//	result, err := sshcommit.VerifyRevision(ctx, backend, "HEAD", verify.New(keyring))
package sshcommit
