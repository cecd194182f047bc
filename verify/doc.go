// Package verify checks signatures on git commit objects.
//
// SSH signatures are checked against a Keyring, usually loaded from an
// allowed_signers file:
//
//	ring, err := verify.LoadAllowedSigners("~/.config/git/allowed_signers")
//	res, err := verify.Verify(signedCommit, ring)
//	if err != nil {
//	    return err // not signed, or the signature cannot be decoded
//	}
//	if err := res.Err(); err != nil {
//	    return err // ErrUnknownSigner or ErrInvalidSignature
//	}
//
// Commits signed with OpenPGP are checked against the armored key ring
// added with Keyring.AddArmoredPGP.
package verify
