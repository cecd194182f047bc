// Package sshsig implements OpenSSH detached signatures (PROTOCOL.sshsig),
// the format written by ssh-keygen -Y sign and accepted by git when
// gpg.format is ssh.
//
// Sign a buffer and armor the result:
//
//	sig, err := sshsig.Sign(key, payload, sshsig.NamespaceGit, sshsig.SHA512)
//	if err != nil {
//	    return err
//	}
//	armored := sig.Armor()
//
// Decode and check it:
//
//	sig, err := sshsig.Unarmor(armored)
//	if err != nil {
//	    return err
//	}
//	err = sig.Verify(payload, sshsig.NamespaceGit)
//
// Verify only proves the embedded public key made the signature. Deciding
// whether that key is trusted is left to the caller.
package sshsig
