// Package prompt reads SSH key passphrases from the terminal.
//
// Terminal implements ssh.PassphraseFunc suppliers backed by
// golang.org/x/term. Input is read without echo from standard input or,
// when standard input is a pipe, from /dev/tty. The prompt goes to
// standard error so it never mixes with signed output.
//
// Example usage:
//
//	tty := prompt.NewTerminal()
//	key, err := prompt.LoadWithRetry(func(pf ssh.PassphraseFunc) (*ssh.Key, error) {
//	    return ssh.Load(path, pf)
//	}, tty.Passphrase(path), 3, os.Stderr)
package prompt
