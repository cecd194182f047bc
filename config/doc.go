// Package config resolves sshcommit settings from layered sources.
//
// Precedence, highest first:
//  1. Command-line flags
//  2. SSHCOMMIT_* environment variables
//  3. .sshcommit.yaml in the git root
//  4. ~/.config/sshcommit/config.yaml
//  5. git config (user.signingkey, gpg.ssh.allowedSignersFile), via ApplyGitConfig
//  6. Built-in defaults
//
// # Usage
//
//	settings, err := config.Load(config.LoadOptions{StartDir: "."})
//	if err != nil {
//	    return err
//	}
//	if err := settings.ApplyGitConfig(ctx, backend); err != nil {
//	    return err
//	}
//	fmt.Println(settings.SigningKey, settings.Source(config.KeySigningKey))
//
// Each resolved value records where it came from (see Source). The
// generic Resolver can be used directly for other key sets:
//
//	resolver := config.NewResolver(config.ResolverConfig{
//	    EnvPrefix:       "MYAPP_",
//	    GlobalConfigDir: "myapp",
//	    LocalConfigName: ".myapp.yaml",
//	    Defaults:        map[string]string{"format": "table"},
//	})
//	cfg := resolver.Resolve()
//
// Store writes single keys back to either file, validating values first.
package config
