package ssh

import (
	"fmt"
	"io"
	"net"
	"os"

	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// AgentConnection wraps an SSH agent with its underlying connection
// for proper resource cleanup.
type AgentConnection struct {
	agent.ExtendedAgent
	conn io.Closer
}

// Close closes the underlying connection to the SSH agent.
func (a *AgentConnection) Close() error {
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}

// GetAgent connects to the SSH agent via SSH_AUTH_SOCK.
// The returned AgentConnection should be closed when done to avoid resource leaks.
func GetAgent() (*AgentConnection, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, ErrNoSSHAgent
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSSHAgent, err)
	}

	return &AgentConnection{
		ExtendedAgent: agent.NewClient(conn),
		conn:          conn,
	}, nil
}

// ListAgentKeys lists all keys currently in the SSH agent.
func ListAgentKeys(ag agent.Agent) ([]*agent.Key, error) {
	keys, err := ag.List()
	if err != nil {
		return nil, fmt.Errorf("list agent keys: %w", err)
	}
	return keys, nil
}

// LoadFromAgent returns a Key that signs through the agent with the key
// matching fingerprint. Destroying the returned key does not close ag.
func LoadFromAgent(ag agent.Agent, fingerprint string) (*Key, error) {
	signers, err := ag.Signers()
	if err != nil {
		return nil, fmt.Errorf("list agent keys: %w", err)
	}

	for _, s := range signers {
		if Fingerprint(s.PublicKey()) == fingerprint {
			return &Key{path: fingerprint, signer: s}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s not in ssh-agent", ErrKeyNotFound, fingerprint)
}

func loadAgentKey(ref string, pub gossh.PublicKey) (*Key, error) {
	conn, err := GetAgent()
	if err != nil {
		return nil, err
	}

	key, err := LoadFromAgent(conn, Fingerprint(pub))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	key.path = ref
	key.closer = conn
	return key, nil
}
