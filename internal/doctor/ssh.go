package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/fleetd/internal/config"
	"github.com/rileyhilliard/fleetd/pkg/sshutil"
	"golang.org/x/crypto/ssh/agent"
)

var keyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

func sshDir(home string) (string, error) {
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		home = h
	}
	return filepath.Join(home, ".ssh"), nil
}

// SSHKeyCheck verifies an SSH key exists.
type SSHKeyCheck struct {
	Home string // empty means the current user's home
}

func (c *SSHKeyCheck) Name() string     { return "ssh_key" }
func (c *SSHKeyCheck) Category() string { return CategorySSH }
func (c *SSHKeyCheck) Fix() error       { return nil }

func (c *SSHKeyCheck) Run(context.Context) CheckResult {
	dir, err := sshDir(c.Home)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot determine home directory",
			Suggestion: "Check HOME environment variable",
		}
	}

	for _, name := range keyNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return CheckResult{
				Name:    c.Name(),
				Status:  StatusPass,
				Message: fmt.Sprintf("SSH key found: ~/.ssh/%s", name),
			}
		}
	}

	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    "No default SSH key found",
		Suggestion: "Generate a key with: ssh-keygen -t ed25519, or rely on IdentityFile in ~/.ssh/config",
	}
}

// SSHAgentCheck verifies the SSH agent is reachable and holds keys.
type SSHAgentCheck struct{}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return CategorySSH }
func (c *SSHAgentCheck) Fix() error       { return nil }

func (c *SSHAgentCheck) Run(context.Context) CheckResult {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Fix: eval $(ssh-agent) && ssh-add",
		}
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent socket not accessible",
			Suggestion: "Fix: eval $(ssh-agent) && ssh-add",
		}
	}
	defer conn.Close() //nolint:errcheck // Best-effort close, error not actionable

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Cannot query SSH agent",
			Suggestion: "Check SSH agent: ssh-add -l",
		}
	}
	if len(keys) == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent running but no keys loaded",
			Suggestion: "Add a key with: ssh-add",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", len(keys), pluralize(len(keys))),
	}
}

// SSHKeyPermissionsCheck verifies SSH key file permissions.
type SSHKeyPermissionsCheck struct {
	Home string
}

func (c *SSHKeyPermissionsCheck) Name() string     { return "ssh_key_permissions" }
func (c *SSHKeyPermissionsCheck) Category() string { return CategorySSH }

func (c *SSHKeyPermissionsCheck) insecure() ([]string, bool) {
	dir, err := sshDir(c.Home)
	if err != nil {
		return nil, false
	}
	var bad []string
	found := false
	for _, name := range keyNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		found = true
		if info.Mode().Perm()&0077 != 0 {
			bad = append(bad, path)
		}
	}
	return bad, found
}

func (c *SSHKeyPermissionsCheck) Run(context.Context) CheckResult {
	bad, found := c.insecure()
	if !found {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass, // SSH key check will catch this
			Message: "No private keys to check",
		}
	}

	if len(bad) > 0 {
		names := make([]string, len(bad))
		for i, p := range bad {
			names[i] = filepath.Base(p)
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Insecure permissions on: " + strings.Join(names, ", "),
			Suggestion: "Fix: chmod 600 ~/.ssh/<keyfile>, or run 'fleetd doctor --fix'",
			Fixable:    true,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "SSH key permissions OK",
	}
}

func (c *SSHKeyPermissionsCheck) Fix() error {
	bad, _ := c.insecure()
	for _, path := range bad {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix permissions on %s: %w", path, err)
		}
	}
	return nil
}

// SSHConfigAliasCheck reports which configured hosts resolve through
// ~/.ssh/config and which are dialled as plain hostnames.
type SSHConfigAliasCheck struct {
	Hosts      []config.Host
	ConfigFile string // empty means ~/.ssh/config
}

func (c *SSHConfigAliasCheck) Name() string     { return "ssh_config_aliases" }
func (c *SSHConfigAliasCheck) Category() string { return CategorySSH }
func (c *SSHConfigAliasCheck) Fix() error       { return nil }

func (c *SSHConfigAliasCheck) Run(context.Context) CheckResult {
	var (
		entries []sshutil.SSHHostEntry
		err     error
	)
	if c.ConfigFile != "" {
		entries, err = sshutil.ParseSSHConfigFile(c.ConfigFile)
	} else {
		entries, err = sshutil.ParseSSHConfig()
	}
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Cannot parse ~/.ssh/config: " + err.Error(),
			Suggestion: "Fix the syntax error so host aliases resolve",
		}
	}

	var plain []string
	for _, h := range c.Hosts {
		if _, ok := sshutil.LookupHost(entries, h.Target()); !ok {
			plain = append(plain, h.Alias)
		}
	}

	if len(plain) == 0 {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("All %d host%s resolve via ~/.ssh/config", len(c.Hosts), pluralize(len(c.Hosts))),
		}
	}
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    "Not in ~/.ssh/config, dialled as hostnames: " + strings.Join(plain, ", "),
		Suggestion: "Add a Host block with HostName and User, or set 'ssh' for the host in " + config.ConfigFileName,
	}
}

// NewSSHChecks creates all SSH-related checks.
func NewSSHChecks(hosts []config.Host) []Check {
	return []Check{
		&SSHKeyCheck{},
		&SSHAgentCheck{},
		&SSHKeyPermissionsCheck{},
		&SSHConfigAliasCheck{Hosts: hosts},
	}
}
