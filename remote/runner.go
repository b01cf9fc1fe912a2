// Package remote runs shell commands on cluster hosts over SSH. It exists so
// the sweep loop can talk to machines that are about to disappear from the
// cluster API entirely.
package remote

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// Runner executes a single shell command on the host at addr.
type Runner interface {
	Run(addr, command string) error
}

// SSHRunner dials each host with public-key auth from a fixed identity file.
// Host keys are not verified; the homelab re-images machines often enough
// that strict checking would block every other run.
type SSHRunner struct {
	user    string
	signer  ssh.Signer
	timeout time.Duration
}

// NewSSHRunner loads and parses the private key once at startup so a bad
// identity file fails the run before any node is touched.
func NewSSHRunner(user, identityFile string, timeout time.Duration) (*SSHRunner, error) {
	key, err := ioutil.ReadFile(identityFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read identity file: %s", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("unable to parse identity file %s: %s", identityFile, err)
	}
	return &SSHRunner{user: user, signer: signer, timeout: timeout}, nil
}

// Run opens a fresh connection and session per command. The hosts involved
// are being torn down, so there is no point keeping connections alive.
func (r *SSHRunner) Run(addr, command string) error {
	config := &ssh.ClientConfig{
		User:            r.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(r.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         r.timeout,
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(addr, "22"), config)
	if err != nil {
		return fmt.Errorf("unable to connect to %s: %s", addr, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("unable to open session on %s: %s", addr, err)
	}
	defer session.Close()

	var stderr bytes.Buffer
	session.Stderr = &stderr
	if err := session.Run(command); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %s", err, msg)
		}
		return err
	}
	return nil
}

var _ Runner = &SSHRunner{}

// DryRunner logs the command it would have run and touches nothing.
type DryRunner struct {
	Logger log.FieldLogger
}

func (r *DryRunner) Run(addr, command string) error {
	r.Logger.WithFields(log.Fields{
		"host":    addr,
		"command": command,
	}).Info("dry run: would execute remote command")
	return nil
}

var _ Runner = &DryRunner{}
