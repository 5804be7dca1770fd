// SPDX-License-Identifier: Apache-2.0

package sshexec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"redland-forge/internal/config"
	"redland-forge/internal/logger"
)

// Dialer is the production Transport backed by golang.org/x/crypto/ssh.
type Dialer struct {
	Timeout time.Duration // per-attempt connect and handshake timeout
}

// NewDialer returns a Dialer with the given connect timeout.
func NewDialer(timeout time.Duration) *Dialer {
	return &Dialer{Timeout: timeout}
}

// Dial opens an SSH connection to the host, trying key file and agent
// authentication. Host keys are verified against ~/.ssh/known_hosts when
// the file exists.
func (d *Dialer) Dial(ctx context.Context, host config.Host) (Conn, error) {
	methods, err := authMethods(host)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare auth methods for %s: %w", host.Key, err)
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no suitable authentication method found for %s (key file or agent required)", host.Key)
	}

	sshConfig := &ssh.ClientConfig{
		User:    host.User,
		Auth:    methods,
		Timeout: d.Timeout,
	}
	callback, khErr := hostKeyCallback()
	if khErr != nil {
		logger.Warnf("Could not create known_hosts callback for %s: %v. Host key will not be verified.", host.Key, khErr)
		sshConfig.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		sshConfig.HostKeyCallback = callback
	}

	addr := net.JoinHostPort(host.Hostname, strconv.Itoa(host.Port))
	netDialer := net.Dialer{Timeout: d.Timeout}
	raw, err := netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s (%s): %w", host.Key, addr, err)
	}
	// ClientConfig.Timeout is not applied by NewClientConn; bound the
	// handshake with a deadline on the raw connection instead.
	if d.Timeout > 0 {
		_ = raw.SetDeadline(time.Now().Add(d.Timeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(raw, addr, sshConfig)
	if err != nil {
		if closeErr := raw.Close(); closeErr != nil {
			logger.Errorf("Error closing connection to %s after failed handshake: %v", host.Key, closeErr)
		}
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", host.Key, err)
	}
	_ = raw.SetDeadline(time.Time{})

	return &conn{client: ssh.NewClient(sshConn, chans, reqs), host: host.Key}, nil
}

// authMethods prepares authentication methods for the host, in order:
// the host's identity file if configured, then the SSH agent if
// SSH_AUTH_SOCK points at one.
func authMethods(host config.Host) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if host.KeyPath != "" {
		key, err := os.ReadFile(host.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file %s: %w", host.KeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			if _, ok := err.(*ssh.PassphraseMissingError); ok {
				logger.Warnf("Private key file %s is encrypted and passphrase prompting is not supported. Skipping key.", host.KeyPath)
			} else {
				return nil, fmt.Errorf("failed to parse private key file %s: %w", host.KeyPath, err)
			}
		} else {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		sock, err := net.Dial("unix", socket)
		if err == nil { // agent errors are not fatal while a key file may work
			agentClient := agent.NewClient(sock)
			methods = append(methods, ssh.PublicKeysCallback(agentClient.Signers))
		}
	}

	return methods, nil
}

// hostKeyCallback loads the user's known_hosts file. A missing file logs a
// warning and falls back to accepting any host key.
func hostKeyCallback() (ssh.HostKeyCallback, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory for known_hosts: %w", err)
	}
	knownHostsPath := filepath.Join(homeDir, ".ssh", "known_hosts")

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("known_hosts file (%s) not found. Will attempt connection without verification.", knownHostsPath)
			return ssh.InsecureIgnoreHostKey(), nil
		}
		return nil, fmt.Errorf("failed to load or parse known_hosts file %s: %w", knownHostsPath, err)
	}
	return callback, nil
}

type conn struct {
	client *ssh.Client
	host   string

	sftpOnce sync.Once
	sftpc    *sftp.Client
	sftpErr  error
}

// sftp lazily opens one SFTP subsystem per connection and reuses it for
// every transfer.
func (c *conn) sftp() (*sftp.Client, error) {
	c.sftpOnce.Do(func() {
		c.sftpc, c.sftpErr = sftp.NewClient(c.client)
		if c.sftpErr != nil {
			c.sftpErr = fmt.Errorf("failed to open sftp session to %s: %w", c.host, c.sftpErr)
		}
	})
	return c.sftpc, c.sftpErr
}

func (c *conn) MkdirAll(path string) error {
	client, err := c.sftp()
	if err != nil {
		return err
	}
	if err := client.MkdirAll(path); err != nil {
		return fmt.Errorf("failed to create remote directory %s on %s: %w", path, c.host, err)
	}
	return nil
}

func (c *conn) Upload(remotePath string, contents io.Reader, mode os.FileMode) error {
	client, err := c.sftp()
	if err != nil {
		return err
	}
	f, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s on %s: %w", remotePath, c.host, err)
	}
	if _, err := io.Copy(f, contents); err != nil {
		f.Close()
		return fmt.Errorf("failed to write remote file %s on %s: %w", remotePath, c.host, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close remote file %s on %s: %w", remotePath, c.host, err)
	}
	if err := client.Chmod(remotePath, mode); err != nil {
		return fmt.Errorf("failed to chmod remote file %s on %s: %w", remotePath, c.host, err)
	}
	return nil
}

// Run starts the command and scans its merged stdout+stderr into out line
// by line. On context cancellation the remote process is signalled and the
// session closed; Run then reports ctx.Err().
func (c *conn) Run(ctx context.Context, command string, out chan<- string) (int, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return -1, fmt.Errorf("failed to create ssh session for %s: %w", c.host, err)
	}
	defer session.Close()

	pr, pw := io.Pipe()
	session.Stdout = pw
	session.Stderr = pw

	if err := session.Start(command); err != nil {
		pw.Close()
		return -1, fmt.Errorf("failed to start remote command on %s: %w", c.host, err)
	}

	cancelDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if sigErr := session.Signal(ssh.SIGKILL); sigErr != nil {
				logger.Debugf("Failed to signal remote command on %s: %v", c.host, sigErr)
			}
			session.Close()
			pr.CloseWithError(ctx.Err())
		case <-cancelDone:
		}
	}()

	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	waitErr := session.Wait()
	pw.Close()
	<-scanDone
	close(cancelDone)

	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*ssh.ExitError); ok {
			return exitErr.ExitStatus(), nil
		}
		return -1, fmt.Errorf("remote command on %s failed: %w", c.host, waitErr)
	}
	return 0, nil
}

func (c *conn) Close() error {
	if c.sftpc != nil {
		if err := c.sftpc.Close(); err != nil {
			logger.Debugf("Error closing sftp session to %s: %v", c.host, err)
		}
	}
	return c.client.Close()
}
