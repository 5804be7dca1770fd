// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// Host is one resolved build target. Key is the canonical user@hostname
// string used everywhere: display, event routing and the timing cache.
type Host struct {
	Key      string
	User     string
	Hostname string
	Port     int
	KeyPath  string
}

// ParseHost resolves one host entry of the form "user@name" or "name".
// A bare name gets the current user. The name is then looked up in the
// user's ssh_config so aliases resolve to their real hostname, port and
// identity file; explicit user@ wins over a ssh_config User.
func ParseHost(entry string) (Host, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return Host{}, fmt.Errorf("empty host entry")
	}

	var user, name string
	if i := strings.IndexByte(entry, '@'); i >= 0 {
		user, name = entry[:i], entry[i+1:]
		if user == "" || name == "" {
			return Host{}, fmt.Errorf("malformed host entry %q", entry)
		}
	} else {
		name = entry
	}
	if strings.ContainsAny(name, " \t@") {
		return Host{}, fmt.Errorf("malformed host entry %q", entry)
	}

	hostname := name
	if resolved := ssh_config.Get(name, "HostName"); resolved != "" {
		hostname = resolved
	}
	if user == "" {
		user = ssh_config.Get(name, "User")
	}
	if user == "" {
		user = os.Getenv("USER")
	}
	if user == "" {
		return Host{}, fmt.Errorf("cannot determine user for host %q", entry)
	}

	port := 22
	if portStr := ssh_config.Get(name, "Port"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	keyPath := ssh_config.Get(name, "IdentityFile")
	if keyPath != "" {
		if resolved, err := ResolvePath(keyPath); err == nil {
			keyPath = resolved
		}
	}

	return Host{
		Key:      user + "@" + hostname,
		User:     user,
		Hostname: hostname,
		Port:     port,
		KeyPath:  keyPath,
	}, nil
}

// ParseHostArgs expands positional host arguments, splitting comma-joined
// entries, and resolves each one. Duplicate keys are dropped, first wins.
func ParseHostArgs(args []string) ([]Host, error) {
	var hosts []Host
	seen := make(map[string]bool)
	for _, arg := range args {
		for _, entry := range strings.Split(arg, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			h, err := ParseHost(entry)
			if err != nil {
				return nil, err
			}
			if seen[h.Key] {
				continue
			}
			seen[h.Key] = true
			hosts = append(hosts, h)
		}
	}
	return hosts, nil
}

// LoadHostsFile reads a hosts file: one entry per line, blank lines and
// #-comments ignored.
func LoadHostsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hosts file %s: %w", path, err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hosts file %s: %w", path, err)
	}
	return entries, nil
}
