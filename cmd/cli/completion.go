// SPDX-License-Identifier: Apache-2.0

// Shell completion for HOST arguments: the first positional argument is the
// tarball (default file completion), later ones complete from the concrete
// host aliases in the user's ssh config.

package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"redland-forge/internal/config"
)

func init() {
	rootCmd.ValidArgsFunction = completeBuildArgs
	cacheClearCmd.ValidArgsFunction = completeCachedHosts
}

func completeBuildArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}
	return completeHostEntry(args[1:], toComplete)
}

// completeHostEntry offers ssh config aliases, preserving any user@ prefix
// already typed and skipping hosts that are already on the command line.
func completeHostEntry(existing []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	aliases, err := config.ListSSHConfigHosts()
	if err != nil || len(aliases) == 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	prefix := ""
	if i := strings.IndexByte(toComplete, '@'); i >= 0 {
		prefix = toComplete[:i+1]
	}

	used := make(map[string]bool, len(existing))
	for _, arg := range existing {
		for _, entry := range strings.Split(arg, ",") {
			used[strings.TrimSpace(entry)] = true
		}
	}

	var out []string
	for _, alias := range aliases {
		candidate := prefix + alias
		if used[candidate] {
			continue
		}
		out = append(out, candidate)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func completeCachedHosts(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cache, err := openCache(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, h := range cache.Hosts() {
		already := false
		for _, arg := range args {
			if arg == h {
				already = true
				break
			}
		}
		if !already {
			out = append(out, h)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
