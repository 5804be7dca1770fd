// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"redland-forge/cmd/cli"
)

func main() {
	os.Exit(cli.RunCLI())
}
