// SPDX-License-Identifier: Apache-2.0

// Package agent embeds the remote build agent script. The controller uploads
// it next to the tarball and invokes it with the tarball path as its single
// argument; its output carries the phase markers the detector recognizes.
package agent

import _ "embed"

// ScriptName is the filename the agent is uploaded as.
const ScriptName = "build-agent.sh"

//go:embed build-agent.sh
var script []byte

// Script returns the agent script bytes.
func Script() []byte { return script }
