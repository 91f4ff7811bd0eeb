// codebuddy - an Azure OpenAI code assistant panel.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/jeranaias/codebuddy/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	root := cli.NewRootCmd(cli.Runtime{
		Version: Version,
		Commit:  GitCommit,
		Date:    BuildDate,
	})
	os.Exit(cli.Execute(root))
}
