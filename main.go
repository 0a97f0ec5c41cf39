// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/berkwatch/berkwatch/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
