// Copyright IBM Corp. 2023, 2025

package main

import "github.com/hashicorp/go-xzchunk/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// main start go-xzchunk cli `xzchunk`
func main() {
	cmd.Run(version, commit, date)
}
