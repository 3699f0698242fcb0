// Package main is the entry point for the finance concierge.
package main

import "gitlab.com/yelinaung/finance-concierge/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
