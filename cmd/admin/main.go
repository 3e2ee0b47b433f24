// Package main is the operator CLI of Attendance Hub: schema migrations,
// rule seeding, attendance maintenance and API token issuance.
package main

import (
	"github.com/alecthomas/kong"
)

// Version is set via ldflags when building.
var Version = "dev"

var cli struct {
	Version kong.VersionFlag `help:"Show version information."`
	Commands
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Vars{"version": Version},
		kong.Name("attendance-admin"),
		kong.Description("Operator tools for Attendance Hub."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
