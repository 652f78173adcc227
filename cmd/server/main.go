package main

import (
	"github.com/alecthomas/kong"

	"github.com/huemul/tablero/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Dev              bool `help:"Enable development mode (debug logging, console output)."`
		Version          kong.VersionFlag
		Server           commands.ServerCmd           `cmd:"" help:"Start the dashboard core server"`
		SweepInvitations commands.SweepInvitationsCmd `cmd:"" help:"Delete settled expired invitations past retention"`
	}
)

func main() {
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
	)
	err := cmd.Run(&commands.Globals{Dev: cli.Dev, Version: version})
	cmd.FatalIfErrorf(err)
}
