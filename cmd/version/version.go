// Package version implements the version command.
package version

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// Version is set at build time with -ldflags "-X tabletrelay/cmd/version.Version=...".
var Version = "unknown"

// GetCommand ...
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the program version",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("tabletrelay %s\n", Version)
			return nil
		},
	}
}
