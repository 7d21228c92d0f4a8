package main

import (
	"context"
	"os"

	"tabletrelay/cmd/send"
	"tabletrelay/cmd/serve"
	"tabletrelay/cmd/snapshot"
	"tabletrelay/cmd/version"
	"tabletrelay/pkg/log"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.ErrorMsg("%s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "tabletrelay",
		Usage: "Use a phone or tablet as a drawing tablet for this machine",
		Commands: []*cli.Command{
			serve.GetCommand(),
			send.GetCommand(),
			snapshot.GetCommand(),
			version.GetCommand(),
		},
	}
}
