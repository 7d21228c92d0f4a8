// Package snapshot implements the command fetching one frame from a screen
// endpoint.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"time"

	"tabletrelay/cmd/shared"
	"tabletrelay/pkg/log"
	"tabletrelay/pkg/stream"
	"tabletrelay/pkg/transport/ws"

	"github.com/urfave/cli/v3"
)

const outFlag = "out"

// GetCommand ...
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "snapshot",
		Usage:     "Save one frame of a screen endpoint as JPEG",
		ArgsUsage: shared.GetArgsUsage(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			addr, err := shared.ParseAddr(cmd.Args().First())
			if err != nil {
				return err
			}
			logger := log.NewLogger(cmd.Bool(shared.VerboseFlag))

			ctx, cancel := context.WithTimeout(ctx, time.Duration(cmd.Int(shared.TimeoutFlag))*time.Millisecond)
			defer cancel()

			conn, err := ws.Dial(ctx, addr, nil)
			if err != nil {
				return err
			}
			defer conn.CloseNow()

			source, sink := conn.Split()
			frame, err := fetch(ctx, source, sink)
			if err != nil {
				return err
			}
			_ = conn.Close(stream.StatusNormalClosure, "")

			path := cmd.String(outFlag)
			if err := os.WriteFile(path, frame, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			logger.InfoMsg("Wrote %d bytes to %s\n", len(frame), path)
			return nil
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    outFlag,
				Aliases: []string{"o"},
				Usage:   "Output file",
				Value:   "snapshot.jpg",
			},
		}, shared.GetClientFlags()...),
	}
}

// fetch requests a frame and waits for the answer.
func fetch(ctx context.Context, source stream.Source, sink stream.Sink) ([]byte, error) {
	if err := sink.Send(ctx, stream.Text("frame")); err != nil {
		return nil, fmt.Errorf("requesting frame: %w", err)
	}

	for {
		msg, err := source.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("receiving frame: %w", err)
		}

		switch msg.Type {
		case stream.MessageBinary:
			return msg.Data, nil
		case stream.MessageText:
			return nil, fmt.Errorf("relay answered: %s", msg.Data)
		case stream.MessageClose:
			return nil, fmt.Errorf("relay closed the connection (%d %s)", msg.CloseCode, msg.CloseReason)
		}
	}
}
