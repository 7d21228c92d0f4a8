// Package send implements an interactive client for relay endpoints.
// Every stdin line is sent as a text message, every reply is printed.
package send

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"tabletrelay/cmd/shared"
	"tabletrelay/pkg/log"
	"tabletrelay/pkg/stream"
	"tabletrelay/pkg/transport/ws"

	"github.com/muesli/cancelreader"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// GetCommand ...
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:        "send",
		Usage:       "Send text messages to a relay endpoint",
		Description: "Example: echo '{\"event\":\"move\",\"x\":0.5,\"y\":0.5,\"seq\":1}' | tabletrelay send localhost:1701",
		ArgsUsage:   shared.GetArgsUsage(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			addr, err := shared.ParseAddr(cmd.Args().First())
			if err != nil {
				return err
			}
			logger := log.NewLogger(cmd.Bool(shared.VerboseFlag))

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			shared.SetupSignalHandling(cancel)

			dialCtx, dialCancel := context.WithTimeout(ctx, time.Duration(cmd.Int(shared.TimeoutFlag))*time.Millisecond)
			conn, err := ws.Dial(dialCtx, addr, nil)
			dialCancel()
			if err != nil {
				return err
			}
			defer conn.CloseNow()
			logger.InfoMsg("Connected to %s\n", addr)

			in, err := cancelreader.NewReader(os.Stdin)
			if err != nil {
				return fmt.Errorf("cancelreader.NewReader(stdin): %w", err)
			}
			defer in.Close()

			source, sink := conn.Split()
			return run(ctx, source, sink, in, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
		},
		Flags: shared.GetClientFlags(),
	}
}

// run forwards lines from in until it is exhausted, ctx is cancelled or the
// connection ends. With prompt set, a prompt is printed before every line.
func run(ctx context.Context, source stream.Source, sink stream.Sink, in cancelreader.CancelReader, out io.Writer, prompt bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := &syncWriter{w: out}

	replyErr := make(chan error, 1)
	go func() {
		replyErr <- printReplies(ctx, source, w)
		in.Cancel()
	}()
	go func() {
		<-ctx.Done()
		in.Cancel()
	}()

	sc := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprint(w, "> ")
		}
		if !sc.Scan() {
			break
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := sink.Send(ctx, stream.Text(line)); err != nil {
			return fmt.Errorf("sending: %w", err)
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, cancelreader.ErrCanceled) {
		return fmt.Errorf("reading stdin: %w", err)
	}

	select {
	case err := <-replyErr:
		return err
	default:
	}

	return sink.Send(ctx, stream.Close(stream.StatusNormalClosure, ""))
}

// printReplies prints inbound messages until the peer closes the
// connection, which is not an error, or reading fails.
func printReplies(ctx context.Context, source stream.Source, out io.Writer) error {
	for {
		msg, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiving: %w", err)
		}

		switch msg.Type {
		case stream.MessageText:
			fmt.Fprintf(out, "< %s\n", msg.Data)
		case stream.MessageBinary:
			fmt.Fprintf(out, "< [%d bytes]\n", len(msg.Data))
		case stream.MessageClose:
			fmt.Fprintf(out, "< closed (%d %s)\n", msg.CloseCode, msg.CloseReason)
			return nil
		}
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
