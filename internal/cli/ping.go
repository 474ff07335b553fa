package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChuLiYu/flight-server/internal/clock"
	"github.com/ChuLiYu/flight-server/internal/protocol"
)

func buildPingCommand() *cobra.Command {
	var addr string
	var timeout time.Duration
	var greeting bool

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Send Ping and Disconnect to a running server",
		Long:  "Connect to a flight server, read its greeting, send Ping then Disconnect and print every packet received",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPing(cmd.Context(), cmd.OutOrStdout(), addr, timeout, greeting)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:5000", "server address")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "deadline for the whole exchange")
	cmd.Flags().BoolVar(&greeting, "greeting", true, "expect a greeting Ping from the server")

	return cmd
}

func runPing(ctx context.Context, out io.Writer, addr string, timeout time.Duration, greeting bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}

	if greeting {
		p, err := protocol.ReadPacket(conn)
		if err != nil {
			return fmt.Errorf("failed to read greeting: %w", err)
		}
		printPacket(out, "recv", p)
	}

	for _, msg := range []protocol.Message{protocol.Ping, protocol.Disconnect} {
		p := protocol.NewPacket(msg, clock.System{})
		if err := protocol.WritePacket(conn, p); err != nil {
			return fmt.Errorf("failed to send %s: %w", msg, err)
		}
		printPacket(out, "sent", p)
	}

	// Drain until the server closes the connection after Disconnect.
	for {
		p, err := protocol.ReadPacket(conn)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out, "closed by server")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read reply: %w", err)
		}
		printPacket(out, "recv", p)
	}
}

func printPacket(w io.Writer, dir string, p protocol.Packet) {
	fmt.Fprintf(w, "%s %-10s ts=%d version=%d payload=%dB\n",
		dir, p.Message, p.Header.Timestamp, p.Header.Version, p.Header.PayloadSize)
}
