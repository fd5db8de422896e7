package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:          "linechat-client",
		Short:        "Interactive client for the linechat server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, addr, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:5001", "server TCP address")
	return cmd
}

func run(ctx context.Context, addr string, in io.Reader, out io.Writer) error {
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	nc, err := d.DialContext(dialCtx, "tcp", addr)
	cancel()
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer nc.Close()
	stopClose := context.AfterFunc(ctx, func() { _ = nc.Close() })
	defer stopClose()

	id := clientID(nc.LocalAddr())
	fmt.Fprintf(out, "connected to %s as %s\n", addr, id)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		scanner := bufio.NewScanner(nc)
		for scanner.Scan() {
			fmt.Fprintln(out, scanner.Text())
		}
	}()

	tr := newTranslator(id)
	input := make(chan string)
	go func() {
		defer close(input)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			input <- scanner.Text()
		}
	}()

	for {
		select {
		case <-serverDone:
			fmt.Fprintln(out, "disconnected")
			return nil
		case <-ctx.Done():
			return nil
		case line, ok := <-input:
			if !ok {
				return nil
			}
			wire, send := tr.Translate(line, time.Now())
			if !send {
				continue
			}
			if _, err := io.WriteString(nc, wire+"\n"); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

func clientID(addr net.Addr) string {
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return "c" + strconv.Itoa(tcpAddr.Port)
	}
	return "c" + addr.String()
}
