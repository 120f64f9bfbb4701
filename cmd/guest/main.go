// Command guest is the guest-side client: it owns this device's identifier,
// remembers the unlocked invitation and answers the RSVP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/charlesng35/weddingrsvp/internal/app"
	"github.com/charlesng35/weddingrsvp/pkg/logger"
)

const (
	serverEnv     = "WEDDING_GUEST_SERVER"
	stateEnv      = "WEDDING_GUEST_STATE"
	defaultServer = "http://localhost:8000"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	server   string
	state    string
	logLevel string
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("weddingrsvp-guest", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SetInterspersed(false)
	fs.Usage = func() { printUsage(out, fs) }

	var g globalFlags
	fs.StringVarP(&g.server, "server", "s", envOr(serverEnv, defaultServer), "Base URL of the RSVP server")
	fs.StringVar(&g.state, "state", envOr(stateEnv, defaultStatePath()), "Path of the local session database")
	fs.StringVar(&g.logLevel, "log-level", "warn", "Log level")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := app.ConfigureLogging(g.logLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(out, fs)
		return errors.New("a command is required")
	}

	cmd, ok := commands[strings.ToLower(rest[0])]
	if !ok {
		return fmt.Errorf("unknown command %q", rest[0])
	}

	env, err := openEnvironment(ctx, g, out)
	if err != nil {
		return err
	}
	defer env.Close()

	return cmd(ctx, env, rest[1:])
}

func printUsage(out io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(out, "usage: weddingrsvp-guest [flags] <command> [args]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "commands:")
	fmt.Fprintln(out, "  status            show this device and the unlocked invitation")
	fmt.Fprintln(out, "  claim <code>      open an invitation on this device (alias: unlock)")
	fmt.Fprintln(out, "  show              print the unlocked invitation")
	fmt.Fprintln(out, "  rsvp --status     answer the unlocked invitation")
	fmt.Fprintln(out, "  logout            forget the invitation, keep the device (alias: lock)")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "flags:")
	fmt.Fprint(out, fs.FlagUsages())
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "guest.sqlite")
	}
	return filepath.Join(dir, "weddingrsvp", "guest.sqlite")
}
