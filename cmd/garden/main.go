// Command garden is the smart garden client: it identifies plants from photos, keeps the
// signed-in session, and manages records and care reminders against the store API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/smartgarden/backend/internal/adapters/session"
	"github.com/smartgarden/backend/internal/application/gateway"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
	"github.com/smartgarden/backend/pkg/config"
)

const usage = `usage: garden [-v] [-near address] <command> [arguments]

commands:
  signup <email>                 create an account
  login <email>                  sign in; the password is read from stdin
  logout                         forget the stored session
  identify [-health] <photo>     identify a plant and save it
  list                           list your plants
  search <query>                 find plants by name
  show [id]                      show a plant (defaults to the current plant)
  rename <id> <name>             rename a plant
  water <id> [YYYY-MM-DD]        record a watering (defaults to today)
  delete <id>                    delete a plant and its reminders
  ask [-id id] <question>        ask a follow-up question about a plant
  remind [-kind k] <id> <cron>   schedule a watering or fertilizing reminder
  reminders                      list scheduled reminders
  watch                          run scheduled reminders until interrupted
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("garden", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	verbose := fs.Bool("v", false, "verbose logging")
	near := fs.String("near", "", "address to weight species suggestions by region")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	observability.InitCLILogger(stderr, *verbose)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "garden: %v\n", err)
		return 1
	}
	if *near != "" {
		cfg.Location.Address = *near
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "garden: %v\n", err)
		return 1
	}

	store, err := session.Open(cfg.Client.SessionDBPath)
	if err != nil {
		fmt.Fprintf(stderr, "garden: %v\n", err)
		return 1
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, store, stdin, stdout)
	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		if err == errUsage {
			fs.Usage()
			return 2
		}
		observability.LoggerFromContext(ctx).Debug().Err(err).Msg("command failed")
		fmt.Fprintln(stderr, gateway.UserMessage(err))
		return 1
	}
	return 0
}
