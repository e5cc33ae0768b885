package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lifepulse/internal/app"
)

func main() {
	opts := app.OptionsFromEnvironment()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lifepulse: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "login" {
		os.Exit(runLogin(application))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lifepulse: %v\n", err)
		os.Exit(1)
	}
}

// runLogin authenticates against the dashboard and stores the credentials,
// then exits. The agent itself never prompts; it skips syncs until a login
// has been performed.
func runLogin(application *app.App) int {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "dashboard account email")
	password := fs.String("password", "", "dashboard account password")
	fs.Parse(os.Args[2:])

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: lifepulse login -email EMAIL -password PASSWORD")
		return 2
	}

	result, err := application.Login(context.Background(), *email, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		return 1
	}
	if !result.Success {
		fmt.Fprintf(os.Stderr, "login rejected: %s\n", result.ErrorMessage)
		return 1
	}

	fmt.Printf("logged in as %s\n", *email)
	return 0
}
