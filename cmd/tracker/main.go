// Command tracker is the terminal front-end over the client packages.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/mkweon/asset-tracker/client"
	"github.com/mkweon/asset-tracker/client/session"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(subcommands.HelpCommand(), "")
	commander.Register(&registerCmd{}, "auth")
	commander.Register(&loginCmd{}, "auth")
	commander.Register(&logoutCmd{}, "auth")
	commander.Register(&listCmd{}, "assets")
	commander.Register(&addCmd{}, "assets")
	commander.Register(&editCmd{}, "assets")
	commander.Register(&rmCmd{}, "assets")
	commander.Register(&refreshCmd{}, "assets")
	commander.Register(&totalsCmd{}, "history")
	commander.Register(&snapshotCmd{}, "history")
	commander.Register(&allocCmd{}, "history")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// newClient builds the API client against TRACKER_API_URL, falling back to
// the default local server address.
func newClient() (*client.Client, error) {
	base := os.Getenv("TRACKER_API_URL")
	if base == "" {
		base = "http://localhost:50000"
	}

	path, err := session.DefaultPath()
	if err != nil {
		return nil, err
	}
	store := session.NewStore(path)

	// Forced logouts surface through ErrSessionExpired; no extra hook needed
	// in a one-shot CLI process.
	return client.New(base, store, nil), nil
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}
