package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type registerCmd struct{}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an account and log in" }
func (*registerCmd) Usage() string {
	return `tracker register <username> <password>

  Creates an account and stores the session token.
`
}
func (*registerCmd) SetFlags(*flag.FlagSet) {}

func (c *registerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return subcommands.ExitUsageError
	}

	cli, err := newClient()
	if err != nil {
		return fail(err)
	}
	if err := cli.Register(ctx, f.Arg(0), f.Arg(1)); err != nil {
		return fail(err)
	}

	fmt.Printf("Registered and logged in as %s\n", f.Arg(0))
	return subcommands.ExitSuccess
}

type loginCmd struct{}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "log in and store the session token" }
func (*loginCmd) Usage() string {
	return `tracker login <username> <password>
`
}
func (*loginCmd) SetFlags(*flag.FlagSet) {}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return subcommands.ExitUsageError
	}

	cli, err := newClient()
	if err != nil {
		return fail(err)
	}
	if err := cli.Login(ctx, f.Arg(0), f.Arg(1)); err != nil {
		return fail(err)
	}

	if remaining, ok := cli.Session().TimeRemaining(); ok {
		fmt.Printf("Logged in as %s (token valid for %s)\n", f.Arg(0), remaining.Round(1e9))
	} else {
		fmt.Printf("Logged in as %s\n", f.Arg(0))
	}
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "discard the stored session" }
func (*logoutCmd) Usage() string {
	return `tracker logout
`
}
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (c *logoutCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cli, err := newClient()
	if err != nil {
		return fail(err)
	}
	cli.Session().Logout()
	fmt.Println("Logged out")
	return subcommands.ExitSuccess
}
