package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
)

const serviceName = "credctl"

// Command is one credctl subcommand.
type Command struct {
	Name        string
	Description string
	Flags       *flag.FlagSet
	Run         func(ctx context.Context, args []string) error
}

type app struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	commands map[string]*Command
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, commands: make(map[string]*Command)}
	for _, cmd := range []*Command{
		a.hashCommand(),
		a.verifyCommand(),
		a.classifyCommand(),
		a.auditCommand(),
		a.resetRequestCommand(),
		a.resetCommand(),
		a.versionCommand(),
	} {
		cmd.Flags.SetOutput(stderr)
		a.commands[cmd.Name] = cmd
	}
	return a
}

// Execute dispatches args[0] to its subcommand.
func (a *app) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		a.usage()
		return nil
	}
	cmd, ok := a.commands[args[0]]
	if !ok {
		a.usage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
	if err := cmd.Flags.Parse(args[1:]); err != nil {
		return err
	}
	return cmd.Run(ctx, cmd.Flags.Args())
}

func (a *app) usage() {
	fmt.Fprintf(a.stderr, "Usage: %s <command> [flags] [args]\n\nCommands:\n", serviceName)
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.stderr, "  %-14s %s\n", name, a.commands[name].Description)
	}
}
