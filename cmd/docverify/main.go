package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docverify/cmd/docverify/commands"
	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cli := &commands.CLI{}
	parser, err := kong.New(cli,
		kong.Name("docverify"),
		kong.Description("Build a documentation site and verify its output against the sources."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": version.String()},
	)
	if err != nil {
		return errors.NewCLIErrorAdapter(false, nil).WithOutput(stderr).Report(errors.InternalError("invalid command line definition").WithCause(err).Build())
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return errors.ExitUsage
	}
	defer cli.Close()

	global := commands.NewGlobal()
	global.Stdout = stdout
	err = ctx.Run(global, cli)
	return errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).WithOutput(stderr).Report(err)
}
