package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Reveal  RevealCmd        `cmd:"" help:"Check a revealed session against its commitment and shoe"`
	Shoe    ShoeCmd          `cmd:"" help:"Print the first cards of the shoe for a set of seeds"`
	Hash    HashCmd          `cmd:"" help:"Print the commitment hash of a server seed"`
}

// Output is bound into every command's Run.
type Output struct {
	io.Writer
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("verify"),
		kong.Description("Offline verifier for provably fair blackjack sessions"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&Output{Writer: os.Stdout})
	ctx.FatalIfErrorf(err)
}
