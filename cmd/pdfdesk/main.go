package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	logpkg "github.com/local/pdfdesk/internal/logger"
)

var (
	Version = "dev"

	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func newApp() *cli.App {
	// -v is --verbose; the version is only available as --version.
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}
	return &cli.App{
		Name:    "pdfdesk",
		Usage:   "Merge, split and rasterize PDF documents",
		Version: Version,
		// Page selections contain commas.
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log engine activity to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			level := "warn"
			if c.Bool("verbose") {
				level = "debug"
			}
			return logpkg.Init(logpkg.Options{Level: level, Pretty: true, Console: os.Stderr, Service: "pdfdesk-cli"})
		},
		Commands: []*cli.Command{
			mergeCommand(),
			splitCommand(),
			imagesCommand(),
			img2pdfCommand(),
			pagesCommand(),
		},
	}
}

func main() {
	app := newApp()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
		os.Exit(1)
	}
}
