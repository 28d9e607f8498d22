package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"codeberg.org/snonux/flashpix/internal"
	"codeberg.org/snonux/flashpix/internal/cli"
	"codeberg.org/snonux/flashpix/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	rootCmd := cli.CreateRootCommand(flags, cli.Handlers{
		Generate: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, flags)
		},
		List: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args, flags)
		},
		Check: func(cmd *cobra.Command, args []string) error {
			p, err := newProcessor(flags)
			if err != nil {
				return err
			}
			return p.Check(cmd.Context())
		},
		Models: func(cmd *cobra.Command, args []string) error {
			p, err := newProcessor(flags)
			if err != nil {
				return err
			}
			return p.Models(cmd.Context())
		},
	})

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(internal.Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}

func newProcessor(flags *cli.Flags) (*processor.Processor, error) {
	settings, err := cli.LoadSettings()
	if err != nil {
		return nil, err
	}
	return processor.NewProcessor(flags, settings), nil
}

func runGenerate(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	text, err := cli.ReadInput(flags, args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if text == "" {
		return cmd.Help()
	}

	p, err := newProcessor(flags)
	if err != nil {
		return err
	}
	return p.ProcessSelection(cmd.Context(), text)
}

func runList(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	text, err := cli.ReadInput(flags, args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	p, err := newProcessor(flags)
	if err != nil {
		return err
	}
	_, err = p.ProcessList(cmd.Context(), text)
	return err
}
