package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gersonkurz/msikit/internal/cli"
	"github.com/gersonkurz/msikit/internal/execlock"
	"github.com/gersonkurz/msikit/internal/wix"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show toolchain and installer status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "msikit - Version %s\n", Version)
			fmt.Fprintf(a.out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintln(a.out)

			fmt.Fprintln(a.out, cli.Bold("WiX Toolset:"))
			tc := wix.NewToolchain()
			tc.Logger = a.logger.WithPrefix("wix")
			fmt.Fprintf(a.out, "  candle:  %s\n", cli.Filename(tc.Candle))
			fmt.Fprintf(a.out, "  light:   %s\n", cli.Filename(tc.Light))
			if tc.Available() {
				fmt.Fprintf(a.out, "  Version: %s\n", tc.Version())
			} else {
				fmt.Fprintf(a.out, "  %s\n", cli.Warning("(not found, set WIX or add the WiX bin folder to PATH)"))
			}
			fmt.Fprintln(a.out)

			fmt.Fprintln(a.out, cli.Bold("Windows Installer:"))
			lock := execlock.NewInstallerLock()
			held, err := lock.Probe()
			switch {
			case err != nil:
				fmt.Fprintf(a.out, "  %s: %s\n", lock.Name(), cli.Error(err.Error()))
			case held:
				fmt.Fprintf(a.out, "  %s: %s\n", lock.Name(), cli.Warning("an installation is in progress"))
			default:
				fmt.Fprintf(a.out, "  %s: %s\n", lock.Name(), cli.Success("idle"))
			}
			return nil
		},
	}
}
