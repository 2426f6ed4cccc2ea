package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gersonkurz/msikit/internal/cli"
	"github.com/gersonkurz/msikit/internal/execlock"
	"github.com/gersonkurz/msikit/internal/msiexec"
)

func addSettingsFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("install-dir", "", "INSTALLDIR for the package")
	f.String("scope", "currentuser", "install scope: currentuser, allusers, permachineadmin")
	f.String("reboot", "none", "reboot policy: none, force, suppress, reallysuppress")
	f.String("reinstall", "none", "features to reinstall: none, all")
	f.String("reinstall-mode", "default", "reinstall mode: default, fileabsent, olderversion, differentversion, verifyandrepair")
	f.String("ui", "full", "user interface level: full, basic, silent")
	f.String("transform", "", "transform (.mst) to apply")
}

// settings reads the flags added by addSettingsFlags.
func (a *app) settings() (msiexec.Settings, error) {
	s := msiexec.Settings{
		InstallDir:    a.v.GetString("install-dir"),
		TransformPath: a.v.GetString("transform"),
	}
	var err error
	if s.Scope, err = msiexec.ParseInstallScope(a.v.GetString("scope")); err != nil {
		return s, err
	}
	if s.Reboot, err = msiexec.ParseRebootPolicy(a.v.GetString("reboot")); err != nil {
		return s, err
	}
	if s.Reinstall, err = msiexec.ParseReinstallPolicy(a.v.GetString("reinstall")); err != nil {
		return s, err
	}
	if s.ReinstallMode, err = msiexec.ParseReinstallMode(a.v.GetString("reinstall-mode")); err != nil {
		return s, err
	}
	if s.UI, err = msiexec.ParseUILevel(a.v.GetString("ui")); err != nil {
		return s, err
	}
	return s, nil
}

func newArgsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "args",
		Short: "Print the msiexec arguments for the given settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, s.Arguments())
			return nil
		},
	}
	addSettingsFlags(cmd)
	return cmd
}

// newInstallCmd creates install, uninstall or repair, which differ only in
// the msiexec operation they run.
func newInstallCmd(a *app, use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <package.msi>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}

			runner := msiexec.NewRunner()
			runner.Logger = a.logger.WithPrefix("msiexec")
			if path := a.v.GetString("msiexec"); path != "" {
				runner.Path = path
			}
			if a.v.GetBool("no-lock") {
				runner.Lock = nil
			}
			runner.Wait = a.v.GetDuration("wait")
			if runner.Wait < 0 {
				runner.Wait = execlock.Infinite
			}

			var run func(string, msiexec.Settings) (msiexec.Result, error)
			op := "/i"
			switch use {
			case "uninstall":
				run, op = runner.Uninstall, "/x"
			case "repair":
				run, op = runner.Repair, msiexec.RepairSwitch(s.ReinstallMode)
			default:
				run = runner.Install
			}

			if a.v.GetBool("dry-run") {
				if use == "repair" {
					s.ReinstallMode = msiexec.ModeDefault
				}
				fmt.Fprintln(a.out, runner.CommandLine(op, args[0], s))
				return nil
			}

			res, err := run(args[0], s)
			if out := strings.TrimRight(res.Output, "\r\n"); out != "" {
				fmt.Fprintln(a.out, cli.Muted(out))
			}
			if err != nil {
				return err
			}
			if res.Code != msiexec.Success {
				return &exitError{code: res.Code}
			}
			fmt.Fprintf(a.out, "%s %s %s\n", cli.Success("Finished"), use, cli.Filename(args[0]))
			return nil
		},
	}
	addSettingsFlags(cmd)
	cmd.Flags().Duration("wait", 0, "how long to wait for a running installation (negative waits forever)")
	cmd.Flags().Bool("no-lock", false, "do not take the Windows Installer mutex")
	cmd.Flags().Bool("dry-run", false, "print the command line instead of running it")
	cmd.Flags().String("msiexec", "", "path to msiexec")
	return cmd
}
