package main

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gersonkurz/msikit/internal/cli"
)

// app is the state shared by all commands of one invocation.
type app struct {
	v      *viper.Viper
	out    io.Writer
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{
		v:   viper.New(),
		out: os.Stdout,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "msikit",
		}),
	}

	root := &cobra.Command{
		Use:   "msikit",
		Short: "Build and install Windows Installer packages",
		Long: `msikit maintains installer definitions as .wxs documents, builds them with
the WiX toolset and drives msiexec under the Windows Installer mutex.

Options can also be given MSI-style (/VERBOSE, /UI:silent) and through
MSIKIT_* environment variables (MSIKIT_UI=silent).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(os.Stdout)

	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.AddCommand(
		newNewCmd(a),
		newAddFileCmd(a),
		newAddRegistryCmd(a),
		newAddActionCmd(a),
		newShowCmd(a),
		newBuildCmd(a),
		newArgsCmd(a),
		newInstallCmd(a, "install", "Install a package (msiexec /i)"),
		newInstallCmd(a, "uninstall", "Remove a package or product code (msiexec /x)"),
		newInstallCmd(a, "repair", "Repair an installed package (msiexec /f)"),
		newStatusCmd(a),
	)
	return root
}

// setup binds the flags of the running command to viper, so that each flag
// can also come from MSIKIT_<FLAG>, and applies the global options.
func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()

	a.v.SetEnvPrefix("MSIKIT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if a.v.GetBool("no-color") {
		cli.DisableColors()
	}
	if a.v.GetBool("verbose") {
		a.logger.SetLevel(log.DebugLevel)
	}
	return nil
}

// normalizeArgs converts MSI-style switches to cobra flags: /FLAG becomes
// --flag and /FLAG:value becomes --flag=value. Anything that does not look
// like a switch, such as /opt/app or C:\setup.msi, is passed through.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if !strings.HasPrefix(arg, "/") || len(arg) < 2 {
			out = append(out, arg)
			continue
		}
		name, value, hasValue := strings.Cut(arg[1:], ":")
		switch {
		case name == "?":
			out = append(out, "--help")
		case !isFlagName(name):
			out = append(out, arg)
		case hasValue:
			out = append(out, "--"+strings.ToLower(name)+"="+value)
		default:
			out = append(out, "--"+strings.ToLower(name))
		}
	}
	return out
}

func isFlagName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}

// flagChanged reports whether a flag was given on the command line or via
// the environment.
func (a *app) flagChanged(flags *pflag.FlagSet, name string) bool {
	if f := flags.Lookup(name); f != nil && f.Changed {
		return true
	}
	_, ok := os.LookupEnv("MSIKIT_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	return ok
}
