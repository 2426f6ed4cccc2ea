package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gersonkurz/msikit/internal/cli"
	"github.com/gersonkurz/msikit/internal/generator"
	"github.com/gersonkurz/msikit/internal/ir"
	"github.com/gersonkurz/msikit/internal/registry"
	"github.com/gersonkurz/msikit/internal/variables"
	"github.com/gersonkurz/msikit/internal/wix"
	"github.com/gersonkurz/msikit/internal/wxs"
)

// productFlags maps the flags of "new" to build variables.
var productFlags = []struct {
	flag, variable, usage string
}{
	{"name", "PRODUCT_NAME", "product name"},
	{"version", "PRODUCT_VERSION", "product version (major.minor.build[.revision])"},
	{"manufacturer", "MANUFACTURER", "manufacturer name"},
	{"upgrade-code", "UPGRADE_CODE", "upgrade code GUID (generated if empty)"},
	{"product-id", "PRODUCT_ID", "product code GUID, * generates one per build"},
	{"install-dir", "INSTALLDIR", "default install directory"},
	{"output", "BUILD_TARGET", "MSI file written by build"},
	{"source-dir", "SOURCE_DIR", "directory harvested into the package"},
	{"files", "FILES", "semicolon-separated files, one component each"},
	{"exclude", "EXCLUDE", "semicolon-separated folders skipped while harvesting"},
}

func newNewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <document.wxs>",
		Short: "Create an installer definition",
		Long: `Create an installer definition from flags and an optional configuration
file (--config build.conf). Flags override values from the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars := variables.New()
			workDir := "."
			if cfg := a.v.GetString("config"); cfg != "" {
				loaded, err := variables.Load(cfg)
				if err != nil {
					return err
				}
				vars = loaded
				workDir = filepath.Dir(cfg)
			}
			for _, pf := range productFlags {
				if a.flagChanged(cmd.Flags(), pf.flag) {
					vars.Set(pf.variable, a.v.GetString(pf.flag))
				}
			}

			def, err := generator.FromVariables(vars, workDir)
			if err != nil {
				return err
			}
			if def.Product.Version != "" {
				if err := ir.ValidateVersion(def.Product.Version); err != nil {
					return err
				}
			}
			if err := wxs.WriteFile(args[0], def); err != nil {
				return err
			}

			a.logger.Debug("definition created", "document", args[0], "upgradeCode", def.Product.UpgradeCode)
			fmt.Fprintf(a.out, "%s %s: %s components, %s files\n", cli.Success("Created"),
				cli.Filename(args[0]),
				cli.Number(strconv.Itoa(len(def.Components()))),
				cli.Number(strconv.Itoa(def.FileCount())))
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "build configuration file (.conf, .env, .yaml, .json, .toml)")
	for _, pf := range productFlags {
		cmd.Flags().String(pf.flag, "", pf.usage)
	}
	return cmd
}

// edit loads a definition, applies change and writes it back.
func edit(document string, change func(def *ir.Definition) error) error {
	def, err := wxs.ParseFile(document)
	if err != nil {
		return err
	}
	if err := change(def); err != nil {
		return err
	}
	return wxs.WriteFile(document, def)
}

// componentFlag parses the optional --component GUID.
func (a *app) componentFlag() (uuid.UUID, error) {
	s := a.v.GetString("component")
	if s == "" {
		return uuid.Nil, nil
	}
	g, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--component '%s': %w", s, err)
	}
	return g, nil
}

func newAddFileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-file <document.wxs> <source>",
		Short: "Add a file to a definition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			component, err := a.componentFlag()
			if err != nil {
				return err
			}
			return edit(args[0], func(def *ir.Definition) error {
				f, err := def.AddFile(args[1], ir.FileOptions{
					ID:        a.v.GetString("id"),
					Component: component,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s file %s (%s)\n", cli.Success("Added"), cli.Filename(f.SourcePath), f.ID)
				return nil
			})
		},
	}
	cmd.Flags().String("id", "", "file identifier (default: file name)")
	cmd.Flags().String("component", "", "GUID of an existing component to add to")
	return cmd
}

func newAddRegistryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-registry <document.wxs> <root> <key> <name> <value>",
		Short: "Add a registry value to a definition",
		Long: `Add a registry value. An empty name sets the key's default value.

The value is interpreted according to --type:
  string       taken as is
  integer      decimal number
  binary       hex digits, e.g. 0001FE
  multistring  semicolon-separated list`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := registry.ParseType(a.v.GetString("type"))
			if err != nil {
				return err
			}
			component, err := a.componentFlag()
			if err != nil {
				return err
			}
			opts := ir.RegistryOptions{Component: component}
			root, key, name, value := args[1], args[2], args[3], args[4]

			return edit(args[0], func(def *ir.Definition) error {
				var err error
				switch typ {
				case registry.Integer:
					var n int64
					if n, err = strconv.ParseInt(value, 10, 64); err != nil {
						return fmt.Errorf("integer value '%s': %w", value, err)
					}
					_, err = def.AddRegistryInteger(root, key, name, n, opts)
				case registry.Binary:
					var data []byte
					if data, err = registry.DecodeBinary(value); err != nil {
						return err
					}
					_, err = def.AddRegistryBinary(root, key, name, data, opts)
				case registry.MultiString:
					_, err = def.AddRegistryMultiString(root, key, name, strings.Split(value, ";"), opts)
				default:
					_, err = def.AddRegistryString(root, key, name, value, opts)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s %s value %s\\%s\n", cli.Success("Added"), typ, root, key)
				return nil
			})
		},
	}
	cmd.Flags().String("type", "string", "value type: string, integer, binary, multistring")
	cmd.Flags().String("component", "", "GUID of an existing component to add to")
	return cmd
}

func newAddActionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-action <document.wxs> <id> <command>",
		Short: "Add a custom action that runs an executable",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return edit(args[0], func(def *ir.Definition) error {
				action, err := def.AddCustomAction(args[1], args[2], a.v.GetString("arguments"))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s custom action %s\n", cli.Success("Added"), action.ID)
				return nil
			})
		},
	}
	cmd.Flags().String("arguments", "", "arguments passed to the command")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <document.wxs>",
		Short: "Print the contents of a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := wxs.ParseFile(args[0])
			if err != nil {
				return err
			}
			printDefinition(a, def)
			return nil
		},
	}
}

func printDefinition(a *app, def *ir.Definition) {
	p := def.Product
	fmt.Fprintf(a.out, "%s %s\n", cli.Bold("Product:"), p.Name)
	fmt.Fprintf(a.out, "  Version:      %s\n", p.Version)
	fmt.Fprintf(a.out, "  Manufacturer: %s\n", p.Manufacturer)
	fmt.Fprintf(a.out, "  ProductId:    %s\n", p.ProductID)
	fmt.Fprintf(a.out, "  UpgradeCode:  {%s}\n", strings.ToUpper(p.UpgradeCode.String()))
	if p.InstallDirectory != "" {
		fmt.Fprintf(a.out, "  InstallDir:   %s\n", cli.Filename(p.InstallDirectory))
	}
	if p.OutputPath != "" {
		fmt.Fprintf(a.out, "  Output:       %s\n", cli.Filename(p.OutputPath))
	}

	fmt.Fprintln(a.out)
	components := def.Components()
	fmt.Fprintf(a.out, "%s %s\n", cli.Bold("Components:"), cli.Number(strconv.Itoa(len(components))))
	for _, c := range components {
		fmt.Fprintf(a.out, "  {%s}\n", strings.ToUpper(c.GUID.String()))
		for _, f := range c.Files {
			fmt.Fprintf(a.out, "    file %s %s%s\n", f.ID, cli.Filename(f.SourcePath), keyPathMark(f.KeyPath))
		}
		for _, r := range c.RegistryValues {
			name := r.Name
			if name == "" {
				name = "(default)"
			}
			fmt.Fprintf(a.out, "    reg  %s\\%s %s = %s [%s]%s\n", r.Root, r.Key, name, r.Value, r.Type, keyPathMark(r.KeyPath))
		}
	}

	if actions := def.CustomActions(); len(actions) > 0 {
		fmt.Fprintln(a.out)
		fmt.Fprintf(a.out, "%s %s\n", cli.Bold("Custom actions:"), cli.Number(strconv.Itoa(len(actions))))
		for _, ca := range actions {
			fmt.Fprintf(a.out, "  %s: %s %s\n", ca.ID, ca.Command, ca.Arguments)
		}
	}
}

func keyPathMark(keyPath bool) string {
	if keyPath {
		return " " + cli.Muted("(key path)")
	}
	return ""
}

// errNotAnUpgrade is returned by build when --previous-version is not lower
// than the definition's version.
var errNotAnUpgrade = errors.New("version does not upgrade the previous release")

func newBuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <document.wxs>",
		Short: "Validate a definition and build the MSI with candle and light",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document := args[0]
			def, err := wxs.ParseFile(document)
			if err != nil {
				return err
			}
			if err := def.Validate(); err != nil {
				return fmt.Errorf("invalid definition:\n%w", err)
			}
			if prev := a.v.GetString("previous-version"); prev != "" {
				cmp, err := ir.CompareVersions(def.Product.Version, prev)
				if err != nil {
					return err
				}
				if cmp <= 0 {
					return fmt.Errorf("%w: %s <= %s", errNotAnUpgrade, def.Product.Version, prev)
				}
			}

			out := a.v.GetString("out")
			if out == "" && def.Product.OutputPath != "" {
				out = def.Product.OutputPath
				if !filepath.IsAbs(out) {
					out = filepath.Join(filepath.Dir(document), out)
				}
			}

			tc := wix.NewToolchain()
			tc.Logger = a.logger.WithPrefix("wix")
			tc.RetainObjects = a.v.GetBool("retain-objects")
			if dir := a.v.GetString("wix-dir"); dir != "" {
				tc.Candle = filepath.Join(dir, "candle")
				tc.Light = filepath.Join(dir, "light")
			}

			msi, err := tc.Build(document, out)
			if err != nil {
				var te *wix.ToolError
				if errors.As(err, &te) && te.Output != "" {
					fmt.Fprintln(a.out, cli.Muted(strings.TrimRight(te.Output, "\r\n")))
				}
				return err
			}
			fmt.Fprintf(a.out, "%s %s\n", cli.Success("Built"), cli.Filename(msi))
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "MSI file to write (default: the definition's output path)")
	cmd.Flags().Bool("retain-objects", false, "keep the intermediate .wixobj")
	cmd.Flags().String("previous-version", "", "fail unless the product version is higher than this")
	cmd.Flags().String("wix-dir", "", "folder containing candle and light")
	return cmd
}
