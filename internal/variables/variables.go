// Package variables handles the key/value build configuration and its
// Handlebars resolution.
package variables

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/gersonkurz/msikit/internal/ir"
)

// Dictionary holds variable name-value mappings. Names are upper case.
type Dictionary map[string]string

// New creates a new variable dictionary with default values seeded.
func New() Dictionary {
	return Dictionary{
		// Generate a fresh product code on every build
		"PRODUCT_ID": ir.GenerateProductID,

		// Return mode for custom actions
		"RETURN": ir.ReturnCheck,
	}
}

// Load reads a configuration file through viper on top of the defaults and
// resolves {{VAR}} references. Files ending in .conf or .env are read as
// KEY=VALUE lines; other extensions pick their viper format (yaml, json,
// toml). Nested keys are joined with underscores, lists with semicolons.
func Load(path string) (Dictionary, error) {
	v := viper.New()
	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".conf", ".env", "":
		v.SetConfigType("env")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	d := New()
	d.LoadFromViper(v)
	if err := d.ResolveAll(); err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	return d, nil
}

// LoadFromViper copies every key of v into the dictionary, overriding
// existing values.
func (d Dictionary) LoadFromViper(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		switch val := v.Get(key).(type) {
		case []any:
			parts := make([]string, len(val))
			for i, p := range val {
				parts[i] = fmt.Sprint(p)
			}
			d[name] = strings.Join(parts, ";")
		default:
			d[name] = v.GetString(key)
		}
	}
}

// Get returns the value for a variable, or empty string if not found.
func (d Dictionary) Get(name string) string {
	return d[name]
}

// Set sets a variable value.
func (d Dictionary) Set(name, value string) {
	d[name] = value
}

// Has returns true if the variable exists in the dictionary.
func (d Dictionary) Has(name string) bool {
	_, ok := d[name]
	return ok
}

// Resolve applies Handlebars template resolution to a string.
// Variables are referenced using {{VAR_NAME}} syntax and inserted verbatim.
func (d Dictionary) Resolve(s string) (string, error) {
	tpl, err := raymond.Parse(s)
	if err != nil {
		return "", err
	}
	ctx := make(map[string]any, len(d))
	for k, v := range d {
		ctx[k] = raymond.SafeString(v)
	}
	return tpl.Exec(ctx)
}

// ResolveAll resolves variable references within the dictionary itself,
// including references to values that are themselves templates:
// PRODUCT_FULL_NAME = "{{PRODUCT_NAME}} {{PRODUCT_VERSION}}"
func (d Dictionary) ResolveAll() error {
	keys := make([]string, 0, len(d))
	for key := range d {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Each pass resolves one more level of nesting. Templates left over
	// after that come from a cycle.
	for pass := 0; pass <= len(d); pass++ {
		changed := false
		for _, key := range keys {
			value := d[key]
			if !containsTemplate(value) {
				continue
			}
			resolved, err := d.Resolve(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if resolved != value {
				d[key] = resolved
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, key := range keys {
		if containsTemplate(d[key]) {
			return fmt.Errorf("%s: circular variable reference", key)
		}
	}
	return nil
}

// containsTemplate checks if a string contains Handlebars template syntax.
func containsTemplate(s string) bool {
	return strings.Contains(s, "{{")
}

// GetBool returns the boolean value for a variable.
// Recognized true values: "True", "Yes", "On", "1" (case-insensitive)
// All other values (including empty/missing) return false.
func (d Dictionary) GetBool(name string) bool {
	switch strings.ToLower(d[name]) {
	case "true", "yes", "on", "1":
		return true
	default:
		return false
	}
}

// GetList splits a semicolon-separated value, dropping empty entries.
func (d Dictionary) GetList(name string) []string {
	var list []string
	for _, item := range strings.Split(d[name], ";") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// ProductName returns the product name.
func (d Dictionary) ProductName() string {
	return d.Get("PRODUCT_NAME")
}

// ProductID returns the product code, "*" by default.
func (d Dictionary) ProductID() string {
	return d.Get("PRODUCT_ID")
}

// ProductVersion returns the product version.
func (d Dictionary) ProductVersion() string {
	return d.Get("PRODUCT_VERSION")
}

// UpgradeCode returns the upgrade code GUID.
func (d Dictionary) UpgradeCode() string {
	return d.Get("UPGRADE_CODE")
}

// Manufacturer returns the manufacturer name.
func (d Dictionary) Manufacturer() string {
	return d.Get("MANUFACTURER")
}

// InstallDir returns the install directory.
func (d Dictionary) InstallDir() string {
	return d.Get("INSTALLDIR")
}

// BuildTarget returns the output MSI filename.
func (d Dictionary) BuildTarget() string {
	return d.Get("BUILD_TARGET")
}

// SourceDir returns the directory whose files are harvested into the package.
func (d Dictionary) SourceDir() string {
	return d.Get("SOURCE_DIR")
}

// Product builds the product description. An empty UPGRADE_CODE yields
// uuid.Nil, which ir.New replaces with a fresh code.
func (d Dictionary) Product() (ir.Product, error) {
	p := ir.Product{
		Name:             d.ProductName(),
		ProductID:        d.ProductID(),
		Manufacturer:     d.Manufacturer(),
		Version:          d.ProductVersion(),
		OutputPath:       d.BuildTarget(),
		InstallDirectory: d.InstallDir(),
	}
	if code := d.UpgradeCode(); code != "" {
		g, err := uuid.Parse(code)
		if err != nil {
			return ir.Product{}, fmt.Errorf("UPGRADE_CODE '%s': %w", code, err)
		}
		p.UpgradeCode = g
	}
	return p, nil
}
