// Package wxs converts installer definitions to and from the XML authoring
// document consumed by the WiX toolchain.
package wxs

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gersonkurz/msikit/internal/ir"
)

// ErrUnencodable is returned by Render for text that XML 1.0 cannot carry,
// such as control characters or invalid UTF-8.
var ErrUnencodable = errors.New("text cannot be represented in XML")

// XML intermediate types. Field order is attribute order in the output.

type xmlProduct struct {
	XMLName       xml.Name          `xml:"Product"`
	Name          string            `xml:"Name,attr"`
	ID            string            `xml:"Id,attr"`
	UpgradeCode   string            `xml:"UpgradeCode,attr"`
	Manufacturer  string            `xml:"Manufacturer,attr"`
	Version       string            `xml:"Version,attr"`
	OutputPath    string            `xml:"OutputPath,attr"`
	InstallDir    string            `xml:"InstallDir,attr"`
	Components    []xmlComponent    `xml:"Component"`
	CustomActions []xmlCustomAction `xml:"CustomAction"`
}

type xmlComponent struct {
	GUID           string             `xml:"Guid,attr"`
	Files          []xmlFile          `xml:"File"`
	RegistryValues []xmlRegistryValue `xml:"RegistryValue"`
}

type xmlFile struct {
	ID      string `xml:"Id,attr"`
	Source  string `xml:"Source,attr"`
	KeyPath string `xml:"KeyPath,attr"`
}

type xmlRegistryValue struct {
	Root    string `xml:"Root,attr"`
	Key     string `xml:"Key,attr"`
	Name    string `xml:"Name,attr"`
	Value   string `xml:"Value,attr"`
	Type    string `xml:"Type,attr"`
	KeyPath string `xml:"KeyPath,attr"`
}

type xmlCustomAction struct {
	ID           string `xml:"Id,attr"`
	ExeCommand   string `xml:"ExeCommand,attr"`
	ExeArguments string `xml:"ExeArguments,attr"`
	Return       string `xml:"Return,attr"`
}

// Render serializes the definition into an authoring document.
func Render(def *ir.Definition) ([]byte, error) {
	if def.Product.UpgradeCode == uuid.Nil {
		return nil, ir.ErrMissingUpgradeCode
	}

	p := def.Product
	if err := checkAttrs("Product",
		"Name", p.Name,
		"Id", p.ProductID,
		"Manufacturer", p.Manufacturer,
		"Version", p.Version,
		"OutputPath", p.OutputPath,
		"InstallDir", p.InstallDirectory,
	); err != nil {
		return nil, err
	}

	raw := xmlProduct{
		Name:         def.Product.Name,
		ID:           def.Product.ProductID,
		UpgradeCode:  formatGUID(def.Product.UpgradeCode),
		Manufacturer: def.Product.Manufacturer,
		Version:      def.Product.Version,
		OutputPath:   def.Product.OutputPath,
		InstallDir:   def.Product.InstallDirectory,
	}

	for _, c := range def.Components() {
		if c.GUID == uuid.Nil {
			return nil, ir.ErrMissingComponentGUID
		}
		comp := xmlComponent{GUID: formatGUID(c.GUID)}
		for _, f := range c.Files {
			if err := checkAttrs("File", "Id", f.ID, "Source", f.SourcePath); err != nil {
				return nil, err
			}
			comp.Files = append(comp.Files, xmlFile{
				ID:      f.ID,
				Source:  f.SourcePath,
				KeyPath: formatYesNo(f.KeyPath),
			})
		}
		for _, r := range c.RegistryValues {
			if err := checkAttrs("RegistryValue", "Root", r.Root, "Key", r.Key, "Name", r.Name, "Value", r.Value); err != nil {
				return nil, err
			}
			comp.RegistryValues = append(comp.RegistryValues, xmlRegistryValue{
				Root:    r.Root,
				Key:     r.Key,
				Name:    r.Name,
				Value:   r.Value,
				Type:    r.Type.String(),
				KeyPath: formatYesNo(r.KeyPath),
			})
		}
		raw.Components = append(raw.Components, comp)
	}

	for _, a := range def.CustomActions() {
		if err := checkAttrs("CustomAction",
			"Id", a.ID,
			"ExeCommand", a.Command,
			"ExeArguments", a.Arguments,
			"Return", a.Return,
		); err != nil {
			return nil, err
		}
		raw.CustomActions = append(raw.CustomActions, xmlCustomAction{
			ID:           a.ID,
			ExeCommand:   a.Command,
			ExeArguments: a.Arguments,
			Return:       a.Return,
		})
	}

	body, err := xml.MarshalIndent(raw, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding XML: %w", err)
	}

	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// WriteFile renders the definition and writes it to filename.
func WriteFile(filename string, def *ir.Definition) error {
	data, err := Render(def)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}

// formatGUID writes a GUID in registry format: {XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}
func formatGUID(g uuid.UUID) string {
	return "{" + strings.ToUpper(g.String()) + "}"
}

func formatYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// checkAttrs takes attribute name/value pairs and rejects the first value
// that encoding/xml would alter.
func checkAttrs(element string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := checkText(pairs[i+1]); err != nil {
			return &ParseError{Element: element, Attribute: pairs[i], Err: err}
		}
	}
	return nil
}

func checkText(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: invalid UTF-8", ErrUnencodable)
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("%w: character %U", ErrUnencodable, r)
		}
	}
	return nil
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	switch {
	case r == 0x09, r == 0x0A, r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	default:
		return r >= 0x10000 && r <= 0x10FFFF
	}
}
