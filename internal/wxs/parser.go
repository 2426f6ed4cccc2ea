package wxs

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/gersonkurz/msikit/internal/ir"
	"github.com/gersonkurz/msikit/internal/registry"
)

var (
	// ErrMissingAttribute is returned when a required attribute is absent.
	ErrMissingAttribute = errors.New("missing required attribute")
	// ErrUnknownAttribute is returned for attributes the format does not define.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrUnknownElement is returned for elements the format does not define.
	ErrUnknownElement = errors.New("unknown element")
	// ErrInvalidValue is returned when an attribute value cannot be interpreted.
	ErrInvalidValue = errors.New("invalid value")
)

// ParseError describes where in the document parsing or rendering failed.
type ParseError struct {
	Element   string
	Attribute string
	Err       error
}

func (e *ParseError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("<%s> attribute '%s': %v", e.Element, e.Attribute, e.Err)
	}
	return fmt.Sprintf("<%s>: %v", e.Element, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFile reads an authoring document from disk.
func ParseFile(filename string) (*ir.Definition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return Parse(data)
}

// Parse reads an authoring document. On failure no definition is returned.
func Parse(data []byte) (*ir.Definition, error) {
	var raw xmlProduct
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}

	return convertProduct(&raw)
}

// isNamespaceAttr reports whether attr is a namespace declaration, which is
// allowed on any element.
func isNamespaceAttr(attr xml.Attr) bool {
	return attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns"
}

func missing(element, attribute string) error {
	return &ParseError{Element: element, Attribute: attribute, Err: ErrMissingAttribute}
}

func unknownAttr(element string, attr xml.Attr) error {
	return &ParseError{Element: element, Attribute: attr.Name.Local, Err: ErrUnknownAttribute}
}

func unknownElement(parent, name string) error {
	return &ParseError{Element: parent, Err: fmt.Errorf("%w <%s>", ErrUnknownElement, name)}
}

// UnmarshalXML for xmlProduct - validates attributes and keeps child order
func (p *xmlProduct) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	if start.Name.Local != "Product" {
		return &ParseError{Element: start.Name.Local, Err: fmt.Errorf("%w: document root must be <Product>", ErrUnknownElement)}
	}

	hasUpgradeCode := false
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "Name":
			p.Name = attr.Value
		case "Id":
			p.ID = attr.Value
		case "UpgradeCode":
			p.UpgradeCode = attr.Value
			hasUpgradeCode = true
		case "Manufacturer":
			p.Manufacturer = attr.Value
		case "Version":
			p.Version = attr.Value
		case "OutputPath":
			p.OutputPath = attr.Value
		case "InstallDir":
			p.InstallDir = attr.Value
		default:
			if !isNamespaceAttr(attr) {
				return unknownAttr("Product", attr)
			}
		}
	}
	if !hasUpgradeCode {
		return missing("Product", "UpgradeCode")
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Component":
				var comp xmlComponent
				if err := d.DecodeElement(&comp, &t); err != nil {
					return err
				}
				p.Components = append(p.Components, comp)

			case "CustomAction":
				var action xmlCustomAction
				if err := d.DecodeElement(&action, &t); err != nil {
					return err
				}
				p.CustomActions = append(p.CustomActions, action)

			default:
				return unknownElement("Product", t.Name.Local)
			}

		case xml.EndElement:
			return nil
		}
	}
}

// UnmarshalXML for xmlComponent - validates attributes and keeps child order
func (c *xmlComponent) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	hasGUID := false
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "Guid":
			c.GUID = attr.Value
			hasGUID = true
		default:
			if !isNamespaceAttr(attr) {
				return unknownAttr("Component", attr)
			}
		}
	}
	if !hasGUID {
		return missing("Component", "Guid")
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "File":
				var file xmlFile
				if err := d.DecodeElement(&file, &t); err != nil {
					return err
				}
				c.Files = append(c.Files, file)

			case "RegistryValue":
				var val xmlRegistryValue
				if err := d.DecodeElement(&val, &t); err != nil {
					return err
				}
				c.RegistryValues = append(c.RegistryValues, val)

			default:
				return unknownElement("Component", t.Name.Local)
			}

		case xml.EndElement:
			return nil
		}
	}
}

// UnmarshalXML for xmlFile - validates attributes
func (f *xmlFile) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	hasID, hasSource := false, false
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "Id":
			f.ID = attr.Value
			hasID = true
		case "Source":
			f.Source = attr.Value
			hasSource = true
		case "KeyPath":
			f.KeyPath = attr.Value
		default:
			if !isNamespaceAttr(attr) {
				return unknownAttr("File", attr)
			}
		}
	}
	if !hasID {
		return missing("File", "Id")
	}
	if !hasSource {
		return missing("File", "Source")
	}
	return d.Skip()
}

// UnmarshalXML for xmlRegistryValue - validates attributes
func (r *xmlRegistryValue) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	hasRoot, hasKey, hasType := false, false, false
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "Root":
			r.Root = attr.Value
			hasRoot = true
		case "Key":
			r.Key = attr.Value
			hasKey = true
		case "Name":
			r.Name = attr.Value
		case "Value":
			r.Value = attr.Value
		case "Type":
			r.Type = attr.Value
			hasType = true
		case "KeyPath":
			r.KeyPath = attr.Value
		default:
			if !isNamespaceAttr(attr) {
				return unknownAttr("RegistryValue", attr)
			}
		}
	}
	if !hasRoot {
		return missing("RegistryValue", "Root")
	}
	if !hasKey {
		return missing("RegistryValue", "Key")
	}
	if !hasType {
		return missing("RegistryValue", "Type")
	}
	return d.Skip()
}

// UnmarshalXML for xmlCustomAction - validates attributes
func (a *xmlCustomAction) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	hasID := false
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "Id":
			a.ID = attr.Value
			hasID = true
		case "ExeCommand":
			a.ExeCommand = attr.Value
		case "ExeArguments":
			a.ExeArguments = attr.Value
		case "Return":
			a.Return = attr.Value
		default:
			if !isNamespaceAttr(attr) {
				return unknownAttr("CustomAction", attr)
			}
		}
	}
	if !hasID {
		return missing("CustomAction", "Id")
	}
	return d.Skip()
}

// Conversion functions

func convertProduct(raw *xmlProduct) (*ir.Definition, error) {
	upgradeCode, err := parseGUID("Product", "UpgradeCode", raw.UpgradeCode)
	if err != nil {
		return nil, err
	}

	product := ir.Product{
		Name:             raw.Name,
		ProductID:        raw.ID,
		UpgradeCode:      upgradeCode,
		Manufacturer:     raw.Manufacturer,
		Version:          raw.Version,
		OutputPath:       raw.OutputPath,
		InstallDirectory: raw.InstallDir,
	}

	var components []ir.Component
	for _, c := range raw.Components {
		comp, err := convertComponent(&c)
		if err != nil {
			return nil, err
		}
		components = append(components, *comp)
	}

	var actions []ir.CustomAction
	for _, a := range raw.CustomActions {
		actions = append(actions, ir.CustomAction{
			ID:        a.ID,
			Command:   a.ExeCommand,
			Arguments: a.ExeArguments,
			Return:    a.Return,
		})
	}

	def, err := ir.Restore(product, components, actions)
	if err != nil {
		return nil, &ParseError{Element: "Product", Err: err}
	}
	return def, nil
}

func convertComponent(raw *xmlComponent) (*ir.Component, error) {
	guid, err := parseGUID("Component", "Guid", raw.GUID)
	if err != nil {
		return nil, err
	}
	comp := &ir.Component{GUID: guid}

	for _, f := range raw.Files {
		keyPath, err := parseKeyPath("File", f.KeyPath)
		if err != nil {
			return nil, err
		}
		comp.Files = append(comp.Files, ir.File{
			ID:         f.ID,
			SourcePath: f.Source,
			KeyPath:    keyPath,
		})
	}

	for _, r := range raw.RegistryValues {
		keyPath, err := parseKeyPath("RegistryValue", r.KeyPath)
		if err != nil {
			return nil, err
		}
		typ, err := registry.ParseType(r.Type)
		if err != nil {
			return nil, &ParseError{Element: "RegistryValue", Attribute: "Type", Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
		}
		comp.RegistryValues = append(comp.RegistryValues, ir.RegistryValue{
			Root:    r.Root,
			Key:     r.Key,
			Name:    r.Name,
			Value:   r.Value,
			Type:    typ,
			KeyPath: keyPath,
		})
	}

	if n := comp.KeyPathCount(); n > 1 {
		return nil, &ParseError{
			Element: "Component",
			Err:     fmt.Errorf("%w: component %s has %d key paths", ErrInvalidValue, raw.GUID, n),
		}
	}
	return comp, nil
}

// parseGUID accepts braced or bare GUIDs. The nil GUID counts as missing.
func parseGUID(element, attribute, s string) (uuid.UUID, error) {
	g, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &ParseError{Element: element, Attribute: attribute, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
	}
	if g == uuid.Nil {
		return uuid.Nil, missing(element, attribute)
	}
	return g, nil
}

// parseKeyPath reads a yes/no key-path marker. A missing marker means no;
// anything other than yes or no is rejected.
func parseKeyPath(element, s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes":
		return true, nil
	case "no", "":
		return false, nil
	default:
		return false, &ParseError{Element: element, Attribute: "KeyPath", Err: fmt.Errorf("%w '%s'", ErrInvalidValue, s)}
	}
}
