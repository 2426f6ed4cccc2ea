// Package ir defines the in-memory installer definition: a product with its
// components, files, registry values and custom actions.
// These types mirror the elements of the authoring document.
package ir

import (
	"github.com/google/uuid"

	"github.com/gersonkurz/msikit/internal/registry"
)

// GenerateProductID is the product ID that asks the toolchain to generate a
// fresh product code at build time.
const GenerateProductID = "*"

// ReturnCheck makes a failing custom action abort the installation.
const ReturnCheck = "check"

// Product is the identity and metadata of one installable package.
type Product struct {
	Name      string
	ProductID string // "*" = generate at build time
	// UpgradeCode identifies the product family across versions and must not
	// change between releases.
	UpgradeCode      uuid.UUID
	Manufacturer     string
	Version          string // major.minor.build[.revision]
	OutputPath       string
	InstallDirectory string
}

// Component is the atomic install/uninstall unit.
type Component struct {
	GUID           uuid.UUID
	Files          []File
	RegistryValues []RegistryValue
}

// File represents: <File Id="..." Source="..." KeyPath="..."/>
type File struct {
	ID         string
	SourcePath string
	KeyPath    bool
}

// RegistryValue represents: <RegistryValue Root="..." Key="..." Name="..." Value="..." Type="..." KeyPath="..."/>
type RegistryValue struct {
	Root    string // HKLM, HKCU, ...
	Key     string
	Name    string // Empty for the default value
	Value   string // Already encoded, see package registry
	Type    registry.Type
	KeyPath bool
}

// CustomAction represents: <CustomAction Id="..." ExeCommand="..." ExeArguments="..." Return="..."/>
type CustomAction struct {
	ID        string
	Command   string
	Arguments string
	Return    string
}

// KeyPathCount returns how many resources in the component are marked as key path.
func (c Component) KeyPathCount() int {
	n := 0
	for _, f := range c.Files {
		if f.KeyPath {
			n++
		}
	}
	for _, r := range c.RegistryValues {
		if r.KeyPath {
			n++
		}
	}
	return n
}

func (c Component) clone() Component {
	out := Component{GUID: c.GUID}
	if len(c.Files) > 0 {
		out.Files = append([]File(nil), c.Files...)
	}
	if len(c.RegistryValues) > 0 {
		out.RegistryValues = append([]RegistryValue(nil), c.RegistryValues...)
	}
	return out
}
