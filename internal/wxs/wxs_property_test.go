//go:build property
// +build property

package wxs

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/gersonkurz/msikit/internal/ir"
)

// TestRoundTripProperties checks that any definition built through the Add
// methods survives Render followed by Parse unchanged.
func TestRoundTripProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("render then parse is identity", prop.ForAll(
		func(name string, files []string, values []string, actions []string) bool {
			def := ir.New(ir.Product{Name: name, Manufacturer: name, Version: "1.0.0"})

			for _, f := range files {
				if _, err := def.AddFile(`src\`+f, ir.FileOptions{}); err != nil {
					return false
				}
			}
			for i, v := range values {
				opts := ir.RegistryOptions{}
				if i%2 == 1 {
					// Every other value joins the previous component.
					components := def.Components()
					opts.Component = components[len(components)-1].GUID
				}
				if _, err := def.AddRegistryString("HKLM", `Software\Test`, v, v, opts); err != nil {
					return false
				}
			}
			for _, a := range actions {
				// Duplicate generated IDs are rejected; that is fine here.
				_, _ = def.AddCustomAction(a, a+".exe", a)
			}

			data, err := Render(def)
			if err != nil {
				return false
			}
			got, err := Parse(data)
			if err != nil {
				return false
			}

			return reflect.DeepEqual(def.Product, got.Product) &&
				reflect.DeepEqual(def.Components(), got.Components()) &&
				reflect.DeepEqual(def.CustomActions(), got.CustomActions())
		},
		gen.RegexMatch(`^[a-zA-Z0-9 &<>"'.-]*$`),
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.RegexMatch(`^[a-zA-Z0-9 &<>"'\\.-]*$`)),
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("every component has at most one key path", prop.ForAll(
		func(files []string) bool {
			def := ir.New(ir.Product{Name: "App", Version: "1.0.0"})
			var guid uuid.UUID
			for i, f := range files {
				opts := ir.FileOptions{}
				if i > 0 {
					opts.Component = guid
				}
				file, err := def.AddFile(f, opts)
				if err != nil {
					return false
				}
				if i == 0 {
					guid = def.Components()[0].GUID
					if !file.KeyPath {
						return false
					}
				}
			}
			for _, c := range def.Components() {
				if c.KeyPathCount() != 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
