package wxs

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gersonkurz/msikit/internal/ir"
	"github.com/gersonkurz/msikit/internal/registry"
)

var testUpgradeCode = uuid.MustParse("6f1f2a4b-6b44-4a55-9f67-3f0c6a6c9a10")

func newDefinition() *ir.Definition {
	return ir.New(ir.Product{
		Name:             "Test App",
		UpgradeCode:      testUpgradeCode,
		Manufacturer:     "Example Corp",
		Version:          "1.2.3.4",
		OutputPath:       `out\TestApp.msi`,
		InstallDirectory: `C:\Program Files\Test App`,
	})
}

func roundTrip(t *testing.T, def *ir.Definition) *ir.Definition {
	t.Helper()
	data, err := Render(def)
	require.NoError(t, err)
	got, err := Parse(data)
	require.NoError(t, err, "rendered document:\n%s", data)
	return got
}

func assertSameDefinition(t *testing.T, want, got *ir.Definition) {
	t.Helper()
	assert.Equal(t, want.Product, got.Product)
	assert.Equal(t, want.Components(), got.Components())
	assert.Equal(t, want.CustomActions(), got.CustomActions())
}

func TestRoundTripEmpty(t *testing.T) {
	def := newDefinition()
	got := roundTrip(t, def)

	assertSameDefinition(t, def, got)
	assert.Empty(t, got.Components())
	assert.Empty(t, got.CustomActions())
	assert.Equal(t, ir.GenerateProductID, got.Product.ProductID)
}

func TestRoundTripSingle(t *testing.T) {
	def := newDefinition()
	_, err := def.AddFile(`bin\app.exe`, ir.FileOptions{})
	require.NoError(t, err)
	_, err = def.AddRegistryString("HKLM", `Software\Example\App`, "InstallPath", `C:\App`, ir.RegistryOptions{})
	require.NoError(t, err)
	_, err = def.AddCustomAction("Configure", `[INSTALLDIR]app.exe`, "--configure")
	require.NoError(t, err)

	assertSameDefinition(t, def, roundTrip(t, def))
}

func TestRoundTripMany(t *testing.T) {
	def := newDefinition()
	_, err := def.AddFile(`bin\app.exe`, ir.FileOptions{})
	require.NoError(t, err)
	guid := def.Components()[0].GUID

	for _, name := range []string{`bin\app.exe.config`, `bin\core.dll`, `x86\app.exe`} {
		_, err := def.AddFile(name, ir.FileOptions{Component: guid})
		require.NoError(t, err)
	}
	_, err = def.AddRegistryInteger("HKCU", `Software\Example`, "Count", -7, ir.RegistryOptions{Component: guid})
	require.NoError(t, err)
	_, err = def.AddRegistryBinary("HKLM", `Software\Example`, "Blob", []byte{0, 1, 0xfe}, ir.RegistryOptions{})
	require.NoError(t, err)
	_, err = def.AddRegistryMultiString("HKLM", `Software\Example`, "Paths", []string{`C:\a`, `D:\b`}, ir.RegistryOptions{})
	require.NoError(t, err)
	_, err = def.AddRegistryString("HKCR", `.example`, "", "Example.Document", ir.RegistryOptions{})
	require.NoError(t, err)
	for _, id := range []string{"First", "Second", "Third"} {
		_, err := def.AddCustomAction(id, id+".exe", "")
		require.NoError(t, err)
	}

	got := roundTrip(t, def)
	assertSameDefinition(t, def, got)

	components := got.Components()
	require.Len(t, components, 4)
	assert.Len(t, components[0].Files, 4)
	assert.Equal(t, "app.exe_2", components[0].Files[3].ID)
	assert.Equal(t, 1, components[0].KeyPathCount())
	assert.Equal(t, registry.Binary, components[1].RegistryValues[0].Type)
	assert.Equal(t, "0001FE", components[1].RegistryValues[0].Value)
}

func TestRoundTripEscaping(t *testing.T) {
	def := ir.New(ir.Product{
		Name:         `Tom & Jerry's "<Tools>"`,
		UpgradeCode:  testUpgradeCode,
		Manufacturer: "A&B\tC\nD",
		Version:      "1.0.0",
	})
	_, err := def.AddFile(`C:\src\a&b <c>.txt`, ir.FileOptions{})
	require.NoError(t, err)
	_, err = def.AddRegistryString("HKLM", `Software\"Quoted"`, "Name", "line1\r\nline2 & 'more'", ir.RegistryOptions{})
	require.NoError(t, err)
	_, err = def.AddCustomAction("Run", `cmd.exe`, `/c echo "<hi>" & exit`)
	require.NoError(t, err)

	assertSameDefinition(t, def, roundTrip(t, def))
}

func TestRoundTripComponentWithoutKeyPath(t *testing.T) {
	guid := uuid.MustParse("0c9d6f1e-2a41-4f0e-9a77-4c1b1f2b3c4d")
	def, err := ir.Restore(ir.Product{Name: "App", UpgradeCode: testUpgradeCode, Version: "1.0.0"}, []ir.Component{
		{GUID: guid, Files: []ir.File{{ID: "a", SourcePath: "a.txt"}}},
	}, nil)
	require.NoError(t, err)

	got := roundTrip(t, def)
	assertSameDefinition(t, def, got)
	c, ok := got.Component(guid)
	require.True(t, ok)
	assert.Equal(t, 0, c.KeyPathCount())
}

func TestRenderFormat(t *testing.T) {
	def := newDefinition()
	_, err := def.AddFile("app.exe", ir.FileOptions{})
	require.NoError(t, err)

	data, err := Render(def)
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, text, `UpgradeCode="{6F1F2A4B-6B44-4A55-9F67-3F0C6A6C9A10}"`)
	assert.Contains(t, text, `KeyPath="yes"`)
	assert.True(t, strings.HasSuffix(text, "</Product>\n"))
}

func TestRenderRejectsMissingUpgradeCode(t *testing.T) {
	def := &ir.Definition{Product: ir.Product{Name: "App"}}
	_, err := Render(def)
	assert.ErrorIs(t, err, ir.ErrMissingUpgradeCode)
}

func TestRenderRejectsUnencodableText(t *testing.T) {
	tests := []struct {
		name      string
		build     func(def *ir.Definition) error
		element   string
		attribute string
	}{
		{"control character in product name", func(def *ir.Definition) error {
			def.Product.Name = "A\x01B"
			return nil
		}, "Product", "Name"},
		{"invalid UTF-8 in file source", func(def *ir.Definition) error {
			_, err := def.AddFile("bin/\xff.exe", ir.FileOptions{ID: "app"})
			return err
		}, "File", "Source"},
		{"NUL in registry value", func(def *ir.Definition) error {
			_, err := def.AddRegistryString("HKLM", `Software\Example`, "Name", "a\x00b", ir.RegistryOptions{})
			return err
		}, "RegistryValue", "Value"},
		{"escape character in action arguments", func(def *ir.Definition) error {
			_, err := def.AddCustomAction("Run", "app.exe", "\x1b[0m")
			return err
		}, "CustomAction", "ExeArguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := newDefinition()
			require.NoError(t, tt.build(def))

			data, err := Render(def)
			assert.Nil(t, data)
			assert.ErrorIs(t, err, ErrUnencodable)
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.element, perr.Element)
			assert.Equal(t, tt.attribute, perr.Attribute)
		})
	}
}

func TestRoundTripNonASCII(t *testing.T) {
	def := ir.New(ir.Product{
		Name:        "Gr\u00fc\u00dfe \u65e5\u672c \U0001F680",
		UpgradeCode: testUpgradeCode,
		Version:     "1.0.0",
	})
	_, err := def.AddFile("C:\\src\\\u00e9t\u00e9.txt", ir.FileOptions{})
	require.NoError(t, err)

	assertSameDefinition(t, def, roundTrip(t, def))
}

func TestWriteAndParseFile(t *testing.T) {
	def := newDefinition()
	_, err := def.AddFile("app.exe", ir.FileOptions{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "product.wxs")
	require.NoError(t, WriteFile(path, def))

	got, err := ParseFile(path)
	require.NoError(t, err)
	assertSameDefinition(t, def, got)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.wxs"))
	assert.Error(t, err)
}

func TestParseAcceptsBareGUIDsAndMissingKeyPath(t *testing.T) {
	doc := `<Product xmlns="http://schemas.microsoft.com/wix/2006/wi" Name="App" UpgradeCode="6f1f2a4b-6b44-4a55-9f67-3f0c6a6c9a10">
  <Component Guid="{0C9D6F1E-2A41-4F0E-9A77-4C1B1F2B3C4D}">
    <File Id="a" Source="a.txt" KeyPath="YES"/>
    <RegistryValue Root="HKLM" Key="Software\X" Type="integer" Value="1"/>
  </Component>
</Product>`

	def, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, testUpgradeCode, def.Product.UpgradeCode)
	components := def.Components()
	require.Len(t, components, 1)
	assert.True(t, components[0].Files[0].KeyPath)
	assert.False(t, components[0].RegistryValues[0].KeyPath)
	assert.Equal(t, registry.Integer, components[0].RegistryValues[0].Type)
}

func TestParseErrors(t *testing.T) {
	const code = `UpgradeCode="{6F1F2A4B-6B44-4A55-9F67-3F0C6A6C9A10}"`
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"malformed", `<Product ` + code + `>`, nil},
		{"wrong root", `<Wix/>`, ErrUnknownElement},
		{"missing upgrade code", `<Product Name="x"/>`, ErrMissingAttribute},
		{"bad upgrade code", `<Product UpgradeCode="not-a-guid"/>`, ErrInvalidValue},
		{"nil upgrade code", `<Product UpgradeCode="{00000000-0000-0000-0000-000000000000}"/>`, ErrMissingAttribute},
		{"unknown product attribute", `<Product ` + code + ` Color="red"/>`, ErrUnknownAttribute},
		{"unknown child", `<Product ` + code + `><Feature/></Product>`, ErrUnknownElement},
		{"component without guid", `<Product ` + code + `><Component/></Product>`, ErrMissingAttribute},
		{"file without source", `<Product ` + code + `><Component Guid="{0C9D6F1E-2A41-4F0E-9A77-4C1B1F2B3C4D}"><File Id="a"/></Component></Product>`, ErrMissingAttribute},
		{"file without id", `<Product ` + code + `><Component Guid="{0C9D6F1E-2A41-4F0E-9A77-4C1B1F2B3C4D}"><File Source="a"/></Component></Product>`, ErrMissingAttribute},
		{"bad key path", `<Product ` + code + `><Component Guid="{0C9D6F1E-2A41-4F0E-9A77-4C1B1F2B3C4D}"><File Id="a" Source="a" KeyPath="maybe"/></Component></Product>`, ErrInvalidValue},
		{"two key paths", `<Product ` + code + `><Component Guid="{0C9D6F1E-2A41-4F0E-9A77-4C1B1F2B3C4D}"><File Id="a" Source="a" KeyPath="yes"/><File Id="b" Source="b" KeyPath="yes"/></Component></Product>`, ErrInvalidValue},
		{"registry without type", `<Product ` + code + `><Component Guid="{0C9D6F1E-2A41-4F0E-9A77-4C1B1F2B3C4D}"><RegistryValue Root="HKLM" Key="K"/></Component></Product>`, ErrMissingAttribute},
		{"registry bad type", `<Product ` + code + `><Component Guid="{0C9D6F1E-2A41-4F0E-9A77-4C1B1F2B3C4D}"><RegistryValue Root="HKLM" Key="K" Type="expandable"/></Component></Product>`, ErrInvalidValue},
		{"action without id", `<Product ` + code + `><CustomAction ExeCommand="a.exe"/></Product>`, ErrMissingAttribute},
		{"unknown action attribute", `<Product ` + code + `><CustomAction Id="A" Impersonate="no"/></Product>`, ErrUnknownAttribute},
		{"duplicate file id", `<Product ` + code + `><Component Guid="{0C9D6F1E-2A41-4F0E-9A77-4C1B1F2B3C4D}"><File Id="a" Source="a"/></Component><Component Guid="{1C9D6F1E-2A41-4F0E-9A77-4C1B1F2B3C4D}"><File Id="a" Source="b"/></Component></Product>`, ir.ErrDuplicateID},
		{"duplicate action id", `<Product ` + code + `><CustomAction Id="A" ExeCommand="a.exe"/><CustomAction Id="A" ExeCommand="b.exe"/></Product>`, ir.ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, def)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				var perr *ParseError
				assert.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
			}
		})
	}
}
