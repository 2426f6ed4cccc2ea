package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/gersonkurz/msikit/internal/ir"
	"github.com/gersonkurz/msikit/internal/variables"
)

var testUpgradeCode = uuid.MustParse("6f1f2a4b-6b44-4a55-9f67-3f0c6a6c9a10")

// makeTree creates files (with parent directories) below a fresh temp dir.
func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(f), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}
	return root
}

func newDefinition() *ir.Definition {
	return ir.New(ir.Product{Name: "App", UpgradeCode: testUpgradeCode, Version: "1.0.0"})
}

func sources(def *ir.Definition) []string {
	var out []string
	for _, c := range def.Components() {
		for _, f := range c.Files {
			out = append(out, f.SourcePath)
		}
	}
	return out
}

func TestHarvestSortedAndOnePerComponent(t *testing.T) {
	root := makeTree(t, "b.txt", "a.txt", "sub/c.txt", "sub/a.txt")
	def := newDefinition()

	n, err := NewHarvester(root, nil).Harvest(def, ".")
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Harvest added %d files, want 4", n)
	}

	want := []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.txt"),
		filepath.Join(root, "sub", "a.txt"),
		filepath.Join(root, "sub", "c.txt"),
	}
	got := sources(def)
	if len(got) != len(want) {
		t.Fatalf("sources = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sources[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for _, c := range def.Components() {
		if len(c.Files) != 1 || !c.Files[0].KeyPath {
			t.Errorf("component %v should hold exactly one key-path file", c.GUID)
		}
	}

	// Same name in two folders gets a suffixed ID.
	files := def.Components()[2].Files
	if files[0].ID != "a.txt_2" {
		t.Errorf("ID = %q, want a.txt_2", files[0].ID)
	}
}

func TestHarvestStableGUIDs(t *testing.T) {
	root := makeTree(t, "bin/app.exe", "bin/app.dll")

	first := newDefinition()
	if _, err := NewHarvester(root, nil).Harvest(first, "bin"); err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}
	second := newDefinition()
	if _, err := NewHarvester(root, nil).Harvest(second, filepath.Join(root, "bin")); err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}

	a, b := first.Components(), second.Components()
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("expected 2 components each, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].GUID != b[i].GUID {
			t.Errorf("component %d GUID changed between builds: %v vs %v", i, a[i].GUID, b[i].GUID)
		}
	}
	if want := ir.StableComponentID(testUpgradeCode, filepath.Join("bin", "app.dll")); a[0].GUID != want {
		t.Errorf("GUID = %v, want %v", a[0].GUID, want)
	}
}

func TestHarvestExcludes(t *testing.T) {
	root := makeTree(t, "app.exe", "obj/tmp.o", "docs/internal/x.md", "docs/readme.md")

	def := newDefinition()
	h := NewHarvester(root, []string{"OBJ", `docs\internal`})
	n, err := h.Harvest(def, root)
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Harvest added %d files, want 2: %v", n, sources(def))
	}
	for _, s := range sources(def) {
		if filepath.Base(s) == "tmp.o" || filepath.Base(s) == "x.md" {
			t.Errorf("excluded file %s was harvested", s)
		}
	}
}

func TestHarvestAbsoluteExclude(t *testing.T) {
	root := makeTree(t, "keep.txt", "skip/me.txt")

	def := newDefinition()
	n, err := NewHarvester(t.TempDir(), []string{filepath.Join(root, "skip")}).Harvest(def, root)
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Harvest added %d files, want 1", n)
	}
}

func TestHarvestErrors(t *testing.T) {
	root := makeTree(t, "file.txt")
	h := NewHarvester(root, nil)

	if _, err := h.Harvest(newDefinition(), "missing"); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := h.Harvest(newDefinition(), "file.txt"); err == nil {
		t.Error("expected error for a file instead of a directory")
	}

	def := newDefinition()
	if _, err := h.Harvest(def, "."); err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}
	if _, err := h.Harvest(def, "."); err == nil {
		t.Error("expected error when harvesting the same files twice")
	}
}

func TestFromVariables(t *testing.T) {
	root := makeTree(t, "README.txt", "dist/app.exe", "dist/lib/core.dll", "dist/tests/t.exe")

	vars := variables.New()
	vars.Set("PRODUCT_NAME", "Test App")
	vars.Set("PRODUCT_VERSION", "1.2.3")
	vars.Set("MANUFACTURER", "Example Corp")
	vars.Set("UPGRADE_CODE", testUpgradeCode.String())
	vars.Set("FILES", "README.txt")
	vars.Set("SOURCE_DIR", "dist")
	vars.Set("EXCLUDE", `dist\tests`)

	def, err := FromVariables(vars, root)
	if err != nil {
		t.Fatalf("FromVariables failed: %v", err)
	}

	if def.Product.Name != "Test App" || def.Product.UpgradeCode != testUpgradeCode {
		t.Errorf("unexpected product %+v", def.Product)
	}
	if def.Product.ProductID != "*" {
		t.Errorf("ProductID = %q, want *", def.Product.ProductID)
	}
	if def.FileCount() != 3 {
		t.Errorf("FileCount = %d, want 3: %v", def.FileCount(), sources(def))
	}
	if err := def.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestFromVariablesErrors(t *testing.T) {
	root := makeTree(t, "empty/.keep")

	vars := variables.New()
	vars.Set("UPGRADE_CODE", "bogus")
	if _, err := FromVariables(vars, root); err == nil {
		t.Error("expected error for invalid upgrade code")
	}

	vars = variables.New()
	vars.Set("FILES", "missing.exe")
	if _, err := FromVariables(vars, root); err == nil {
		t.Error("expected error for missing file")
	}

	vars = variables.New()
	vars.Set("SOURCE_DIR", "empty")
	vars.Set("EXCLUDE", "empty")
	if _, err := FromVariables(vars, root); err == nil {
		t.Error("expected error for empty source directory")
	}
}
