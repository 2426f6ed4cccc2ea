package generator

import (
	"fmt"

	"github.com/gersonkurz/msikit/internal/ir"
	"github.com/gersonkurz/msikit/internal/variables"
)

// FromVariables builds a definition from the build configuration:
//
//	PRODUCT_NAME, PRODUCT_VERSION, ...  product fields, see variables.Product
//	FILES        ;-separated files, one component each
//	SOURCE_DIR   directory harvested recursively
//	EXCLUDE      ;-separated folders skipped while harvesting
//
// Relative paths are resolved against workDir.
func FromVariables(vars variables.Dictionary, workDir string) (*ir.Definition, error) {
	product, err := vars.Product()
	if err != nil {
		return nil, err
	}
	def := ir.New(product)

	h := NewHarvester(workDir, vars.GetList("EXCLUDE"))
	for _, file := range vars.GetList("FILES") {
		if _, err := h.AddFile(def, file); err != nil {
			return nil, err
		}
	}

	if dir := vars.SourceDir(); dir != "" {
		n, err := h.Harvest(def, dir)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("SOURCE_DIR %s contains no files", dir)
		}
	}

	return def, nil
}
