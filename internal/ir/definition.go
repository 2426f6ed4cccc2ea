package ir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gersonkurz/msikit/internal/registry"
)

var (
	// ErrEmptySource is returned when a file is added without a source path.
	ErrEmptySource = errors.New("source path is empty")
	// ErrEmptyID is returned when a required identifier is empty.
	ErrEmptyID = errors.New("identifier is empty")
	// ErrDuplicateID is returned when an explicit identifier is already in use.
	ErrDuplicateID = errors.New("duplicate identifier")
	// ErrEmptyKey is returned when a registry value is added without a key.
	ErrEmptyKey = errors.New("registry key is empty")
	// ErrMissingUpgradeCode is returned when a product has no upgrade code.
	ErrMissingUpgradeCode = errors.New("product has no upgrade code")
	// ErrMissingComponentGUID is returned when a component has no GUID.
	ErrMissingComponentGUID = errors.New("component has no GUID")
)

// FileOptions controls how AddFile places a file.
type FileOptions struct {
	// ID is the file identifier. Empty derives it from the last segment of
	// the source path.
	ID string
	// Component selects the component by GUID. uuid.Nil creates a new
	// component with a fresh GUID.
	Component uuid.UUID
}

// RegistryOptions controls how AddRegistryValue places a value.
type RegistryOptions struct {
	// Component selects the component by GUID. uuid.Nil creates a new
	// component with a fresh GUID.
	Component uuid.UUID
}

// Definition is an installer definition. Components and custom actions are
// only changed through the Add methods, which generate identifiers and key
// paths. A Definition is not safe for concurrent mutation.
type Definition struct {
	Product Product

	components    []Component
	customActions []CustomAction

	fileIDs   map[string]bool
	actionIDs map[string]bool
}

// New creates an empty definition for the product. An empty ProductID becomes
// GenerateProductID; a nil UpgradeCode is replaced by a fresh one. An upgrade
// code that is already set is kept as is.
func New(p Product) *Definition {
	if p.ProductID == "" {
		p.ProductID = GenerateProductID
	}
	if p.UpgradeCode == uuid.Nil {
		p.UpgradeCode = uuid.New()
	}
	return &Definition{
		Product:   p,
		fileIDs:   make(map[string]bool),
		actionIDs: make(map[string]bool),
	}
}

// Restore rebuilds a definition from decoded parts, keeping every identifier
// and key-path flag exactly as given. Component GUIDs, file IDs and custom
// action IDs must be unique.
func Restore(p Product, components []Component, actions []CustomAction) (*Definition, error) {
	if p.UpgradeCode == uuid.Nil {
		return nil, ErrMissingUpgradeCode
	}

	d := &Definition{
		Product:   p,
		fileIDs:   make(map[string]bool),
		actionIDs: make(map[string]bool),
	}
	for i, c := range components {
		if c.GUID == uuid.Nil {
			return nil, fmt.Errorf("component %d: %w", i, ErrMissingComponentGUID)
		}
		if d.indexOf(c.GUID) >= 0 {
			return nil, fmt.Errorf("%w: component {%s}", ErrDuplicateID, c.GUID)
		}
		for _, f := range c.Files {
			if d.fileIDs[f.ID] {
				return nil, fmt.Errorf("%w: file '%s'", ErrDuplicateID, f.ID)
			}
			d.fileIDs[f.ID] = true
		}
		d.components = append(d.components, c.clone())
	}
	for _, a := range actions {
		if d.actionIDs[a.ID] {
			return nil, fmt.Errorf("%w: custom action '%s'", ErrDuplicateID, a.ID)
		}
		d.customActions = append(d.customActions, a)
		d.actionIDs[a.ID] = true
	}
	return d, nil
}

// Components returns a copy of the components in insertion order.
func (d *Definition) Components() []Component {
	if len(d.components) == 0 {
		return nil
	}
	out := make([]Component, len(d.components))
	for i, c := range d.components {
		out[i] = c.clone()
	}
	return out
}

// Component returns a copy of the component with the given GUID.
func (d *Definition) Component(guid uuid.UUID) (Component, bool) {
	if i := d.indexOf(guid); i >= 0 {
		return d.components[i].clone(), true
	}
	return Component{}, false
}

// CustomActions returns a copy of the custom actions in insertion order.
func (d *Definition) CustomActions() []CustomAction {
	if len(d.customActions) == 0 {
		return nil
	}
	return append([]CustomAction(nil), d.customActions...)
}

// FileCount returns the number of files across all components.
func (d *Definition) FileCount() int {
	n := 0
	for _, c := range d.components {
		n += len(c.Files)
	}
	return n
}

// RegistryValueCount returns the number of registry values across all components.
func (d *Definition) RegistryValueCount() int {
	n := 0
	for _, c := range d.components {
		n += len(c.RegistryValues)
	}
	return n
}

// AddFile adds the file at source. Without opts.ID the ID is the file name,
// suffixed with _2, _3, ... when that name is taken. Without opts.Component a
// new component is created and the file becomes its key path. With a GUID that
// names an existing component the file joins it; it only becomes key path if
// that component has none.
func (d *Definition) AddFile(source string, opts FileOptions) (File, error) {
	if source == "" {
		return File{}, ErrEmptySource
	}
	d.init()

	id := opts.ID
	if id == "" {
		base := fileName(source)
		if base == "" {
			return File{}, fmt.Errorf("%w: '%s' has no file name", ErrEmptySource, source)
		}
		id = d.uniqueFileID(base)
	} else if d.fileIDs[id] {
		return File{}, fmt.Errorf("%w: file '%s'", ErrDuplicateID, id)
	}

	file := File{ID: id, SourcePath: source}
	d.place(opts.Component, func(c *Component, keyPath bool) {
		file.KeyPath = keyPath
		c.Files = append(c.Files, file)
	})
	d.fileIDs[id] = true
	return file, nil
}

// AddRegistryValue adds a value whose textual form is already encoded for typ.
// The typed AddRegistry* helpers encode the value first. Component placement
// follows the same rules as AddFile.
func (d *Definition) AddRegistryValue(root, key, name, value string, typ registry.Type, opts RegistryOptions) (RegistryValue, error) {
	normalized, err := registry.NormalizeRoot(root)
	if err != nil {
		return RegistryValue{}, err
	}
	if key == "" {
		return RegistryValue{}, ErrEmptyKey
	}
	if _, ok := registryTypes[typ]; !ok {
		return RegistryValue{}, fmt.Errorf("unsupported registry value type %v", typ)
	}
	d.init()

	val := RegistryValue{
		Root:  normalized,
		Key:   key,
		Name:  name,
		Value: value,
		Type:  typ,
	}
	d.place(opts.Component, func(c *Component, keyPath bool) {
		val.KeyPath = keyPath
		c.RegistryValues = append(c.RegistryValues, val)
	})
	return val, nil
}

var registryTypes = map[registry.Type]struct{}{
	registry.String:      {},
	registry.Integer:     {},
	registry.Binary:      {},
	registry.MultiString: {},
}

// AddRegistryString adds a string value.
func (d *Definition) AddRegistryString(root, key, name, value string, opts RegistryOptions) (RegistryValue, error) {
	return d.AddRegistryValue(root, key, name, value, registry.String, opts)
}

// AddRegistryInteger adds an integer value, stored as decimal text.
func (d *Definition) AddRegistryInteger(root, key, name string, value int64, opts RegistryOptions) (RegistryValue, error) {
	return d.AddRegistryValue(root, key, name, registry.EncodeInteger(value), registry.Integer, opts)
}

// AddRegistryBinary adds a binary value, stored as uppercase hex.
func (d *Definition) AddRegistryBinary(root, key, name string, value []byte, opts RegistryOptions) (RegistryValue, error) {
	return d.AddRegistryValue(root, key, name, registry.EncodeBinary(value), registry.Binary, opts)
}

// AddRegistryMultiString adds a multi-string value, stored with [~] separators.
func (d *Definition) AddRegistryMultiString(root, key, name string, values []string, opts RegistryOptions) (RegistryValue, error) {
	return d.AddRegistryValue(root, key, name, registry.EncodeMultiString(values), registry.MultiString, opts)
}

// AddCustomAction appends an executable custom action whose failure aborts
// the installation.
func (d *Definition) AddCustomAction(id, command, arguments string) (CustomAction, error) {
	if id == "" {
		return CustomAction{}, fmt.Errorf("custom action: %w", ErrEmptyID)
	}
	d.init()
	if d.actionIDs[id] {
		return CustomAction{}, fmt.Errorf("%w: custom action '%s'", ErrDuplicateID, id)
	}

	action := CustomAction{
		ID:        id,
		Command:   command,
		Arguments: arguments,
		Return:    ReturnCheck,
	}
	d.customActions = append(d.customActions, action)
	d.actionIDs[id] = true
	return action, nil
}

// Validate checks the definition before it is handed to the toolchain and
// returns every violation found.
func (d *Definition) Validate() error {
	var errs []error

	if d.Product.UpgradeCode == uuid.Nil {
		errs = append(errs, ErrMissingUpgradeCode)
	}
	if err := ValidateVersion(d.Product.Version); err != nil {
		errs = append(errs, err)
	}

	guids := make(map[uuid.UUID]bool)
	files := make(map[string]bool)
	for i, c := range d.components {
		if c.GUID == uuid.Nil {
			errs = append(errs, fmt.Errorf("component %d: %w", i, ErrMissingComponentGUID))
		} else if guids[c.GUID] {
			errs = append(errs, fmt.Errorf("%w: component {%s}", ErrDuplicateID, c.GUID))
		}
		guids[c.GUID] = true

		if n := c.KeyPathCount(); n > 1 {
			errs = append(errs, fmt.Errorf("component {%s} has %d key paths", c.GUID, n))
		}
		for _, f := range c.Files {
			if f.SourcePath == "" {
				errs = append(errs, fmt.Errorf("file '%s': %w", f.ID, ErrEmptySource))
			}
			if files[f.ID] {
				errs = append(errs, fmt.Errorf("%w: file '%s'", ErrDuplicateID, f.ID))
			}
			files[f.ID] = true
		}
	}

	actions := make(map[string]bool)
	for _, a := range d.customActions {
		if actions[a.ID] {
			errs = append(errs, fmt.Errorf("%w: custom action '%s'", ErrDuplicateID, a.ID))
		}
		actions[a.ID] = true
	}

	return errors.Join(errs...)
}

// place calls add with the component to append to: the existing one with
// guid, or a new one (fresh GUID when guid is nil) that is appended afterwards.
func (d *Definition) place(guid uuid.UUID, add func(c *Component, keyPath bool)) {
	if guid != uuid.Nil {
		if i := d.indexOf(guid); i >= 0 {
			c := &d.components[i]
			add(c, c.KeyPathCount() == 0)
			return
		}
	} else {
		guid = uuid.New()
	}

	c := Component{GUID: guid}
	add(&c, true)
	d.components = append(d.components, c)
}

func (d *Definition) indexOf(guid uuid.UUID) int {
	for i := range d.components {
		if d.components[i].GUID == guid {
			return i
		}
	}
	return -1
}

func (d *Definition) uniqueFileID(base string) string {
	id := base
	for n := 2; d.fileIDs[id]; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	return id
}

// init allows the zero Definition to be used.
func (d *Definition) init() {
	if d.fileIDs == nil {
		d.fileIDs = make(map[string]bool)
	}
	if d.actionIDs == nil {
		d.actionIDs = make(map[string]bool)
	}
}

// fileName returns the final segment of a path using either separator, so
// Windows paths resolve the same way on every host.
func fileName(path string) string {
	return path[strings.LastIndexAny(path, `/\`)+1:]
}
