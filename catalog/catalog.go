// Package catalog loads the unit subtype catalog: a JSON object mapping a
// unit category name to the ordered list of subtype labels it may take.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
)

// NoSubtype is returned by Pick when a category is unknown or empty.
const NoSubtype = ""

// ErrCatalogLoad matches any *LoadError via errors.Is.
var ErrCatalogLoad = errors.New("catalog load failed")

// LoadError reports an unreadable or malformed catalog file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load subtype catalog %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrCatalogLoad }

// Catalog is an immutable category -> subtypes mapping.
type Catalog struct {
	subtypes map[string][]string
}

// New builds a catalog from an in-memory mapping. The input is copied.
func New(subtypes map[string][]string) *Catalog {
	c := &Catalog{subtypes: make(map[string][]string, len(subtypes))}
	for k, v := range subtypes {
		c.subtypes[k] = append([]string(nil), v...)
	}
	return c
}

// Load reads and parses the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	c, err := Parse(bytes.NewReader(data))
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return c, nil
}

// Parse decodes a catalog from r. The document must be a single JSON object
// whose values are arrays of strings.
func Parse(r io.Reader) (*Catalog, error) {
	var raw map[string][]string
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, &LoadError{Err: err}
	}
	if dec.More() {
		return nil, &LoadError{Err: errors.New("unexpected data after catalog object")}
	}
	if raw == nil {
		return nil, &LoadError{Err: errors.New("catalog must be a JSON object")}
	}
	return &Catalog{subtypes: raw}, nil
}

// Pick returns a uniformly random subtype for category. Unknown categories and
// empty lists yield NoSubtype and false; Pick never fails.
func (c *Catalog) Pick(category string, rng *rand.Rand) (string, bool) {
	if c == nil || rng == nil {
		return NoSubtype, false
	}
	list := c.subtypes[category]
	if len(list) == 0 {
		return NoSubtype, false
	}
	return list[rng.IntN(len(list))], true
}

// Subtypes returns a copy of the subtypes listed for category.
func (c *Catalog) Subtypes(category string) []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.subtypes[category]...)
}

// Categories returns the catalog's category names in sorted order.
func (c *Catalog) Categories() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.subtypes))
	for k := range c.subtypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
