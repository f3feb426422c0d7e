// Package manifest reads and writes grammars.hcl, the registry of externally
// tracked grammar source trees.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// DefaultFile is the manifest file name inside the workspace root.
const DefaultFile = "grammars.hcl"

// Entry describes one tracked grammar tree.
type Entry struct {
	// Name is the language token the entry registers.
	Name string `hcl:"name,label"`

	// URL is the git remote the tree was added from.
	URL string `hcl:"url"`

	// Ref optionally pins the checkout to a tag or branch; empty means
	// "latest released tag".
	Ref string `hcl:"ref,optional"`

	// Dir optionally overrides the checkout directory when it does not
	// follow the tree-sitter-<name> convention.
	Dir string `hcl:"dir,optional"`
}

// Directory returns the workspace directory the entry checks out into.
func (e Entry) Directory() string {
	if e.Dir != "" {
		return e.Dir
	}
	return "tree-sitter-" + e.Name
}

// Manifest is the decoded grammars.hcl.
type Manifest struct {
	Grammars []Entry `hcl:"grammar,block"`

	path string
}

// Load reads the manifest at path. A missing file yields an empty manifest
// bound to that path, so the first Add can create it.
func Load(path string) (*Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Manifest{path: path}, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", path, diags.Error())
	}

	var m Manifest
	if diags := gohcl.DecodeBody(file.Body, nil, &m); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", path, diags.Error())
	}
	m.path = path

	seen := make(map[string]bool, len(m.Grammars))
	for _, entry := range m.Grammars {
		if seen[entry.Name] {
			return nil, fmt.Errorf("%s: duplicate grammar %q", path, entry.Name)
		}
		seen[entry.Name] = true
	}
	return &m, nil
}

// Path returns where the manifest is (or will be) stored.
func (m *Manifest) Path() string {
	return m.path
}

// Lookup finds an entry by token.
func (m *Manifest) Lookup(name string) (Entry, bool) {
	for _, entry := range m.Grammars {
		if entry.Name == name {
			return entry, true
		}
	}
	return Entry{}, false
}

// Add registers a new entry. An existing entry with the same token is an
// error unless force is set, in which case it is replaced.
func (m *Manifest) Add(entry Entry, force bool) error {
	entry.Name = strings.TrimSpace(entry.Name)
	if entry.Name == "" {
		return fmt.Errorf("grammar entry needs a name")
	}
	if entry.URL == "" {
		return fmt.Errorf("grammar %q needs a url", entry.Name)
	}

	for i, existing := range m.Grammars {
		if existing.Name != entry.Name {
			continue
		}
		if !force {
			return fmt.Errorf("grammar %q already tracked (url %s); use force to replace", entry.Name, existing.URL)
		}
		m.Grammars[i] = entry
		return nil
	}
	m.Grammars = append(m.Grammars, entry)
	return nil
}

// Save writes the manifest back to its path, sorted by token so diffs stay
// stable.
func (m *Manifest) Save() error {
	if m.path == "" {
		return fmt.Errorf("manifest has no path")
	}

	entries := append([]Entry(nil), m.Grammars...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	file := hclwrite.NewEmptyFile()
	body := file.Body()
	for i, entry := range entries {
		if i > 0 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock("grammar", []string{entry.Name})
		block.Body().SetAttributeValue("url", cty.StringVal(entry.URL))
		if entry.Ref != "" {
			block.Body().SetAttributeValue("ref", cty.StringVal(entry.Ref))
		}
		if entry.Dir != "" {
			block.Body().SetAttributeValue("dir", cty.StringVal(entry.Dir))
		}
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, file.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace %s: %w", m.path, err)
	}
	return nil
}
