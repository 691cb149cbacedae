package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// catalogNode builds the `parts:` document with a heading comment above the
// first part of each family.
func catalogNode(families []Family) (*yaml.Node, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, f := range families {
		for i, p := range f.Parts {
			var n yaml.Node
			if err := n.Encode(p); err != nil {
				return nil, fmt.Errorf("failed to encode part %s: %w", p.Name, err)
			}
			if i == 0 {
				n.HeadComment = f.Title
			}
			seq.Content = append(seq.Content, &n)
		}
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "parts"},
		seq,
	)
	return root, nil
}

// WriteCatalog writes the families as a part catalog document.
func WriteCatalog(w io.Writer, families []Family, o Options) error {
	parts := len(Flatten(families))
	fmt.Fprintf(w, "# Starter part catalog\n")
	fmt.Fprintf(w, "# Socket type: %s\n", o.SocketType)
	fmt.Fprintf(w, "# Part count: %d\n\n", parts)

	root, err := catalogNode(families)
	if err != nil {
		return err
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// WriteCatalogFile writes the catalog to path, creating its directory.
func WriteCatalogFile(path string, families []Family, o Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteCatalog(f, families, o); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
