package entity

import (
	"path/filepath"
	"slices"
)

// Document is one immutable payload with the name it was stored under.
type Document struct {
	Name string
	Data []byte
}

// BaseName returns the file name without any archive directory prefix.
func (d Document) BaseName() string {
	return filepath.Base(d.Name)
}

// DocumentSet is the input of one run, split by provenance.
type DocumentSet struct {
	Linked []Document // archived for the property by earlier runs
	New    []Document // supplied with this run
}

// All returns linked documents followed by new ones.
func (s DocumentSet) All() []Document {
	out := make([]Document, 0, len(s.Linked)+len(s.New))
	out = append(out, s.Linked...)
	return append(out, s.New...)
}

// Clone copies both slices; payload bytes are shared since documents are never mutated.
func (s DocumentSet) Clone() DocumentSet {
	return DocumentSet{Linked: slices.Clone(s.Linked), New: slices.Clone(s.New)}
}
