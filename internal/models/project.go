// Package models defines the domain types for folio.
package models

import "time"

// ProjectID identifies a Project.
type ProjectID string

// DocumentID identifies a Document. It is unique across the whole store.
type DocumentID string

// DocumentRef is anything that names a Document: a bare DocumentID or a
// Document value.
type DocumentRef interface {
	DocumentRefID() DocumentID
}

// DocumentRefID implements DocumentRef.
func (id DocumentID) DocumentRefID() DocumentID { return id }

// Project is a writing project holding an ordered list of chapters.
type Project struct {
	ID         ProjectID  `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Archived   bool       `json:"archived,omitempty"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Documents  []Document `json:"documents"`
}

// Document is a single chapter. Name may be empty.
type Document struct {
	ID        DocumentID `json:"id"`
	Name      string     `json:"name"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// DocumentRefID implements DocumentRef.
func (d Document) DocumentRefID() DocumentID { return d.ID }

// Equal compares every field, timestamps by instant.
func (d Document) Equal(o Document) bool {
	return d.ID == o.ID && d.Name == o.Name && d.Content == o.Content &&
		d.CreatedAt.Equal(o.CreatedAt) && d.UpdatedAt.Equal(o.UpdatedAt)
}

// Clone returns a deep copy so callers can't alias the stored slices.
func (p Project) Clone() Project {
	out := p
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	if p.ArchivedAt != nil {
		at := *p.ArchivedAt
		out.ArchivedAt = &at
	}
	out.Documents = append([]Document{}, p.Documents...)
	return out
}

// IndexOf returns the position of the document in p, or -1.
func (p Project) IndexOf(id DocumentID) int {
	for i, d := range p.Documents {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Location pairs a document with its owning project.
type Location struct {
	Project  Project
	Document Document
}
