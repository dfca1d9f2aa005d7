package models

// Patch is an optional field update. The zero value leaves the field alone.
type Patch[T any] struct {
	IsSet bool
	Value T
}

// Set returns a patch that assigns v.
func Set[T any](v T) Patch[T] { return Patch[T]{IsSet: true, Value: v} }

// Unset returns a patch that leaves the field untouched.
func Unset[T any]() Patch[T] { return Patch[T]{} }

// Apply writes the value into dst when the patch is set.
func (p Patch[T]) Apply(dst *T) {
	if p.IsSet {
		*dst = p.Value
	}
}

// DocumentPatch is a partial update of a Document.
type DocumentPatch struct {
	Name    Patch[string]
	Content Patch[string]
}

// IsEmpty reports whether no field is set.
func (p DocumentPatch) IsEmpty() bool {
	return !p.Name.IsSet && !p.Content.IsSet
}

// ProjectPatch is a partial update of a Project.
type ProjectPatch struct {
	Name  Patch[string]
	Color Patch[string]
	Tags  Patch[[]string]
}

// IsEmpty reports whether no field is set.
func (p ProjectPatch) IsEmpty() bool {
	return !p.Name.IsSet && !p.Color.IsSet && !p.Tags.IsSet
}
