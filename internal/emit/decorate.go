package emit

import "slices"

// Decorator attaches metadata to a record in place.
type Decorator interface {
	Decorate(r *Record)
}

// DecoratorFunc adapts a function to Decorator.
type DecoratorFunc func(r *Record)

// Decorate calls f(r).
func (f DecoratorFunc) Decorate(r *Record) {
	f(r)
}

// Fields is the standard instance decorator. It sets the record type when
// the record has none, appends tags that are not already present, and adds
// metadata entries without overwriting existing keys.
type Fields struct {
	Type      string
	Tags      []string
	AddFields map[string]string
}

// Decorate implements Decorator.
func (f Fields) Decorate(r *Record) {
	if r.Type == "" {
		r.Type = f.Type
	}
	for _, tag := range f.Tags {
		if !slices.Contains(r.Tags, tag) {
			r.Tags = append(r.Tags, tag)
		}
	}
	if len(f.AddFields) > 0 && r.Metadata == nil {
		r.Metadata = make(map[string]string, len(f.AddFields))
	}
	for k, v := range f.AddFields {
		if _, exists := r.Metadata[k]; !exists {
			r.Metadata[k] = v
		}
	}
}

// Chain applies decorators in order.
type Chain []Decorator

// Decorate implements Decorator.
func (c Chain) Decorate(r *Record) {
	for _, d := range c {
		d.Decorate(r)
	}
}
