package mock

import "github.com/fwojciec/docint"

var _ docint.Converter = (*Converter)(nil)

// Converter is a mock implementation of docint.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
