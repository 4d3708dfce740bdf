package mock

import (
	"context"

	"github.com/fwojciec/docint"
)

var _ docint.ResultStore = (*ResultStore)(nil)

// ResultStore is a mock implementation of docint.ResultStore.
type ResultStore struct {
	SaveFn   func(ctx context.Context, source string, result *docint.ExtractionResult) error
	CommitFn func() error
	AbortFn  func() error
}

func (s *ResultStore) Save(ctx context.Context, source string, result *docint.ExtractionResult) error {
	return s.SaveFn(ctx, source, result)
}

func (s *ResultStore) Commit() error {
	return s.CommitFn()
}

func (s *ResultStore) Abort() error {
	return s.AbortFn()
}
