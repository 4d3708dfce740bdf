package registry

import (
	"errors"
	"slices"

	"github.com/fwojciec/docint"
)

// Set holds one table per plugin family. Independent sets can coexist,
// which lets tests build isolated engines.
type Set struct {
	Extractors     *Table[docint.DocumentExtractor]
	OcrBackends    *Table[docint.OcrBackend]
	PostProcessors *Table[docint.PostProcessor]
	Validators     *Table[docint.Validator]
}

var _ docint.OcrBackendLookup = (*Set)(nil)

// NewSet creates a Set with four empty tables.
func NewSet() *Set {
	return &Set{
		Extractors: NewTable(docint.FamilyExtractor, func(e docint.DocumentExtractor) (int, docint.ProcessingStage) {
			return e.Priority(), docint.StageEarly
		}),
		OcrBackends: NewTable[docint.OcrBackend](docint.FamilyOcrBackend, nil),
		PostProcessors: NewTable(docint.FamilyPostProcessor, func(p docint.PostProcessor) (int, docint.ProcessingStage) {
			return 0, p.Stage()
		}),
		Validators: NewTable[docint.Validator](docint.FamilyValidator, nil),
	}
}

// OcrBackend returns the OCR backend registered under name.
func (s *Set) OcrBackend(name string) (docint.OcrBackend, bool) {
	h, ok := s.OcrBackends.Get(name)
	if !ok {
		return nil, false
	}
	return h.Plugin, true
}

// PostProcessorsForStage returns the processors registered for stage,
// in registration order, as of the moment of the call.
func (s *Set) PostProcessorsForStage(stage docint.ProcessingStage) []*Handle[docint.PostProcessor] {
	all := s.PostProcessors.Snapshot()
	out := all[:0]
	for _, h := range all {
		if h.Stage == stage {
			out = append(out, h)
		}
	}
	return out
}

// Clear empties every table.
func (s *Set) Clear() {
	s.Extractors.Clear()
	s.OcrBackends.Clear()
	s.PostProcessors.Clear()
	s.Validators.Clear()
}

// Close shuts down every registered or retired plugin that implements
// docint.Shutdowner and empties the tables. A plugin is shut down once even
// if it was registered more than once.
func (s *Set) Close() error {
	var errs []error
	errs = append(errs, shutdown(s.Extractors)...)
	errs = append(errs, shutdown(s.OcrBackends)...)
	errs = append(errs, shutdown(s.PostProcessors)...)
	errs = append(errs, shutdown(s.Validators)...)
	return errors.Join(errs...)
}

func shutdown[T docint.Plugin](t *Table[T]) []error {
	var errs []error
	var done []any
	for _, h := range t.drain() {
		if slices.ContainsFunc(done, func(p any) bool { return samePlugin(p, h.Plugin) }) {
			continue
		}
		done = append(done, h.Plugin)
		if sd, ok := any(h.Plugin).(docint.Shutdowner); ok {
			if err := sd.Shutdown(); err != nil {
				errs = append(errs, docint.PluginError(docint.EINTERNAL, h.Name, err))
			}
		}
	}
	return errs
}
