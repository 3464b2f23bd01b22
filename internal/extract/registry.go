package extract

import "log/slog"

// Registry holds the ordered, read-only set of registered extractors.
// Populated once at process start; never mutated during a run.
type Registry struct {
	extractors []Extractor
	logger     *slog.Logger
}

// NewRegistry builds a registry over the given extractors, in order.
func NewRegistry(logger *slog.Logger, extractors ...Extractor) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{extractors: extractors, logger: logger}
}

// DefaultRegistry registers every known authority in its canonical order.
func DefaultRegistry(logger *slog.Logger) *Registry {
	return NewRegistry(logger, Benalmadena{}, Fuengirola{}, Malaga{}, DGT{})
}

// Extractors returns the registration order.
func (r *Registry) Extractors() []Extractor {
	return r.extractors
}

// Dispatch asks the extractor recognizing fileName first; if it is absent or
// fails, every registered extractor is tried in registration order and the
// first success wins. A false return is a normal outcome, not an error:
// downstream has an explicit policy for unresolved date/time.
func (r *Registry) Dispatch(fileName, fullText string, lines []string) (Result, bool) {
	for _, ex := range r.extractors {
		if !ex.Recognizes(fileName) {
			continue
		}
		if res, ok := ex.TryExtract(fullText, lines); ok {
			return res, true
		}
		r.logger.Debug("recognized extractor failed, falling back",
			"extractor", ex.Name(), "file", fileName)
		break
	}

	for _, ex := range r.extractors {
		if res, ok := ex.TryExtract(fullText, lines); ok {
			return res, true
		}
	}

	r.logger.Debug("no extractor resolved date/time", "file", fileName)
	return Result{}, false
}
