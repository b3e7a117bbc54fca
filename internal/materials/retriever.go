package materials

import "context"

// Retriever adapts a Library to the coordinator's attachment-context
// port: one query in, one formatted reference block out.
type Retriever struct {
	library Library
	topK    int
}

// NewRetriever wraps a library. topK <= 0 uses the library default.
func NewRetriever(library Library, topK int) *Retriever {
	return &Retriever{library: library, topK: topK}
}

// ContextFor returns the reference block for a user message, or "" when
// the library holds nothing relevant.
func (r *Retriever) ContextFor(ctx context.Context, query string) (string, error) {
	if r == nil || r.library == nil || r.library.Count() == 0 {
		return "", nil
	}
	matches, err := r.library.Search(ctx, query, r.topK)
	if err != nil {
		return "", err
	}
	return FormatContext(matches), nil
}
