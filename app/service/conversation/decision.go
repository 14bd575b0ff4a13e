package conversation

import "path/filepath"

type Route int

const (
	RouteSkipToGeneration Route = iota
	RouteIngest
)

func (r Route) String() string {
	switch r {
	case RouteIngest:
		return "ingest"
	case RouteSkipToGeneration:
		return "skip_to_generation"
	default:
		return "unknown"
	}
}

// Decide picks the route for a turn. A document is ingested only when a path
// is supplied and its base name differs from the last attempted document.
func Decide(state State, documentPath *string) Route {
	if documentPath == nil {
		return RouteSkipToGeneration
	}

	if state.LastDocumentName == nil || *state.LastDocumentName != filepath.Base(*documentPath) {
		return RouteIngest
	}

	return RouteSkipToGeneration
}
