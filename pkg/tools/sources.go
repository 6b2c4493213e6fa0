package tools

// Source cites where a search-type tool found its answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SourceCarrier is implemented by tool results that carry citations. The
// orchestrator accumulates these across tool hops.
type SourceCarrier interface {
	SourceList() []Source
}

// SearchResult is the payload web search returns to the model.
type SearchResult struct {
	Summary string   `json:"summary"`
	Sources []Source `json:"sources,omitempty"`
}

func (r SearchResult) SourceList() []Source {
	return r.Sources
}
