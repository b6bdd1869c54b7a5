package api

import (
	"net/http"
)

// ListResults возвращает все собранные результаты, включая дубликаты.
// GET /api/v1/results
func (h *Handler) ListResults(w http.ResponseWriter, _ *http.Request) {
	results := ResultsFromDomain(h.store.Snapshot())
	List(w, results, len(results))
}
