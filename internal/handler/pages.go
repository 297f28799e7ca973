package handler

import (
	"fmt"
	"net/http"

	"github.com/Dan9191/vaccine-booking/internal/views"
)

// InfoPage serves one of the static Markdown pages
func (h *Handler) InfoPage(p views.InfoPage) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, ok := h.views.Content(p.Slug)
		if !ok {
			h.serverError(w, r, fmt.Errorf("no content for page %s", p.Slug))
			return
		}
		data := h.page(w, r, p.Title)
		data.Content = content
		h.render(w, r, http.StatusOK, "page", data)
	})
}
