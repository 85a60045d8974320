package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"noticeboard/internal/application/board"
	"noticeboard/internal/domain/notice"
)

// maxBodyBytes caps request bodies for both forms and JSON.
const maxBodyBytes = 64 << 10

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("internal_error", "error", err.Error())
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// boardURL returns the board page URL for a filter.
func boardURL(f notice.Filter) string {
	if f == notice.FilterAll {
		return "/"
	}
	return "/?filter=" + url.QueryEscape(string(f))
}

// pageFilter parses the filter for HTML routes, falling back to all.
func pageFilter(raw string) notice.Filter {
	f, err := notice.ParseFilter(raw)
	if err != nil {
		slog.Warn("invalid_filter", "filter", raw)
	}
	return f
}

// collect snapshots a projection so it can be used outside the session lock.
func collect(b *board.Board, f notice.Filter) []notice.Notice {
	return slices.AppendSeq(make([]notice.Notice, 0, b.Len()), b.Project(f))
}

// --- HTML routes ---

// handleBoardPage handles GET /
func (h *Handler) handleBoardPage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Ensure(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	q := r.URL.Query()
	page := boardPage{
		Filter:  pageFilter(q.Get("filter")),
		Compose: q.Get("compose") == "1",
		Draft:   notice.Draft{Category: notice.DefaultCategory},
	}
	sess.Do(func(b *board.Board) { page.load(b) })
	renderBoard(w, r, http.StatusOK, page)
}

// handleAddNotice handles POST /notices (modal form submit)
func (h *Handler) handleAddNotice(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Ensure(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	filter := pageFilter(r.PostFormValue("filter"))
	draft := notice.Draft{
		Title: r.PostFormValue("title"),
		Text:  r.PostFormValue("text"),
	}
	category, validationErr := notice.ParseCategory(r.PostFormValue("type"))
	if validationErr == nil {
		draft.Category = category
		validationErr = draft.Validate()
	}

	var n notice.Notice
	var ok bool
	if validationErr == nil {
		sess.Do(func(b *board.Board) { n, ok = b.Add(draft) })
	}
	if !ok {
		h.metrics.NoticeRejected()
		if validationErr == nil {
			validationErr = errors.New("notice could not be added")
		}
		// Keep the modal open with what the user typed.
		page := boardPage{Filter: filter, Compose: true, Draft: draft, Error: validationErr.Error()}
		sess.Do(func(b *board.Board) { page.load(b) })
		renderBoard(w, r, http.StatusUnprocessableEntity, page)
		return
	}

	h.metrics.NoticeAdded(n.Category)
	http.Redirect(w, r, boardURL(filter), http.StatusSeeOther)
}

// handlePinNotice handles POST /notices/{id}/pin
func (h *Handler) handlePinNotice(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Ensure(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	var n notice.Notice
	var ok bool
	sess.Do(func(b *board.Board) { n, ok = b.TogglePin(r.PathValue("id")) })
	if ok {
		h.metrics.PinToggled(n.Pinned)
	}
	http.Redirect(w, r, boardURL(pageFilter(r.PostFormValue("filter"))), http.StatusSeeOther)
}

// handleDeleteNotice handles POST /notices/{id}/delete
func (h *Handler) handleDeleteNotice(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Ensure(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	var ok bool
	sess.Do(func(b *board.Board) { ok = b.Remove(r.PathValue("id")) })
	if ok {
		h.metrics.NoticeRemoved()
	}
	http.Redirect(w, r, boardURL(pageFilter(r.PostFormValue("filter"))), http.StatusSeeOther)
}

// handleResetBoard handles POST /reset
// The visitor's board is discarded; the next page load starts a fresh one.
func (h *Handler) handleResetBoard(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- JSON API ---

// handleListNotices handles GET /api/notices
func (h *Handler) handleListNotices(w http.ResponseWriter, r *http.Request) {
	filter, err := notice.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := h.sessions.Ensure(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	var results []notice.Notice
	sess.Do(func(b *board.Board) { results = collect(b, filter) })
	writeJSON(w, http.StatusOK, results)
}

// handleCreateNotice handles POST /api/notices
func (h *Handler) handleCreateNotice(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Ensure(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body")
		return
	}
	draft, err := h.decodeDraft(body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := draft.Validate(); err != nil {
		h.metrics.NoticeRejected()
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var n notice.Notice
	var ok bool
	sess.Do(func(b *board.Board) { n, ok = b.Add(draft) })
	if !ok {
		h.metrics.NoticeRejected()
		writeJSONError(w, http.StatusUnprocessableEntity, "notice could not be added")
		return
	}
	h.metrics.NoticeAdded(n.Category)
	writeJSON(w, http.StatusCreated, n)
}

// handleGetNotice handles GET /api/notices/{id}
func (h *Handler) handleGetNotice(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Ensure(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	var n notice.Notice
	var ok bool
	sess.Do(func(b *board.Board) { n, ok = b.Get(r.PathValue("id")) })
	if !ok {
		writeJSONError(w, http.StatusNotFound, "notice not found")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleTogglePinAPI handles POST /api/notices/{id}/pin
func (h *Handler) handleTogglePinAPI(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Ensure(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	var n notice.Notice
	var ok bool
	sess.Do(func(b *board.Board) { n, ok = b.TogglePin(r.PathValue("id")) })
	if !ok {
		writeJSONError(w, http.StatusNotFound, "notice not found")
		return
	}
	h.metrics.PinToggled(n.Pinned)
	writeJSON(w, http.StatusOK, n)
}

// handleDeleteNoticeAPI handles DELETE /api/notices/{id}
func (h *Handler) handleDeleteNoticeAPI(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Ensure(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	var ok bool
	sess.Do(func(b *board.Board) { ok = b.Remove(r.PathValue("id")) })
	if !ok {
		writeJSONError(w, http.StatusNotFound, "notice not found")
		return
	}
	h.metrics.NoticeRemoved()
	w.WriteHeader(http.StatusNoContent)
}
