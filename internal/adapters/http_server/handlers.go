package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotelmap/internal/app"
	"hotelmap/internal/domain"
)

type Handlers struct {
	Importer *app.ImportService
	Review   *app.ReviewService
	Q        *app.QueryService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Post("/v1/supplier-hotels", h.importOne)
	s.mux.Post("/v1/supplier-hotels/batch", h.importBatch)
	s.mux.Get("/v1/reviews/pending", h.pendingReviews)
	s.mux.Get("/v1/supplier-hotels/{id}/matches", h.potentialMatches)
	s.mux.Get("/v1/supplier-hotels/{id}/history", h.history)
	s.mux.Post("/v1/supplier-hotels/{id}/confirm", h.confirm)
	s.mux.Post("/v1/supplier-hotels/{id}/reject", h.reject)
	s.mux.Post("/v1/supplier-hotels/{id}/no-match", h.noMatch)
	s.mux.Post("/v1/supplier-hotels/{id}/master", h.createMaster)
	s.mux.Get("/v1/master-hotels", h.masterHotels)
	s.mux.Get("/v1/stats/mappings", h.stats)
	s.mux.Get("/v1/mappings/export", h.export)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeErr(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", ve.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", "mapping changed concurrently; refresh and retry")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("id", "must be a positive integer")
	}
	return id, nil
}

func (h *Handlers) importOne(w http.ResponseWriter, r *http.Request) {
	var in app.ImportInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	res, err := h.Importer.Import(r.Context(), in, app.SystemActor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) importBatch(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Records []app.ImportInput `json:"records"`
		Actor   string            `json:"actor,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if len(in.Records) == 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "records must not be empty")
		return
	}
	actor := in.Actor
	if actor == "" {
		actor = app.SystemActor
	}
	results := h.Importer.ImportBatch(r.Context(), in.Records, actor)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handlers) pendingReviews(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}
	out, err := h.Q.PendingReviews(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) potentialMatches(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	out, err := h.Q.PotentialMatches(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) history(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	out, err := h.Q.History(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

type reviewRequest struct {
	MasterHotelID int64  `json:"master_hotel_id"`
	Actor         string `json:"actor"`
}

func (h *Handlers) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.Review.Confirm(r.Context(), id, req.MasterHotelID, req.Actor); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": domain.StatusManuallyMapped})
}

func (h *Handlers) reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	remaining, err := h.Review.Reject(r.Context(), id, req.MasterHotelID, req.Actor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"remaining_candidates": remaining})
}

func (h *Handlers) noMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req struct {
		Actor string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.Review.MarkNoMatch(r.Context(), id, req.Actor); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": domain.StatusNoMatch})
}

func (h *Handlers) createMaster(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req struct {
		app.NewMasterInput
		Actor string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	masterID, err := h.Review.CreateMasterAndMap(r.Context(), id, req.NewMasterInput, req.Actor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"master_hotel_id": masterID,
		"status":          domain.StatusManuallyMapped,
	})
}

func (h *Handlers) masterHotels(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.Q.MasterHotels(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) stats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Stats(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) export(w http.ResponseWriter, r *http.Request) {
	var q domain.ExportQuery
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.MappingStatus(s)
		if !st.Valid() {
			writeProblem(w, http.StatusBadRequest, "Invalid status", "unknown mapping status")
			return
		}
		q.Status = &st
	}
	if s := r.URL.Query().Get("supplier_code"); s != "" {
		q.SupplierCode = &s
	}
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	out, err := h.Q.Export(r.Context(), q)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}
