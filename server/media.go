package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/tracker"
	"go.uber.org/zap"
)

var validate = validator.New()

// refRequest identifies a piece of media in request bodies and queries.
type refRequest struct {
	MediaType     string `json:"media_type" validate:"required"`
	Source        string `json:"source"`
	MediaID       string `json:"media_id" validate:"required"`
	SeasonNumber  *int32 `json:"season_number,omitempty"`
	EpisodeNumber *int32 `json:"episode_number,omitempty"`
}

func (rr refRequest) ref() (tracker.Ref, error) {
	if err := validate.Struct(rr); err != nil {
		return tracker.Ref{}, err
	}
	mediaType, err := media.ParseType(rr.MediaType)
	if err != nil {
		return tracker.Ref{}, err
	}
	return tracker.Ref{
		MediaType:     mediaType,
		Source:        media.Source(rr.Source),
		MediaID:       rr.MediaID,
		SeasonNumber:  rr.SeasonNumber,
		EpisodeNumber: rr.EpisodeNumber,
	}, nil
}

// refFromQuery reads the same identity from query parameters.
func refFromQuery(r *http.Request) (tracker.Ref, error) {
	qp := r.URL.Query()
	rr := refRequest{
		MediaType: qp.Get("media_type"),
		Source:    qp.Get("source"),
		MediaID:   qp.Get("media_id"),
	}
	for param, dest := range map[string]**int32{
		"season_number":  &rr.SeasonNumber,
		"episode_number": &rr.EpisodeNumber,
	} {
		if v := qp.Get(param); v != "" {
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil {
				return tracker.Ref{}, errors.New("invalid " + param)
			}
			num := int32(n)
			*dest = &num
		}
	}
	return rr.ref()
}

func decodeBody(r *http.Request, dest any) error {
	return json.NewDecoder(r.Body).Decode(dest)
}

func (s Server) respondMedia(w http.ResponseWriter, r *http.Request, m *storage.Media, err error) {
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, GenericResponse{Response: m})
}

// respondError maps domain failures onto HTTP statuses.
func (s Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromCtx(r.Context())

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrEpisodeNotFound):
		status = http.StatusNotFound
	default:
		if pErr, ok := provider.AsError(err); ok && pErr.StatusCode != 0 {
			status = pErr.StatusCode
		}
	}

	log.Debug("request failed", zap.Error(err))
	writeErrorResponse(w, status, err)
}

// Search proxies a metadata search to the provider registry.
func (s Server) Search() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qp := r.URL.Query()

		mediaType, err := media.ParseType(qp.Get("media_type"))
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		page, _ := strconv.Atoi(qp.Get("page"))

		result, err := s.tracker.Search(r.Context(), mediaType, media.Source(qp.Get("source")), qp.Get("query"), page)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: result})
	}
}

// ListMedia lists a user's tracked media of one type.
func (s Server) ListMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qp := r.URL.Query()

		mediaType, err := media.ParseType(qp.Get("media_type"))
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		opts := tracker.ListOptions{Sort: tracker.Sort(qp.Get("sort"))}
		if v := qp.Get("status"); v != "" {
			status, err := media.ParseStatus(v)
			if err != nil {
				writeErrorResponse(w, http.StatusBadRequest, err)
				return
			}
			opts.Status = status
		}

		entries, err := s.tracker.List(r.Context(), userID(r), mediaType, opts)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		params, err := ParsePaginationParams(r)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		page, meta := paginate(entries, params)
		writeResponse(w, http.StatusOK, GenericResponse{Response: struct {
			Entries []*tracker.Entry `json:"entries"`
			Meta    any              `json:"meta,omitempty"`
		}{Entries: page, Meta: meta}})
	}
}

// GetMedia returns one tracked row with its metadata.
func (s Server) GetMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := refFromQuery(r)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		detail, err := s.tracker.Get(r.Context(), userID(r), ref)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: detail})
	}
}

// TrackMedia starts tracking an item with an initial status.
func (s Server) TrackMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			refRequest
			Status string `json:"status"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		ref, err := req.ref()
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		status, err := media.ParseStatus(req.Status)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		m, err := s.tracker.Track(r.Context(), userID(r), ref, status)
		s.respondMedia(w, r, m, err)
	}
}

// UpdateMedia patches score, notes, and dates. Absent fields stay untouched;
// explicit nulls clear.
func (s Server) UpdateMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			refRequest
			tracker.Update
		}
		if err := decodeBody(r, &req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		ref, err := req.ref()
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		m, err := s.tracker.Update(r.Context(), userID(r), ref, req.Update)
		s.respondMedia(w, r, m, err)
	}
}

// UntrackMedia removes a tracked row and its descendants.
func (s Server) UntrackMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := refFromQuery(r)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		if err := s.tracker.Untrack(r.Context(), userID(r), ref); err != nil {
			s.respondError(w, r, err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: "untracked"})
	}
}

// SetStatus applies a status change, cascading through seasons and episodes
// for tv.
func (s Server) SetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			refRequest
			Status string `json:"status"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		ref, err := req.ref()
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		status, err := media.ParseStatus(req.Status)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		m, err := s.tracker.SetStatus(r.Context(), userID(r), ref, status)
		s.respondMedia(w, r, m, err)
	}
}

// SetProgress sets absolute progress, clamped to the provider total.
func (s Server) SetProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			refRequest
			Progress int32 `json:"progress"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		ref, err := req.ref()
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		m, err := s.tracker.SetProgress(r.Context(), userID(r), ref, req.Progress)
		s.respondMedia(w, r, m, err)
	}
}

// StepProgress nudges progress by one unit in the given direction.
func (s Server) StepProgress(direction int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refRequest
		if err := decodeBody(r, &req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		ref, err := req.ref()
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		var m *storage.Media
		if direction >= 0 {
			m, err = s.tracker.IncreaseProgress(r.Context(), userID(r), ref)
		} else {
			m, err = s.tracker.DecreaseProgress(r.Context(), userID(r), ref)
		}
		s.respondMedia(w, r, m, err)
	}
}

// CreateManual creates a manually entered item and starts tracking it.
func (s Server) CreateManual() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MediaType string `json:"media_type" validate:"required"`
			Title     string `json:"title" validate:"required"`
			Image     string `json:"image"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		mediaType, err := media.ParseType(req.MediaType)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		m, err := s.tracker.CreateManual(r.Context(), userID(r), mediaType, req.Title, req.Image)
		s.respondMedia(w, r, m, err)
	}
}

// WatchEpisode records an episode watch and recomputes the tree.
func (s Server) WatchEpisode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			refRequest
			WatchedAt *time.Time `json:"watched_at,omitempty"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		ref, err := req.ref()
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		watchedAt := time.Now()
		if req.WatchedAt != nil {
			watchedAt = *req.WatchedAt
		}

		if err := s.tracker.WatchEpisode(r.Context(), userID(r), ref, watchedAt); err != nil {
			s.respondError(w, r, err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: "watched"})
	}
}

// UnwatchEpisode removes the most recent watch of an episode.
func (s Server) UnwatchEpisode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := refFromQuery(r)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		if err := s.tracker.UnwatchEpisode(r.Context(), userID(r), ref); err != nil {
			s.respondError(w, r, err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: "unwatched"})
	}
}

// History returns the newest history entries with decoded field diffs.
func (s Server) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		entries, err := s.tracker.History(r.Context(), userID(r), limit)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: entries})
	}
}

// Calendar returns upcoming release events for tracked items.
func (s Server) Calendar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		until := time.Now().AddDate(0, 1, 0)
		if v := r.URL.Query().Get("until"); v != "" {
			parsed, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeErrorResponse(w, http.StatusBadRequest, err)
				return
			}
			until = parsed
		}

		entries, err := s.tracker.Calendar(r.Context(), userID(r), until)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: entries})
	}
}

// Statistics returns status and score distributions per media type.
func (s Server) Statistics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.tracker.Statistics(r.Context(), userID(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: stats})
	}
}
