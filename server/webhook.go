package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/gorilla/mux"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
	"github.com/trackarr/trackarr/pkg/tracker"
	"go.uber.org/zap"
)

// playbackEvent is a media-server notification normalized across services.
type playbackEvent struct {
	MediaType media.Type
	TMDBID    string
	Season    *int32
	Episode   *int32
	// Played marks a finished playback rather than a start.
	Played bool
}

// Webhook ingests playback notifications from Plex, Jellyfin, and Emby.
// The token path segment identifies the user.
func (s Server) Webhook() http.HandlerFunc {
	parsers := map[string]func(*http.Request) (*playbackEvent, error){
		"plex":     parsePlexWebhook,
		"jellyfin": parseJellyfinWebhook,
		"emby":     parseEmbyWebhook,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromCtx(r.Context())
		vars := mux.Vars(r)

		parse, ok := parsers[vars["service"]]
		if !ok {
			writeErrorResponse(w, http.StatusNotFound, errors.New("unknown webhook service: "+vars["service"]))
			return
		}

		user, err := s.store.GetUser(r.Context(), table.User.Token.EQ(sqlite.String(vars["token"])))
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}

		event, err := parse(r)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		if event == nil {
			// Unsupported event type or no usable id. Acknowledge so the
			// media server doesn't retry.
			writeResponse(w, http.StatusOK, GenericResponse{Response: "ignored"})
			return
		}

		if err := s.applyPlayback(r, user, event); err != nil {
			log.Warn("webhook playback not applied",
				zap.String("service", vars["service"]),
				zap.String("tmdb_id", event.TMDBID),
				zap.Error(err))
			writeResponse(w, http.StatusOK, GenericResponse{Response: "ignored"})
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: "ok"})
	}
}

func (s Server) applyPlayback(r *http.Request, user *model.User, event *playbackEvent) error {
	ctx := r.Context()
	uid := int64(user.ID)

	switch event.MediaType {
	case media.TypeTV:
		if event.Season == nil || event.Episode == nil {
			return errors.New("episode event without season or episode number")
		}
		if !event.Played {
			return nil
		}
		ref := tracker.Ref{
			MediaType:     media.TypeTV,
			Source:        media.SourceTMDB,
			MediaID:       event.TMDBID,
			SeasonNumber:  event.Season,
			EpisodeNumber: event.Episode,
		}
		return s.tracker.WatchEpisode(ctx, uid, ref, time.Now())
	case media.TypeMovie:
		ref := tracker.Ref{
			MediaType: media.TypeMovie,
			Source:    media.SourceTMDB,
			MediaID:   event.TMDBID,
		}
		if event.Played {
			_, err := s.tracker.SetStatus(ctx, uid, ref, media.StatusCompleted)
			return err
		}
		// A playback start leaves completed rows alone so a rewatch
		// doesn't reopen them.
		if existing, err := s.tracker.Get(ctx, uid, ref); err == nil && existing.Entry.Media.Status == string(media.StatusCompleted) {
			return nil
		} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		_, err := s.tracker.SetStatus(ctx, uid, ref, media.StatusInProgress)
		return err
	default:
		return errors.New("unsupported media type")
	}
}

// webhookMediaTypes maps the servers' item kinds onto tracked types.
var webhookMediaTypes = map[string]media.Type{
	"episode": media.TypeTV,
	"movie":   media.TypeMovie,
}

// parsePlexWebhook reads Plex's multipart form, which carries the event JSON
// in a "payload" field.
func parsePlexWebhook(r *http.Request) (*playbackEvent, error) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		return nil, err
	}

	var payload struct {
		Event    string `json:"event"`
		Metadata struct {
			Type string `json:"type"`
			Guid []struct {
				ID string `json:"id"`
			} `json:"Guid"`
			ParentIndex *int32 `json:"parentIndex"`
			Index       *int32 `json:"index"`
		} `json:"Metadata"`
	}
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &payload); err != nil {
		return nil, err
	}

	if payload.Event != "media.scrobble" && payload.Event != "media.play" {
		return nil, nil
	}
	mediaType, ok := webhookMediaTypes[strings.ToLower(payload.Metadata.Type)]
	if !ok {
		return nil, nil
	}

	var tmdbID string
	for _, guid := range payload.Metadata.Guid {
		if id, found := strings.CutPrefix(guid.ID, "tmdb://"); found {
			tmdbID = id
			break
		}
	}
	if tmdbID == "" {
		return nil, nil
	}

	return &playbackEvent{
		MediaType: mediaType,
		TMDBID:    tmdbID,
		Season:    payload.Metadata.ParentIndex,
		Episode:   payload.Metadata.Index,
		Played:    payload.Event == "media.scrobble",
	}, nil
}

type jellyfinItem struct {
	Type              string `json:"Type"`
	ParentIndexNumber *int32 `json:"ParentIndexNumber"`
	IndexNumber       *int32 `json:"IndexNumber"`
	ProviderIds       struct {
		Tmdb string `json:"Tmdb"`
	} `json:"ProviderIds"`
	UserData struct {
		Played bool `json:"Played"`
	} `json:"UserData"`
}

func parseJellyfinWebhook(r *http.Request) (*playbackEvent, error) {
	var payload struct {
		Event string       `json:"Event"`
		Item  jellyfinItem `json:"Item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, err
	}

	if payload.Event != "Play" && payload.Event != "Stop" {
		return nil, nil
	}
	mediaType, ok := webhookMediaTypes[strings.ToLower(payload.Item.Type)]
	if !ok || payload.Item.ProviderIds.Tmdb == "" {
		return nil, nil
	}

	return &playbackEvent{
		MediaType: mediaType,
		TMDBID:    payload.Item.ProviderIds.Tmdb,
		Season:    payload.Item.ParentIndexNumber,
		Episode:   payload.Item.IndexNumber,
		Played:    payload.Item.UserData.Played,
	}, nil
}

func parseEmbyWebhook(r *http.Request) (*playbackEvent, error) {
	var payload struct {
		Event        string       `json:"Event"`
		Item         jellyfinItem `json:"Item"`
		PlaybackInfo struct {
			PlayedToCompletion bool `json:"PlayedToCompletion"`
		} `json:"PlaybackInfo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, err
	}

	if payload.Event != "playback.start" && payload.Event != "playback.stop" {
		return nil, nil
	}
	mediaType, ok := webhookMediaTypes[strings.ToLower(payload.Item.Type)]
	if !ok || payload.Item.ProviderIds.Tmdb == "" {
		return nil, nil
	}

	return &playbackEvent{
		MediaType: mediaType,
		TMDBID:    payload.Item.ProviderIds.Tmdb,
		Season:    payload.Item.ParentIndexNumber,
		Episode:   payload.Item.IndexNumber,
		Played:    payload.PlaybackInfo.PlayedToCompletion,
	}, nil
}
