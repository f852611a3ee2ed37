package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/trackarr/trackarr/pkg/importer"
)

// AccountImporter pulls a remote account's list into the store.
type AccountImporter func(ctx context.Context, userID int64, account string, mode importer.Mode) (*importer.Result, error)

// FileImporter reads an exported file into the store.
type FileImporter func(ctx context.Context, userID int64, r io.Reader, mode importer.Mode) (*importer.Result, error)

// ImportSources holds the import backends the server exposes. Sources absent
// from both maps return 404.
type ImportSources struct {
	Accounts  map[string]AccountImporter
	Files     map[string]FileImporter
	Scheduler *importer.Scheduler
}

// maxImportUpload caps uploaded export files at 32 MiB.
const maxImportUpload = 32 << 20

// RunImport runs a one-off import from a remote account or an uploaded file.
func (s Server) RunImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source := mux.Vars(r)["source"]

		if account, ok := s.imports.Accounts[source]; ok {
			s.runAccountImport(w, r, account)
			return
		}
		if file, ok := s.imports.Files[source]; ok {
			s.runFileImport(w, r, file)
			return
		}
		writeErrorResponse(w, http.StatusNotFound, errors.New("unknown import source: "+source))
	}
}

func (s Server) runAccountImport(w http.ResponseWriter, r *http.Request, run AccountImporter) {
	var req struct {
		Account string `json:"account"`
		Mode    string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	mode, err := importer.ParseMode(req.Mode)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}

	result, err := run(r.Context(), userID(r), req.Account, mode)
	s.respondImport(w, r, result, err)
}

func (s Server) runFileImport(w http.ResponseWriter, r *http.Request, run FileImporter) {
	if err := r.ParseMultipartForm(maxImportUpload); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	mode, err := importer.ParseMode(r.FormValue("mode"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	result, err := run(r.Context(), userID(r), file, mode)
	s.respondImport(w, r, result, err)
}

func (s Server) respondImport(w http.ResponseWriter, r *http.Request, result *importer.Result, err error) {
	if err != nil {
		var importErr *importer.Error
		if errors.As(err, &importErr) {
			writeErrorResponse(w, http.StatusBadGateway, err)
			return
		}
		s.respondError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, GenericResponse{Response: result})
}

// ScheduleImport queues a recurring import for a remote account source.
func (s Server) ScheduleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.imports.Scheduler == nil {
			writeErrorResponse(w, http.StatusNotFound, errors.New("import scheduling is disabled"))
			return
		}
		source := mux.Vars(r)["source"]

		var req struct {
			Mode string     `json:"mode"`
			At   *time.Time `json:"at,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		mode, err := importer.ParseMode(req.Mode)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		at := time.Now()
		if req.At != nil {
			at = *req.At
		}

		id, err := s.imports.Scheduler.Schedule(r.Context(), source, userID(r), mode, at)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: struct {
			JobID int64 `json:"job_id"`
		}{JobID: id}})
	}
}

// ListImports lists the user's scheduled and finished import jobs.
func (s Server) ListImports() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := importer.ListScheduled(r.Context(), s.store, userID(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: jobs})
	}
}
