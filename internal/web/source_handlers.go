package web

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/sync"
)

type sourceResponse struct {
	ID          int64             `json:"id"`
	Path        string            `json:"path"`
	Type        domain.SourceType `json:"type"`
	LastScanned *time.Time        `json:"last_scanned"`
}

func toSourceResponse(src domain.Source) sourceResponse {
	resp := sourceResponse{ID: src.ID, Path: src.Path, Type: src.Type}
	if !src.LastScanned.IsZero() {
		t := src.LastScanned
		resp.LastScanned = &t
	}
	return resp
}

func (s *Server) handleListSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.deps.DB.ListSources(r.Context(), accountID(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out := make([]sourceResponse, 0, len(sources))
		for _, src := range sources {
			out = append(out, toSourceResponse(src))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleAddSource registers a remote git URL, or a directory under
// Options.DecksDir. Nothing is imported until the next sync.
func (s *Server) handleAddSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		path, sourceType, err := s.resolveSource(req.Path)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		id, err := s.deps.DB.InsertSource(r.Context(), accountID(r), path, sourceType)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.logger.Info("source added", "account_id", accountID(r), "source_id", id, "type", sourceType)
		writeJSON(w, http.StatusCreated, toSourceResponse(domain.Source{ID: id, Path: path, Type: sourceType}))
	}
}

var remoteGitPrefixes = []string{"https://", "http://", "ssh://", "git://", "git@"}

// resolveSource validates a source path submitted over HTTP. Anything that
// is not a remote git URL is a local directory and must resolve inside
// DecksDir; relative paths are taken relative to it.
func (s *Server) resolveSource(raw string) (string, domain.SourceType, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return "", "", fmt.Errorf("%w: path cannot be empty", domain.ErrInvalidInput)
	}
	for _, prefix := range remoteGitPrefixes {
		if strings.HasPrefix(path, prefix) {
			return path, domain.SourceGit, nil
		}
	}

	if s.opts.DecksDir == "" {
		return "", "", fmt.Errorf("%w: only git URLs can be added; local directories need sync.decks_dir", domain.ErrInvalidInput)
	}
	base, err := filepath.Abs(s.opts.DecksDir)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve decks directory: %w", err)
	}
	p := path
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %q is outside the decks directory", domain.ErrInvalidInput, path)
	}
	return p, domain.SourceLocal, nil
}

// handleDeleteSource removes a source together with the questions imported from it.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("source %q: %w", r.PathValue("id"), domain.ErrNotFound))
			return
		}
		if err := s.deps.DB.DeleteSource(r.Context(), accountID(r), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSync imports the caller's sources in the foreground and reports the
// outcome per source.
func (s *Server) handleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := sync.Run(r.Context(), s.deps.DB, sync.Options{
			ReposDir:    s.opts.ReposDir,
			Concurrency: s.opts.SyncConcurrency,
			AccountID:   accountID(r),
			Metrics:     s.deps.Metrics,
			Now:         s.opts.Now,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sources": results})
	}
}
