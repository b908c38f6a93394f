package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/backdrop/internal/batch"
	"github.com/jmylchreest/backdrop/internal/colour"
	"github.com/jmylchreest/backdrop/internal/compositor"
	"github.com/jmylchreest/backdrop/internal/security"
)

// maxThumbnail caps the thumb query parameter.
const maxThumbnail = 2048

type paramsResponse struct {
	batch.Params
	DisplayOpacity int    `json:"display_opacity"`
	Pending        bool   `json:"pending"`
	State          string `json:"state"`
	LastError      string `json:"last_error,omitempty"`
}

type colourResponse struct {
	Input string `json:"input"`
	Hex   string `json:"hex"`
	Name  string `json:"name"`
	// Text is black or white, whichever reads better on Hex.
	Text string `json:"text"`
}

type exportResponse struct {
	Saved   int      `json:"saved"`
	Written []string `json:"written"`
	Error   string   `json:"error,omitempty"`
}

func (s *Server) params() paramsResponse {
	resp := paramsResponse{
		Params:         s.coord.Params(),
		DisplayOpacity: s.coord.DisplayOpacity(),
		Pending:        s.coord.HasPending(),
		State:          s.coord.State().String(),
	}
	if s.coord.LastError() != nil {
		resp.LastError = "processing failed"
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.coord.State().String(),
	})
}

func (s *Server) handleListImages(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.coord.Images())
}

// handleUpload ingests every part of the "files" multipart field.
// POST /api/images
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	uploads := make([]batch.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh, s.maxUpload)
		if err != nil {
			s.log.Warn("failed to read upload", "name", fh.Filename, "error", err)
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s", fh.Filename))
			return
		}
		uploads = append(uploads, batch.Upload{
			Name: fh.Filename,
			MIME: fh.Header.Get("Content-Type"),
			Data: data,
		})
	}

	report, err := s.coord.Ingest(r.Context(), uploads)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(security.NewLimitedReader(f, limit))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (batch.Image, bool) {
	img, ok := s.coord.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "image not found")
	}
	return img, ok
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	if img, ok := s.lookup(w, r); ok {
		s.writeJSON(w, http.StatusOK, img)
	}
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	err := s.coord.Remove(chi.URLParam(r, "id"))
	if errors.Is(err, batch.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	img, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", img.Name))
	_, _ = w.Write(img.Source)
}

// handleProcessed serves the flattened PNG, or a thumbnail of it when the
// thumb query parameter is set.
// GET /api/images/{id}/processed[?thumb=N]
func (s *Server) handleProcessed(w http.ResponseWriter, r *http.Request) {
	img, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !img.HasOutput() {
		s.writeError(w, http.StatusNotFound, "image has not been processed")
		return
	}

	data := img.Derived
	if v := r.URL.Query().Get("thumb"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 || size > maxThumbnail {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("thumb must be between 1 and %d", maxThumbnail))
			return
		}
		decoded, err := png.Decode(bytes.NewReader(img.Derived))
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to decode processed image")
			return
		}
		if data, err = compositor.EncodePNG(compositor.Thumbnail(decoded, size)); err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to encode thumbnail")
			return
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.ExportName()))
	_, _ = w.Write(data)
}

func (s *Server) handleGetParams(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.params())
}

// handleSetOpacity debounces like a slider: the response reflects the new
// display value while the committed opacity catches up.
// PUT /api/params/opacity
func (s *Server) handleSetOpacity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Opacity *int `json:"opacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Opacity == nil {
		s.writeError(w, http.StatusBadRequest, "opacity required")
		return
	}

	s.coord.SetOpacity(*req.Opacity)
	s.writeJSON(w, http.StatusAccepted, s.params())
}

// PUT /api/params/background
func (s *Server) handleSetBackground(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Background string `json:"background"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.coord.SetBackground(req.Background); err != nil {
		var invalid *colour.InvalidColourError
		if errors.As(err, &invalid) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.params())
}

func (s *Server) handleListColours(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, colour.Palette())
}

// GET /api/colours/{hex}/name
func (s *Server) handleColourName(w http.ResponseWriter, r *http.Request) {
	input := chi.URLParam(r, "hex")
	hex, err := colour.NormaliseHex(input)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rgb := colour.MustParseHex(hex)
	s.writeJSON(w, http.StatusOK, colourResponse{
		Input: input,
		Hex:   hex,
		Name:  colour.NameOfRGB(rgb),
		Text:  colour.ReadableOn(rgb).Hex(),
	})
}

// handleExport saves every processed image through a fresh saver.
// POST /api/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.newSaver == nil {
		s.writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}

	saver, err := s.newSaver(r.Context(), s.coord.Params())
	if err != nil {
		s.log.Error("failed to open export destination", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to open export destination")
		return
	}

	saved, exportErr := s.coord.ExportAll(r.Context(), saver)
	closeErr := saver.Close()

	resp := exportResponse{Saved: saved, Written: saver.Written()}
	if err := errors.Join(exportErr, closeErr); err != nil {
		s.log.Warn("export incomplete", "saved", saved, "error", err)
		resp.Error = err.Error()
		s.writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}
