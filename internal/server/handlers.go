package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shapefill/shapefill/font"
	"github.com/shapefill/shapefill/internal/fetch"
	"github.com/shapefill/shapefill/internal/store"
	"github.com/shapefill/shapefill/layout"
	"github.com/shapefill/shapefill/raster"
	"github.com/shapefill/shapefill/render"
)

type fitTextRequest struct {
	URLImage string `json:"urlImage"`
	URLFont  string `json:"urlFont"`
	Font     string `json:"font"`
	Text     string `json:"text"`
	Color    string `json:"color"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Debug    bool   `json:"debug"`
}

type textOnPathRequest struct {
	Path          string     `json:"path"`
	Text          string     `json:"text"`
	URLFont       string     `json:"urlFont"`
	Font          string     `json:"font"`
	FontSize      float64    `json:"fontSize"`
	Color         string     `json:"color"`
	ViewBox       [4]float64 `json:"viewBox"`
	LetterSpacing float64    `json:"letterSpacing"`
	WordSpacing   float64    `json:"wordSpacing"`
}

type renderResponse struct {
	ImageSrc string `json:"imageSrc"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeRenderError maps pipeline errors onto HTTP statuses.
func writeRenderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fetch.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, fetch.ErrUpstream):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, layout.ErrUnfit):
		writeError(w, http.StatusUnprocessableEntity, "text cannot be fitted to the shape")
	case errors.Is(err, layout.ErrNoWords):
		writeError(w, http.StatusBadRequest, "text contains no words")
	case errors.Is(err, font.ErrEmptyFontData):
		writeError(w, http.StatusBadRequest, "font data is empty")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) handleFitText(w http.ResponseWriter, r *http.Request) {
	var req fitTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.URLImage == "" {
		writeError(w, http.StatusBadRequest, "urlImage is required")
		return
	}
	if req.URLFont == "" && req.Font == "" {
		writeError(w, http.StatusBadRequest, "urlFont or font is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if s.maxTextWords > 0 && len(strings.Fields(req.Text)) > s.maxTextWords {
		writeError(w, http.StatusBadRequest, "text has too many words")
		return
	}

	col, err := parseColor(req.Color)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.admit(r.Context()) {
		writeError(w, http.StatusServiceUnavailable, "render capacity exhausted")
		return
	}
	defer s.sem.Release(1)

	imgData, fontData, err := s.fetcher.Resources(r.Context(), req.URLImage, req.URLFont)
	if err != nil {
		writeRenderError(w, err)
		return
	}

	shape, err := raster.Decode(bytes.NewReader(imgData))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot decode shape image")
		return
	}

	src, err := s.fontSource(fontData, req.Font)
	if err != nil {
		writeRenderError(w, err)
		return
	}

	out, err := render.FitText(shape, req.Text, src, render.FitOptions{
		Color:        col,
		Width:        req.Width,
		Height:       req.Height,
		UpscaleWidth: s.upscaleWidth,
		Debug:        req.Debug,
	})
	if err != nil {
		writeRenderError(w, err)
		return
	}

	s.respondStored(w, r, out)
}

func (s *Server) handleTextOnPath(w http.ResponseWriter, r *http.Request) {
	var req textOnPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.URLFont == "" && req.Font == "" {
		writeError(w, http.StatusBadRequest, "urlFont or font is required")
		return
	}
	if req.FontSize <= 0 {
		req.FontSize = 40
	}
	width, height := int(req.ViewBox[2]), int(req.ViewBox[3])
	if width <= 0 || height <= 0 {
		writeError(w, http.StatusBadRequest, "viewBox must have positive width and height")
		return
	}

	col, err := parseColor(req.Color)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.admit(r.Context()) {
		writeError(w, http.StatusServiceUnavailable, "render capacity exhausted")
		return
	}
	defer s.sem.Release(1)

	var fontData []byte
	if req.URLFont != "" {
		fontData, err = s.fetcher.Font(r.Context(), req.URLFont)
		if err != nil {
			writeRenderError(w, err)
			return
		}
	}
	src, err := s.fontSource(fontData, req.Font)
	if err != nil {
		writeRenderError(w, err)
		return
	}

	out, err := render.TextOnPath(req.Path, req.Text, src.Face(req.FontSize), render.PathOptions{
		Color:         col,
		Width:         width,
		Height:        height,
		LetterSpacing: req.LetterSpacing,
		WordSpacing:   req.WordSpacing,
	})
	if err != nil {
		writeRenderError(w, err)
		return
	}

	s.respondStored(w, r, out)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	data, err := s.store.Open(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		// Unknown names answer 200 with an empty body rather than 404 so
		// stale links degrade to a blank image slot client-side.
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		s.log.Error("image lookup failed", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"renders":     st.Count,
		"renderBytes": st.TotalBytes,
	})
}

// respondStored encodes the render, stores it, and answers with its link.
func (s *Server) respondStored(w http.ResponseWriter, r *http.Request, out *image.RGBA) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		s.log.Error("png encode failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	bounds := out.Bounds()
	name, err := s.store.Put(r.Context(), buf.Bytes(), bounds.Dx(), bounds.Dy())
	if err != nil {
		s.log.Error("store put failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, renderResponse{ImageSrc: s.imageLink(r, name)})
}

// fontSource builds a font source from fetched bytes or a registry name.
func (s *Server) fontSource(data []byte, name string) (*font.Source, error) {
	if len(data) > 0 {
		return font.NewSource(data)
	}
	if s.fonts == nil {
		return nil, errors.New("no font directory configured")
	}
	return s.fonts.Lookup(name)
}

// parseColor parses the request color, defaulting to opaque black.
func parseColor(s string) (raster.RGBA, error) {
	if s == "" {
		return raster.RGBA{A: 1}, nil
	}
	return raster.ParseHex(s)
}
