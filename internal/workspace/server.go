package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"tutorion/internal/chunker"
	"tutorion/internal/httputil"
	"tutorion/internal/llm"
)

// ResourceMetadataPath serves the OAuth protected-resource document.
const ResourceMetadataPath = "/.well-known/oauth-protected-resource"

// PageReader extracts per-page text from uploaded PDF bytes.
type PageReader interface {
	ExtractReader(r io.ReaderAt, size int64) ([]string, error)
}

// ServerOptions configures the HTTP surface.
type ServerOptions struct {
	RequireAuth         bool
	ResourceBaseURL     string
	AuthorizationServer string
	Scopes              []string
	MaxUploadSize       int64
}

type materialRequest struct {
	Title string `json:"title" validate:"max=200"`
	Text  string `json:"text" validate:"required,min=40"`
}

type quizRequest struct {
	TopicID    string `json:"topic_id" validate:"required"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=intro intermediate advanced"`
}

type resourceMetadata struct {
	Resource              string   `json:"resource"`
	AuthorizationServers  []string `json:"authorization_servers"`
	ScopesSupported       []string `json:"scopes_supported"`
	ResourceDocumentation string   `json:"resource_documentation"`
}

type server struct {
	ws       *Workspace
	pages    PageReader
	opts     ServerOptions
	log      *slog.Logger
	validate *validator.Validate
}

// NewRouter exposes ws over HTTP.
func NewRouter(ws *Workspace, pages PageReader, opts ServerOptions, log *slog.Logger) http.Handler {
	s := &server{ws: ws, pages: pages, opts: opts, log: log, validate: validator.New()}

	r := httputil.NewRouter(log)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Tutorion workspace server"))
	})
	r.Get("/healthz", httputil.HealthHandler(log))
	r.Get(ResourceMetadataPath, s.metadataHandler)

	r.Route("/api", func(r chi.Router) {
		if opts.RequireAuth {
			r.Use(httputil.RequireBearer(strings.TrimRight(opts.ResourceBaseURL, "/")+ResourceMetadataPath, s.primaryScope()))
		}
		r.Get("/state", s.stateHandler)
		r.Post("/materials", s.materialHandler)
		r.Post("/materials/upload", s.uploadHandler)
		r.Post("/topics", s.topicsHandler)
		r.Post("/quiz", s.quizHandler)
	})
	return r
}

func (s *server) primaryScope() string {
	if len(s.opts.Scopes) == 0 {
		return "materials:read"
	}
	return s.opts.Scopes[0]
}

func (s *server) metadataHandler(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimRight(s.opts.ResourceBaseURL, "/")
	httputil.WriteJSON(w, http.StatusOK, resourceMetadata{
		Resource:              base,
		AuthorizationServers:  []string{s.opts.AuthorizationServer},
		ScopesSupported:       s.opts.Scopes,
		ResourceDocumentation: base + "/docs",
	})
}

func (s *server) stateHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.ws.State())
}

func (s *server) materialHandler(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(s.log, w, "invalid request body", err, http.StatusBadRequest)
		return
	}
	s.addMaterial(w, req)
}

func (s *server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.opts.MaxUploadSize {
		httputil.Fail(s.log, w, fmt.Sprintf("file too large (max %d bytes)", s.opts.MaxUploadSize), nil, http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Fail(s.log, w, "file is required", err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > s.opts.MaxUploadSize {
		httputil.Fail(s.log, w, fmt.Sprintf("file too large (max %d bytes)", s.opts.MaxUploadSize), nil, http.StatusBadRequest)
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		httputil.Fail(s.log, w, "unsupported file type (only PDF allowed)", chunker.ErrUnsupportedFormat, http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.Fail(s.log, w, "failed to read file", err, http.StatusInternalServerError)
		return
	}
	pages, err := s.pages.ExtractReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		httputil.Fail(s.log, w, "failed to read pdf", err, http.StatusBadRequest)
		return
	}
	normalized := make([]string, 0, len(pages))
	for _, p := range pages {
		if text := chunker.Normalize(p); text != "" {
			normalized = append(normalized, text)
		}
	}

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}
	s.addMaterial(w, materialRequest{Title: title, Text: strings.Join(normalized, "\n\n")})
}

func (s *server) addMaterial(w http.ResponseWriter, req materialRequest) {
	req.Title = strings.TrimSpace(req.Title)
	req.Text = strings.TrimSpace(req.Text)
	if err := s.validate.Struct(req); err != nil {
		httputil.Fail(s.log, w, "material needs at least a few sentences of text", err, http.StatusBadRequest)
		return
	}
	m, err := s.ws.AddMaterial(req.Title, req.Text)
	if err != nil {
		httputil.Fail(s.log, w, "failed to store material", err, http.StatusBadRequest)
		return
	}
	s.log.Info("material stored", "id", m.ID, "title", m.Title, "characters", m.Characters)
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (s *server) topicsHandler(w http.ResponseWriter, r *http.Request) {
	topics, err := s.ws.ExtractTopics(r.Context())
	if err != nil {
		s.failModel(w, "topic extraction failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

func (s *server) quizHandler(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(s.log, w, "invalid request body", err, http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httputil.Fail(s.log, w, "topic_id is required and difficulty must be intro, intermediate or advanced", err, http.StatusBadRequest)
		return
	}
	quiz, err := s.ws.GenerateQuiz(r.Context(), req.TopicID, req.Difficulty)
	if err != nil {
		s.failModel(w, "quiz generation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quiz)
}

// failModel maps workspace and model errors onto HTTP statuses.
func (s *server) failModel(w http.ResponseWriter, message string, err error) {
	var formatErr *llm.ResponseFormatError
	switch {
	case errors.Is(err, ErrNoMaterials):
		httputil.Fail(s.log, w, "no materials ingested; add material first", err, http.StatusConflict)
	case errors.Is(err, ErrTopicNotFound):
		httputil.Fail(s.log, w, "topic not found; generate topics first", err, http.StatusNotFound)
	case errors.As(err, &formatErr):
		httputil.Fail(s.log, w, message+": model returned malformed output", err, http.StatusBadGateway)
	default:
		httputil.Fail(s.log, w, message, err, http.StatusBadGateway)
	}
}
