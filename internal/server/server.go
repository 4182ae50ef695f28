// Package server exposes the registration flow over HTTP: organizers publish
// schemas to storage, registrants fetch a rendered form and post their
// answers back.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/foundersclub/formflow/internal/storage"
	"github.com/foundersclub/formflow/internal/upload"
	"github.com/foundersclub/formflow/pkg/compiler"
	"github.com/foundersclub/formflow/pkg/model"
	"github.com/foundersclub/formflow/pkg/render"
	"github.com/foundersclub/formflow/pkg/renderers/html"
	"github.com/foundersclub/formflow/pkg/wizard"
)

// Store is the persistence surface the server needs. *storage.Store
// implements it; tests use stubs.
type Store interface {
	FormSchema(ctx context.Context, eventID string) (model.FormSchema, error)
	AutoApprove(ctx context.Context, eventID string) (bool, error)
	Submit(ctx context.Context, payload wizard.Payload) (wizard.Receipt, error)
}

// Server handles the public registration endpoints.
type Server struct {
	store    Store
	compiler *compiler.Compiler
	renderer render.Renderer
	uploader wizard.Uploader
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithRenderer substitutes the HTML renderer.
func WithRenderer(renderer render.Renderer) Option {
	return func(s *Server) {
		if renderer != nil {
			s.renderer = renderer
		}
	}
}

// WithUploader enables the file upload endpoint backing file fields.
func WithUploader(uploader wizard.Uploader) Option {
	return func(s *Server) {
		s.uploader = uploader
	}
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a server around a store and logger.
func New(store Store, logger zerolog.Logger, options ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("server: store is required")
	}
	s := &Server{
		store:    store,
		compiler: compiler.NewCompiler(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.renderer == nil {
		renderer, err := html.New()
		if err != nil {
			return nil, err
		}
		s.renderer = renderer
	}
	return s, nil
}

// Router builds the chi router with logging and recovery middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/events/{eventID}", func(r chi.Router) {
		r.Get("/form", s.handleGetForm)
		r.Post("/registrations", s.handleCreateRegistration)
	})
	if s.uploader != nil {
		r.Post("/uploads", s.handleUpload)
	}
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// handleGetForm serves the event's published form: HTML by default, the raw
// schema as JSON when requested.
func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	schema, err := s.store.FormSchema(r.Context(), eventID)
	if err != nil {
		s.formError(w, r, eventID, err)
		return
	}
	if _, err := s.compiler.Get(schema); err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("stored schema does not compile")
		s.writeError(w, http.StatusInternalServerError, "form unavailable")
		return
	}

	if r.URL.Query().Get("format") == "json" {
		s.writeJSON(w, http.StatusOK, schema)
		return
	}

	output, err := s.renderer.Render(r.Context(), schema, render.Options{Step: -1})
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("render form")
		s.writeError(w, http.StatusInternalServerError, "form unavailable")
		return
	}
	w.Header().Set("Content-Type", s.renderer.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(output)
}

type registrationRequest struct {
	UserID  string         `json:"userId"`
	Email   string         `json:"email"`
	Answers map[string]any `json:"answers"`
}

type registrationResponse struct {
	ID       string `json:"id"`
	Existing bool   `json:"existing"`
}

// handleCreateRegistration validates a full payload against the event's
// schema and persists it. Validation failures come back as 422 with the
// messages grouped by field.
func (s *Server) handleCreateRegistration(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req registrationRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	schema, err := s.store.FormSchema(r.Context(), eventID)
	if err != nil {
		s.formError(w, r, eventID, err)
		return
	}
	compiled, err := s.compiler.Get(schema)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("stored schema does not compile")
		s.writeError(w, http.StatusInternalServerError, "form unavailable")
		return
	}

	answers := coerceAnswers(schema, req.Answers)
	if err := compiled.CheckPayload(answers); err != nil {
		var payloadErr *compiler.PayloadError
		if errors.As(err, &payloadErr) {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "validation failed",
				"fields": payloadErr.ByField(),
			})
			return
		}
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	autoApprove, err := s.store.AutoApprove(r.Context(), eventID)
	if err != nil {
		s.formError(w, r, eventID, err)
		return
	}

	payload := wizard.Assemble(schema.Fields, answers, wizard.SubmitContext{
		Identity:    wizard.Identity{UserID: req.UserID, Email: req.Email},
		EventID:     eventID,
		AutoApprove: autoApprove,
	}, s.now())

	receipt, err := s.store.Submit(r.Context(), payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("store submission")
		s.writeError(w, http.StatusBadGateway, "submission could not be stored")
		return
	}

	status := http.StatusCreated
	if receipt.Existing {
		status = http.StatusOK
	}
	s.writeJSON(w, status, registrationResponse{ID: receipt.ID, Existing: receipt.Existing})
}

// handleUpload stores one multipart file and returns the URL a file-field
// answer should carry.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "a multipart \"file\" part is required")
		return
	}
	defer file.Close()

	url, err := s.uploader.Upload(r.Context(), wizard.UploadRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrTooLarge):
			s.writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, upload.ErrUnsupportedType):
			s.writeError(w, http.StatusUnsupportedMediaType, err.Error())
		default:
			s.logger.Error().Err(err).Str("filename", header.Filename).Msg("store upload")
			s.writeError(w, http.StatusInternalServerError, "upload could not be stored")
		}
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (s *Server) formError(w http.ResponseWriter, r *http.Request, eventID string, err error) {
	if storage.IsNotFound(err) {
		s.writeError(w, http.StatusNotFound, "no form for event "+eventID)
		return
	}
	s.logger.Error().Err(err).Str("event_id", eventID).Msg("load form")
	s.writeError(w, http.StatusInternalServerError, "form unavailable")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// coerceAnswers adapts JSON-decoded values to the shapes the checkers
// expect: element slices become string slices and date strings become
// timestamps. Unknown keys pass through untouched so CheckPayload can
// reject them.
func coerceAnswers(schema model.FormSchema, raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	byName := make(map[string]model.FieldDefinition, len(schema.Fields))
	for _, field := range schema.Fields {
		byName[field.Name] = field
	}

	for key, value := range raw {
		field, known := byName[key]
		if !known {
			out[key] = value
			continue
		}
		switch field.Type {
		case model.FieldTypeCheckbox, model.FieldTypeMemberSelect:
			if items, ok := value.([]any); ok {
				strs := make([]string, 0, len(items))
				for _, item := range items {
					if s, ok := item.(string); ok {
						strs = append(strs, s)
					}
				}
				if len(strs) == len(items) {
					out[key] = strs
					continue
				}
			}
			out[key] = value
		case model.FieldTypeDate:
			if s, ok := value.(string); ok {
				if parsed, err := time.Parse("2006-01-02", s); err == nil {
					out[key] = parsed
					continue
				}
			}
			out[key] = value
		default:
			out[key] = value
		}
	}
	return out
}
