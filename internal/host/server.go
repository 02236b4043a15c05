// Package host serves model sessions over HTTP. A session owns one model
// instance and serializes every call made on it.
package host

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samcharles93/wavehost/internal/logger"
	"github.com/samcharles93/wavehost/internal/metrics"
	"github.com/samcharles93/wavehost/internal/models"
	"github.com/samcharles93/wavehost/pkg/tensor"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

const (
	// maxFrames bounds a single forward buffer.
	maxFrames = 1 << 16
	// maxBodyBytes bounds a request body before it is decoded. A full
	// stereo buffer of maxFrames samples plus params fits well inside it.
	maxBodyBytes = 8 << 20
)

type Server struct {
	store *SessionStore
	log   logger.Logger
	clock func() time.Time
}

func NewServer(store *SessionStore, log logger.Logger) *Server {
	if store == nil {
		store = NewSessionStore(SessionStoreConfig{})
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		store: store,
		log:   log,
		clock: time.Now,
	}
}

// handler returns a status and a JSON body. Handlers never write the
// response themselves so every request is counted the same way.
type handler func(c *echo.Context) (int, any)

func (s *Server) Register(e *echo.Echo) {
	limit := middleware.BodyLimit(maxBodyBytes)

	e.GET("/v1/models", s.route("/v1/models", s.handleListModels))

	// Sessions
	e.POST("/v1/sessions", s.route("/v1/sessions", s.handleCreateSession), limit)
	e.GET("/v1/sessions/:id", s.route("/v1/sessions/:id", s.handleGetSession))
	e.DELETE("/v1/sessions/:id", s.route("/v1/sessions/:id", s.handleDeleteSession))

	// Forward pass and lifecycle
	e.POST("/v1/sessions/:id/forward", s.route("/v1/sessions/:id/forward", s.handleForward), limit)
	e.GET("/v1/sessions/:id/delay", s.route("/v1/sessions/:id/delay", s.handleDelay))
	e.POST("/v1/sessions/:id/buffer_size", s.route("/v1/sessions/:id/buffer_size", s.handleBufferSize), limit)
	e.POST("/v1/sessions/:id/flush", s.route("/v1/sessions/:id/flush", s.handleFlush), limit)
	e.POST("/v1/sessions/:id/reset", s.route("/v1/sessions/:id/reset", s.handleReset), limit)

	metricsHandler := promhttp.Handler()
	e.GET("/metrics", func(c *echo.Context) error {
		metricsHandler.ServeHTTP(c.Response(), c.Request())
		return nil
	})
}

func (s *Server) route(path string, h handler) echo.HandlerFunc {
	return func(c *echo.Context) error {
		start := s.clock()
		status, body := h(c)
		metrics.RecordRequest(c.Request().Method, path, strconv.Itoa(status), s.clock().Sub(start).Seconds())
		return c.JSON(status, body)
	}
}

func (s *Server) handleListModels(c *echo.Context) (int, any) {
	list := ModelList{
		Object:           "list",
		Data:             []ModelEntry{},
		PreservedMethods: wavemodel.PreservedMethods(),
	}
	for _, name := range models.Names() {
		m, err := models.New(name, models.Options{})
		if err != nil {
			s.log.Warn("skipping model", "model", name, "error", err)
			continue
		}
		md, err := wavemodel.ToMetadata(m)
		if err != nil {
			s.log.Warn("skipping model with invalid metadata", "model", name, "error", err)
			continue
		}
		list.Data = append(list.Data, ModelEntry{
			Name:         name,
			Metadata:     md,
			Capabilities: wavemodel.CapabilitiesOf(m),
		})
	}
	return http.StatusOK, list
}

func (s *Server) handleCreateSession(c *echo.Context) (int, any) {
	req, err := decodeJSON[CreateSessionRequest](c.Request().Body)
	if err != nil {
		return badRequest(err.Error())
	}
	sess, err := s.store.Create(req.Model, req.Options)
	if err != nil {
		return s.errorStatus(err)
	}
	var resp SessionResponse
	err = s.store.With(c.Request().Context(), sess.ID, func(sess *Session) error {
		resp, err = s.describe(sess)
		return err
	})
	if err != nil {
		s.store.Delete(sess.ID)
		return s.errorStatus(err)
	}
	metrics.ActiveSessions.Inc()
	s.log.Info("session created", "session", sess.ID, "model", sess.Model)
	return http.StatusCreated, resp
}

func (s *Server) handleGetSession(c *echo.Context) (int, any) {
	var resp SessionResponse
	err := s.store.With(c.Request().Context(), c.Param("id"), func(sess *Session) error {
		var err error
		resp, err = s.describe(sess)
		return err
	})
	if err != nil {
		return s.errorStatus(err)
	}
	return http.StatusOK, resp
}

func (s *Server) handleDeleteSession(c *echo.Context) (int, any) {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return notFound("session not found")
	}
	metrics.ActiveSessions.Dec()
	s.log.Info("session deleted", "session", id)
	return http.StatusOK, DeleteSessionResponse{ID: id, Object: "session.deleted", Deleted: true}
}

func (s *Server) handleForward(c *echo.Context) (int, any) {
	req, err := decodeJSON[ForwardRequest](c.Request().Body)
	if err != nil {
		return badRequest(err.Error())
	}
	x, err := tensor.FromRows(req.Samples)
	if err != nil {
		return badRequest("samples: " + err.Error())
	}
	if x.C > maxFrames {
		return badRequest(fmt.Sprintf("samples: at most %d frames per buffer", maxFrames))
	}
	var params *tensor.Mat
	if req.Params != nil {
		p, err := tensor.FromRows(req.Params)
		if err != nil {
			return badRequest("params: " + err.Error())
		}
		params = &p
	}

	var resp ForwardResponse
	err = s.store.With(c.Request().Context(), c.Param("id"), func(sess *Session) error {
		start := s.clock()
		y, err := sess.inst.Forward(x, params)
		metrics.RecordForward(sess.Model, y.C, s.clock().Sub(start).Seconds(), err)
		if err != nil {
			return err
		}
		resp = ForwardResponse{Samples: y.Rows(), DelaySamples: sess.inst.MinDelaySamples()}
		return nil
	})
	if err != nil {
		return s.errorStatus(err)
	}
	return http.StatusOK, resp
}

func (s *Server) handleDelay(c *echo.Context) (int, any) {
	var resp DelayResponse
	err := s.store.With(c.Request().Context(), c.Param("id"), func(sess *Session) error {
		resp.DelaySamples = sess.inst.MinDelaySamples()
		return nil
	})
	if err != nil {
		return s.errorStatus(err)
	}
	return http.StatusOK, resp
}

func (s *Server) handleBufferSize(c *echo.Context) (int, any) {
	req, err := decodeJSON[BufferSizeRequest](c.Request().Body)
	if err != nil {
		return badRequest(err.Error())
	}
	if req.N <= 0 {
		return badRequest("n must be positive")
	}
	var resp BufferSizeResponse
	err = s.store.With(c.Request().Context(), c.Param("id"), func(sess *Session) error {
		resp.Applied = sess.inst.SetBufferSize(req.N)
		resp.DelaySamples = sess.inst.MinDelaySamples()
		metrics.RecordLifecycle(sess.Model, "set_buffer_size", resp.Applied)
		return nil
	})
	if err != nil {
		return s.errorStatus(err)
	}
	return http.StatusOK, resp
}

func (s *Server) handleFlush(c *echo.Context) (int, any) {
	var resp FlushResponse
	err := s.store.With(c.Request().Context(), c.Param("id"), func(sess *Session) error {
		out, ok := sess.inst.Flush()
		metrics.RecordLifecycle(sess.Model, "flush", ok)
		if !ok {
			return nil
		}
		if err := wavemodel.ValidateWaveform(out, sess.inst.IsOutputMono()); err != nil {
			return fmt.Errorf("flush output: %w: %w", wavemodel.ErrModelOutput, err)
		}
		resp = FlushResponse{Supported: true, Samples: out.Rows()}
		return nil
	})
	if err != nil {
		return s.errorStatus(err)
	}
	return http.StatusOK, resp
}

func (s *Server) handleReset(c *echo.Context) (int, any) {
	var resp ResetResponse
	err := s.store.With(c.Request().Context(), c.Param("id"), func(sess *Session) error {
		resp.Applied = sess.inst.Reset()
		metrics.RecordLifecycle(sess.Model, "reset", resp.Applied)
		return nil
	})
	if err != nil {
		return s.errorStatus(err)
	}
	return http.StatusOK, resp
}

func (s *Server) describe(sess *Session) (SessionResponse, error) {
	md, err := sess.inst.Metadata()
	if err != nil {
		return SessionResponse{}, err
	}
	return SessionResponse{
		ID:           sess.ID,
		Object:       "session",
		Model:        sess.Model,
		CreatedAt:    sess.CreatedAt.Unix(),
		Metadata:     md,
		Capabilities: sess.inst.Capabilities(),
		DelaySamples: sess.inst.MinDelaySamples(),
	}, nil
}

// errorStatus maps domain errors onto HTTP responses. Contract violations
// by the caller are 400s; anything else the model reports is a 500.
func (s *Server) errorStatus(err error) (int, any) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return notFound("session not found")
	case errors.Is(err, models.ErrUnknownModel):
		return notFound(err.Error())
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, wavemodel.ErrParamCount),
		errors.Is(err, wavemodel.ErrInvalidWaveform) && !errors.Is(err, wavemodel.ErrModelOutput):
		return badRequest(err.Error())
	default:
		s.log.Error("request failed", "error", err)
		return errorBody(http.StatusInternalServerError, "server_error", err.Error())
	}
}

func badRequest(msg string) (int, any) {
	return errorBody(http.StatusBadRequest, "invalid_request_error", msg)
}

func notFound(msg string) (int, any) {
	return errorBody(http.StatusNotFound, "not_found_error", msg)
}

func errorBody(status int, errType, msg string) (int, any) {
	return status, map[string]any{
		"error": ResponseError{Message: msg, Type: errType},
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
