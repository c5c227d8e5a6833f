package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"expenserelay/internal/callable"
	"expenserelay/internal/config"
	"expenserelay/internal/model"
	"expenserelay/internal/relay"
)

// FunctionName is the name clients use to invoke the relay.
const FunctionName = "parseExpenses"

type RelayService interface {
	Handle(ctx context.Context, in relay.Request) (json.RawMessage, error)
}

type CredentialChecker interface {
	Check(ctx context.Context) error
}

type MetricsObserver interface {
	ObserveHTTP(route, method string, status int, duration time.Duration)
	ObserveCallable(function, status string)
}

type Dependencies struct {
	Relay          RelayService
	Credentials    CredentialChecker
	Metrics        MetricsObserver
	MetricsHandler http.Handler
}

type server struct {
	cfg          config.Config
	logger       *slog.Logger
	relay        RelayService
	credentials  CredentialChecker
	metrics      MetricsObserver
	metricsRoute http.Handler
}

type ctxKey string

const (
	requestIDHeader  = "X-Request-Id"
	requestIDContext = ctxKey("request_id")
	serviceName      = "expenserelay"
)

func NewServer(cfg config.Config, logger *slog.Logger, deps Dependencies) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Relay == nil || deps.Credentials == nil {
		panic("httpapi: relay and credentials dependencies are required")
	}

	s := &server{
		cfg:          cfg,
		logger:       logger,
		relay:        deps.Relay,
		credentials:  deps.Credentials,
		metrics:      deps.Metrics,
		metricsRoute: deps.MetricsHandler,
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeStatus(w, r, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeStatus(w, r, http.StatusMethodNotAllowed, string(callable.CodeInvalidArgument), "method not allowed")
	})

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.metricsRoute != nil {
		r.Handle("/metrics", s.metricsRoute)
	}

	r.Post("/"+FunctionName, s.handleParseExpenses)

	return r
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{OK: true})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.credentials.Check(ctx); err != nil {
		s.logger.Warn("readiness check failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		s.writeStatus(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "credential check failed")
		return
	}
	writeJSON(w, http.StatusOK, model.ReadyResponse{OK: true, ServiceName: serviceName})
}

func (s *server) handleParseExpenses(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeCallable(w, r)
	if err != nil {
		s.writeCallableError(w, r, err)
		return
	}

	result, err := s.relay.Handle(r.Context(), *req.Data)
	if err != nil {
		s.writeCallableError(w, r, err)
		return
	}

	s.observeCallable("OK")
	writeJSON(w, http.StatusOK, model.CallableResponse{Result: result})
}

func (s *server) decodeCallable(w http.ResponseWriter, r *http.Request) (model.CallableRequest, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return model.CallableRequest{}, callable.InvalidArgument("Content-Type must be application/json")
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	var req model.CallableRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return model.CallableRequest{}, callable.InvalidArgument(fmt.Sprintf("request exceeds %d bytes", s.cfg.MaxBodyBytes))
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return model.CallableRequest{}, callable.InvalidArgument(typeErrorMessage(typeErr))
		}
		return model.CallableRequest{}, callable.InvalidArgument("invalid JSON body")
	}
	if err := ensureBodyFullyConsumed(decoder); err != nil {
		return model.CallableRequest{}, callable.InvalidArgument("invalid JSON body")
	}
	if req.Data == nil {
		return model.CallableRequest{}, callable.InvalidArgument("request body is missing data")
	}
	return req, nil
}

func (s *server) writeCallableError(w http.ResponseWriter, r *http.Request, err error) {
	code := callable.CodeOf(err)
	if code == callable.CodeInternal {
		s.logger.Error("callable failed",
			"request_id", requestIDFromContext(r.Context()),
			"function", FunctionName,
			"error", err,
		)
	}
	s.observeCallable(string(code))
	s.writeStatus(w, r, callable.HTTPStatus(code), string(code), callable.MessageOf(err))
}

func (s *server) writeStatus(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if rid := requestIDFromContext(r.Context()); rid != "" {
		w.Header().Set(requestIDHeader, rid)
	}
	writeJSON(w, status, model.CallableErrorResponse{
		Error: model.CallableError{Status: code, Message: message},
	})
}

func (s *server) observeCallable(status string) {
	if s.metrics != nil {
		s.metrics.ObserveCallable(FunctionName, status)
	}
}

func (s *server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDContext, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		duration := time.Since(started)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, r.Method, status, duration)
		}

		s.logger.Info("http_request",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", duration.Milliseconds(),
		)
	})
}

func (s *server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "request_id", requestIDFromContext(r.Context()), "panic", rec)
				s.writeStatus(w, r, http.StatusInternalServerError, string(callable.CodeInternal), "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func ensureBodyFullyConsumed(decoder *json.Decoder) error {
	var extra any
	if err := decoder.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("multiple JSON values")
		}
		return err
	}
	return nil
}

func typeErrorMessage(err *json.UnmarshalTypeError) string {
	if err.Field == "data.transcript" {
		return "Transcript is required"
	}
	if err.Field == "" {
		return "invalid JSON body"
	}
	return fmt.Sprintf("field %s must be %s", err.Field, err.Type.Kind())
}

func requestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDContext).(string)
	return value
}
