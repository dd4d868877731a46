package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/profile"
	"github.com/kailas-cloud/vibematch/internal/domain/vector"
	logpkg "github.com/kailas-cloud/vibematch/internal/logger"
	healthuc "github.com/kailas-cloud/vibematch/internal/usecase/health"
	"github.com/kailas-cloud/vibematch/internal/usecase/recommend"
)

const defaultMaxBodyBytes = 32 << 20

// Vectorizer turns a profile into its embedding.
type Vectorizer interface {
	Vectorize(ctx context.Context, p *profile.Profile) (vector.Vector, error)
}

// Recommender ranks candidates for a target user.
type Recommender interface {
	Recommend(ctx context.Context, req *recommend.Request) (recommend.Response, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the vibematch HTTP API.
type Server struct {
	vectorizer    Vectorizer
	recommender   Recommender
	health        HealthChecker
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(vectorizer Vectorizer, recommender Recommender, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		vectorizer:   vectorizer,
		recommender:  recommender,
		health:       health,
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		typedHandler[*domain.InvalidProfileError](http.StatusBadRequest, ErrorCodeInvalidProfile),
		typedHandler[*domain.DimensionMismatchError](http.StatusBadRequest, ErrorCodeVectorDimMismatch),
		sentinelHandler(domain.ErrInvalidProfile, http.StatusBadRequest, ErrorCodeInvalidProfile),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, ErrorCodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmptyInput, http.StatusUnprocessableEntity, ErrorCodeEmptyInput),
		invalidRequestHandler,
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, ErrorCodeStoreUnavailable),
	}
	return s
}

// WithMaxBodyBytes limits request body size.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/convert_to_user_vector", s.ConvertToUserVector)
	r.Post("/get_recommendations", s.GetRecommendations)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// ConvertToUserVector handles POST /convert_to_user_vector.
func (s *Server) ConvertToUserVector(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := req.UserData.raw().Profile()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	r = r.WithContext(logpkg.WithFields(r.Context(), zap.String("user_id", p.UserID)))
	ctx, usage := domain.NewContextWithUsage(r.Context())
	vec, err := s.vectorizer.Vectorize(ctx, &p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, UserVectorResponse{
		UserID: p.UserID,
		Gender: string(p.Gender),
		Vector: vec,
	})
}

// GetRecommendations handles POST /get_recommendations.
func (s *Server) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationsRequest
	if !s.decode(w, r, &req) {
		return
	}

	r = r.WithContext(logpkg.WithFields(r.Context(),
		zap.String("target_user_id", req.TargetUserID),
		zap.Int("candidates", len(req.Candidates)),
	))
	resp, err := s.recommender.Recommend(r.Context(), req.toDomain())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if resp.HistoryErr != nil {
		w.Header().Set("X-History-Recorded", "false")
	}
	writeJSON(w, http.StatusOK, recommendationsToResponse(&resp.Result))
}

// decode reads and validates a JSON body. It writes the error response and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeBadRequest,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := validateRequest(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return false
	}
	return true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
		w.Header().Set("X-Embedding-Sentences", strconv.Itoa(usage.Sentences))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler answers with the sentinel's own message, never the wrapped chain.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// typedHandler answers with the typed error's message, which carries only client-supplied detail.
func typedHandler[T error](status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		var target T
		if !errors.As(err, &target) {
			return false
		}
		writeError(w, status, code, target.Error())
		return true
	}
}

func invalidRequestHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidRequest) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
