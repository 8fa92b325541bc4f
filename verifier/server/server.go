package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-errors/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sanipasse/passcheck/certinfo"
	"github.com/sanipasse/passcheck/common"
	"github.com/sanipasse/passcheck/rules"
	"github.com/sanipasse/passcheck/scan"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

type Configuration struct {
	ListenAddress string
	ListenPort    string

	DefaultPolicy string
	Language      language.Tag
}

type server struct {
	config  *Configuration
	scanner *scan.Scanner
	logger  *zap.Logger

	registry      *prometheus.Registry
	verifications *prometheus.CounterVec
}

type verificationRequest struct {
	Credential string `json:"credential"`
	Policy     string `json:"policy"`

	// TargetDate is RFC 3339; empty means now
	TargetDate string `json:"targetDate"`
}

type verificationError struct {
	Kind    common.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

type verificationResponse struct {
	Certificate *certinfo.CommonCertificateInfo `json:"certificate,omitempty"`
	Verdict     *rules.Verdict                  `json:"verdict,omitempty"`
	Error       *verificationError              `json:"error,omitempty"`
}

func Run(config *Configuration, scanner *scan.Scanner, logger *zap.Logger) error {
	s := newServer(config, scanner, logger)

	err := s.Serve()
	if err != nil {
		return errors.WrapPrefix(err, "Could not start server", 0)
	}

	return nil
}

func newServer(config *Configuration, scanner *scan.Scanner, logger *zap.Logger) *server {
	registry := prometheus.NewRegistry()
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "passcheck_verifications_total",
		Help: "Number of verified credentials by format and outcome",
	}, []string{"format", "outcome"})
	registry.MustRegister(verifications)

	return &server{
		config:        config,
		scanner:       scanner,
		logger:        logger,
		registry:      registry,
		verifications: verifications,
	}
}

func (s *server) Serve() error {
	addr := fmt.Sprintf("%s:%s", s.config.ListenAddress, s.config.ListenPort)
	s.logger.Info("Starting verification server", zap.String("address", addr))

	handler := s.buildHandler()
	err := http.ListenAndServe(addr, handler)
	if err != nil {
		return errors.WrapPrefix(err, "Could not start listening", 0)
	}

	return nil
}

func (s *server) buildHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/verify", s.handleVerify)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	req := &verificationRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.WrapPrefix(err, "Could not JSON unmarshal verification request", 0))
		return
	}

	var target time.Time
	if req.TargetDate != "" {
		target, err = time.Parse(time.RFC3339, req.TargetDate)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, errors.WrapPrefix(err, "Could not parse targetDate", 0))
			return
		}
	}

	policy := req.Policy
	if policy == "" {
		policy = s.config.DefaultPolicy
	}

	format := scan.Detect(scan.ExtractCode(req.Credential))

	var response *verificationResponse
	var outcome string
	result, err := s.scanner.Check(req.Credential, policy, target)
	if err != nil {
		de, ok := common.AsDecodeError(err)
		if !ok {
			s.writeError(w, http.StatusUnprocessableEntity, err)
			return
		}

		outcome = de.Kind.String()
		response = &verificationResponse{
			Error: &verificationError{Kind: de.Kind, Message: de.Localize(s.config.Language)},
		}
	} else {
		outcome = string(result.Verdict.Reason)
		response = &verificationResponse{
			Certificate: result.Certificate,
			Verdict:     result.Verdict,
		}
	}

	s.verifications.WithLabelValues(string(format), outcome).Inc()
	s.logger.Info("Verified credential",
		zap.String("format", string(format)),
		zap.String("policy", policy),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(started)),
	)

	responseJson, err := json.Marshal(response)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, errors.WrapPrefix(err, "Could not JSON marshal verification response", 0))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(responseJson)
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("Could not handle request", zap.Error(err), zap.Int("status", status))
	http.Error(w, err.Error(), status)
}
