// Package detector provides the entity-detection capability the redaction
// pipeline consumes. The primary backend is a Presidio analyzer reached over
// HTTP; regex recognizers and an in-process statistical NER can run beside
// it or replace it.
//
// A Detector is built once at startup and shared by all requests. Every
// backend is stateless per call, so sharing is safe.
package detector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

// Request is one analysis call.
type Request struct {
	Text           string
	Language       string
	EntityTypes    []models.EntityType
	ScoreThreshold float64
}

func (r Request) wants(t models.EntityType) bool {
	for _, et := range r.EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

type Detector interface {
	Name() string
	Analyze(ctx context.Context, req Request) ([]models.Detection, error)
}

// EntityLister is implemented by backends that can report what they detect.
type EntityLister interface {
	SupportedEntities(ctx context.Context, language string) ([]models.EntityType, error)
}

// HealthChecker is implemented by backends with a reachable health probe.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// UnavailableError means a backend could not produce a trustworthy answer.
// Callers must not emit any output for the request.
type UnavailableError struct {
	Backend string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("detector %s unavailable: %v", e.Backend, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

const (
	BackendPresidio = "presidio"
	BackendPattern  = "pattern"
	BackendProse    = "prose"
)

type Config struct {
	Backends        []string
	URL             string
	Timeout         time.Duration
	ProseConfidence float64
}

// New builds the configured backends. More than one backend is wrapped in a
// Composite.
func New(cfg Config, logger *utils.Logger) (Detector, error) {
	if len(cfg.Backends) == 0 {
		return nil, fmt.Errorf("no detector backends configured")
	}

	var backends []Detector
	for _, name := range cfg.Backends {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case BackendPresidio:
			if cfg.URL == "" {
				return nil, fmt.Errorf("presidio backend requires DETECTOR_URL")
			}
			backends = append(backends, NewPresidioClient(cfg.URL, cfg.Timeout, logger))
		case BackendPattern:
			backends = append(backends, NewPatternDetector())
		case BackendProse:
			backends = append(backends, NewProseDetector(cfg.ProseConfidence, logger))
		default:
			return nil, fmt.Errorf("unknown detector backend %q", name)
		}
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewComposite(backends, logger), nil
}
