package services

import (
	"context"

	"github.com/BerylCAtieno/transcript-redactor/internal/detector"
	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/redactor"
	"github.com/BerylCAtieno/transcript-redactor/internal/repository"
	"github.com/BerylCAtieno/transcript-redactor/internal/storage"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

type RedactionService interface {
	RedactText(ctx context.Context, req *models.RedactRequest) (*models.RedactionResult, error)
	RedactTable(ctx context.Context, req *models.RedactRequest) (*models.RedactionResult, error)
	InspectTable(ctx context.Context, req *models.UploadRequest, sheet string) (*models.TableColumns, error)

	ListPresets(ctx context.Context) ([]models.PolicyPreset, error)
	GetPreset(ctx context.Context, name string) (*models.PolicyPreset, error)
	ResolvePolicy(ctx context.Context, overrides models.PolicyOverrides) (models.RedactionPolicy, error)

	SupportedEntities(ctx context.Context, language string) (*models.EntitiesResponse, error)
	Ready(ctx context.Context) error
	GetArtifact(ctx context.Context, id, name string) (*models.Artifact, error)
}

type Options struct {
	Overlap       redactor.OverlapPolicy
	DefaultPreset string
	Language      string
}

type redactionService struct {
	repo     repository.PolicyRepository
	detector detector.Detector
	storage  storage.Storage
	opts     Options
	logger   *utils.Logger
}

// NewService wires the pipeline. store may be nil, which disables the
// artifact archive.
func NewService(repo repository.PolicyRepository, det detector.Detector, store storage.Storage, opts Options, logger *utils.Logger) RedactionService {
	if opts.Overlap == "" {
		opts.Overlap = redactor.RejectOverlaps
	}
	if opts.DefaultPreset == "" {
		opts.DefaultPreset = "default"
	}
	if opts.Language == "" {
		opts.Language = models.DefaultLanguage
	}

	return &redactionService{
		repo:     repo,
		detector: det,
		storage:  store,
		opts:     opts,
		logger:   logger,
	}
}
