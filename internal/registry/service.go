package registry

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

//go:embed defaults.yaml
var defaultParamsYAML []byte

// Service owns the version/params catalogue: which algorithm build is live
// and with which parameter document. Exactly one ACTIVE version per key and
// exactly one active parameter set per version at any time.
type Service interface {
	ResolveActive(ctx context.Context, key types.AlgoKey) (*types.AlgoVersion, *types.AlgoParams, error)
	RegisterVersion(ctx context.Context, key types.AlgoKey, version string, notes string) (*types.AlgoVersion, error)
	RegisterParams(ctx context.Context, key types.AlgoKey, version string, doc []byte, label string) (*types.AlgoParams, error)
	ActivateVersion(ctx context.Context, key types.AlgoKey, version string) error
	ActivateParams(ctx context.Context, paramsID uuid.UUID) error
	DeprecateVersion(ctx context.Context, key types.AlgoKey, version string) error
	// Seed installs the embedded default documents as version v0/ACTIVE for
	// any key with no versions at all. Idempotent.
	Seed(ctx context.Context) error
}

type service struct {
	db          *gorm.DB
	log         *logger.Logger
	versionRepo repos.AlgoVersionRepo
	paramsRepo  repos.AlgoParamsRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, versionRepo repos.AlgoVersionRepo, paramsRepo repos.AlgoParamsRepo) Service {
	return &service{
		db:          db,
		log:         baseLog.With("service", "AlgoRegistry"),
		versionRepo: versionRepo,
		paramsRepo:  paramsRepo,
	}
}

func (s *service) ResolveActive(ctx context.Context, key types.AlgoKey) (*types.AlgoVersion, *types.AlgoParams, error) {
	if !key.Valid() {
		return nil, nil, ErrUnknownAlgoKey
	}
	version, err := s.versionRepo.GetActive(ctx, nil, key)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve active version for %s: %w", key, err)
	}
	if version == nil {
		return nil, nil, ErrNoActiveAlgorithm
	}
	params, err := s.paramsRepo.GetActiveForVersion(ctx, nil, version.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve active params for %s/%s: %w", key, version.Version, err)
	}
	if params == nil {
		return nil, nil, ErrNoActiveAlgorithm
	}
	sum, err := Checksum(params.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("checksum active params for %s: %w", key, err)
	}
	if sum != params.Checksum {
		s.log.Error("Active params checksum drift detected",
			"algo_key", key, "version", version.Version, "params_id", params.ID,
			"stored", params.Checksum, "computed", sum)
		return nil, nil, ErrChecksumDrift
	}
	return version, params, nil
}

func (s *service) RegisterVersion(ctx context.Context, key types.AlgoKey, version string, notes string) (*types.AlgoVersion, error) {
	if !key.Valid() {
		return nil, ErrUnknownAlgoKey
	}
	if version == "" {
		return nil, fmt.Errorf("register version for %s: empty version string", key)
	}
	existing, err := s.versionRepo.GetByKeyAndVersion(ctx, nil, key, version)
	if err != nil {
		return nil, fmt.Errorf("register version %s/%s: %w", key, version, err)
	}
	if existing != nil {
		return existing, nil
	}
	created, err := s.versionRepo.Create(ctx, nil, &types.AlgoVersion{
		AlgoKey: key,
		Version: version,
		Status:  types.VersionExperimental,
		Notes:   notes,
	})
	if err != nil {
		return nil, fmt.Errorf("register version %s/%s: %w", key, version, err)
	}
	s.log.Info("Registered algorithm version", "algo_key", key, "version", version)
	return created, nil
}

func (s *service) RegisterParams(ctx context.Context, key types.AlgoKey, version string, doc []byte, label string) (*types.AlgoParams, error) {
	if !key.Valid() {
		return nil, ErrUnknownAlgoKey
	}
	target, err := s.versionRepo.GetByKeyAndVersion(ctx, nil, key, version)
	if err != nil {
		return nil, fmt.Errorf("register params for %s/%s: %w", key, version, err)
	}
	if target == nil {
		return nil, ErrVersionNotFound
	}
	if err := ValidateParams(key, doc); err != nil {
		s.log.Warn("Rejected parameter document", "algo_key", key, "version", version, "error", err)
		return nil, err
	}
	sum, err := Checksum(doc)
	if err != nil {
		return nil, fmt.Errorf("checksum params for %s/%s: %w", key, version, err)
	}
	created, err := s.paramsRepo.Create(ctx, nil, &types.AlgoParams{
		AlgoVersionID: target.ID,
		Params:        datatypes.JSON(doc),
		Checksum:      sum,
		Label:         label,
	})
	if err != nil {
		return nil, fmt.Errorf("register params for %s/%s: %w", key, version, err)
	}
	s.log.Info("Registered parameter set", "algo_key", key, "version", version, "params_id", created.ID, "checksum", sum)
	return created, nil
}

func (s *service) ActivateVersion(ctx context.Context, key types.AlgoKey, version string) error {
	if !key.Valid() {
		return ErrUnknownAlgoKey
	}
	activated, err := s.versionRepo.ActivateExclusive(ctx, nil, key, version)
	if err != nil {
		return fmt.Errorf("activate version %s/%s: %w", key, version, err)
	}
	if activated == nil {
		return ErrVersionNotFound
	}
	s.log.Info("Activated algorithm version", "algo_key", key, "version", version)
	return nil
}

func (s *service) ActivateParams(ctx context.Context, paramsID uuid.UUID) error {
	activated, err := s.paramsRepo.ActivateExclusive(ctx, nil, paramsID)
	if err != nil {
		return fmt.Errorf("activate params %s: %w", paramsID, err)
	}
	if activated == nil {
		return ErrParamsNotFound
	}
	s.log.Info("Activated parameter set", "params_id", paramsID, "algo_version_id", activated.AlgoVersionID)
	return nil
}

func (s *service) DeprecateVersion(ctx context.Context, key types.AlgoKey, version string) error {
	target, err := s.versionRepo.GetByKeyAndVersion(ctx, nil, key, version)
	if err != nil {
		return fmt.Errorf("deprecate version %s/%s: %w", key, version, err)
	}
	if target == nil {
		return ErrVersionNotFound
	}
	if err := s.versionRepo.Deprecate(ctx, nil, target.ID); err != nil {
		return fmt.Errorf("deprecate version %s/%s: %w", key, version, err)
	}
	s.log.Info("Deprecated algorithm version", "algo_key", key, "version", version)
	return nil
}

func (s *service) Seed(ctx context.Context) error {
	var docs map[string]any
	if err := yaml.Unmarshal(defaultParamsYAML, &docs); err != nil {
		return fmt.Errorf("parse default params: %w", err)
	}
	for _, key := range types.AllAlgoKeys() {
		n, err := s.versionRepo.CountByKey(ctx, nil, key)
		if err != nil {
			return fmt.Errorf("seed %s: %w", key, err)
		}
		if n > 0 {
			continue
		}
		doc, ok := docs[string(key)]
		if !ok {
			return fmt.Errorf("seed %s: no default document", key)
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("seed %s: encode default document: %w", key, err)
		}
		version, err := s.RegisterVersion(ctx, key, "v0", "seeded defaults")
		if err != nil {
			return err
		}
		params, err := s.RegisterParams(ctx, key, "v0", raw, "default")
		if err != nil {
			return err
		}
		if err := s.ActivateVersion(ctx, key, "v0"); err != nil {
			return err
		}
		if err := s.ActivateParams(ctx, params.ID); err != nil {
			return err
		}
		s.log.Info("Seeded default algorithm", "algo_key", key, "version", version.Version)
	}
	return nil
}
