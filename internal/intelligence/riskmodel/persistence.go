package riskmodel

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/intelligence/features"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

// artifactSchemaVersion is the current on-disk model format. A loader
// encountering any other version must fail rather than guess at the
// layout.
const artifactSchemaVersion = 1

// artifact is the serialized form of a trained model: estimator
// parameters, scaler statistics, and the frozen feature-column list as
// one unit, so a partial restore is impossible.
type artifact struct {
	SchemaVersion  int             `json:"schema_version"`
	Kind           string          `json:"kind"`
	Seed           int64           `json:"seed"`
	Hyperparams    Hyperparams     `json:"hyperparams"`
	FeatureColumns []string        `json:"feature_columns"`
	Scaler         *Scaler         `json:"scaler"`
	Estimator      json.RawMessage `json:"estimator"`
	Importances    []float64       `json:"importances"`
	SavedAt        time.Time       `json:"saved_at"`
}

// Save writes the trained model to path as one atomic unit: the artifact
// is written to a temp file in the same directory and renamed into place,
// so an interrupted write never leaves a partial artifact behind.
func (m *Model) Save(path string) error {
	if !m.trained {
		return errors.New(errors.ErrCodeModelNotTrained, "cannot save untrained model")
	}

	estRaw, err := m.est.marshalParams()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode estimator parameters")
	}

	art := artifact{
		SchemaVersion:  artifactSchemaVersion,
		Kind:           string(m.kind),
		Seed:           m.seed,
		Hyperparams:    m.hyper,
		FeatureColumns: m.cols,
		Scaler:         m.scaler,
		Estimator:      estRaw,
		Importances:    m.importances,
		SavedAt:        time.Now().UTC(),
	}

	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode model artifact")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create model directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create temp artifact file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write model artifact")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to close temp artifact file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to move model artifact into place")
	}

	m.log.Info("model artifact saved", logging.String("path", path))
	return nil
}

// Load restores a trained model from the artifact at path. The artifact's
// frozen feature-column list must agree exactly, names and order, with
// the current feature engine contract; any disagreement is fatal so
// scoring can never run with misaligned columns.
func Load(path string, engine *features.Engine, log logging.Logger) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelArtifact, "failed to read model artifact").
			WithDetail("path=" + path)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelArtifact, "failed to decode model artifact").
			WithDetail("path=" + path)
	}

	if art.SchemaVersion != artifactSchemaVersion {
		return nil, errors.Newf(errors.ErrCodeModelArtifact,
			"unsupported model artifact schema version %d (supported: %d)",
			art.SchemaVersion, artifactSchemaVersion)
	}

	kind, err := ParseKind(art.Kind)
	if err != nil {
		return nil, err
	}

	if !features.ColumnsMatch(art.FeatureColumns) {
		return nil, errors.New(errors.ErrCodeFeatureContractMismatch,
			"artifact feature columns disagree with the feature engine contract").
			WithDetail("path=" + path)
	}

	if art.Scaler == nil || !art.Scaler.Fitted() {
		return nil, errors.New(errors.ErrCodeModelArtifact, "artifact is missing fitted scaler statistics")
	}

	m, err := New(kind, engine, log, WithSeed(art.Seed), WithHyperparams(art.Hyperparams))
	if err != nil {
		return nil, err
	}

	est, err := newEstimator(kind, art.Hyperparams)
	if err != nil {
		return nil, err
	}
	if err := est.unmarshalParams(art.Estimator); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelArtifact, "failed to decode estimator parameters")
	}

	m.est = est
	m.scaler = art.Scaler
	m.cols = art.FeatureColumns
	m.importances = art.Importances
	m.trained = true

	m.log.Info("model artifact loaded",
		logging.String("path", path),
		logging.String("kind", string(kind)),
	)
	return m, nil
}
