package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

// ErrModelUnavailable signals that no scoring model could be loaded or that
// a model invocation timed out. Callers degrade to "no score" for the
// affected records; the batch continues.
var ErrModelUnavailable = errors.New("model unavailable")

// Scorer is the capability interface the pipeline depends on. The concrete
// model stays opaque behind it, which keeps the batch testable against a
// deterministic stub.
type Scorer interface {
	// Schema returns the fixed, ordered feature schema of the model.
	Schema(ctx context.Context) ([]string, error)
	// Score normalizes the vector, invokes the model and returns a
	// calibrated probability in [0,1].
	Score(ctx context.Context, v models.FeatureVector) (float64, error)
	// Attribute returns one signed contribution per schema feature,
	// commensurate with the feature's effect on the prediction.
	Attribute(ctx context.Context, v models.FeatureVector) (map[string]float64, error)
	// Info describes the loaded model for snapshot metadata.
	Info(ctx context.Context) (Info, error)
}

type Info struct {
	Name      string
	Algorithm string
	TestAUROC float64
}

// LinearScorer scores against a standardized linear model artifact. The
// standardization (x-mean)/std replays the scaler the model was trained
// with; attributions are the per-feature terms of the logit, so sign and
// magnitude are both meaningful.
type LinearScorer struct {
	loader *artifactLoader
}

func NewLinearScorer(path string) *LinearScorer {
	return &LinearScorer{loader: &artifactLoader{path: path}}
}

func (s *LinearScorer) Schema(ctx context.Context) ([]string, error) {
	artifact, err := s.loader.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return artifact.Model.FeatureNames, nil
}

func (s *LinearScorer) Info(ctx context.Context) (Info, error) {
	artifact, err := s.loader.load()
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return Info{
		Name:      artifact.Model.Name,
		Algorithm: artifact.Model.Algorithm,
		TestAUROC: artifact.Metadata.TestAUROC,
	}, nil
}

func (s *LinearScorer) Score(ctx context.Context, v models.FeatureVector) (float64, error) {
	artifact, err := s.loader.load()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	z, err := standardize(artifact, v)
	if err != nil {
		return 0, err
	}
	sum := artifact.Model.Weights.Bias
	for i, coeff := range artifact.Model.Weights.Coefficients {
		sum += coeff * z[i]
	}
	return sigmoid(sum), nil
}

func (s *LinearScorer) Attribute(ctx context.Context, v models.FeatureVector) (map[string]float64, error) {
	artifact, err := s.loader.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	z, err := standardize(artifact, v)
	if err != nil {
		return nil, err
	}
	contributions := make(map[string]float64, len(z))
	for i, name := range artifact.Model.FeatureNames {
		contributions[name] = artifact.Model.Weights.Coefficients[i] * z[i]
	}
	return contributions, nil
}

func standardize(artifact Artifact, v models.FeatureVector) ([]float64, error) {
	names := artifact.Model.FeatureNames
	if len(v.Values) != len(names) {
		return nil, fmt.Errorf("feature vector has %d values, model expects %d", len(v.Values), len(names))
	}
	z := make([]float64, len(names))
	for i := range names {
		std := artifact.Model.Scaler.Stds[i]
		if std <= 0 {
			std = 1
		}
		z[i] = (v.Values[i] - artifact.Model.Scaler.Means[i]) / std
	}
	return z, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// TimeoutScorer bounds every model invocation. An expired call surfaces as
// ErrModelUnavailable instead of blocking the batch.
type TimeoutScorer struct {
	inner   Scorer
	timeout time.Duration
}

func NewTimeoutScorer(inner Scorer, timeout time.Duration) *TimeoutScorer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TimeoutScorer{inner: inner, timeout: timeout}
}

func (s *TimeoutScorer) Schema(ctx context.Context) ([]string, error) {
	var schema []string
	err := s.bounded(ctx, func(ctx context.Context) error {
		var innerErr error
		schema, innerErr = s.inner.Schema(ctx)
		return innerErr
	})
	return schema, err
}

func (s *TimeoutScorer) Info(ctx context.Context) (Info, error) {
	var info Info
	err := s.bounded(ctx, func(ctx context.Context) error {
		var innerErr error
		info, innerErr = s.inner.Info(ctx)
		return innerErr
	})
	return info, err
}

func (s *TimeoutScorer) Score(ctx context.Context, v models.FeatureVector) (float64, error) {
	var score float64
	err := s.bounded(ctx, func(ctx context.Context) error {
		var innerErr error
		score, innerErr = s.inner.Score(ctx, v)
		return innerErr
	})
	return score, err
}

func (s *TimeoutScorer) Attribute(ctx context.Context, v models.FeatureVector) (map[string]float64, error) {
	var contributions map[string]float64
	err := s.bounded(ctx, func(ctx context.Context) error {
		var innerErr error
		contributions, innerErr = s.inner.Attribute(ctx, v)
		return innerErr
	})
	return contributions, err
}

func (s *TimeoutScorer) bounded(ctx context.Context, call func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- call(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrModelUnavailable, ctx.Err())
	}
}
