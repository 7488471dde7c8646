package model

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

const testArtifact = `{
  "model": {
    "name": "chronic_care_lr",
    "algorithm": "logistic_regression",
    "feature_names": ["age_at_last_encounter", "bmi_obese"],
    "weights": {
      "bias": -1.0,
      "coefficients": [0.5, 1.5]
    },
    "scaler": {
      "means": [60.0, 0.2],
      "stds": [10.0, 0.4]
    }
  },
  "metadata": {
    "trained_at": "2024-05-01T00:00:00Z",
    "test_auroc": 0.91
  }
}`

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}
	return path
}

func TestLinearScorerScore(t *testing.T) {
	scorer := NewLinearScorer(writeArtifact(t, testArtifact))
	ctx := context.Background()

	schema, err := scorer.Schema(ctx)
	if err != nil {
		t.Fatalf("schema failed: %v", err)
	}
	if len(schema) != 2 || schema[0] != "age_at_last_encounter" {
		t.Fatalf("unexpected schema %v", schema)
	}

	v := models.FeatureVector{Schema: schema, Values: []float64{70, 1}}
	got, err := scorer.Score(ctx, v)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	// logit = -1 + 0.5*(70-60)/10 + 1.5*(1-0.2)/0.4 = 2.5
	want := 1 / (1 + math.Exp(-2.5))
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got < 0 || got > 1 {
		t.Fatalf("probability out of range: %v", got)
	}
}

func TestLinearScorerAttribute(t *testing.T) {
	scorer := NewLinearScorer(writeArtifact(t, testArtifact))
	ctx := context.Background()

	v := models.FeatureVector{
		Schema: []string{"age_at_last_encounter", "bmi_obese"},
		Values: []float64{70, 1},
	}
	contributions, err := scorer.Attribute(ctx, v)
	if err != nil {
		t.Fatalf("attribute failed: %v", err)
	}
	if len(contributions) != 2 {
		t.Fatalf("expected one contribution per feature, got %d", len(contributions))
	}
	if math.Abs(contributions["age_at_last_encounter"]-0.5) > 1e-9 {
		t.Fatalf("unexpected age contribution %v", contributions["age_at_last_encounter"])
	}
	if math.Abs(contributions["bmi_obese"]-3.0) > 1e-9 {
		t.Fatalf("unexpected bmi contribution %v", contributions["bmi_obese"])
	}
}

func TestLinearScorerVectorLengthMismatch(t *testing.T) {
	scorer := NewLinearScorer(writeArtifact(t, testArtifact))

	v := models.FeatureVector{Schema: []string{"age_at_last_encounter"}, Values: []float64{70}}
	if _, err := scorer.Score(context.Background(), v); err == nil {
		t.Fatal("expected error for mismatched vector length")
	}
}

func TestLinearScorerMissingArtifact(t *testing.T) {
	scorer := NewLinearScorer(filepath.Join(t.TempDir(), "absent.json"))

	_, err := scorer.Info(context.Background())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLinearScorerInvalidArtifact(t *testing.T) {
	path := writeArtifact(t, `{"model": {"feature_names": ["a"], "weights": {"coefficients": []}}}`)
	scorer := NewLinearScorer(path)

	if _, err := scorer.Schema(context.Background()); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable for invalid artifact, got %v", err)
	}
}

type slowScorer struct{}

func (slowScorer) Schema(ctx context.Context) ([]string, error) {
	select {
	case <-time.After(time.Second):
		return []string{"a"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (slowScorer) Score(ctx context.Context, v models.FeatureVector) (float64, error) {
	select {
	case <-time.After(time.Second):
		return 0.5, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (slowScorer) Attribute(ctx context.Context, v models.FeatureVector) (map[string]float64, error) {
	return nil, nil
}

func (slowScorer) Info(ctx context.Context) (Info, error) {
	return Info{}, nil
}

func TestTimeoutScorer(t *testing.T) {
	scorer := NewTimeoutScorer(slowScorer{}, 20*time.Millisecond)

	_, err := scorer.Score(context.Background(), models.FeatureVector{})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable on timeout, got %v", err)
	}
}
