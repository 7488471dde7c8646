package model

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Artifact is the serialized form of a trained scoring model. Training
// happens outside this repository; the artifact is consumed read-only.
// FeatureNames fixes the input schema: order and cardinality of every
// FeatureVector scored against this artifact.
type Artifact struct {
	Model struct {
		Name         string   `json:"name"`
		Algorithm    string   `json:"algorithm"`
		FeatureNames []string `json:"feature_names"`
		Weights      struct {
			Bias         float64   `json:"bias"`
			Coefficients []float64 `json:"coefficients"`
		} `json:"weights"`
		Scaler struct {
			Means []float64 `json:"means"`
			Stds  []float64 `json:"stds"`
		} `json:"scaler"`
	} `json:"model"`
	Metadata struct {
		TrainedAt string  `json:"trained_at"`
		TestAUROC float64 `json:"test_auroc"`
	} `json:"metadata"`
}

func (a Artifact) validate() error {
	n := len(a.Model.FeatureNames)
	if n == 0 {
		return fmt.Errorf("artifact missing feature names")
	}
	if len(a.Model.Weights.Coefficients) != n {
		return fmt.Errorf("artifact has %d coefficients for %d features", len(a.Model.Weights.Coefficients), n)
	}
	if len(a.Model.Scaler.Means) != n || len(a.Model.Scaler.Stds) != n {
		return fmt.Errorf("artifact scaler does not match feature count %d", n)
	}
	return nil
}

type artifactLoader struct {
	path   string
	mu     sync.RWMutex
	cached *Artifact
	mod    int64
}

// load returns the artifact, re-reading the file only when its mod time
// changed since the last read.
func (l *artifactLoader) load() (Artifact, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return Artifact{}, err
	}
	mod := info.ModTime().UnixNano()

	l.mu.RLock()
	if l.cached != nil && l.mod == mod {
		artifact := *l.cached
		l.mu.RUnlock()
		return artifact, nil
	}
	l.mu.RUnlock()

	content, err := os.ReadFile(l.path)
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, err
	}
	if err := artifact.validate(); err != nil {
		return Artifact{}, err
	}

	l.mu.Lock()
	l.cached = &artifact
	l.mod = mod
	l.mu.Unlock()
	return artifact, nil
}
