package predictor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/score"
)

func featureNames() []string {
	return append([]string(nil), score.FeatureNames[:]...)
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStarterArtifactPredicts(t *testing.T) {
	m, err := Decode(StarterArtifact(), FormatYAML)
	if err != nil {
		t.Fatalf("decode starter: %v", err)
	}
	rows := []model.FeatureVector{{7.2, 3.8, 1.6, 1.8, 0.4, 14, 2, 82}}
	got := m.Predict(rows)
	if len(got) != 1 || !approxEqual(got[0], 80.1) {
		t.Fatalf("expected 80.1, got %v", got)
	}
}

func TestLinearClampsToRange(t *testing.T) {
	art := Artifact{
		Kind:         KindLinear,
		Features:     featureNames(),
		Intercept:    50,
		Coefficients: []float64{10, 0, 0, 0, 0, 0, 0, 0},
	}
	m, err := Build(art)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got := m.Predict([]model.FeatureVector{{10}, {-10}, {1}})
	want := []float64{100, 0, 60}
	for i := range want {
		if !approxEqual(got[i], want[i]) {
			t.Fatalf("row %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func stumps() []TreeSpec {
	return []TreeSpec{
		{Nodes: []NodeSpec{
			{Feature: 0, Threshold: 7, Left: 1, Right: 2},
			{Left: -1, Right: -1, Value: 60},
			{Left: -1, Right: -1, Value: 80},
		}},
		{Nodes: []NodeSpec{
			{Feature: 6, Threshold: 2, Left: 1, Right: 2},
			{Left: -1, Right: -1, Value: 90},
			{Left: -1, Right: -1, Value: 50},
		}},
	}
}

func TestForestAveragesTrees(t *testing.T) {
	m, err := Build(Artifact{Kind: KindForest, Features: featureNames(), Trees: stumps()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got := m.Predict([]model.FeatureVector{
		{8, 0, 0, 0, 0, 0, 1, 0},
		{6, 0, 0, 0, 0, 0, 3, 0},
		{7, 0, 0, 0, 0, 0, 2, 0},
	})
	want := []float64{85, 55, 75}
	for i := range want {
		if !approxEqual(got[i], want[i]) {
			t.Fatalf("row %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestBoostedAddsScaledTrees(t *testing.T) {
	m, err := Build(Artifact{Kind: KindBoosted, Features: featureNames(), Trees: stumps(), BaseScore: 10, LearningRate: 0.5})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got := m.Predict([]model.FeatureVector{{8, 0, 0, 0, 0, 0, 1, 0}})
	if !approxEqual(got[0], 10+0.5*(80+90)) {
		t.Fatalf("unexpected boosted prediction %v", got[0])
	}
}

func TestBuildRejectsInvalidArtifacts(t *testing.T) {
	reordered := featureNames()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	cyclic := []TreeSpec{{Nodes: []NodeSpec{
		{Feature: 0, Left: 0, Right: 1},
		{Left: -1, Right: -1},
	}}}
	below, above, low, high := -5.0, 150.0, 80.0, 20.0
	badFeature := []TreeSpec{{Nodes: []NodeSpec{
		{Feature: 8, Left: 1, Right: 2},
		{Left: -1, Right: -1},
		{Left: -1, Right: -1},
	}}}
	tests := []struct {
		name string
		art  Artifact
		want string
	}{
		{name: "feature order", art: Artifact{Kind: KindLinear, Features: reordered, Coefficients: make([]float64, 8)}, want: "feature 0"},
		{name: "coefficient count", art: Artifact{Kind: KindLinear, Features: featureNames(), Coefficients: make([]float64, 7)}, want: "8 coefficients"},
		{name: "missing kind", art: Artifact{Features: featureNames()}, want: "kind is missing"},
		{name: "unknown kind", art: Artifact{Kind: "svm", Features: featureNames()}, want: "unknown artifact kind"},
		{name: "no trees", art: Artifact{Kind: KindForest, Features: featureNames()}, want: "no trees"},
		{name: "cyclic tree", art: Artifact{Kind: KindForest, Features: featureNames(), Trees: cyclic}, want: "invalid children"},
		{name: "unknown split feature", art: Artifact{Kind: KindForest, Features: featureNames(), Trees: badFeature}, want: "unknown feature"},
		{name: "max above range", art: Artifact{Kind: KindLinear, Features: featureNames(), Coefficients: make([]float64, 8), Max: &above}, want: "exceed the score range"},
		{name: "min below range", art: Artifact{Kind: KindLinear, Features: featureNames(), Coefficients: make([]float64, 8), Min: &below}, want: "exceed the score range"},
		{name: "inverted bounds", art: Artifact{Kind: KindLinear, Features: featureNames(), Coefficients: make([]float64, 8), Min: &low, Max: &high}, want: "greater than max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.art)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	lo, hi := 10.0, 95.0
	art := Artifact{
		Kind:         KindBoosted,
		Features:     featureNames(),
		Trees:        stumps(),
		BaseScore:    20,
		LearningRate: 0.25,
		Min:          &lo,
		Max:          &hi,
	}
	data, err := Encode(art, FormatMsgpack)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeArtifactMsgpack(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Kind != art.Kind || decoded.BaseScore != 20 || decoded.LearningRate != 0.25 {
		t.Fatalf("unexpected artifact header: %+v", decoded)
	}
	if decoded.Min == nil || *decoded.Min != lo || decoded.Max == nil || *decoded.Max != hi {
		t.Fatalf("bounds lost in round trip")
	}
	if len(decoded.Trees) != 2 || decoded.Trees[1].Nodes[0].Feature != 6 || decoded.Trees[0].Nodes[1].Left != -1 {
		t.Fatalf("trees lost in round trip: %+v", decoded.Trees)
	}

	m, err := Decode(data, FormatMsgpack)
	if err != nil {
		t.Fatalf("build decoded: %v", err)
	}
	got := m.Predict([]model.FeatureVector{{6, 0, 0, 0, 0, 0, 3, 0}})
	if !approxEqual(got[0], 20+0.25*(60+50)) {
		t.Fatalf("unexpected prediction %v", got[0])
	}
}

func TestMsgpackRejectsTrailingData(t *testing.T) {
	data, err := Encode(Artifact{Kind: KindLinear, Features: featureNames(), Coefficients: make([]float64, 8)}, FormatMsgpack)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(append(data, 0x01), FormatMsgpack); err == nil {
		t.Fatalf("expected trailing data error")
	}
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "model.yaml")
	if err := os.WriteFile(yamlPath, StarterArtifact(), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if _, err := Load(yamlPath); err != nil {
		t.Fatalf("load yaml: %v", err)
	}

	starter, err := ParseStarter()
	if err != nil {
		t.Fatalf("parse starter: %v", err)
	}
	data, err := Encode(starter, FormatMsgpack)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	mpPath := filepath.Join(dir, "model.msgpack")
	if err := os.WriteFile(mpPath, data, 0o644); err != nil {
		t.Fatalf("write msgpack: %v", err)
	}
	m, err := Load(mpPath)
	if err != nil {
		t.Fatalf("load msgpack: %v", err)
	}
	got := m.Predict([]model.FeatureVector{{7.2, 3.8, 1.6, 1.8, 0.4, 14, 2, 82}})
	if !approxEqual(got[0], 80.1) {
		t.Fatalf("expected 80.1, got %v", got[0])
	}
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	garbled := filepath.Join(dir, "garbled.yaml")
	if err := os.WriteFile(garbled, []byte("kind: linear\nfeatures: 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	unknownKey := filepath.Join(dir, "extra.yaml")
	if err := os.WriteFile(unknownKey, append(StarterArtifact(), []byte("dropout: 0.1\n")...), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, path := range []string{
		filepath.Join(dir, "missing.yaml"),
		filepath.Join(dir, "model.pkl"),
		garbled,
		unknownKey,
	} {
		if _, err := Load(path); !errors.Is(err, ErrModelUnavailable) {
			t.Fatalf("%s: expected ErrModelUnavailable, got %v", filepath.Base(path), err)
		}
	}
}
