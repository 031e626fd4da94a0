package predictor

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/score"
)

// ErrModelUnavailable is returned when the model artifact cannot be loaded.
var ErrModelUnavailable = errors.New("score model unavailable")

// Artifact kinds.
const (
	KindLinear  = "linear"
	KindForest  = "forest"
	KindBoosted = "boosted"
)

// Format identifies an artifact encoding.
type Format string

const (
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// Artifact is the serialized form of a trained score model.
type Artifact struct {
	Kind         string     `yaml:"kind"`
	Features     []string   `yaml:"features"`
	Intercept    float64    `yaml:"intercept,omitempty"`
	Coefficients []float64  `yaml:"coefficients,omitempty"`
	Trees        []TreeSpec `yaml:"trees,omitempty"`
	BaseScore    float64    `yaml:"base_score,omitempty"`
	LearningRate float64    `yaml:"learning_rate,omitempty"`
	Min          *float64   `yaml:"min,omitempty"`
	Max          *float64   `yaml:"max,omitempty"`
}

// TreeSpec is one regression tree stored as a flat node array rooted at index 0.
type TreeSpec struct {
	Nodes []NodeSpec `yaml:"nodes"`
}

// NodeSpec is a split or leaf node. Leaves have Left and Right set to -1.
type NodeSpec struct {
	Feature   int     `yaml:"feature"`
	Threshold float64 `yaml:"threshold"`
	Left      int     `yaml:"left"`
	Right     int     `yaml:"right"`
	Value     float64 `yaml:"value"`
}

//go:embed starter_model.yaml
var starterArtifact []byte

// StarterArtifact returns the bundled reference model in YAML form.
func StarterArtifact() []byte {
	return append([]byte(nil), starterArtifact...)
}

// FormatForPath picks the artifact encoding from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unsupported model artifact extension %q", filepath.Ext(path))
	}
}

// Load reads and builds the model artifact at path.
func Load(path string) (ScoreModel, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	m, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, path, err)
	}
	return m, nil
}

// Decode parses an encoded artifact and builds the model.
func Decode(data []byte, format Format) (ScoreModel, error) {
	var (
		art Artifact
		err error
	)
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&art)
	case FormatMsgpack:
		art, err = decodeArtifactMsgpack(data)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return Build(art)
}

// Build validates the artifact and constructs the model it describes.
func Build(art Artifact) (ScoreModel, error) {
	if err := checkFeatures(art.Features); err != nil {
		return nil, err
	}
	b := bounds{min: 0, max: 100}
	if art.Min != nil {
		b.min = *art.Min
	}
	if art.Max != nil {
		b.max = *art.Max
	}
	if b.min < 0 || b.max > 100 {
		return nil, fmt.Errorf("bounds [%g, %g] exceed the score range [0, 100]", b.min, b.max)
	}
	if b.min > b.max {
		return nil, fmt.Errorf("min %g is greater than max %g", b.min, b.max)
	}

	switch art.Kind {
	case KindLinear:
		if len(art.Coefficients) != len(model.FeatureVector{}) {
			return nil, fmt.Errorf("linear model needs %d coefficients, got %d", len(model.FeatureVector{}), len(art.Coefficients))
		}
		l := &Linear{intercept: art.Intercept, bounds: b}
		copy(l.coefficients[:], art.Coefficients)
		return l, nil
	case KindForest, KindBoosted:
		if len(art.Trees) == 0 {
			return nil, fmt.Errorf("%s model has no trees", art.Kind)
		}
		e := &Ensemble{
			trees:        make([]tree, 0, len(art.Trees)),
			boosted:      art.Kind == KindBoosted,
			baseScore:    art.BaseScore,
			learningRate: art.LearningRate,
			bounds:       b,
		}
		if e.boosted && e.learningRate == 0 {
			e.learningRate = 1
		}
		for i, spec := range art.Trees {
			t, err := buildTree(spec)
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
			e.trees = append(e.trees, t)
		}
		return e, nil
	case "":
		return nil, fmt.Errorf("artifact kind is missing")
	default:
		return nil, fmt.Errorf("unknown artifact kind %q", art.Kind)
	}
}

func checkFeatures(features []string) error {
	if len(features) != len(score.FeatureNames) {
		return fmt.Errorf("artifact declares %d features, expected %d", len(features), len(score.FeatureNames))
	}
	for i, name := range score.FeatureNames {
		if features[i] != name {
			return fmt.Errorf("feature %d is %q, expected %q", i, features[i], name)
		}
	}
	return nil
}

// Children are stored after their parent, which rules out cycles.
func buildTree(spec TreeSpec) (tree, error) {
	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("tree has no nodes")
	}
	width := len(model.FeatureVector{})
	t := make(tree, len(spec.Nodes))
	for i, n := range spec.Nodes {
		isLeaf := n.Left < 0 && n.Right < 0
		if !isLeaf {
			if n.Left <= i || n.Right <= i || n.Left >= len(spec.Nodes) || n.Right >= len(spec.Nodes) {
				return nil, fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
			}
			if n.Feature < 0 || n.Feature >= width {
				return nil, fmt.Errorf("node %d splits on unknown feature %d", i, n.Feature)
			}
		}
		t[i] = node{feature: n.Feature, threshold: n.Threshold, left: n.Left, right: n.Right, value: n.Value}
		if isLeaf {
			t[i].left, t[i].right = -1, -1
		}
	}
	return t, nil
}
