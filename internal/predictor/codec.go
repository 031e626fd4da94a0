package predictor

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Encode serializes an artifact in the requested format.
func Encode(art Artifact, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(art)
	case FormatMsgpack:
		var buf bytes.Buffer
		if err := encodeMsgpack(&buf, artifactValue(art)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// ParseStarter decodes the bundled reference artifact.
func ParseStarter() (Artifact, error) {
	var art Artifact
	if err := yaml.Unmarshal(starterArtifact, &art); err != nil {
		return Artifact{}, err
	}
	return art, nil
}

func artifactValue(art Artifact) map[string]any {
	features := make([]any, len(art.Features))
	for i, f := range art.Features {
		features[i] = f
	}
	out := map[string]any{
		"kind":     art.Kind,
		"features": features,
	}
	if art.Intercept != 0 {
		out["intercept"] = art.Intercept
	}
	if len(art.Coefficients) > 0 {
		out["coefficients"] = floatsValue(art.Coefficients)
	}
	if len(art.Trees) > 0 {
		trees := make([]any, len(art.Trees))
		for i, t := range art.Trees {
			nodes := make([]any, len(t.Nodes))
			for j, n := range t.Nodes {
				nodes[j] = map[string]any{
					"feature":   int64(n.Feature),
					"threshold": n.Threshold,
					"left":      int64(n.Left),
					"right":     int64(n.Right),
					"value":     n.Value,
				}
			}
			trees[i] = map[string]any{"nodes": nodes}
		}
		out["trees"] = trees
	}
	if art.BaseScore != 0 {
		out["base_score"] = art.BaseScore
	}
	if art.LearningRate != 0 {
		out["learning_rate"] = art.LearningRate
	}
	if art.Min != nil {
		out["min"] = *art.Min
	}
	if art.Max != nil {
		out["max"] = *art.Max
	}
	return out
}

func floatsValue(values []float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func decodeArtifactMsgpack(data []byte) (Artifact, error) {
	raw, err := decodeMsgpack(bytes.NewReader(data))
	if err != nil {
		return Artifact{}, err
	}
	root, ok := raw.(map[string]any)
	if !ok {
		return Artifact{}, fmt.Errorf("artifact root is %T, expected map", raw)
	}
	var art Artifact
	for key, val := range root {
		switch key {
		case "kind":
			art.Kind, err = asString(key, val)
		case "features":
			art.Features, err = asStrings(key, val)
		case "intercept":
			art.Intercept, err = asFloat(key, val)
		case "coefficients":
			art.Coefficients, err = asFloats(key, val)
		case "trees":
			art.Trees, err = asTrees(val)
		case "base_score":
			art.BaseScore, err = asFloat(key, val)
		case "learning_rate":
			art.LearningRate, err = asFloat(key, val)
		case "min":
			var v float64
			v, err = asFloat(key, val)
			art.Min = &v
		case "max":
			var v float64
			v, err = asFloat(key, val)
			art.Max = &v
		default:
			err = fmt.Errorf("unknown field %q", key)
		}
		if err != nil {
			return Artifact{}, err
		}
	}
	return art, nil
}

func asString(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, v)
	}
	return s, nil
}

func asFloat(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%s: expected number, got %T", key, v)
	}
}

func asInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%s: expected integer, got %g", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s: expected integer, got %T", key, v)
	}
}

func asList(key string, v any) ([]any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected array, got %T", key, v)
	}
	return items, nil
}

func asStrings(key string, v any) ([]string, error) {
	items, err := asList(key, v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		if out[i], err = asString(fmt.Sprintf("%s[%d]", key, i), item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func asFloats(key string, v any) ([]float64, error) {
	items, err := asList(key, v)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		if out[i], err = asFloat(fmt.Sprintf("%s[%d]", key, i), item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func asTrees(v any) ([]TreeSpec, error) {
	items, err := asList("trees", v)
	if err != nil {
		return nil, err
	}
	out := make([]TreeSpec, len(items))
	for i, item := range items {
		treeMap, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("trees[%d]: expected map, got %T", i, item)
		}
		nodes, err := asList(fmt.Sprintf("trees[%d].nodes", i), treeMap["nodes"])
		if err != nil {
			return nil, err
		}
		out[i].Nodes = make([]NodeSpec, len(nodes))
		for j, raw := range nodes {
			fields, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("trees[%d].nodes[%d]: expected map, got %T", i, j, raw)
			}
			if out[i].Nodes[j], err = asNode(fmt.Sprintf("trees[%d].nodes[%d]", i, j), fields); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func asNode(path string, fields map[string]any) (NodeSpec, error) {
	var (
		n   NodeSpec
		err error
	)
	for key, val := range fields {
		name := path + "." + key
		switch key {
		case "feature":
			n.Feature, err = asInt(name, val)
		case "threshold":
			n.Threshold, err = asFloat(name, val)
		case "left":
			n.Left, err = asInt(name, val)
		case "right":
			n.Right, err = asInt(name, val)
		case "value":
			n.Value, err = asFloat(name, val)
		default:
			err = fmt.Errorf("%s: unknown field", name)
		}
		if err != nil {
			return NodeSpec{}, err
		}
	}
	return n, nil
}
