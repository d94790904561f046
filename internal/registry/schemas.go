package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/studyforge/learning-engine/internal/types"
)

// Each algorithm family has its own parameter schema. Activation of a
// document that fails its schema is rejected outright, so malformed operator
// input can never become the active configuration.

var paramSchemas = map[types.AlgoKey]map[string]any{
	types.AlgoMastery: {
		"type": "object",
		"properties": map[string]any{
			"p_l0": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"p_t":  map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			// Slip and guess above 0.5 make the model non-identifiable, so
			// the schema itself refuses them.
			"p_s": map[string]any{"type": "number", "minimum": 0, "exclusiveMaximum": 0.5},
			"p_g": map[string]any{"type": "number", "minimum": 0, "exclusiveMaximum": 0.5},
			"fit": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"max_iterations": map[string]any{"type": "integer", "minimum": 1},
					"tolerance":      map[string]any{"type": "number", "exclusiveMinimum": 0},
					"min_sequence":   map[string]any{"type": "integer", "minimum": 1},
				},
				"required":             []any{"max_iterations", "tolerance", "min_sequence"},
				"additionalProperties": false,
			},
		},
		"required":             []any{"p_l0", "p_t", "p_s", "p_g"},
		"additionalProperties": false,
	},
	types.AlgoDifficulty: {
		"type": "object",
		"properties": map[string]any{
			"baseline_rating": map[string]any{"type": "number"},
			"k_factor":        map[string]any{"type": "number", "exclusiveMinimum": 0},
			"scale":           map[string]any{"type": "number", "exclusiveMinimum": 0},
			"mastery_rating_map": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"min": map[string]any{"type": "number"},
					"max": map[string]any{"type": "number"},
				},
				"required":             []any{"min", "max"},
				"additionalProperties": false,
			},
		},
		"required":             []any{"baseline_rating", "k_factor", "scale", "mastery_rating_map"},
		"additionalProperties": false,
	},
	types.AlgoRevision: {
		"type": "object",
		"properties": map[string]any{
			"min_attempts": map[string]any{"type": "integer", "minimum": 1},
			"bands": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": "string", "minLength": 1},
						"upper_bound": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					},
					"required":             []any{"name", "upper_bound"},
					"additionalProperties": false,
				},
			},
			"spacing_days": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "integer", "minimum": 0},
			},
			"weights": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"mastery":        map[string]any{"type": "number", "minimum": 0},
					"recency":        map[string]any{"type": "number", "minimum": 0},
					"low_data_bonus": map[string]any{"type": "number", "minimum": 0},
				},
				"required":             []any{"mastery", "recency", "low_data_bonus"},
				"additionalProperties": false,
			},
			"recommended_counts": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"min": map[string]any{"type": "integer", "minimum": 0},
						"max": map[string]any{"type": "integer", "minimum": 0},
					},
					"required":             []any{"min", "max"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"min_attempts", "bands", "spacing_days", "weights", "recommended_counts"},
		"additionalProperties": false,
	},
	types.AlgoAdaptive: {
		"type": "object",
		"properties": map[string]any{
			"anti_repeat_days": map[string]any{"type": "integer", "minimum": 0},
			"theme_mix": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"weak":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"medium": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"mixed":  map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
				"required":             []any{"weak", "medium", "mixed"},
				"additionalProperties": false,
			},
			"difficulty_buckets": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"min": map[string]any{"type": "number"},
						"max": map[string]any{"type": "number"},
					},
					"required":             []any{"min", "max"},
					"additionalProperties": false,
				},
			},
			"bucket_limits": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "integer", "minimum": 0},
			},
			"fit_weights": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"mastery_inverse":     map[string]any{"type": "number", "minimum": 0},
					"difficulty_distance": map[string]any{"type": "number", "minimum": 0},
					"freshness":           map[string]any{"type": "number", "minimum": 0},
				},
				"required":             []any{"mastery_inverse", "difficulty_distance", "freshness"},
				"additionalProperties": false,
			},
			"weak_band_upper":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"medium_band_upper": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
		"required":             []any{"anti_repeat_days", "theme_mix", "difficulty_buckets", "bucket_limits", "fit_weights", "weak_band_upper", "medium_band_upper"},
		"additionalProperties": false,
	},
	types.AlgoMistakes: {
		"type": "object",
		"properties": map[string]any{
			"time_pressure_threshold_seconds": map[string]any{"type": "number", "minimum": 0},
			"fast_wrong_threshold_seconds":    map[string]any{"type": "number", "minimum": 0},
			"slow_wrong_threshold_seconds":    map[string]any{"type": "number", "minimum": 0},
			"blur_threshold":                  map[string]any{"type": "integer", "minimum": 1},
			"severity": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
			},
			"model": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"weights": map[string]any{
						"type": "object",
						"additionalProperties": map[string]any{
							"type":                 "object",
							"additionalProperties": map[string]any{"type": "number"},
						},
					},
					"bias": map[string]any{
						"type":                 "object",
						"additionalProperties": map[string]any{"type": "number"},
					},
					"temperature":    map[string]any{"type": "number", "exclusiveMinimum": 0},
					"min_confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
				"required":             []any{"weights", "bias", "temperature", "min_confidence"},
				"additionalProperties": false,
			},
		},
		"required":             []any{"time_pressure_threshold_seconds", "fast_wrong_threshold_seconds", "slow_wrong_threshold_seconds", "blur_threshold", "severity"},
		"additionalProperties": false,
	},
}

// schemaCache caches compiled schemas by algo key.
var schemaCache sync.Map // map[types.AlgoKey]*jsonschema.Schema

// ValidateParams checks a raw parameter document against the schema for its
// algorithm family.
func ValidateParams(key types.AlgoKey, raw []byte) error {
	def, ok := paramSchemas[key]
	if !ok {
		return ErrUnknownAlgoKey
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrInvalidParams, err)
	}
	compiled, err := getCompiledSchema(key, def)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", key, err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func getCompiledSchema(key types.AlgoKey, def map[string]any) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The jsonschema library expects a parsed JSON value, not raw bytes.
	// Marshal then unmarshal to get a clean any representation.
	defBytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", key)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(key, compiled)
	return compiled, nil
}
