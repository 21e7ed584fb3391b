package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// scheduleSchema mirrors the wire document described in the external
// interfaces: a "pipelines" map of class-paths and a "phases" map of
// pipeline references with an optional interval override.
const scheduleSchema = `{
  "type": "object",
  "required": ["pipelines", "phases"],
  "properties": {
    "pipelines": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["class"],
        "properties": { "class": {"type": "string"} }
      }
    },
    "phases": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["pipeline"],
        "properties": {
          "pipeline": {"type": "string"},
          "interval_seconds": {"type": "number"}
        }
      }
    }
  }
}`

// PipelineSpec is one entry of the schedule's "pipelines" map.
type PipelineSpec struct {
	Name      string
	ClassPath string
}

// PhasePolicy is one entry of the schedule's "phases" map.
type PhasePolicy struct {
	Phase           string
	PipelineName    string
	IntervalSeconds *float64
}

// Schedule is the fully parsed and validated pipeline schedule document.
type Schedule struct {
	Pipelines []PipelineSpec
	Phases    []PhasePolicy
}

type scheduleDoc struct {
	Pipelines map[string]struct {
		Class string `json:"class"`
	} `json:"pipelines"`
	Phases map[string]struct {
		Pipeline        string   `json:"pipeline"`
		IntervalSeconds *float64 `json:"interval_seconds"`
	} `json:"phases"`
}

// LoadSchedule reads, schema-validates, and semantically validates the
// pipeline schedule file at path. Validation failures are fatal at startup:
// there is no partial-schedule fallback.
func LoadSchedule(path string, logger *slog.Logger) (*Schedule, error) {
	if logger == nil {
		logger = slog.Default()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline schedule: read %s: %w", path, err)
	}

	if err := validateScheduleSchema(raw); err != nil {
		return nil, fmt.Errorf("pipeline schedule: schema validation failed: %w", err)
	}

	warnUnknownTopLevelKeys(raw, logger)

	var doc scheduleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("pipeline schedule: decode %s: %w", path, err)
	}

	if len(doc.Phases) == 0 {
		return nil, fmt.Errorf("pipeline schedule: no phases configured")
	}

	sched := &Schedule{}
	for name, spec := range doc.Pipelines {
		sched.Pipelines = append(sched.Pipelines, PipelineSpec{Name: name, ClassPath: spec.Class})
	}
	for phaseName, p := range doc.Phases {
		sched.Phases = append(sched.Phases, PhasePolicy{
			Phase: phaseName, PipelineName: p.Pipeline, IntervalSeconds: p.IntervalSeconds,
		})
	}

	if err := sched.validateReferences(); err != nil {
		return nil, err
	}
	return sched, nil
}

func validateScheduleSchema(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(scheduleSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%v", msgs)
	}
	return nil
}

func warnUnknownTopLevelKeys(raw []byte, logger *slog.Logger) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return
	}
	for key := range generic {
		if key != "pipelines" && key != "phases" {
			logger.Warn("pipeline schedule: unknown top-level key ignored", "key", key)
		}
	}
}

// validateReferences checks every phase's pipeline name resolves in the
// pipelines map and every class-path resolves in the compile-time registry.
func (s *Schedule) validateReferences() error {
	byName := make(map[string]PipelineSpec, len(s.Pipelines))
	for _, p := range s.Pipelines {
		byName[p.Name] = p
	}

	for _, phase := range s.Phases {
		spec, ok := byName[phase.PipelineName]
		if !ok {
			return fmt.Errorf("pipeline schedule: phase %q references unknown pipeline %q", phase.Phase, phase.PipelineName)
		}
		if _, ok := taskFactoryRegistry[spec.ClassPath]; !ok {
			return fmt.Errorf("pipeline schedule: pipeline %q references unresolved class-path %q (known: %v)",
				spec.Name, spec.ClassPath, KnownClassPaths())
		}
	}
	return nil
}
