package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const errorFormat = "  - %s"

const durationPattern = `^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// configSchema describes the YAML configuration file.
var configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "definitions": {
    "duration": {
      "oneOf": [
        {"type": "string", "pattern": "` + durationPattern + `"},
        {"type": "integer", "minimum": 1}
      ]
    }
  },
  "properties": {
    "gemini": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "api_key": {"type": "string"},
        "url": {"type": "string", "pattern": "^wss?://"},
        "model": {"type": "string", "minLength": 1},
        "setup_timeout": {"$ref": "#/definitions/duration"},
        "heartbeat_interval": {"$ref": "#/definitions/duration"}
      }
    },
    "persona": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string"},
        "voice": {"type": "string", "minLength": 1},
        "greeting": {"type": "string"},
        "system_instruction": {"type": "string"}
      }
    },
    "audio": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "input_sample_rate": {"type": "integer", "minimum": 8000},
        "output_sample_rate": {"type": "integer", "minimum": 8000},
        "frame_size": {"type": "integer", "minimum": 256}
      }
    },
    "face_detection": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "detector": {"enum": ["manual", "remote"]},
        "detector_url": {"type": "string"},
        "camera": {"enum": ["none", "snapshot"]},
        "snapshot_url": {"type": "string"},
        "weights_url": {"type": "string"}
      }
    },
    "storage": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "backend": {"enum": ["file", "redis", "memory"]},
        "dir": {"type": "string"},
        "key": {"type": "string", "minLength": 1},
        "redis_addr": {"type": "string"},
        "limit": {"type": "integer", "minimum": 0}
      }
    },
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"enum": ["debug", "info", "warn", "error"]},
        "format": {"enum": ["json", "text"]},
        "common_fields": {"type": "object", "additionalProperties": {"type": "string"}}
      }
    },
    "metrics": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "addr": {"type": "string"}
      }
    },
    "telemetry": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "otlp_endpoint": {"type": "string"},
        "service_name": {"type": "string"}
      }
    }
  }
}`

// SchemaValidationError represents a validation error from JSON schema validation.
type SchemaValidationError struct {
	Field       string
	Description string
	Value       interface{}
}

// Error implements the error interface.
func (e SchemaValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (value: %v)", e.Field, e.Description, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// SchemaValidationResult contains the results of schema validation.
type SchemaValidationResult struct {
	Valid  bool
	Errors []SchemaValidationError
}

// ValidateWithSchema validates YAML data against the configuration schema.
func ValidateWithSchema(yamlData []byte) (*SchemaValidationResult, error) {
	var data interface{}
	if err := yaml.Unmarshal(yamlData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	// An empty document is a valid (all defaults) configuration.
	if data == nil {
		data = map[string]interface{}{}
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to JSON: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	validationResult := &SchemaValidationResult{
		Valid:  result.Valid(),
		Errors: make([]SchemaValidationError, 0),
	}
	for _, e := range result.Errors() {
		validationResult.Errors = append(validationResult.Errors, SchemaValidationError{
			Field:       e.Field(),
			Description: e.Description(),
			Value:       e.Value(),
		})
	}
	return validationResult, nil
}

// ValidateKioskConfig validates a configuration file against the schema.
func ValidateKioskConfig(yamlData []byte) error {
	result, err := ValidateWithSchema(yamlData)
	if err != nil {
		return err
	}
	if !result.Valid {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, fmt.Sprintf(errorFormat, e.Error()))
		}
		return fmt.Errorf("kiosk configuration does not match schema:\n%s", strings.Join(msgs, "\n"))
	}
	return nil
}
