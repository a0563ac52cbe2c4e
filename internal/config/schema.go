package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// profileSchema accepts either a single profile or a "profiles" map of them.
const profileSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "stringList": {
      "type": "array",
      "items": {"type": "string"}
    },
    "profile": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "command":      {"type": "string"},
        "jvmArgs":      {"$ref": "#/$defs/stringList"},
        "classpath":    {"type": "string"},
        "mainClass":    {"type": "string"},
        "args":         {"$ref": "#/$defs/stringList"},
        "propsFlag":    {"type": "string", "minLength": 1},
        "noHangUpFlag": {"type": "string"},
        "workDir":      {"type": "string"},
        "stagger":      {"type": "string"}
      }
    }
  },
  "if": {"type": "object", "required": ["profiles"]},
  "then": {
    "type": "object",
    "additionalProperties": false,
    "properties": {
      "profiles": {
        "type": "object",
        "minProperties": 1,
        "additionalProperties": {"$ref": "#/$defs/profile"}
      }
    }
  },
  "else": {"$ref": "#/$defs/profile"}
}`

const schemaURL = "swarm-profile.schema.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func profileSchemaValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(profileSchema)); err != nil {
			compileErr = fmt.Errorf("invalid schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

// validateSchema checks a decoded JSON document against the profile schema.
func validateSchema(doc interface{}) error {
	schema, err := profileSchemaValidator()
	if err != nil {
		return err
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	errs := &ValidationErrors{}
	collectSchemaErrors(verr, errs)
	if !errs.HasErrors() {
		errs.Add("", verr.Error())
	}
	return errs
}

// collectSchemaErrors flattens the leaf causes of a schema failure.
func collectSchemaErrors(err *jsonschema.ValidationError, errs *ValidationErrors) {
	if len(err.Causes) == 0 {
		errs.Add(schemaField(err.InstanceLocation), err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, errs)
	}
}

// schemaField turns a JSON pointer like /profiles/uperf/jvmArgs/0 into
// profiles.uperf.jvmArgs.0.
func schemaField(pointer string) string {
	return strings.ReplaceAll(strings.TrimPrefix(pointer, "/"), "/", ".")
}
