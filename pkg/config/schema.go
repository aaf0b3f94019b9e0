package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// JSONSchema returns the JSON schema of Config for editor completion and
// validation of config files.
func JSONSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "DittoDrive Configuration"
	schema.Description = "Configuration schema for the DittoDrive server"

	return json.MarshalIndent(schema, "", "  ")
}
