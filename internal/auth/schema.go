// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionSchemaID is the $id of the session file schema.
const SessionSchemaID = "https://tutordesk.dev/schemas/session.schema.json"

// SessionSchema returns the JSON Schema describing the session file.
func SessionSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  true,
		Mapper:                     mapSessionTypes,
	}
	schema := r.Reflect(&SessionRecord{})
	schema.ID = jsonschema.ID(SessionSchemaID)
	schema.Title = "tutordesk session"
	schema.Description = "The persisted login of the local user (~/.tutordesk/session.json)"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
	}
	return data, nil
}

func mapSessionTypes(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeFor[ulid.ULID]():
		return &jsonschema.Schema{
			Type:        "string",
			Pattern:     "^[0-9A-HJKMNP-TV-Z]{26}$",
			Description: "ULID correlating log lines of one login",
		}
	case reflect.TypeFor[LocalTime]():
		return &jsonschema.Schema{
			Type:        "string",
			Description: "local wall-clock time without offset, e.g. 2026-03-14T09:30:15",
		}
	default:
		return nil
	}
}
