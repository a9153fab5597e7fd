// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

// Package seed reads YAML files that declare user accounts and imports them.
//
// A seed file looks like:
//
//	users:
//	  - username: admin
//	    role: ADMIN
//	    password: change-me
//	  - username: tutor1
//	    role: TUTOR
//	    password_hash: $argon2id$v=19$m=65536,t=3,p=4$...
package seed

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the seed file schema.
const SchemaID = "https://tutordesk.dev/schemas/users.schema.json"

// File is a parsed seed file.
type File struct {
	Users []User `json:"users" yaml:"users" jsonschema:"required,minItems=1"`
}

// User declares one account. Exactly one of Password and PasswordHash is set.
type User struct {
	Username     string `json:"username" yaml:"username" jsonschema:"required,minLength=3,maxLength=30,pattern=^[a-zA-Z][a-zA-Z0-9_]*$"`
	Role         string `json:"role" yaml:"role" jsonschema:"required,enum=ADMIN,enum=TUTOR,enum=STUDENT"`
	Password     string `json:"password,omitempty" yaml:"password,omitempty" jsonschema:"minLength=1"`
	PasswordHash string `json:"password_hash,omitempty" yaml:"password_hash,omitempty" jsonschema:"pattern=^\\$argon2id\\$"`
}

// JSONSchemaExtend requires exactly one password field.
func (User) JSONSchemaExtend(s *jsonschema.Schema) {
	s.OneOf = []*jsonschema.Schema{
		{Required: []string{"password"}},
		{Required: []string{"password_hash"}},
	}
}

// Schema returns the JSON Schema for seed files.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&File{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "tutordesk user seed file"
	schema.Description = "Accounts created by `tutordesk user import`"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
	}
	return data, nil
}

var compiledSchema = sync.OnceValues(func() (*jschema.Schema, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
	}
	c := jschema.NewCompiler()
	if err := c.AddResource(SchemaID, doc); err != nil {
		return nil, oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
	}
	sch, err := c.Compile(SchemaID)
	if err != nil {
		return nil, oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
	}
	return sch, nil
})

// Validate checks YAML data against the seed file schema.
func Validate(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return oops.Code("SEED_INVALID").Errorf("seed file is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("SEED_PARSE_FAILED").Wrap(err)
	}

	// Round-trip through JSON so the validator sees JSON types only.
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.Code("SEED_PARSE_FAILED").Wrap(err)
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code("SEED_PARSE_FAILED").Wrap(err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return oops.Code("SEED_INVALID").Wrapf(err, "seed file does not match schema")
	}
	return nil
}

// Parse validates data and decodes it. Usernames must be unique ignoring case.
func Parse(data []byte) (*File, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("SEED_PARSE_FAILED").Wrap(err)
	}

	seen := make(map[string]struct{}, len(f.Users))
	for _, u := range f.Users {
		key := strings.ToLower(u.Username)
		if _, dup := seen[key]; dup {
			return nil, oops.Code("SEED_INVALID").
				With("username", u.Username).
				Errorf("username %q appears more than once", u.Username)
		}
		seen[key] = struct{}{}
	}
	return &f, nil
}

// Load reads and parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return f, nil
}
