package statestore

import "github.com/santhosh-tekuri/jsonschema/v5"

// Ingress schemas for the two documents the store serves. The store is a
// plain key-value document store with no schema of its own, so replies are
// validated here before anything is coerced into domain types.

var registrySchema = jsonschema.MustCompileString("registry.json", `{
	"type": "object",
	"properties": {
		"accounts": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id":   {"type": "string", "minLength": 1},
					"name": {"type": "string"}
				},
				"required": ["id"]
			}
		},
		"account": {"type": "string"}
	}
}`)

var accountStateSchema = jsonschema.MustCompileString("account_state.json", `{
	"type": "object",
	"properties": {
		"weeklyData": {
			"type": "object",
			"additionalProperties": {"type": "object"}
		},
		"initData":  {"$ref": "#/$defs/snapshot"},
		"finalData": {"$ref": "#/$defs/snapshot"}
	},
	"$defs": {
		"snapshot": {
			"type": "object",
			"properties": {
				"time":    {"type": "string"},
				"cash":    {"type": ["number", "string", "null"]},
				"reserve": {"type": ["number", "string", "null"]},
				"exp":     {"type": ["number", "string", "null"]}
			}
		}
	}
}`)
