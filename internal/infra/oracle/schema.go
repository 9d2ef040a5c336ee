package oracle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const analysisSchema = `{
  "type": "object",
  "required": ["summary", "suggestions"],
  "properties": {
    "summary": {"type": "string"},
    "suggestions": {"type": ["string", "array"], "items": {"type": "string"}},
    "priority": {"type": "string"},
    "category": {"type": "string"},
    "importance": {"type": "integer", "minimum": 1, "maximum": 5}
  }
}`

const actionSchema = `{
  "type": ["object", "null"],
  "required": ["action"],
  "properties": {
    "action": {"type": "string", "minLength": 1},
    "content": {"type": "string"},
    "task": {
      "type": "object",
      "required": ["title"],
      "properties": {
        "title": {"type": "string"},
        "priority": {"type": "string"},
        "category": {"type": "string"},
        "labels": {"type": "array", "items": {"type": "string"}},
        "folder_id": {"type": "string"},
        "initial_update": {"type": "string"}
      }
    }
  }
}`

const chatSchema = `{
  "type": "object",
  "required": ["reply"],
  "properties": {
    "reply": {"type": "string"},
    "action": ` + actionSchema + `
  }
}`

var (
	analysisValidator = mustSchema(analysisSchema)
	actionValidator   = mustSchema(actionSchema)
	chatValidator     = mustSchema(chatSchema)
)

// ErrSchemaViolation is returned when oracle output does not match its schema.
var ErrSchemaViolation = errors.New("oracle output does not match schema")

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		// Should never happen with the constant schemas above
		panic(fmt.Sprintf("compile oracle schema: %v", err))
	}
	return schema
}

// validate checks doc against schema and returns every violation in one error.
func validate(schema *gojsonschema.Schema, doc []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("parse oracle output: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}
