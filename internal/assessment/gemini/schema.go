package gemini

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed schemas/score.json
	scoreSchemaJSON string
	//go:embed schemas/questions.json
	questionsSchemaJSON string
	//go:embed schemas/evaluate.json
	evaluateSchemaJSON string

	scoreSchema     = mustSchema("score", scoreSchemaJSON)
	questionsSchema = mustSchema("questions", questionsSchemaJSON)
	evaluateSchema  = mustSchema("evaluate", evaluateSchemaJSON)
)

func mustSchema(name, content string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
	if err != nil {
		panic(fmt.Sprintf("compiling %s reply schema: %v", name, err))
	}
	return schema
}

// shapeViolations lists where payload departs from the shape the prompt asked
// for. An unreadable payload is reported as a single violation.
func shapeViolations(schema *gojsonschema.Schema, payload string) []string {
	result, err := schema.Validate(gojsonschema.NewStringLoader(payload))
	if err != nil {
		return []string{err.Error()}
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		violations = append(violations, field+": "+desc.Description())
	}
	return violations
}
