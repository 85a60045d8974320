package web

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"noticeboard/internal/domain/notice"
)

// draftSchema describes the body of POST /api/notices.
const draftSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": ["title", "text"],
  "properties": {
    "title": {"type": "string"},
    "text": {"type": "string"},
    "type": {"enum": ["", "announcement", "event", "reminder", "important"]}
  }
}`

func mustCompileDraftSchema() *jsonschema.Schema {
	return jsonschema.MustCompileString("draft.schema.json", draftSchema)
}

// decodeDraft validates body against the draft schema and decodes it.
// PRE: body is the raw request body
// POST: returns a Draft, or an error describing the first schema violation
func (h *Handler) decodeDraft(body []byte) (notice.Draft, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return notice.Draft{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := h.draftSchema.Validate(doc); err != nil {
		return notice.Draft{}, fmt.Errorf("invalid draft: %w", err)
	}
	var d notice.Draft
	if err := json.Unmarshal(body, &d); err != nil {
		return notice.Draft{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return d, nil
}
