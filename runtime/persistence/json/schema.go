package json

// transcriptsSchema describes the on-disk list of stored transcripts.
const transcriptsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["date", "messages"],
    "properties": {
      "date": {"type": "string"},
      "messages": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["id", "sender", "text"],
          "properties": {
            "id": {"type": "integer"},
            "sender": {"enum": ["user", "ai"]},
            "text": {"type": "string"}
          }
        }
      }
    }
  }
}`
