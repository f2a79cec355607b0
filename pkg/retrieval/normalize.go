package retrieval

import (
	"fmt"
	"strings"
)

// normalizeItem converts one heterogeneous retriever item into a Document.
// Field-name fallbacks, in order:
//   - content: "text", then "name"
//   - score:   "combined_score", then "rerank_score", then "score"
//
// Items whose content is empty after trimming are dropped (nil return).
func normalizeItem(item map[string]interface{}) *Document {
	content := strings.TrimSpace(maybeString(item["text"]))
	if content == "" {
		content = strings.TrimSpace(maybeString(item["name"]))
	}
	if content == "" {
		return nil
	}

	doc := &Document{
		ID:       maybeString(item["id"]),
		Title:    maybeString(item["name"]),
		Content:  content,
		ChunkID:  maybeString(item["chunk_id"]),
		OriginID: maybeString(item["origin_id"]),
	}
	doc.ChunkType = maybeString(item["type"])

	for _, key := range []string{"combined_score", "rerank_score", "score"} {
		if score, ok := maybeFloat(item[key]); ok {
			doc.Score = &score
			break
		}
	}

	if source, ok := item["source"].(map[string]interface{}); ok {
		doc.Source = source
	}
	if sourceText, ok := item["source_text"].(string); ok {
		doc.SourceText = strings.TrimSpace(sourceText)
	}

	return doc
}

func maybeString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; ids are frequently numeric.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func maybeFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}
