package serverutils

import (
	"bufio"
	"encoding/json"
	"fmt"
)

// FormatEvent renders one SSE frame. String data is written verbatim,
// anything else is JSON-encoded.
func FormatEvent(event string, data interface{}) string {
	payload, ok := data.(string)
	if !ok {
		encoded, err := json.Marshal(data)
		if err != nil {
			encoded = []byte("{}")
		}
		payload = string(encoded)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload)
}

// WriteEvent writes and flushes one SSE frame. A non-nil error means the
// client is gone and the stream must be abandoned.
func WriteEvent(w *bufio.Writer, event string, data interface{}) error {
	if _, err := w.WriteString(FormatEvent(event, data)); err != nil {
		return err
	}
	return w.Flush()
}
