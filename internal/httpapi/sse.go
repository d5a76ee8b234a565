package httpapi

import (
	"encoding/json"
	"io"
)

// sse frames values as server-sent events: "data: <json>\n\n" per event,
// closed by a literal "data: [DONE]\n\n".
var (
	ssePrefix = []byte("data: ")
	sseSuffix = []byte("\n\n")
	sseDone   = []byte("data: [DONE]\n\n")
)

// writeSSE emits one data frame and flushes it to the client.
func writeSSE(w io.Writer, flush func(), v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(ssePrefix); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	if _, err := w.Write(sseSuffix); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}
	return nil
}

// writeSSEDone emits the end-of-stream marker.
func writeSSEDone(w io.Writer, flush func()) error {
	if _, err := w.Write(sseDone); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}
	return nil
}
