package broadcast

import (
	"bytes"
	"encoding/json"
)

// LogWriter copies each zerolog line into a hub so it can be tailed over a
// websocket. It never fails the caller's write.
type LogWriter struct {
	hub *Hub[json.RawMessage]
}

func NewLogWriter(hub *Hub[json.RawMessage]) *LogWriter {
	return &LogWriter{hub: hub}
}

// Write publishes p when it is a single JSON object. zerolog reuses its
// buffer after Write returns, so the line is copied.
func (w *LogWriter) Write(p []byte) (int, error) {
	line := bytes.TrimSpace(p)
	if len(line) == 0 || !json.Valid(line) {
		return len(p), nil
	}
	w.hub.Publish(json.RawMessage(bytes.Clone(line)))
	return len(p), nil
}
