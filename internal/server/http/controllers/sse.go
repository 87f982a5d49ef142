package controllers

import (
	"encoding/json"
	"net/http"
)

// sseSink writes log entries as Server-Sent Events.
type sseSink struct {
	w http.ResponseWriter
}

// Send formats and sends an entry as an SSE data event.
//
// The entry is JSON-encoded and sent with the "data: " prefix followed by
// two newlines, as the event-stream format requires.
func (s sseSink) Send(e map[string]any) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	return nil
}

// Flush flushes the HTTP response writer if it supports flushing.
func (s sseSink) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
