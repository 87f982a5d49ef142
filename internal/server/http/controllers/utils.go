package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Helper functions for common HTTP responses

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// writeResult writes a service response, or the HTTP form of its error.
func writeResult(w http.ResponseWriter, res *structpb.Struct, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, res.AsMap())
}

// writeServiceError maps a management service status onto an HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	code := http.StatusInternalServerError
	switch st.Code() {
	case codes.InvalidArgument:
		code = http.StatusBadRequest
	case codes.NotFound:
		code = http.StatusNotFound
	case codes.AlreadyExists:
		code = http.StatusConflict
	case codes.ResourceExhausted:
		code = http.StatusInsufficientStorage
	case codes.Unimplemented:
		code = http.StatusNotImplemented
	case codes.DeadlineExceeded, codes.Canceled:
		code = http.StatusRequestTimeout
	}
	writeError(w, code, st.Message())
}

// decodeBody reads a JSON object request body into a struct message.
func decodeBody(r *http.Request) (*structpb.Struct, error) {
	var m map[string]any
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// parseLimit parses a limit string and returns a valid limit value.
//
// Returns 0 for empty strings or invalid values.
func parseLimit(limitStr string) int {
	if limitStr == "" {
		return 0
	}
	if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
		return limit
	}
	return 0
}

// parseTimestamp parses a timestamp string and returns Unix microseconds,
// the unit of entry timestamps. "last" and -1 select the newest entry.
//
// Supports RFC3339 and raw microsecond timestamps.
// Returns 0 for empty strings or invalid values.
func parseTimestamp(ts string) int64 {
	if ts == "" {
		return 0
	}
	if ts == "last" {
		return -1
	}
	if us, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return us
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.UnixMicro()
	}
	return 0
}

// parseUint parses a non-negative integer, 0 when invalid.
func parseUint(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return v
}
