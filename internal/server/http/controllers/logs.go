package controllers

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"google.golang.org/protobuf/types/known/structpb"

	grpcserver "github.com/rzbill/devlog/internal/server/grpc"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

// tailWait is how long one tail iteration blocks for new entries.
const tailWait = 15 * time.Second

// LogsController exposes the management service over JSON and SSE.
type LogsController struct {
	svc    *grpcserver.Service
	logger logpkg.Logger
}

// NewLogsController creates a logs controller backed by svc.
func NewLogsController(svc *grpcserver.Service, logger logpkg.Logger) *LogsController {
	return &LogsController{svc: svc, logger: logger}
}

// RegisterRoutes registers log routes with the given router.
func (c *LogsController) RegisterRoutes(router *httprouter.Router) {
	router.GET("/v1/logs", c.handleList)
	router.GET("/v1/logs/read", c.handleRead)
	router.GET("/v1/logs/tail", c.handleTail)
	router.POST("/v1/logs/append", c.handleAppend)
	router.POST("/v1/logs/clear", c.handleClear)
	router.GET("/v1/modules", c.handleModules)
	router.GET("/v1/levels", c.handleLevels)
	router.POST("/v1/levels", c.handleSetLevel)
}

func (c *LogsController) handleList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res, err := c.svc.LogsList(r.Context(), &structpb.Struct{})
	writeResult(w, res, err)
}

func (c *LogsController) handleModules(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res, err := c.svc.ModuleList(r.Context(), &structpb.Struct{})
	writeResult(w, res, err)
}

func (c *LogsController) handleLevels(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res, err := c.svc.LevelList(r.Context(), &structpb.Struct{})
	writeResult(w, res, err)
}

// handleSetLevel sets a level from a body of {"module": ..., "level": ...}
// or {"log": ..., "level": ...}.
func (c *LogsController) handleSetLevel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := c.svc.SetLevel(r.Context(), req)
	writeResult(w, res, err)
}

// readRequest builds a Read request from query parameters log, ts, index,
// limit and wait_ms.
func readRequest(r *http.Request) (*structpb.Struct, error) {
	q := r.URL.Query()
	return structpb.NewStruct(map[string]any{
		"log":     q.Get("log"),
		"ts":      parseTimestamp(q.Get("ts")),
		"index":   parseUint(q.Get("index")),
		"limit":   parseLimit(q.Get("limit")),
		"wait_ms": parseUint(q.Get("wait_ms")),
	})
}

func (c *LogsController) handleRead(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := readRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := c.svc.Read(r.Context(), req)
	writeResult(w, res, err)
}

// handleTail streams entries of one log as Server-Sent Events, starting at
// the index query parameter, until the client disconnects.
func (c *LogsController) handleTail(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if r.URL.Query().Get("log") == "" {
		writeError(w, http.StatusBadRequest, "log is required")
		return
	}
	req, err := readRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	// The first read fails fast for unknown or unreadable logs.
	res, err := c.svc.Read(ctx, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	sink := sseSink{w: w}
	req.Fields["ts"] = structpb.NewNumberValue(0)
	req.Fields["wait_ms"] = structpb.NewNumberValue(float64(tailWait.Milliseconds()))
	for {
		entries := res.GetFields()["entries"].GetListValue().GetValues()
		for _, e := range entries {
			if err := sink.Send(e.GetStructValue().AsMap()); err != nil {
				return
			}
		}
		_ = sink.Flush()
		next := res.GetFields()["next_index"].GetNumberValue()
		if res.GetFields()["more"].GetBoolValue() && len(entries) > 0 {
			next = entries[len(entries)-1].GetStructValue().GetFields()["index"].GetNumberValue() + 1
		}
		req.Fields["index"] = structpb.NewNumberValue(next)
		if res, err = c.svc.Read(ctx, req); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("tail stopped", logpkg.Err(err))
			}
			return
		}
	}
}

func (c *LogsController) handleAppend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := c.svc.Append(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, res.AsMap())
}

func (c *LogsController) handleClear(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := c.svc.Clear(r.Context(), req)
	writeResult(w, res, err)
}
