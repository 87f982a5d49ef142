package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// LogInfo describes one registered log.
type LogInfo struct {
	Name      string
	Store     string
	Level     uint8
	Policy    string
	NextIndex uint32
	Appended  int64
	Dropped   int64
	Failed    int64
	Bytes     int64
}

// EntryInfo is one entry returned by Read, with its body rendered as text.
type EntryInfo struct {
	Log       string
	Timestamp int64
	Index     uint32
	Module    string
	ModuleID  uint8
	Level     uint8
	LevelName string
	Type      string
	Msg       string
}

// ModuleInfo is a registered module.
type ModuleInfo struct {
	ID   uint8
	Name string
}

// LevelInfo is a module with a non-default minimum level.
type LevelInfo struct {
	Module uint8
	Name   string
	Level  uint8
}

// ReadRequest selects entries. Timestamp follows the wire convention: -1 for
// the newest entry only, 0 for everything, otherwise entries at or after it.
type ReadRequest struct {
	Log       string
	Timestamp int64
	Index     uint32
	Limit     int
	Wait      time.Duration
}

// ReadResult is the response of Read.
type ReadResult struct {
	Entries   []EntryInfo
	More      bool
	NextIndex uint32
}

// Client calls the management service.
type Client struct {
	conn *grpc.ClientConn
	own  bool
}

// Dial connects to a management server at addr without transport security.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, own: true}, nil
}

// NewClient wraps an existing connection; Close leaves it open.
func NewClient(conn *grpc.ClientConn) *Client { return &Client{conn: conn} }

// Close closes the connection if the client created it.
func (c *Client) Close() error {
	if c.own {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, in map[string]interface{}) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Logs lists the registered logs.
func (c *Client) Logs(ctx context.Context) ([]LogInfo, error) {
	res, err := c.call(ctx, MethodLogsList, nil)
	if err != nil {
		return nil, err
	}
	var out []LogInfo
	for _, v := range list(res, "logs") {
		s := v.GetStructValue()
		out = append(out, LogInfo{
			Name:      str(s, "name"),
			Store:     str(s, "store"),
			Level:     uint8(num(s, "level")),
			Policy:    str(s, "policy"),
			NextIndex: uint32(num(s, "next_index")),
			Appended:  int64(num(s, "appended")),
			Dropped:   int64(num(s, "dropped")),
			Failed:    int64(num(s, "failed")),
			Bytes:     int64(num(s, "bytes")),
		})
	}
	return out, nil
}

// Modules lists registered modules.
func (c *Client) Modules(ctx context.Context) ([]ModuleInfo, error) {
	res, err := c.call(ctx, MethodModuleList, nil)
	if err != nil {
		return nil, err
	}
	var out []ModuleInfo
	for _, v := range list(res, "modules") {
		s := v.GetStructValue()
		out = append(out, ModuleInfo{ID: uint8(num(s, "id")), Name: str(s, "name")})
	}
	return out, nil
}

// Levels lists module level overrides and whether filtering is enabled.
func (c *Client) Levels(ctx context.Context) ([]LevelInfo, bool, error) {
	res, err := c.call(ctx, MethodLevelList, nil)
	if err != nil {
		return nil, false, err
	}
	var out []LevelInfo
	for _, v := range list(res, "levels") {
		s := v.GetStructValue()
		out = append(out, LevelInfo{Module: uint8(num(s, "module")), Name: str(s, "name"), Level: uint8(num(s, "level"))})
	}
	return out, res.GetFields()["enabled"].GetBoolValue(), nil
}

// SetModuleLevel sets the minimum level of a module given by name or id.
func (c *Client) SetModuleLevel(ctx context.Context, module, level string) error {
	_, err := c.call(ctx, MethodSetLevel, map[string]interface{}{"module": module, "level": level})
	return err
}

// SetLogLevel sets the log-wide minimum level.
func (c *Client) SetLogLevel(ctx context.Context, log, level string) error {
	_, err := c.call(ctx, MethodSetLevel, map[string]interface{}{"log": log, "level": level})
	return err
}

// Read fetches entries.
func (c *Client) Read(ctx context.Context, r ReadRequest) (ReadResult, error) {
	res, err := c.call(ctx, MethodRead, map[string]interface{}{
		"log":     r.Log,
		"ts":      r.Timestamp,
		"index":   r.Index,
		"limit":   r.Limit,
		"wait_ms": r.Wait.Milliseconds(),
	})
	if err != nil {
		return ReadResult{}, err
	}
	out := ReadResult{
		More:      res.GetFields()["more"].GetBoolValue(),
		NextIndex: uint32(num(res, "next_index")),
	}
	for _, v := range list(res, "entries") {
		s := v.GetStructValue()
		out.Entries = append(out.Entries, EntryInfo{
			Log:       str(s, "log"),
			Timestamp: int64(num(s, "ts")),
			Index:     uint32(num(s, "index")),
			Module:    str(s, "module"),
			ModuleID:  uint8(num(s, "module_id")),
			Level:     uint8(num(s, "level")),
			LevelName: str(s, "level_name"),
			Type:      str(s, "type"),
			Msg:       str(s, "msg"),
		})
	}
	return out, nil
}

// Append writes a text entry and reports whether it passed level filtering.
func (c *Client) Append(ctx context.Context, log, module, level, msg string) (bool, error) {
	in := map[string]interface{}{"log": log, "msg": msg}
	if module != "" {
		in["module"] = module
	}
	if level != "" {
		in["level"] = level
	}
	res, err := c.call(ctx, MethodAppend, in)
	if err != nil {
		return false, err
	}
	return res.GetFields()["appended"].GetBoolValue(), nil
}

// Clear erases a log, or every clearable log when log is empty. It returns
// the cleared log names.
func (c *Client) Clear(ctx context.Context, log string) ([]string, error) {
	in := map[string]interface{}{}
	if log != "" {
		in["log"] = log
	}
	res, err := c.call(ctx, MethodClear, in)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range list(res, "cleared") {
		out = append(out, v.GetStringValue())
	}
	return out, nil
}

// Health returns the server health status.
func (c *Client) Health(ctx context.Context) (string, error) {
	res, err := c.call(ctx, MethodHealth, nil)
	if err != nil {
		return "", err
	}
	return str(res, "status"), nil
}

func list(s *structpb.Struct, key string) []*structpb.Value {
	return s.GetFields()[key].GetListValue().GetValues()
}
