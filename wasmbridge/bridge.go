package wasmbridge

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wippyai/objbridge/dispatch"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/value"
)

var validate = validator.New()

// Config holds bridge configuration.
type Config struct {
	// ModuleName is the host module name guests import from.
	ModuleName string

	// MaxRequestSize limits the size of requests read from guest memory.
	MaxRequestSize uint32

	// MaxResponseSize limits encoded responses. 0 means no limit.
	MaxResponseSize uint32
}

// Option configures a Bridge.
type Option func(*Config)

// WithModuleName sets the host module name (default: "objbridge").
func WithModuleName(name string) Option {
	return func(c *Config) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size (default: 1MB).
func WithMaxRequestSize(size uint32) Option {
	return func(c *Config) {
		c.MaxRequestSize = size
	}
}

// WithMaxResponseSize sets the maximum response size.
func WithMaxResponseSize(size uint32) Option {
	return func(c *Config) {
		c.MaxResponseSize = size
	}
}

// Bridge serves a dispatch module to WebAssembly guests.
type Bridge struct {
	module  *dispatch.Module
	logger  *zap.Logger
	pending []byte
	cfg     Config
	mu      sync.Mutex
}

// New creates a bridge for m.
func New(m *dispatch.Module, logger *zap.Logger, opts ...Option) *Bridge {
	cfg := Config{
		ModuleName:     defaultModuleName,
		MaxRequestSize: defaultMaxRequestSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		module: m,
		logger: logger.Named("wasmbridge"),
		cfg:    cfg,
	}
}

// ModuleName returns the host module name.
func (b *Bridge) ModuleName() string {
	return b.cfg.ModuleName
}

// Handle decodes a JSON request, runs it and returns the response.
func (b *Bridge) Handle(data []byte) Response {
	if uint64(len(data)) > uint64(b.cfg.MaxRequestSize) {
		return failure(IDRequestTooLarge,
			fmt.Sprintf("request size %d exceeds maximum %d bytes", len(data), b.cfg.MaxRequestSize))
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return failure(IDInvalidRequest, fmt.Sprintf("failed to decode request: %v", err))
	}
	if err := validate.Struct(req); err != nil {
		return failure(IDInvalidRequest, fmt.Sprintf("request validation failed: %v", err))
	}
	return b.Call(req)
}

// Call runs one decoded request.
func (b *Bridge) Call(req Request) Response {
	args := value.Cells(req.Args)
	b.logger.Debug("guest call", zap.String("class", req.Class), zap.Int("nargout", req.NOut), zap.Int("args", len(args)))

	out, err := b.module.Invoke(req.Class, req.NOut, args)

	resp := Response{Outputs: value.Wires(out)}
	if len(args) > 0 {
		if obj, ok := args[0].(*value.Object); ok {
			resp.Instance = &value.Wire{Cell: obj}
		}
	}
	if err != nil {
		d := errors.Describe(err, errors.JoinID(req.Class, "mex", "failedAction"))
		resp.Error = &d
		resp.Outputs = []value.Wire{}
		b.logger.Debug("guest call failed", zap.String("id", d.ID), zap.String("message", d.Message))
	}
	return resp
}

// encode marshals resp, replacing it with an error response when it cannot
// be encoded or exceeds the response limit.
func (b *Bridge) encode(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(failure(IDEncodeFailed, fmt.Sprintf("failed to encode response: %v", err)))
		return data
	}
	if b.cfg.MaxResponseSize > 0 && uint64(len(data)) > uint64(b.cfg.MaxResponseSize) {
		data, _ = json.Marshal(failure(IDResponseTooLarge,
			fmt.Sprintf("response size %d exceeds maximum %d bytes", len(data), b.cfg.MaxResponseSize)))
	}
	return data
}
