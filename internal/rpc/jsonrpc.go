package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"
)

// Dialer opens the network connection for a JSON-RPC client
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// CallParams is the params object of every request on the wire
type CallParams struct {
	Payload Payload `json:"payload"`
	Headers Headers `json:"headers,omitempty"`
}

// CallResult is the result object of every response on the wire. Backend
// failures travel in Error so their public shape survives the transport.
type CallResult struct {
	Status  int             `json:"status,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// JSONRPCClient talks JSON-RPC 2.0 to one backend service. The connection is
// dialled on first use and re-dialled after it fails.
type JSONRPCClient struct {
	model  string
	cfg    ServiceConfig
	dial   Dialer
	logger *zap.Logger

	mu   sync.Mutex
	conn jsonrpc2.Conn
}

// JSONRPCOption configures a JSONRPCClient
type JSONRPCOption func(*JSONRPCClient)

// WithDialer replaces the network dialer
func WithDialer(d Dialer) JSONRPCOption {
	return func(c *JSONRPCClient) { c.dial = d }
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) JSONRPCOption {
	return func(c *JSONRPCClient) { c.logger = l }
}

// NewJSONRPCClient creates a client for model using cfg
func NewJSONRPCClient(model string, cfg ServiceConfig, opts ...JSONRPCOption) *JSONRPCClient {
	var d net.Dialer
	c := &JSONRPCClient{
		model:  model,
		cfg:    cfg,
		dial:   d.DialContext,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call implements Client
func (c *JSONRPCClient) Call(ctx context.Context, verb string, payload Payload, headers Headers) (*Response, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, &TransportError{Model: c.model, Err: err}
	}

	method := c.cfg.Namespace + verb
	start := time.Now()
	var res CallResult
	_, err = conn.Call(ctx, method, CallParams{Payload: payload, Headers: headers}, &res)
	c.logger.Debug("rpc call",
		zap.String("model", c.model),
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		return nil, c.callError(conn, err)
	}
	if res.Error != nil {
		return nil, res.Error
	}

	body, err := decodePayload(res.Payload)
	if err != nil {
		return nil, &Error{
			Code:             http.StatusBadGateway,
			UserMessage:      defaultUserMessage,
			DeveloperMessage: "invalid payload from " + c.model + " service: " + err.Error(),
		}
	}
	return &Response{Status: res.Status, Payload: body}, nil
}

// Close closes the underlying connection, if any
func (c *JSONRPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *JSONRPCClient) connect(ctx context.Context) (jsonrpc2.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		select {
		case <-c.conn.Done():
			c.logger.Warn("rpc connection lost", zap.String("model", c.model), zap.Error(c.conn.Err()))
			c.conn = nil
		default:
			return c.conn, nil
		}
	}

	nc, err := c.dial(ctx, c.cfg.Network, c.cfg.Address)
	if err != nil {
		return nil, err
	}
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(nc))
	conn.Go(context.Background(), jsonrpc2.MethodNotFoundHandler)
	c.conn = conn
	return conn, nil
}

func (c *JSONRPCClient) callError(conn jsonrpc2.Conn, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var wireErr *jsonrpc2.Error
	if errors.As(err, &wireErr) {
		if wireErr.Data != nil {
			var backend Error
			if json.Unmarshal([]byte(*wireErr.Data), &backend) == nil && backend.Code != 0 {
				return &backend
			}
		}
		return &Error{
			Code:             http.StatusBadGateway,
			UserMessage:      defaultUserMessage,
			DeveloperMessage: wireErr.Message,
		}
	}

	// anything else means the stream is unusable
	c.mu.Lock()
	if c.conn == conn {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	return &TransportError{Model: c.model, Err: err}
}

func decodePayload(raw json.RawMessage) (interface{}, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
