// Package persist is a tiny client for the /get and /set persistence
// endpoints.
//
// Every call sends the whole payload as one JSON document in the "data"
// query parameter of a GET request and returns the "data" field of the JSON
// response:
//
//	c := persist.New("http://device.local")
//	v, err := c.Get(ctx, persist.Payload{"ssid": ""})
//
// Each result is logged at debug level with its method and data. Metrics are
// recorded only when a manager is supplied with WithMetrics.
//
// There are no retries, no timeouts and no status code checks. Persist
// returns nil with no error for a response without a "data" field;
// PersistJSON reports the difference through Response.Found.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/pagekit/pkg/logger"
	"github.com/okian/pagekit/pkg/metrics"
)

// Method names understood by the server.
const (
	MethodGet = "get"
	MethodSet = "set"
)

// Outcome labels recorded per call.
const (
	outcomeOK             = "ok"
	outcomeEncodeError    = "encode_error"
	outcomeTransportError = "transport_error"
	outcomeDecodeError    = "decode_error"
)

// Payload is the key/value mapping sent with every call. A nil Payload is
// sent as {}.
type Payload map[string]any

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues persist calls against one origin. It holds no mutable state
// and is safe for concurrent use.
type Client struct {
	baseURL string
	http    Doer
	logger  logger.Logger
	metrics *metrics.Manager
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient sets the transport used for requests.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithLogger sets the logger that receives one debug record per result.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics manager. Without it nothing is recorded.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a client for the origin at baseURL, for example
// "http://192.168.4.1". Paths are appended to it as /{method}.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the origin requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// Get reads values: Persist(ctx, "get", payload).
func (c *Client) Get(ctx context.Context, payload Payload) (any, error) {
	return c.Persist(ctx, MethodGet, payload)
}

// Set writes values: Persist(ctx, "set", payload).
func (c *Client) Set(ctx context.Context, payload Payload) (any, error) {
	return c.Persist(ctx, MethodSet, payload)
}

// RequestURL returns the URL a call to method with payload requests.
func (c *Client) RequestURL(method string, payload Payload) (string, error) {
	if payload == nil {
		payload = Payload{}
	}
	raw, err := marshalJSON(payload)
	if err != nil {
		return "", err
	}
	return c.requestURL(method, string(raw)), nil
}

func (c *Client) requestURL(method, data string) string {
	return c.baseURL + "/" + method + "?data=" + EncodeURIComponent(data)
}

// Persist sends payload to /{method} and returns the "data" field of the
// response.
func (c *Client) Persist(ctx context.Context, method string, payload Payload) (any, error) {
	start := time.Now()
	if payload == nil {
		payload = Payload{}
	}
	raw, err := marshalJSON(payload)
	if err != nil {
		c.record(method, outcomeEncodeError, start)
		return nil, WrapKind(opCall, ErrEncode, err)
	}
	resp, err := c.send(ctx, method, string(raw), start)
	return resp.Data, err
}

// PersistJSON sends data, which must already be JSON text, to /{method}
// without re-encoding it, so key order and number literals reach the server
// as written. An empty data is sent as {}.
func (c *Client) PersistJSON(ctx context.Context, method, data string) (Response, error) {
	if data == "" {
		data = "{}"
	}
	return c.send(ctx, method, data, time.Now())
}

const opCall = "persist.call"

func (c *Client) send(ctx context.Context, method, data string, start time.Time) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(method, data), nil)
	if err != nil {
		c.record(method, outcomeTransportError, start)
		return Response{}, WrapKind(opCall, ErrTransport, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.record(method, outcomeTransportError, start)
		return Response{}, WrapKind(opCall, ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(method, outcomeTransportError, start)
		return Response{}, WrapKind(opCall, ErrTransport, err)
	}

	out, err := decodeResponse(body)
	if err != nil {
		c.record(method, outcomeDecodeError, start)
		return Response{}, WrapKind(opCall, ErrDecode, err)
	}

	c.logger.Debug(ctx, "persist result",
		logger.String("method", method),
		logger.Any("data", out.Data),
	)
	c.record(method, outcomeOK, start)
	return out, nil
}

func (c *Client) record(method, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordPersist(method, outcome, metrics.Since(start))
}

var errNullResponse = errors.New("response body is null")

// Response is one decoded reply.
type Response struct {
	// Data is the decoded "data" member, nil when it is absent or null.
	Data any
	// Raw is the "data" member exactly as the server sent it. It is nil
	// only when the member is absent.
	Raw json.RawMessage
}

// Found reports whether the reply carried a "data" member, null included.
func (r Response) Found() bool { return r.Raw != nil }

// decodeResponse parses body and picks its top-level "data" member. A body
// that is valid JSON but not an object has no such member.
func decodeResponse(body []byte) (Response, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return Response{}, err
	}
	obj, ok := v.(map[string]any)
	switch {
	case v == nil:
		return Response{}, errNullResponse
	case !ok:
		return Response{}, nil
	}
	data, found := obj["data"]
	if !found {
		return Response{}, nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return Response{}, err
	}
	raw := members["data"]
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	return Response{Data: data, Raw: raw}, nil
}
