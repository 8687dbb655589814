package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapds/pkg/convert"
	"github.com/leapstack-labs/leapds/pkg/core"
)

// ExecutePath is the engine endpoint that runs a script.
const ExecutePath = "/v1/execute"

// DefaultTimeout bounds one script execution over HTTP.
const DefaultTimeout = 5 * time.Minute

// HTTPOptions configures the HTTP bridge.
// Parsed from the engine params map using mapstructure.
type HTTPOptions struct {
	// Timeout for one execution round trip (e.g. "90s")
	Timeout time.Duration `mapstructure:"timeout"`

	// Headers added to every request (e.g. authorization)
	Headers map[string]string `mapstructure:"headers"`
}

// DecodeHTTPOptions decodes bridge options from a generic params map.
func DecodeHTTPOptions(params map[string]any) (HTTPOptions, error) {
	var opts HTTPOptions
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &opts,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(params); err != nil {
		return opts, fmt.Errorf("invalid engine params: %w", err)
	}
	return opts, nil
}

// HTTP is a Bridge that posts scripts to an engine over HTTP. Frame
// literals and frame results travel as Arrow IPC streams.
type HTTP struct {
	endpoint string
	client   *http.Client
	headers  map[string]string
	logger   *slog.Logger
}

// NewHTTP creates an HTTP bridge for the engine at endpoint.
// The logger parameter may be nil.
func NewHTTP(endpoint string, opts HTTPOptions, logger *slog.Logger) (*HTTP, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("engine endpoint is required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("engine endpoint must be an http(s) URL, got %q", endpoint)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		headers:  opts.Headers,
		logger:   logger,
	}, nil
}

type wireMatrix = MatrixBlock

type wireInput struct {
	Name     string        `json:"name"`
	DataType core.DataType `json:"data_type"`
	Reuse    bool          `json:"reuse"`
	Arrow    []byte        `json:"arrow,omitempty"`
	Matrix   *wireMatrix   `json:"matrix,omitempty"`
}

type wireRequest struct {
	Script  string      `json:"script"`
	Inputs  []wireInput `json:"inputs"`
	Outputs []string    `json:"outputs"`
	Lineage bool        `json:"lineage,omitempty"`
}

type wireResult struct {
	DataType  core.DataType  `json:"data_type"`
	Arrow     []byte         `json:"arrow,omitempty"`
	Matrix    *wireMatrix    `json:"matrix,omitempty"`
	ValueType core.ValueType `json:"value_type,omitempty"`
	Value     any            `json:"value,omitempty"`
	Lineage   string         `json:"lineage,omitempty"`
}

type wireResponse struct {
	Results map[string]wireResult `json:"results"`
	Error   string                `json:"error,omitempty"`
}

// Execute implements Bridge.
func (h *HTTP) Execute(ctx context.Context, req *Request) (Results, error) {
	body, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+ExecutePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build engine request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range h.headers {
		httpReq.Header.Set(k, v)
	}

	h.logger.Debug("executing script", "endpoint", h.endpoint, "inputs", len(req.Inputs), "outputs", req.Outputs)
	start := time.Now()

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, &RemoteError{Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}
	h.logger.Debug("engine responded", "status", resp.StatusCode, "duration", time.Since(start))

	var wr wireResponse
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	decodeErr := dec.Decode(&wr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && wr.Error != "" {
			msg = wr.Error
		}
		return nil, &RemoteError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", decodeErr)}
	}
	if wr.Error != "" {
		return nil, &RemoteError{Status: resp.StatusCode, Message: wr.Error}
	}

	return decodeResults(wr)
}

func encodeRequest(req *Request) ([]byte, error) {
	wr := wireRequest{
		Script:  req.Script,
		Inputs:  make([]wireInput, len(req.Inputs)),
		Outputs: req.Outputs,
		Lineage: req.Lineage,
	}
	for i, in := range req.Inputs {
		wi := wireInput{Name: in.Name, DataType: in.DataType, Reuse: in.Reuse}
		switch v := in.Value.(type) {
		case *core.Frame:
			data, err := convert.EncodeFrame(v)
			if err != nil {
				return nil, fmt.Errorf("failed to encode input %s: %w", in.Name, err)
			}
			wi.Arrow = data
		case *core.Matrix:
			wi.Matrix = &wireMatrix{Rows: v.Rows, Cols: v.Cols, Values: v.Data}
		default:
			return nil, fmt.Errorf("unsupported input %s of type %T", in.Name, in.Value)
		}
		wr.Inputs[i] = wi
	}
	return json.Marshal(wr)
}

func decodeResults(wr wireResponse) (*ResultSet, error) {
	rs := NewResultSet()
	for name, r := range wr.Results {
		switch r.DataType {
		case core.DataTypeFrame:
			rs.SetFrameIPC(name, r.Arrow)
		case core.DataTypeMatrix:
			if r.Matrix == nil {
				return nil, &RemoteError{Message: fmt.Sprintf("matrix result %s has no data", name)}
			}
			rs.SetMatrix(name, r.Matrix)
		case core.DataTypeScalar:
			rs.SetScalar(name, ScalarValue{Type: r.ValueType, Value: r.Value})
		default:
			return nil, &RemoteError{Message: fmt.Sprintf("result %s has unknown data type %q", name, r.DataType)}
		}
		if r.Lineage != "" {
			rs.SetLineage(name, r.Lineage)
		}
	}
	return rs, nil
}

var _ Bridge = (*HTTP)(nil)
