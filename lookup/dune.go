package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tliron/commonlog"
)

// Defaults for the public Dune queries that map selectors and addresses.
const (
	DefaultEndpoint        = "https://api.dune.com/api/v1"
	DefaultFunctionQueryID = 1279121
	DefaultContractQueryID = 1279874
	DefaultFunctionParam   = "query_id"
	DefaultContractParam   = "contract_address"
	DefaultPollInterval    = 500 * time.Millisecond
)

// DuneConfig configures the Dune client.
type DuneConfig struct {
	Endpoint        string
	APIKey          string
	FunctionQueryID int
	ContractQueryID int
	FunctionParam   string
	ContractParam   string
	PollInterval    time.Duration
	HTTPClient      *http.Client
}

func (c *DuneConfig) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	if c.FunctionQueryID == 0 {
		c.FunctionQueryID = DefaultFunctionQueryID
	}
	if c.ContractQueryID == 0 {
		c.ContractQueryID = DefaultContractQueryID
	}
	if c.FunctionParam == "" {
		c.FunctionParam = DefaultFunctionParam
	}
	if c.ContractParam == "" {
		c.ContractParam = DefaultContractParam
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
}

// Dune resolves selectors and addresses by running parameterized queries on
// the Dune Analytics API.
type Dune struct {
	cfg DuneConfig
	log commonlog.Logger
}

// NewDune creates a Dune client. Zero fields of cfg take their defaults.
func NewDune(cfg DuneConfig) *Dune {
	cfg.applyDefaults()
	return &Dune{cfg: cfg, log: commonlog.GetLogger("yulsp.lookup.dune")}
}

// FunctionSignature implements Service.
func (d *Dune) FunctionSignature(ctx context.Context, selector string) (string, error) {
	v, err := d.run(ctx, d.cfg.FunctionQueryID, d.cfg.FunctionParam, selector, "signature")
	return v, wrapError(OpFunctionSignature, selector, err)
}

// ContractName implements Service.
func (d *Dune) ContractName(ctx context.Context, address string) (string, error) {
	v, err := d.run(ctx, d.cfg.ContractQueryID, d.cfg.ContractParam, address, "name")
	return v, wrapError(OpContractName, address, err)
}

type executeRequest struct {
	QueryParameters map[string]string `json:"query_parameters"`
}

type executeResponse struct {
	ExecutionID string `json:"execution_id"`
	State       string `json:"state"`
	Error       string `json:"error"`
}

type resultsResponse struct {
	ExecutionID         string `json:"execution_id"`
	State               string `json:"state"`
	IsExecutionFinished bool   `json:"is_execution_finished"`
	Error               any    `json:"error"`
	Result              struct {
		Rows []map[string]any `json:"rows"`
	} `json:"result"`
}

// Terminal execution states other than success.
var failedStates = map[string]bool{
	"QUERY_STATE_FAILED":    true,
	"QUERY_STATE_CANCELLED": true,
	"QUERY_STATE_EXPIRED":   true,
}

// run executes a query with a single parameter, waits for it to finish and
// returns the named column of the first result row.
func (d *Dune) run(ctx context.Context, queryID int, param, value, column string) (string, error) {
	if d.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(executeRequest{QueryParameters: map[string]string{param: value}})
	if err != nil {
		return "", err
	}

	var exec executeResponse
	url := fmt.Sprintf("%s/query/%d/execute", d.cfg.Endpoint, queryID)
	if err := d.do(ctx, http.MethodPost, url, body, &exec); err != nil {
		return "", err
	}
	if exec.ExecutionID == "" {
		return "", fmt.Errorf("%w: no execution id (%s)", ErrQueryFailed, exec.Error)
	}
	d.log.Debug("query submitted", "query", queryID, "execution", exec.ExecutionID)

	url = fmt.Sprintf("%s/execution/%s/results", d.cfg.Endpoint, exec.ExecutionID)
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var res resultsResponse
		if err := d.do(ctx, http.MethodGet, url, nil, &res); err != nil {
			return "", err
		}
		if failedStates[res.State] {
			if detail := errorDetail(res.Error); detail != "" {
				return "", fmt.Errorf("%w: execution %s ended in %s: %s", ErrQueryFailed, exec.ExecutionID, res.State, detail)
			}
			return "", fmt.Errorf("%w: execution %s ended in %s", ErrQueryFailed, exec.ExecutionID, res.State)
		}
		if res.IsExecutionFinished {
			return firstColumn(res.Result.Rows, column)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// errorDetail renders the error payload of a failed execution. Dune sends
// either a string or an object with a message field.
func errorDetail(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	case map[string]any:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func firstColumn(rows []map[string]any, column string) (string, error) {
	if len(rows) == 0 {
		return "", ErrNotFound
	}
	switch v := rows[0][column].(type) {
	case string:
		if v == "" {
			return "", ErrNotFound
		}
		return v, nil
	case nil:
		return "", ErrNotFound
	default:
		return fmt.Sprint(v), nil
	}
}

// do sends one API request and decodes the JSON response into out.
func (d *Dune) do(ctx context.Context, method, url string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return err
	}
	req.Header.Set("X-Dune-API-Key", d.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrQueryFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %s: HTTP %d: %s", ErrQueryFailed, method, url,
			resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrQueryFailed, err)
	}
	return nil
}
