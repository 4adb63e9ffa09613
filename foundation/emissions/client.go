// Package emissions provides the emission calculator client and the
// catalog of activity kinds the ledger can price.
package emissions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Defaults applied when the corresponding configuration is left empty.
const (
	DefaultURL         = "https://api.climatiq.io/data/v1"
	DefaultDataVersion = "^29"
	defaultTimeout     = 10 * time.Second
)

// ErrUnavailable is returned when the calculator can't be reached or is
// failing. The condition is temporary and the request may be retried.
var ErrUnavailable = errors.New("emission calculator unavailable")

// Client provides support for estimating emissions and searching emission
// factors against a Climatiq style calculator API.
type Client struct {
	apiURL      string
	apiKey      string
	dataVersion string
	client      http.Client
}

// New constructs a client for the specified calculator endpoint.
func New(apiURL string, apiKey string, dataVersion string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultURL
	}
	if dataVersion == "" {
		dataVersion = DefaultDataVersion
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiURL:      apiURL,
		apiKey:      apiKey,
		dataVersion: dataVersion,
		client:      http.Client{Timeout: timeout},
	}
}

// Estimate prices the specified activity kind for the given quantity. The
// quantity is expressed in the unit bound to the kind's parameter, km for
// transport kinds and kWh for energy kinds.
func (c *Client) Estimate(ctx context.Context, kind string, quantity float64) (Estimate, error) {
	factor, err := Lookup(kind)
	if err != nil {
		return Estimate{}, err
	}

	payload := estimateRequest{
		EmissionFactor: factorSelector{
			ActivityID:  factor.ActivityID,
			DataVersion: c.dataVersion,
		},
		Parameters: map[string]any{
			factor.Parameter:           quantity,
			factor.Parameter + "_unit": factor.Unit(),
		},
	}

	var est Estimate
	if err := c.send(ctx, http.MethodPost, c.apiURL+"/estimate", payload, &est); err != nil {
		return Estimate{}, fmt.Errorf("estimate: kind[%s]: %w", kind, err)
	}

	est.ActivityID = factor.ActivityID

	return est, nil
}

// Search queries the calculator's emission factor database.
func (c *Client) Search(ctx context.Context, filter SearchFilter) (SearchPage, error) {
	values := url.Values{}
	values.Set("data_version", c.dataVersion)

	if filter.Query != "" {
		values.Set("query", filter.Query)
	}
	if filter.Category != "" {
		values.Set("category", filter.Category)
	}
	if filter.Source != "" {
		values.Set("source", filter.Source)
	}
	if filter.Region != "" {
		values.Set("region", filter.Region)
	}

	perPage := filter.ResultsPerPage
	if perPage <= 0 {
		perPage = 10
	}
	values.Set("results_per_page", strconv.Itoa(perPage))

	var page SearchPage
	if err := c.send(ctx, http.MethodGet, c.apiURL+"/search?"+values.Encode(), nil, &page); err != nil {
		return SearchPage{}, fmt.Errorf("search: %w", err)
	}

	return page, nil
}

// send is a helper function to make a round trip against the calculator
// API. A transport failure or a 5xx response is reported as ErrUnavailable.
func (c *Client) send(ctx context.Context, method string, url string, dataSend any, dataRecv any) error {
	var req *http.Request

	switch {
	case dataSend != nil:
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		req, err = http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
		if err != nil {
			return err
		}

	default:
		var err error
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return err
		}
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status[%d]: %s", ErrUnavailable, resp.StatusCode, string(msg))
		}
		return fmt.Errorf("status[%d]: %s", resp.StatusCode, string(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
