package driverapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"driverreview/internal/logger"
	"driverreview/internal/models"
)

// Client talks to the driver-management service.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.ILogger
}

type approveBody struct {
	Approve bool `json:"approve"`
}

type rejectBody struct {
	Approve bool     `json:"approve"`
	Rejects []string `json:"rejects"`
}

func New(baseURL string, httpClient *http.Client, log logger.ILogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		log:     log,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListDrivers fetches one page of applicants. Pages are 1-based.
func (c *Client) ListDrivers(ctx context.Context, page int) (*models.DriversPage, error) {
	url := fmt.Sprintf("%s/drivers/all/?page=%d", c.baseURL, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &FetchError{Op: OpList, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Op: OpList, Err: err}
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Op: OpList, Status: resp.StatusCode}
	}

	var envelope models.DriversPage
	if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &FetchError{Op: OpList, Status: resp.StatusCode, Err: err}
	}

	c.log.Debug("Fetched drivers page",
		logger.Int("page", page),
		logger.Int("count", envelope.Count),
		logger.Int("results", len(envelope.Results)))

	return &envelope, nil
}

func (c *Client) Approve(ctx context.Context, telegramID int64) error {
	return c.postApproval(ctx, OpApprove, telegramID, approveBody{Approve: true})
}

// Reject sends the given reasons as-is. Callers enforce that at least one
// reason is present.
func (c *Client) Reject(ctx context.Context, telegramID int64, reasons []string) error {
	if reasons == nil {
		reasons = []string{}
	}
	return c.postApproval(ctx, OpReject, telegramID, rejectBody{Approve: false, Rejects: reasons})
}

func (c *Client) postApproval(ctx context.Context, op Op, telegramID int64, body interface{}) error {
	url := c.baseURL + "/drivers/approve/" + strconv.FormatInt(telegramID, 10) + "/"

	payload, err := json.Marshal(body)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{Op: op, Status: resp.StatusCode}
	}

	c.log.Info("Driver decision sent",
		logger.String("op", string(op)),
		logger.Int64("telegram_id", telegramID))

	return nil
}

func (c *Client) closeBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	if err := body.Close(); err != nil {
		c.log.Warning("Failed to close response body", logger.Error(err))
	}
}
