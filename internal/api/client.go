package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"lifepulse/internal/infrastructure/logging"
	"lifepulse/internal/repository"
	"lifepulse/internal/types"
)

// DefaultBaseURL is used when no api_base_url setting is stored
const DefaultBaseURL = "https://lifedashboard.vercel.app/api"

// Client talks to the dashboard backend. Credentials and the base URL
// override live in the settings repository so a re-login or URL change takes
// effect without restarting the agent.
type Client struct {
	httpClient *http.Client
	settings   repository.SettingsRepository
	logger     logging.Logger
}

// NewClient creates a dashboard API client. httpClient may be nil, in which
// case a client with a 30s timeout is used.
func NewClient(settings repository.SettingsRepository, httpClient *http.Client, logger logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Client{
		httpClient: httpClient,
		settings:   settings,
		logger:     logger,
	}
}

// baseURL returns the stored override or the default endpoint
func (c *Client) baseURL(ctx context.Context) string {
	base, err := c.settings.Get(ctx, repository.SettingAPIBaseURL)
	if err != nil || base == "" {
		return DefaultBaseURL
	}
	return base
}

// credentials returns the stored user ID and bearer token, or an error when
// the agent has never logged in
func (c *Client) credentials(ctx context.Context) (userID, token string, err error) {
	userID, err = c.settings.Get(ctx, repository.SettingUserID)
	if err != nil {
		return "", "", fmt.Errorf("not authenticated: %w", err)
	}
	token, err = c.settings.Get(ctx, repository.SettingAuthToken)
	if err != nil {
		return "", "", fmt.Errorf("not authenticated: %w", err)
	}
	return userID, token, nil
}

// uploadPayload is the wire shape of one hourly record. The user ID is
// injected here, not carried on the record; the day-metadata fields are
// present only on the hour-0 record.
type uploadPayload struct {
	UserID         string               `json:"user_id"`
	Date           string               `json:"date"`
	Hour           int                  `json:"hour"`
	TotalUsageTime int                  `json:"total_usage_time"`
	AppUsage       []types.AppUsageItem `json:"app_usage"`
	ScreenUnlocks  *int                 `json:"screen_unlocks,omitempty"`
	Notifications  *int                 `json:"notifications,omitempty"`
	BatteryLevel   *int                 `json:"battery_level,omitempty"`
	Timestamp      string               `json:"timestamp"`
}

// UploadRecord POSTs one hourly record to /hourly-usage and returns the HTTP
// status code. A non-2xx status is not an error; only transport or
// serialization failures return one.
func (c *Client) UploadRecord(ctx context.Context, record types.HourlyUsageRecord) (int, error) {
	userID, token, err := c.credentials(ctx)
	if err != nil {
		return 0, err
	}

	payload := uploadPayload{
		UserID:         userID,
		Date:           record.Date,
		Hour:           record.Hour,
		TotalUsageTime: record.TotalUsageMinutes,
		AppUsage:       record.AppUsage,
		Timestamp:      record.Timestamp,
	}
	if payload.AppUsage == nil {
		payload.AppUsage = []types.AppUsageItem{}
	}
	if record.Hour == 0 {
		unlocks := record.ScreenUnlocks
		notifications := record.Notifications
		payload.ScreenUnlocks = &unlocks
		payload.Notifications = &notifications
		payload.BatteryLevel = record.BatteryLevel
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode hourly record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL(ctx)+"/hourly-usage", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.logger.Debug("Uploaded hourly record",
		"date", record.Date, "hour", record.Hour, "status", resp.StatusCode)
	return resp.StatusCode, nil
}

// fetchEnvelope is the common response wrapper of the read endpoints
type fetchEnvelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Pattern json.RawMessage `json:"pattern"`
}

// FetchHourlyUsage retrieves the stored hourly records for one date
// (YYYY-MM-DD)
func (c *Client) FetchHourlyUsage(ctx context.Context, date string) ([]types.HourlyUsageRecord, error) {
	query := url.Values{"date": {date}}
	envelope, err := c.get(ctx, "/hourly-usage?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var records []types.HourlyUsageRecord
	if err := json.Unmarshal(envelope.Data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode hourly usage response: %w", err)
	}
	return records, nil
}

// FetchHourlyPattern retrieves the average usage minutes per hour over a date
// range. Every hour 0-23 is present in the result; hours the server omitted
// are zero.
func (c *Client) FetchHourlyPattern(ctx context.Context, startDate, endDate string) (map[int]float64, error) {
	query := url.Values{"startDate": {startDate}, "endDate": {endDate}}
	envelope, err := c.get(ctx, "/hourly-usage/pattern?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var raw map[string]float64
	if err := json.Unmarshal(envelope.Pattern, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode usage pattern response: %w", err)
	}

	pattern := make(map[int]float64, 24)
	for hour := 0; hour < 24; hour++ {
		pattern[hour] = raw[strconv.Itoa(hour)]
	}
	return pattern, nil
}

// get performs an authenticated GET against path and unwraps the response
// envelope
func (c *Client) get(ctx context.Context, path string) (*fetchEnvelope, error) {
	_, token, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL(ctx)+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	var envelope fetchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("api error: %s", envelope.Error)
	}
	return &envelope, nil
}
