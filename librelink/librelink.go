package librelink

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/amansk/librelink-mcp-server/defs"
	"go.uber.org/zap"
)

const (
	DefaultRegion = "eu"

	loginEndpoint       = "/llu/auth/login"
	connectionsEndpoint = "/llu/connections"
	graphEndpoint       = "/llu/connections/%s/graph"

	productHeader = "llu.android"
	versionHeader = "4.7.0"

	timestampLayout = "1/2/2006 3:04:05 PM"

	sensorLifetime = 14 * 24 * time.Hour

	// The upstream graph window covers half a day.
	HistoryLimitHours = 12
)

// Stable error codes surfaced to the tool boundary.
const (
	CodeAuthFailed  = "AUTH_FAILED"
	CodeNoHistory   = "NO_HISTORY_DATA"
	CodeGlucoseRead = "GLUCOSE_READ_FAILED"
	CodeHistoryRead = "HISTORY_READ_FAILED"
)

type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// tagError wraps err with a stable code unless it already carries one.
func tagError(code string, err error) error {
	var lerr *Error
	if errors.As(err, &lerr) {
		return err
	}
	return &Error{Code: code, Err: err}
}

type Source interface {
	FetchCurrent(ctx context.Context) (defs.Reading, error)
	FetchHistory(ctx context.Context, hoursBack int) ([]defs.Reading, error)
	FetchSensorInfo(ctx context.Context) ([]defs.SensorInfo, error)
	ValidateConnection(ctx context.Context) error
}

type Client struct {
	client *http.Client
	logger *zap.Logger

	email    string
	password string
	baseURL  string
	rng      defs.TargetRange

	token     string
	accountID string
	patientID string
}

func New(cfg defs.LibreLinkConfig, rng defs.TargetRange, logger *zap.Logger) *Client {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	return &Client{
		client:   &http.Client{},
		logger:   logger,
		email:    cfg.Email,
		password: cfg.Password,
		baseURL:  fmt.Sprintf("https://api-%s.libreview.io", region),
		rng:      rng,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status int `json:"status"`
	Data   struct {
		AuthTicket struct {
			Token string `json:"token"`
		} `json:"authTicket"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"data"`
}

type measurement struct {
	Timestamp      string  `json:"Timestamp"`
	ValueInMgPerDl float64 `json:"ValueInMgPerDl"`
	TrendArrow     int     `json:"TrendArrow"`
}

type sensorRecord struct {
	DeviceID  string `json:"deviceId"`
	Serial    string `json:"sn"`
	Activated int64  `json:"a"`
}

type connection struct {
	PatientID          string        `json:"patientId"`
	GlucoseMeasurement *measurement  `json:"glucoseMeasurement"`
	Sensor             *sensorRecord `json:"sensor"`
}

type connectionsResponse struct {
	Status int          `json:"status"`
	Data   []connection `json:"data"`
}

type graphResponse struct {
	Status int `json:"status"`
	Data   struct {
		Connection connection    `json:"connection"`
		GraphData  []measurement `json:"graphData"`
	} `json:"data"`
}

// Login obtains a bearer token and the hashed account id header value.
func (c *Client) Login(ctx context.Context) error {
	b, err := json.Marshal(&loginRequest{Email: c.email, Password: c.password})
	if err != nil {
		return &Error{Code: CodeAuthFailed, Err: err}
	}

	c.logger.Debug("making login request", zap.String("email", c.email))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginEndpoint, bytes.NewBuffer(b))
	if err != nil {
		return &Error{Code: CodeAuthFailed, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Code: CodeAuthFailed, Err: err}
	}
	defer resp.Body.Close()

	var lresp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lresp); err != nil {
		return &Error{Code: CodeAuthFailed, Err: err}
	}
	if lresp.Status != 0 || lresp.Data.AuthTicket.Token == "" {
		return &Error{Code: CodeAuthFailed, Err: fmt.Errorf("login rejected with status %d", lresp.Status)}
	}

	c.token = lresp.Data.AuthTicket.Token
	sum := sha256.Sum256([]byte(lresp.Data.User.ID))
	c.accountID = hex.EncodeToString(sum[:])

	c.logger.Debug("successfully obtained session token")
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("product", productHeader)
	req.Header.Set("version", versionHeader)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Account-Id", c.accountID)
	}
}

// FetchCurrent returns the most recent reading. Automatically refreshes the
// session when it expires.
func (c *Client) FetchCurrent(ctx context.Context) (defs.Reading, error) {
	gr, err := c.fetchGraph(ctx)
	if err != nil {
		return defs.Reading{}, tagError(CodeGlucoseRead, err)
	}

	m := gr.Data.Connection.GlucoseMeasurement
	if m == nil {
		return defs.Reading{}, &Error{Code: CodeGlucoseRead, Err: fmt.Errorf("no current measurement in graph response")}
	}

	r, err := c.transform(*m)
	if err != nil {
		return defs.Reading{}, &Error{Code: CodeGlucoseRead, Err: err}
	}
	return r, nil
}

// FetchHistory returns readings from the last hoursBack hours, deduplicated
// by timestamp and sorted ascending.
func (c *Client) FetchHistory(ctx context.Context, hoursBack int) ([]defs.Reading, error) {
	gr, err := c.fetchGraph(ctx)
	if err != nil {
		return nil, tagError(CodeHistoryRead, err)
	}

	cutoff := time.Now().Add(-time.Duration(hoursBack) * time.Hour)
	seen := make(map[time.Time]bool)
	readings := make([]defs.Reading, 0, len(gr.Data.GraphData))
	for _, m := range gr.Data.GraphData {
		r, err := c.transform(m)
		if err != nil {
			return nil, &Error{Code: CodeHistoryRead, Err: err}
		}
		if r.Time.Before(cutoff) || seen[r.Time] {
			continue
		}
		seen[r.Time] = true
		readings = append(readings, r)
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].Time.Before(readings[j].Time) })

	if len(readings) == 0 {
		return nil, &Error{Code: CodeNoHistory, Err: fmt.Errorf("no readings in the last %d hours", hoursBack)}
	}

	c.logger.Debug("fetched history",
		zap.Int("count", len(readings)),
		zap.Int("hoursBack", hoursBack),
	)

	return readings, nil
}

// FetchSensorInfo returns the sensors attached to the patient connection.
func (c *Client) FetchSensorInfo(ctx context.Context) ([]defs.SensorInfo, error) {
	gr, err := c.fetchGraph(ctx)
	if err != nil {
		return nil, tagError(CodeGlucoseRead, err)
	}

	s := gr.Data.Connection.Sensor
	if s == nil {
		return []defs.SensorInfo{}, nil
	}

	activated := time.Unix(s.Activated, 0)
	return []defs.SensorInfo{{
		Serial:    s.Serial,
		DeviceID:  s.DeviceID,
		Activated: activated,
		Expires:   activated.Add(sensorLifetime),
	}}, nil
}

// ValidateConnection checks credentials and patient access with a fresh login.
func (c *Client) ValidateConnection(ctx context.Context) error {
	if err := c.Login(ctx); err != nil {
		return err
	}
	if err := c.connections(ctx); err != nil {
		return &Error{Code: CodeAuthFailed, Err: err}
	}
	return nil
}

// fetchGraph fetches the graph payload, creating or refreshing the session
// as needed.
func (c *Client) fetchGraph(ctx context.Context) (*graphResponse, error) {
	if c.token == "" {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	gr, err := c.graph(ctx)
	if err == nil {
		return gr, nil
	}

	// The session may have expired, retry once with a fresh login.
	if lerr := c.Login(ctx); lerr != nil {
		return nil, lerr
	}
	return c.graph(ctx)
}

func (c *Client) graph(ctx context.Context) (*graphResponse, error) {
	if c.patientID == "" {
		if err := c.connections(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fmt.Sprintf(graphEndpoint, c.patientID), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var gresp graphResponse
	if err := json.NewDecoder(resp.Body).Decode(&gresp); err != nil {
		c.logger.Debug("failed to decode graph response")
		return nil, err
	}
	if gresp.Status != 0 {
		return nil, fmt.Errorf("graph request rejected with status %d", gresp.Status)
	}

	return &gresp, nil
}

func (c *Client) connections(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+connectionsEndpoint, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var cresp connectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cresp); err != nil {
		return err
	}
	if len(cresp.Data) == 0 {
		return fmt.Errorf("no patient connections found")
	}

	c.patientID = cresp.Data[0].PatientID
	c.logger.Debug("resolved patient connection", zap.String("patientID", c.patientID))
	return nil
}

var trendArrows = map[int]string{
	1: defs.TrendDown,
	2: defs.TrendDown45,
	3: defs.TrendFlat,
	4: defs.TrendUp45,
	5: defs.TrendUp,
}

// transform maps an upstream measurement onto a Reading, tagging high/low
// against the configured target range.
func (c *Client) transform(m measurement) (defs.Reading, error) {
	t, err := time.ParseInLocation(timestampLayout, m.Timestamp, time.Local)
	if err != nil {
		return defs.Reading{}, fmt.Errorf("unable to parse timestamp %q: %w", m.Timestamp, err)
	}

	trend, ok := trendArrows[m.TrendArrow]
	if !ok {
		trend = defs.TrendFlat
	}

	return defs.Reading{
		Time:  t,
		Value: m.ValueInMgPerDl,
		Trend: trend,
		High:  m.ValueInMgPerDl > c.rng.High,
		Low:   m.ValueInMgPerDl < c.rng.Low,
	}, nil
}
