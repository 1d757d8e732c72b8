// Package smartconnect is a minimal Angel One SmartAPI client covering
// session login and historical candle data.
package smartconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultRoot = "https://apiconnect.angelone.in"

var routes = map[string]string{
	"api.login":        "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":       "/rest/secure/angelbroking/user/v1/logout",
	"api.user.profile": "/rest/secure/angelbroking/user/v1/getProfile",
	"api.candle.data":  "/rest/secure/angelbroking/historical/v1/getCandleData",
}

// Config configures the client.
type Config struct {
	APIKey  string
	RootURL string        // default: https://apiconnect.angelone.in
	Timeout time.Duration // default: 7s
	Debug   bool
}

// Client talks to the SmartAPI REST endpoints.
type Client struct {
	apiKey       string
	rootURL      string
	debug        bool
	httpClient   *http.Client
	accessToken  string
	refreshToken string
	feedToken    string

	clientLocalIP string
	clientMAC     string
}

// New creates a client. No network calls are made until login.
func New(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	return &Client{
		apiKey:        cfg.APIKey,
		rootURL:       strings.TrimRight(cfg.RootURL, "/"),
		debug:         cfg.Debug,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		clientLocalIP: localIP(),
		clientMAC:     macAddr(),
	}
}

// AccessToken returns the current session token, "" before login.
func (c *Client) AccessToken() string { return c.accessToken }

// FeedToken returns the market data feed token, "" before login.
func (c *Client) FeedToken() string { return c.feedToken }

func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-ClientLocalIP", c.clientLocalIP)
	h.Set("X-ClientPublicIP", c.clientLocalIP)
	h.Set("X-MACAddress", c.clientMAC)
	h.Set("X-PrivateKey", c.apiKey)
	h.Set("X-UserType", "USER")
	h.Set("X-SourceID", "WEB")
	if c.accessToken != "" {
		h.Set("Authorization", "Bearer "+c.accessToken)
	}
	return h
}

func (c *Client) post(ctx context.Context, route string, params map[string]any) (map[string]any, error) {
	uri, ok := routes[route]
	if !ok {
		return nil, fmt.Errorf("unknown route: %s", route)
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rootURL+uri, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = c.headers()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smartapi %s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if c.debug {
		log.Printf("[smartconnect] %s code=%d body=%s", route, resp.StatusCode, string(raw))
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("smartapi %s: bad response (%d): %w", route, resp.StatusCode, err)
	}
	if et, _ := out["error_type"].(string); et != "" {
		msg, _ := out["message"].(string)
		return out, fmt.Errorf("smartapi %s: %s: %s", route, et, msg)
	}
	return out, nil
}

// GenerateSession logs in with client code, password and a current TOTP,
// then stores the session tokens on the client.
func (c *Client) GenerateSession(ctx context.Context, clientCode, password, totp string) error {
	res, err := c.post(ctx, "api.login", map[string]any{
		"clientcode": clientCode,
		"password":   password,
		"totp":       totp,
	})
	if err != nil {
		return err
	}
	if st, _ := res["status"].(bool); !st {
		msg, _ := res["message"].(string)
		return fmt.Errorf("smartapi login failed: %s", msg)
	}
	data, ok := res["data"].(map[string]any)
	if !ok {
		return errors.New("smartapi login: unexpected response format")
	}
	c.accessToken, _ = data["jwtToken"].(string)
	c.refreshToken, _ = data["refreshToken"].(string)
	c.feedToken, _ = data["feedToken"].(string)
	if c.accessToken == "" {
		return errors.New("smartapi login: missing jwtToken")
	}
	log.Printf("[smartconnect] session established for %s", clientCode)
	return nil
}

// TerminateSession logs out and clears the stored tokens.
func (c *Client) TerminateSession(ctx context.Context, clientCode string) error {
	_, err := c.post(ctx, "api.logout", map[string]any{"clientcode": clientCode})
	c.accessToken = ""
	c.refreshToken = ""
	c.feedToken = ""
	return err
}

// Candle is one historical OHLCV bar from the candle data endpoint.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// GetCandleData fetches historical candles. Interval uses SmartAPI names
// (ONE_MINUTE, FIVE_MINUTE, ONE_DAY, ...); from and to use the exchange's
// local time.
func (c *Client) GetCandleData(ctx context.Context, exchange, symbolToken, interval string, from, to time.Time) ([]Candle, error) {
	if c.accessToken == "" {
		return nil, errors.New("smartapi: not logged in")
	}
	res, err := c.post(ctx, "api.candle.data", map[string]any{
		"exchange":    exchange,
		"symboltoken": symbolToken,
		"interval":    interval,
		"fromdate":    from.Format("2006-01-02 15:04"),
		"todate":      to.Format("2006-01-02 15:04"),
	})
	if err != nil {
		return nil, err
	}
	if st, _ := res["status"].(bool); !st {
		msg, _ := res["message"].(string)
		return nil, fmt.Errorf("smartapi candle data failed: %s", msg)
	}

	rows, ok := res["data"].([]any)
	if !ok {
		return nil, errors.New("smartapi candle data: unexpected response format")
	}
	candles := make([]Candle, 0, len(rows))
	for _, r := range rows {
		cols, ok := r.([]any)
		if !ok || len(cols) < 6 {
			continue
		}
		ts, _ := cols[0].(string)
		t, err := time.Parse("2006-01-02T15:04:05-07:00", ts)
		if err != nil {
			continue
		}
		candles = append(candles, Candle{
			Time:   t,
			Open:   toFloat(cols[1]),
			High:   toFloat(cols[2]),
			Low:    toFloat(cols[3]),
			Close:  toFloat(cols[4]),
			Volume: toFloat(cols[5]),
		})
	}
	return candles, nil
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}

func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, a := range addrs {
			if ipNet, ok := a.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
				return ipNet.IP.String()
			}
		}
	}
	return "127.0.0.1"
}

func macAddr() string {
	ifs, _ := net.Interfaces()
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return "00:11:22:33:44:55"
}
