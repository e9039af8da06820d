package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lance13c/mlbstats/internal/logging"
)

const probeTimeout = 10 * time.Second

// Version describes the browser behind a DevTools endpoint.
type Version struct {
	Browser              string `json:"Browser"`
	Protocol             string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	V8                   string `json:"V8-Version"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Probe checks that endpoint is a live DevTools endpoint: it resolves the
// browser websocket (via /json/version for http endpoints), connects to it
// and issues Browser.getVersion. Every failure wraps ErrConnection.
func Probe(ctx context.Context, endpoint string) (*Version, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint %q: %w", ErrConnection, endpoint, err)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	version := &Version{}
	switch u.Scheme {
	case "ws", "wss":
		version.WebSocketDebuggerURL = u.String()
	case "http", "https":
		if err := fetchVersion(ctx, u, version); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConnection, endpoint, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported endpoint scheme %q", ErrConnection, u.Scheme)
	}

	if err := getVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnection, version.WebSocketDebuggerURL, err)
	}
	return version, nil
}

func fetchVersion(ctx context.Context, base *url.URL, version *Version) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.JoinPath("json", "version").String(), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(version); err != nil {
		return fmt.Errorf("failed to decode /json/version: %w", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return fmt.Errorf("endpoint did not report a webSocketDebuggerUrl")
	}
	return nil
}

type cdpResponse struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type browserVersion struct {
	ProtocolVersion string `json:"protocolVersion"`
	Product         string `json:"product"`
	UserAgent       string `json:"userAgent"`
	JSVersion       string `json:"jsVersion"`
}

func getVersion(ctx context.Context, version *Version) error {
	dialer := websocket.Dialer{HandshakeTimeout: probeTimeout}
	conn, httpResp, err := dialer.DialContext(ctx, version.WebSocketDebuggerURL, nil)
	if err != nil {
		if httpResp != nil {
			return fmt.Errorf("websocket handshake failed with status %d: %w", httpResp.StatusCode, err)
		}
		return err
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)

	const requestID = 1
	if err := conn.WriteJSON(map[string]interface{}{
		"id":     requestID,
		"method": "Browser.getVersion",
	}); err != nil {
		return fmt.Errorf("failed to send Browser.getVersion: %w", err)
	}

	for {
		var resp cdpResponse
		if err := conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("failed to read Browser.getVersion: %w", err)
		}
		if resp.ID != requestID {
			logging.Debug("Probe skipping message: %s", resp.Method)
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("Browser.getVersion: %s (%d)", resp.Error.Message, resp.Error.Code)
		}

		var bv browserVersion
		if err := json.Unmarshal(resp.Result, &bv); err != nil {
			return fmt.Errorf("failed to decode Browser.getVersion: %w", err)
		}
		if version.Browser == "" {
			version.Browser = bv.Product
		}
		if version.Protocol == "" {
			version.Protocol = bv.ProtocolVersion
		}
		if version.UserAgent == "" {
			version.UserAgent = bv.UserAgent
		}
		if version.V8 == "" {
			version.V8 = bv.JSVersion
		}
		return nil
	}
}
