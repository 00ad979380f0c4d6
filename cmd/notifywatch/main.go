// Command notifywatch logs in, opens the realtime notification socket and
// prints every event it receives. With -clients > 1 it doubles as a load
// test for the websocket hub.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the run results
type Metrics struct {
	ConnectionsAttempted atomic.Int64
	ConnectionsSuccess   atomic.Int64
	ConnectionsFailed    atomic.Int64
	EventsReceived       atomic.Int64
}

// Envelope mirrors the server's realtime message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type apiClient struct {
	base *url.URL
	http *http.Client
}

func newAPIClient(rawBase string) (*apiClient, error) {
	base, err := url.Parse(rawBase)
	if err != nil {
		return nil, err
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	return &apiClient{base: base, http: &http.Client{Timeout: 5 * time.Second}}, nil
}

func (a *apiClient) endpoint(path string) string {
	u := *a.base
	u.Path = path
	return u.String()
}

func (a *apiClient) login(ctx context.Context, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint("/api/auth/login"), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		Token string `json:"token"`
	}
	if err := a.doJSON(req, &result); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return result.Token, nil
}

func (a *apiClient) ticket(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint("/api/ws/ticket"), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var result struct {
		Ticket string `json:"ticket"`
	}
	if err := a.doJSON(req, &result); err != nil {
		return "", fmt.Errorf("ticket issuance: %w", err)
	}
	return result.Ticket, nil
}

func (a *apiClient) doJSON(req *http.Request, out any) error {
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// socketURL returns the ws(s) URL for a ticket.
func (a *apiClient) socketURL(ticket string) string {
	u := *a.base
	u.Scheme = "ws"
	if a.base.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = "/api/ws"
	u.RawQuery = url.Values{"ticket": {ticket}}.Encode()
	return u.String()
}

// watch holds one socket open until ctx ends or the server closes it,
// passing every decoded envelope to handle.
func (a *apiClient) watch(ctx context.Context, token string, m *Metrics, handle func(Envelope)) error {
	m.ConnectionsAttempted.Add(1)

	ticket, err := a.ticket(ctx, token)
	if err != nil {
		m.ConnectionsFailed.Add(1)
		return err
	}

	c, resp, err := websocket.DefaultDialer.DialContext(ctx, a.socketURL(ticket), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		m.ConnectionsFailed.Add(1)
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = c.Close() }()
	m.ConnectionsSuccess.Add(1)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = c.Close()
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("undecodable message", slog.String("error", err.Error()))
			continue
		}
		m.EventsReceived.Add(1)
		handle(env)
	}
}

func main() {
	host := flag.String("url", "http://localhost:8375", "API base URL")
	email := flag.String("email", "root@filesharing.local", "Login email")
	password := flag.String("password", "", "Login password")
	clients := flag.Int("clients", 1, "Number of concurrent sockets")
	duration := flag.Duration("duration", 0, "Stop after this long; 0 runs until interrupted")
	quiet := flag.Bool("quiet", false, "Only print the summary")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	api, err := newAPIClient(*host)
	if err != nil {
		slog.Error("bad url", slog.String("error", err.Error()))
		os.Exit(1)
	}
	token, err := api.login(ctx, *email, *password)
	if err != nil {
		slog.Error("login failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("logged in", slog.String("email", *email), slog.Int("clients", *clients))

	var (
		m  Metrics
		wg sync.WaitGroup
	)
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := api.watch(ctx, token, &m, func(env Envelope) {
				if !*quiet {
					slog.Info("event", slog.Int("client", id), slog.String("type", env.Type), slog.String("payload", string(env.Payload)))
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("socket closed", slog.Int("client", id), slog.String("error", err.Error()))
			}
		}(i)
		// stagger so ticket issuance is not rate limited
		time.Sleep(50 * time.Millisecond)
	}
	wg.Wait()

	slog.Info("summary",
		slog.Int64("attempted", m.ConnectionsAttempted.Load()),
		slog.Int64("connected", m.ConnectionsSuccess.Load()),
		slog.Int64("failed", m.ConnectionsFailed.Load()),
		slog.Int64("events", m.EventsReceived.Load()))
}
