package timingfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"PitWall/internal/domain/models"
	drepo "PitWall/internal/domain/repository"
	xhttp "PitWall/pkg/http"
	"PitWall/pkg/util"

	"github.com/gorilla/websocket"
)

// Client implements a TimingStream backed by a live-timing WebSocket
// bridge. The bridge multiplexes lap and classification frames on one
// connection; the session id scopes the subscription to a single race.
type Client struct {
	apiKey         string
	restURL        string
	websocketURL   string
	sessionID      string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	rest      *xhttp.Client
	conn      *websocket.Conn
	connected bool
}

// New creates a new timing feed TimingStream. restURL is optional; when set,
// the session is looked up over REST before the WebSocket dial.
func New(apiKey, restURL, websocketURL, sessionID string, reconnectDelay, pingInterval time.Duration) drepo.TimingStream {
	c := &Client{
		apiKey:         apiKey,
		restURL:        restURL,
		websocketURL:   websocketURL,
		sessionID:      sessionID,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
	if restURL != "" {
		c.rest = xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
	}
	return c
}

type sessionInfo struct {
	SessionID string `json:"session_id"`
	Track     string `json:"track"`
	TotalLaps int    `json:"total_laps"`
	Status    string `json:"status"`
}

// sessionInfo fetches session metadata from the bridge's REST surface.
func (c *Client) sessionInfo(ctx context.Context) (*sessionInfo, error) {
	var info sessionInfo
	err := c.rest.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         fmt.Sprintf("%s/sessions/%s", c.restURL, c.sessionID),
		QueryParams: map[string][]string{"token": {c.apiKey}},
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	if c.rest != nil {
		info, err := c.sessionInfo(ctx)
		if err != nil {
			return fmt.Errorf("timingfeed session lookup: %w", err)
		}
		if info.Status == "finished" {
			return fmt.Errorf("session %s already finished", c.sessionID)
		}
		log.Printf("timingfeed: session %s at %s, %d laps", info.SessionID, info.Track, info.TotalLaps)
	}

	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("timingfeed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("timingfeed: connected")
	return nil
}

// Subscribe subscribes to the configured session's lap and position frames.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("timingfeed not connected")
	}
	for _, frame := range []string{"laps", "positions"} {
		msg := map[string]string{"type": "subscribe", "session": c.sessionID, "frame": frame}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", frame, err)
		}
		log.Printf("timingfeed: subscribed %s", frame)
	}
	return nil
}

type feedMessage struct {
	Type      string                 `json:"type"`
	Laps      []*lapFrame            `json:"laps,omitempty"`
	Positions []*models.PositionData `json:"positions,omitempty"`
}

// lapFrame is the bridge's wire form of a lap record. Lap and sector times
// arrive as clock strings ("1:32.456") or plain seconds.
type lapFrame struct {
	CompetitorID int    `json:"competitor_id"`
	LapNumber    int    `json:"lap_number"`
	LapTime      string `json:"lap_time"`
	Sector1      string `json:"sector_1,omitempty"`
	Sector2      string `json:"sector_2,omitempty"`
	Sector3      string `json:"sector_3,omitempty"`
	Compound     string `json:"compound"`
	TyreAge      int    `json:"tyre_age"`
	PitOut       bool   `json:"pit_out"`
	Caution      bool   `json:"caution"`
}

// toLapData converts a wire frame, reporting false for unparseable times.
func (f *lapFrame) toLapData() (*models.LapData, bool) {
	lapTime, ok := util.ParseLapTime(f.LapTime)
	if !ok {
		return nil, false
	}
	return &models.LapData{
		CompetitorID: f.CompetitorID,
		LapNumber:    f.LapNumber,
		LapTime:      lapTime,
		Sector1:      util.ParseLapTimeDefault(f.Sector1, 0),
		Sector2:      util.ParseLapTimeDefault(f.Sector2, 0),
		Sector3:      util.ParseLapTimeDefault(f.Sector3, 0),
		Compound:     f.Compound,
		TyreAge:      f.TyreAge,
		PitOut:       f.PitOut,
		Caution:      f.Caution,
	}, true
}

// Read streams lap records, position ticks and errors. The channels close
// when the read loop exits; callers reconnect via Reconnect.
func (c *Client) Read(ctx context.Context) (<-chan *models.LapData, <-chan *models.PositionData, <-chan error) {
	laps := make(chan *models.LapData, 1024)
	positions := make(chan *models.PositionData, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(laps)
		defer close(positions)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("timingfeed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("timingfeed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore malformed frames
					continue
				}
				switch m.Type {
				case "lap":
					for _, frame := range m.Laps {
						if frame == nil {
							continue
						}
						lap, ok := frame.toLapData()
						if !ok {
							log.Printf("timingfeed: bad lap time %q competitor %d", frame.LapTime, frame.CompetitorID)
							continue
						}
						// Laps must not be dropped; a missing lap would
						// desynchronize tyre age tracking downstream.
						select {
						case laps <- lap:
						case <-ctx.Done():
							return
						}
					}
				case "position":
					for _, pos := range m.Positions {
						if pos == nil {
							continue
						}
						select {
						case positions <- pos:
						default:
							// positions are superseded every tick; drop on backpressure
						}
					}
				default:
					// heartbeat and ack frames
				}
			}
		}
	}()

	return laps, positions, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
