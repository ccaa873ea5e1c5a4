// Package session drives a gameplay session against the Engine: it owns
// the transport, the connection lifecycle, the approval and challenge
// workflows, and the observable session state.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"tavern/internal/approval"
	"tavern/internal/challenge"
	"tavern/internal/conn"
	"tavern/internal/transport"
	"tavern/pkg/logger"
	"tavern/pkg/protocol"
)

const connectTimeout = 10 * time.Second

// Options configures a Client.
type Options struct {
	Transport transport.Transport

	UserID  string
	Role    protocol.Role
	WorldID *string

	// HeartbeatInterval between advisory Heartbeat messages while
	// connected. 0 disables the ticker.
	HeartbeatInterval time.Duration

	// ReconnectPolicy used after a transport loss. Zero value falls back
	// to the defaults.
	ReconnectPolicy conn.ReconnectPolicy

	// EngineConstraint is an optional semver range checked against the
	// engine_version reported on join, e.g. ">= 0.4.0". Violations are
	// surfaced as a notice, never fatal.
	EngineConstraint string

	// HistoryStore persists approval decisions; nil for ephemeral
	// sessions.
	HistoryStore approval.HistoryStore
}

// Client is the session protocol client. One Client drives one session
// at a time; create a new one after Close.
type Client struct {
	transport transport.Transport
	tracker   *conn.Tracker
	policy    conn.ReconnectPolicy

	userID     string
	role       protocol.Role
	worldID    *string
	heartbeat  time.Duration
	constraint *semver.Constraints

	State     *State
	Approvals *approval.Manager
	Roll      *challenge.Workflow
	Outcomes  *challenge.Outcomes

	loopOnce  sync.Once
	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup

	mu     sync.Mutex
	hbStop chan struct{}
}

// NewClient builds a client around the given transport. It does not
// connect; call Connect.
func NewClient(opts Options) (*Client, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if !opts.Role.Valid() {
		return nil, fmt.Errorf("invalid role: %q", opts.Role)
	}

	var constraint *semver.Constraints
	if opts.EngineConstraint != "" {
		c, err := semver.NewConstraint(opts.EngineConstraint)
		if err != nil {
			return nil, fmt.Errorf("parse engine constraint: %w", err)
		}
		constraint = c
	}

	policy := opts.ReconnectPolicy
	if policy.MaxRetries == 0 && policy.InitialDelay == 0 {
		policy = conn.DefaultReconnectPolicy()
	}

	c := &Client{
		transport:  opts.Transport,
		tracker:    conn.NewTracker(),
		policy:     policy,
		userID:     opts.UserID,
		role:       opts.Role,
		worldID:    opts.WorldID,
		heartbeat:  opts.HeartbeatInterval,
		constraint: constraint,
		State:      NewState(),
		Roll:       challenge.NewWorkflow(),
		Outcomes:   challenge.NewOutcomes(),
		closeCh:    make(chan struct{}),
	}
	c.Approvals = approval.NewManager(c, opts.HistoryStore)
	return c, nil
}

// ConnectionState returns the current connection lifecycle state.
func (c *Client) ConnectionState() conn.State {
	return c.tracker.State()
}

// OnStateChange registers a subscriber for connection state transitions.
func (c *Client) OnStateChange(fn conn.Subscriber) {
	c.tracker.Subscribe(fn)
}

// Connect dials the Engine. The join handshake completes asynchronously:
// the dispatcher sends JoinSession once the transport reports up and the
// session is live when SessionJoined arrives.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.tracker.Transition(conn.Connecting); err != nil {
		return err
	}

	c.loopOnce.Do(func() {
		c.wg.Add(1)
		go c.run()
	})

	if err := c.transport.Connect(ctx); err != nil {
		if terr := c.tracker.Transition(conn.Failed); terr != nil {
			logger.Debug().Err(terr).Msg("Connect failure in unexpected state")
		}
		return err
	}
	return nil
}

// SendMessage encodes and transmits a client message. Returns
// conn.ErrNotConnected, without touching the transport, unless the
// connection is in the Connected state.
func (c *Client) SendMessage(msg protocol.ClientMessage) error {
	if c.tracker.State() != conn.Connected {
		return conn.ErrNotConnected
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return c.transport.Send(data)
}

// Close disconnects and stops all background work. The client cannot be
// reused afterward.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.transport.Disconnect()
		c.stopHeartbeat()
		c.tracker.ForceDisconnect()
		c.Roll.Clear()
		close(c.closeCh)
		c.wg.Wait()
	})
}

// run is the event loop: the single inbound writer of session state. It
// consumes transport events in arrival order until Close.
func (c *Client) run() {
	defer c.wg.Done()

	events := c.transport.Events()
	for {
		select {
		case <-c.closeCh:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case transport.StateEvent:
				if e.Up {
					c.handleUp()
				} else {
					c.handleDown(e.Err)
				}
			case transport.MessageEvent:
				msg, err := protocol.Decode(e.Data)
				if err != nil {
					// Malformed input never kills the session.
					logger.Warn().Err(err).Msg("Dropping undecodable server message")
					continue
				}
				c.dispatch(msg)
			}
		}
	}
}

// handleUp runs on every successful (re)connect and sends exactly one
// JoinSession.
func (c *Client) handleUp() {
	if err := c.tracker.Transition(conn.Connected); err != nil {
		logger.Debug().Err(err).Msg("Ignoring transport up event")
		return
	}

	if err := c.SendMessage(protocol.JoinSession{
		UserID:  c.userID,
		Role:    c.role,
		WorldID: c.worldID,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to send join")
	}
	c.startHeartbeat()
}

// handleDown distinguishes a deliberate disconnect (cause nil) from a
// transport loss.
func (c *Client) handleDown(cause error) {
	c.stopHeartbeat()

	if cause == nil {
		c.tracker.ForceDisconnect()
		c.Roll.Clear()
		c.Outcomes.Clear()
		c.Approvals.Clear()
		c.State.Clear()
		logger.Info().Msg("Disconnected from engine")
		return
	}

	if err := c.tracker.Transition(conn.Reconnecting); err != nil {
		logger.Debug().Err(err).Msg("Transport loss outside connected state")
		return
	}

	logger.Warn().Err(cause).Msg("Connection lost; reconnecting")
	c.State.AddNotice("warn", "", "Connection lost; attempting to reconnect")

	c.wg.Add(1)
	go c.reconnectLoop()
}

// reconnectLoop retries with exponential backoff until reconnected,
// retries are exhausted, or the client closes. The re-join itself happens
// in handleUp, once per successful reconnect.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	r := conn.NewReconnector(c.policy)
	for c.tracker.State() == conn.Reconnecting {
		if !r.ShouldRetry() {
			if err := c.tracker.Transition(conn.Failed); err == nil {
				logger.Error().Int("attempts", r.RetryCount()).Msg("Reconnect attempts exhausted")
				c.State.AddNotice("error", "", "Could not reconnect to the engine")
			}
			return
		}

		delay := r.NextDelay()
		logger.Info().Dur("delay", delay).Int("attempt", r.RetryCount()).Msg("Reconnecting to engine")
		select {
		case <-c.closeCh:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err := c.transport.Connect(ctx)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("Reconnect attempt failed")
			continue
		}
		return
	}
}

func (c *Client) startHeartbeat() {
	if c.heartbeat <= 0 {
		return
	}

	c.mu.Lock()
	if c.hbStop != nil {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.hbStop = stop
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-c.closeCh:
				return
			case <-ticker.C:
				if err := c.SendMessage(protocol.Heartbeat{}); err != nil {
					logger.Debug().Err(err).Msg("Heartbeat skipped")
				}
			}
		}
	}()
}

func (c *Client) stopHeartbeat() {
	c.mu.Lock()
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
	c.mu.Unlock()
}
