package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/realtime"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

const (
	streamEvent       = "applications"
	errorEvent        = "error"
	heartbeatInterval = 25 * time.Second
	wsWriteWait       = 10 * time.Second
	wsPongWait        = 60 * time.Second
)

// Live connections authenticate with a bearer token, so cookies are never trusted and
// any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// liveView is one feed that can be pushed to a client.
type liveView struct {
	name    string
	touches func(realtime.Event) bool
	project func(ctx context.Context) (interface{}, error)
}

// wsMessage is the frame sent on feed sockets.
type wsMessage struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func (j *ApplicationController) seekerView(c *gin.Context) (liveView, bool) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return liveView{}, false
	}
	return liveView{
		name:    model.RoleSeeker,
		touches: func(e realtime.Event) bool { return e.TouchesSeeker(user.ID) },
		project: func(ctx context.Context) (interface{}, error) { return j.seekerFeed(ctx, user) },
	}, true
}

func (j *ApplicationController) employerView(c *gin.Context) (liveView, bool) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return liveView{}, false
	}
	filter, ok := employerFilter(c)
	if !ok {
		return liveView{}, false
	}
	return liveView{
		name:    model.RoleEmployer,
		touches: func(e realtime.Event) bool { return e.TouchesEmployer(user.ID) },
		project: func(ctx context.Context) (interface{}, error) { return j.employerFeed(ctx, user, filter) },
	}, true
}

// SeekerStream pushes the seeker feed as server-sent events.
// @Summary Stream own applications
// @Description Sends an "applications" event now and again after every change. Accepts access_token as a query parameter.
// @Tags Application
// @Produce text/event-stream
// @Param access_token query string false "Access token when the Authorization header can't be set"
// @Success 200 {array} feed.SeekerApplication
// @Failure 503 {object} utilities.ErrorResponse "Live updates unavailable"
// @Router /seeker/applications/stream [get]
func (j *ApplicationController) SeekerStream(c *gin.Context) {
	if v, ok := j.seekerView(c); ok {
		j.serveSSE(c, v)
	}
}

// SeekerSocket pushes the seeker feed over a WebSocket.
// @Summary Live own applications over WebSocket
// @Tags Application
// @Param access_token query string false "Access token when the Authorization header can't be set"
// @Success 101
// @Router /seeker/applications/ws [get]
func (j *ApplicationController) SeekerSocket(c *gin.Context) {
	if v, ok := j.seekerView(c); ok {
		j.serveWS(c, v)
	}
}

// EmployerStream pushes the filtered employer feed as server-sent events.
// @Summary Stream applicants
// @Tags Application
// @Produce text/event-stream
// @Param status query string false "all, pending, scheduled, accepted or rejected"
// @Param search query string false "Matches applicant name, email or position"
// @Param access_token query string false "Access token when the Authorization header can't be set"
// @Success 200 {object} feed.EmployerView
// @Failure 400 {object} utilities.ErrorResponse "Invalid status filter"
// @Failure 503 {object} utilities.ErrorResponse "Live updates unavailable"
// @Router /employer/applications/stream [get]
func (j *ApplicationController) EmployerStream(c *gin.Context) {
	if v, ok := j.employerView(c); ok {
		j.serveSSE(c, v)
	}
}

// EmployerSocket pushes the filtered employer feed over a WebSocket.
// @Summary Live applicants over WebSocket
// @Tags Application
// @Param status query string false "all, pending, scheduled, accepted or rejected"
// @Param search query string false "Matches applicant name, email or position"
// @Param access_token query string false "Access token when the Authorization header can't be set"
// @Success 101
// @Router /employer/applications/ws [get]
func (j *ApplicationController) EmployerSocket(c *gin.Context) {
	if v, ok := j.employerView(c); ok {
		j.serveWS(c, v)
	}
}

func (j *ApplicationController) subscribe(ctx context.Context, c *gin.Context) (*realtime.Subscription, bool) {
	if j.Broker == nil {
		c.JSON(http.StatusServiceUnavailable, utilities.ErrorResponse{Error: "Live updates are not available"})
		return nil, false
	}
	sub, err := j.Broker.Subscribe(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to subscribe to change events")
		c.JSON(http.StatusServiceUnavailable, utilities.ErrorResponse{Error: "Live updates are not available"})
		return nil, false
	}
	return sub, true
}

// waitTouching blocks until an event touching v arrives and drains whatever else is queued,
// so a burst of changes costs one projection. An overflowed subscription always refreshes.
// ok is false once the subscription ends.
func waitTouching(ctx context.Context, sub *realtime.Subscription, v liveView, tick <-chan time.Time) (refresh bool, heartbeat bool, ok bool) {
	select {
	case <-ctx.Done():
		return false, false, false
	case <-tick:
		return false, true, true
	case <-sub.Overflow():
		refresh = true
	case evt, open := <-sub.Events():
		if !open {
			return false, false, false
		}
		refresh = v.touches(evt)
	}
	for {
		select {
		case evt, open := <-sub.Events():
			if !open {
				return refresh, false, true
			}
			refresh = refresh || v.touches(evt)
		case <-sub.Overflow():
			refresh = true
		default:
			return refresh, false, true
		}
	}
}

func (j *ApplicationController) serveSSE(c *gin.Context, v liveView) {
	ctx, cancel := j.streamContext(c.Request.Context())
	defer cancel()

	sub, ok := j.subscribe(ctx, c)
	if !ok {
		return
	}
	defer sub.Close()
	defer j.Metrics.TrackSubscription(v.name)()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// The stream outlives the server write timeout
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug().Err(err).Msg("write deadline not cleared")
	}

	send := func() {
		data, err := v.project(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("view", v.name).Msg("failed to project feed")
			writeSSE(c, errorEvent, utilities.ErrorResponse{Error: "Failed to fetch applications"})
			return
		}
		writeSSE(c, streamEvent, data)
	}

	send()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		refresh, heartbeat, ok := waitTouching(ctx, sub, v, ticker.C)
		switch {
		case !ok:
			return
		case heartbeat:
			_, _ = fmt.Fprint(c.Writer, ": keep-alive\n\n")
			c.Writer.Flush()
		case refresh:
			send()
		}
	}
}

func writeSSE(c *gin.Context, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode feed event")
		return
	}
	_, _ = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
	c.Writer.Flush()
}

func (j *ApplicationController) serveWS(c *gin.Context, v liveView) {
	ctx, cancel := j.streamContext(c.Request.Context())
	defer cancel()

	sub, ok := j.subscribe(ctx, c)
	if !ok {
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the client
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()
	defer j.Metrics.TrackSubscription(v.name)()

	// Clients never send data; reading only notices a close and handles pongs.
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		msg := wsMessage{Type: streamEvent}
		data, err := v.project(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Str("view", v.name).Msg("failed to project feed")
			msg = wsMessage{Type: errorEvent, Error: "Failed to fetch applications"}
		} else {
			msg.Data = data
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(msg)
	}

	if err := send(); err != nil {
		return
	}
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		refresh, heartbeat, ok := waitTouching(ctx, sub, v, ticker.C)
		switch {
		case !ok:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		case heartbeat:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case refresh:
			if err := send(); err != nil {
				return
			}
		}
	}
}
