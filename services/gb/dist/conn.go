// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a bidirectional message stream.
//
// Thread Safety: Send may be called concurrently with Recv. Concurrent
// Sends are serialized.
type Conn interface {
	Send(m *Message) error
	Recv() (*Message, error)
	Close() error
}

// =============================================================================
// Websocket
// =============================================================================

const (
	writeWait = 10 * time.Second

	// pongWait bounds the silence tolerated from the peer. Any message or
	// pong extends the read deadline.
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

type wsConn struct {
	ws   *websocket.Conn
	wmu  sync.Mutex
	once sync.Once
	stop chan struct{}
	wait time.Duration
}

// newWSConn arms the read deadline and starts the keepalive pinger.
func newWSConn(ws *websocket.Conn) *wsConn {
	return newWSConnWithKeepalive(ws, pongWait, pingPeriod)
}

func newWSConnWithKeepalive(ws *websocket.Conn, wait, period time.Duration) *wsConn {
	c := &wsConn{ws: ws, stop: make(chan struct{}), wait: wait}
	_ = ws.SetReadDeadline(time.Now().Add(wait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wait))
	})
	go c.ping(period)
	return c
}

// ping writes a ping every period until the connection is closed.
func (c *wsConn) ping(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Dial connects a worker to the coordinator websocket at url.
func Dial(ctx context.Context, url string) (Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newWSConn(ws), nil
}

func (c *wsConn) Send(m *Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.ws.WriteJSON(m); err != nil {
		return fmt.Errorf("send %s: %w", m.Type, err)
	}
	messagesTotal.WithLabelValues("out", string(m.Type)).Inc()
	return nil
}

// Recv fails once the peer has been silent, pongs included, for longer
// than the keepalive wait.
func (c *wsConn) Recv() (*Message, error) {
	var m Message
	if err := c.ws.ReadJSON(&m); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, ErrClosed
		}
		return nil, err
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(c.wait))
	messagesTotal.WithLabelValues("in", string(m.Type)).Inc()
	return &m, nil
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		c.wmu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.wmu.Unlock()
		err = c.ws.Close()
	})
	return err
}

// =============================================================================
// In-memory pipe
// =============================================================================

// pipeConn is one end of Pipe. Messages are JSON encoded in transit so
// the pipe exercises the same codec as the websocket.
type pipeConn struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

// Pipe returns two connected in-memory Conns.
func Pipe() (Conn, Conn) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeConn{in: ba, out: ab, done: done, once: once},
		&pipeConn{in: ab, out: ba, done: done, once: once}
}

func (p *pipeConn) Send(m *Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- b:
		return nil
	case <-p.done:
		return ErrClosed
	}
}

// Recv drains messages sent before Close ahead of reporting ErrClosed.
func (p *pipeConn) Recv() (*Message, error) {
	select {
	case b := <-p.in:
		return decodeMessage(b)
	default:
	}
	select {
	case b := <-p.in:
		return decodeMessage(b)
	case <-p.done:
		return nil, ErrClosed
	}
}

func decodeMessage(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Join(ErrProtocol, err)
	}
	return &m, nil
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
