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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/groebner/services/gb/engine"
	"github.com/AleutianAI/groebner/services/gb/pairs"
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
	"github.com/AleutianAI/groebner/services/gb/telemetry"
)

var tracer = otel.Tracer("groebner.dist")

// Options configures a Coordinator.
type Options struct {
	// PairTimeout is how long a worker may hold a task before the task is
	// requeued and the worker dropped. It also bounds how long attached
	// workers may go without requesting work before the coordinator
	// reduces tasks itself.
	PairTimeout time.Duration

	// MinWorkers is the number of workers to wait for before the
	// coordinator reduces pairs itself. Zero means never wait.
	MinWorkers int

	// WorkerWait bounds the wait for MinWorkers.
	WorkerWait time.Duration

	// TickInterval is the period of the timeout scan.
	TickInterval time.Duration

	// Minimize returns the minimal basis instead of the raw one.
	Minimize bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the coordinator defaults.
func DefaultOptions() Options {
	return Options{
		PairTimeout:  30 * time.Second,
		WorkerWait:   2 * time.Second,
		TickInterval: 250 * time.Millisecond,
		Minimize:     true,
	}
}

// Status is a point-in-time view of a run, served on /status.
type Status struct {
	RunID       string `json:"run_id"`
	Phase       string `json:"phase"`
	BasisLen    int    `json:"basis_len"`
	QueuedPairs int    `json:"queued_pairs"`
	Workers     int    `json:"workers"`
	Inflight    int    `json:"inflight"`
}

// Coordinator owns the canonical basis of a distributed run.
//
// Description:
//
//	All run state is owned by a single event loop goroutine started by
//	GB. Each connection has a reader that forwards messages into the
//	loop's inbox and a writer that drains the session's outbox, so the
//	loop never blocks on a slow peer. Every element appended to the basis
//	is pushed to all attached workers. When no worker is attached, or
//	none has asked for work within PairTimeout, the loop reduces tasks
//	itself, so a run always makes progress.
//
// Thread Safety:
//
//	Attach, Start, Addr, Status and Shutdown are safe for concurrent use.
//	GB may be called once.
type Coordinator[C ring.Element[C]] struct {
	variant engine.Variant[C]
	ring    *poly.Ring[C]
	opts    Options
	logger  *slog.Logger

	inbox    chan event
	done     chan struct{}
	started  atomic.Bool
	sessions atomic.Uint64

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	status   Status
}

type event struct {
	s   *session
	msg *Message
	err error
}

// sessionQueue is the outbox capacity of a session. A worker that falls
// this far behind is dropped.
const sessionQueue = 256

// session is one attached connection. Fields other than conn, id and out
// are owned by the event loop; out is closed by the loop only.
type session struct {
	id       string
	conn     Conn
	out      chan *Message
	workerID string
	ready    bool
	closed   bool
	sent     int
}

// NewCoordinator returns a coordinator for polynomials of r.
func NewCoordinator[C ring.Element[C]](v engine.Variant[C], r *poly.Ring[C], opts Options) *Coordinator[C] {
	d := DefaultOptions()
	if opts.PairTimeout <= 0 {
		opts.PairTimeout = d.PairTimeout
	}
	if opts.WorkerWait <= 0 {
		opts.WorkerWait = d.WorkerWait
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = d.TickInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator[C]{
		variant: v,
		ring:    r,
		opts:    opts,
		logger:  logger.With(slog.String("component", "coordinator")),
		inbox:   make(chan event, 128),
		done:    make(chan struct{}),
		status:  Status{Phase: engine.PhaseSeeding.String()},
	}
}

// =============================================================================
// Transport
// =============================================================================

// Attach starts serving conn. It may be called before or during GB;
// connections attached after the run has finished are told to terminate.
func (c *Coordinator[C]) Attach(conn Conn) {
	s := &session{
		id:   fmt.Sprintf("s%d", c.sessions.Add(1)),
		conn: conn,
		out:  make(chan *Message, sessionQueue),
	}
	go c.read(s)
	go c.write(s)
}

func (c *Coordinator[C]) read(s *session) {
	for {
		m, err := s.conn.Recv()
		select {
		case c.inbox <- event{s: s, msg: m, err: err}:
		case <-c.done:
			if err == nil {
				_ = s.conn.Send(&Message{Type: MsgTerminate, Reason: "finished"})
			}
			_ = s.conn.Close()
			return
		}
		if err != nil {
			return
		}
	}
}

// write sends queued messages in order and closes the connection once the
// loop closes the outbox. After the run it flushes what is already queued.
func (c *Coordinator[C]) write(s *session) {
	defer func() { _ = s.conn.Close() }()
	for {
		select {
		case m, ok := <-s.out:
			if !ok {
				return
			}
			if !c.deliver(s, m) {
				return
			}
		case <-c.done:
			for {
				select {
				case m, ok := <-s.out:
					if !ok || !c.deliver(s, m) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// deliver sends m and reports a failure to the event loop.
func (c *Coordinator[C]) deliver(s *session, m *Message) bool {
	if err := s.conn.Send(m); err != nil {
		select {
		case c.inbox <- event{s: s, err: err}:
		case <-c.done:
		}
		return false
	}
	return true
}

// Handler returns the HTTP routes of the coordinator: the worker
// websocket on /ws, the run status on /status and Prometheus metrics on
// /metrics.
func (c *Coordinator[C]) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", c.handleWS)
	r.GET("/status", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, c.Status())
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (c *Coordinator[C]) handleWS(ctx *gin.Context) {
	ws, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("failed to upgrade the websocket", slog.String("error", err.Error()))
		return
	}
	c.logger.Debug("worker connection accepted", slog.String("remote", ctx.Request.RemoteAddr))
	c.Attach(newWSConn(ws))
}

// Start listens on addr and serves Handler in the background.
func (c *Coordinator[C]) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	c.mu.Lock()
	c.server, c.listener = srv, ln
	c.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("coordinator server stopped", slog.String("error", err.Error()))
		}
	}()
	c.logger.Info("coordinator listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the listen address.
func (c *Coordinator[C]) Addr() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return "", ErrNotListening
	}
	return c.listener.Addr().String(), nil
}

// Shutdown stops the HTTP server.
func (c *Coordinator[C]) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	srv := c.server
	c.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Status returns the latest run status.
func (c *Coordinator[C]) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator[C]) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// =============================================================================
// Run
// =============================================================================

// GB computes a Groebner basis of fs with the attached workers.
//
// Inputs:
//
//	ctx - Cancellation terminates the run and every worker.
//	fs - Generators in the coordinator's ring.
//
// Outputs:
//
//	*engine.Result[C] - The basis and counters.
//	error - ErrAlreadyRun, engine.ErrNoInput, engine.ErrRingMismatch or
//	engine.ErrTerminated.
func (c *Coordinator[C]) GB(ctx context.Context, fs []*poly.Polynomial[C]) (*engine.Result[C], error) {
	if !c.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	defer close(c.done)

	for i, f := range fs {
		if f == nil {
			return nil, fmt.Errorf("%w: index %d", engine.ErrNoInput, i)
		}
		if !c.ring.Compatible(f.Ring()) {
			return nil, fmt.Errorf("%w: index %d is in %s, expected %s", engine.ErrRingMismatch, i, f.Ring(), c.ring)
		}
	}

	ctx, span := tracer.Start(ctx, "dist.Coordinator",
		trace.WithAttributes(
			attribute.String("gb.variant", c.variant.Name()),
			attribute.Int("gb.inputs", len(fs)),
		),
	)
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, c.logger)

	start := time.Now()
	runID := uuid.NewString()[:12]
	logger.Info("distributed groebner run started",
		slog.String("run_id", runID),
		slog.String("variant", c.variant.Name()),
		slog.String("ring", c.ring.String()),
		slog.Int("inputs", len(fs)),
	)

	st := engine.NewState(c.variant, c.ring)
	st.Seed(fs)
	l := &loop[C]{
		c:           c,
		st:          st,
		runID:       runID,
		sessions:    make(map[*session]struct{}),
		inflight:    make(map[uint64]*assignment[C]),
		lastRequest: time.Now(),
	}
	err := l.run(ctx)

	res := &engine.Result[C]{
		RunID:    runID,
		Strategy: "distributed",
		Variant:  c.variant.Name(),
		Stats:    st.Stats(),
		Duration: time.Since(start),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("distributed groebner run terminated",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	res.Basis = st.Final(c.opts.Minimize)
	span.SetAttributes(attribute.Int("gb.basis_size", len(res.Basis)))
	span.SetStatus(codes.Ok, "")
	logger.Info("distributed groebner run completed",
		slog.String("run_id", runID),
		slog.Int("basis_size", len(res.Basis)),
		slog.Int("appended", res.Stats.Appended),
		slog.Int("remote_tasks", l.remote),
		slog.Int("local_tasks", l.local),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// =============================================================================
// Event loop
// =============================================================================

// assignment is a task handed to a session.
type assignment[C ring.Element[C]] struct {
	id       uint64
	kind     TaskKind
	pair     pairs.Pair
	poly     *poly.Polynomial[C]
	s        *session
	start    time.Time
	deadline time.Time
}

type loop[C ring.Element[C]] struct {
	c           *Coordinator[C]
	st          *engine.State[C]
	runID       string
	sessions    map[*session]struct{}
	inflight    map[uint64]*assignment[C]
	wire        []WirePolynomial
	lastRequest time.Time
	waitUntil   time.Time
	nextID      uint64
	remote      int
	local       int
}

func (l *loop[C]) run(ctx context.Context) error {
	opts := l.c.opts
	ticker := time.NewTicker(opts.TickInterval)
	defer ticker.Stop()
	l.waitUntil = time.Now().Add(opts.WorkerWait)

	for {
		l.publishStatus()
		if l.st.Unit() || (!l.st.HasWork() && len(l.inflight) == 0) {
			l.terminateAll("finished")
			return nil
		}

		if l.shouldSelfWork(time.Now()) {
			l.selfWork()
			l.broadcast()
			select {
			case ev := <-l.c.inbox:
				l.handle(ev)
			case now := <-ticker.C:
				l.expire(now)
			case <-ctx.Done():
				l.terminateAll("cancelled")
				return fmt.Errorf("%w: %w", engine.ErrTerminated, ctx.Err())
			default:
			}
			continue
		}

		select {
		case ev := <-l.c.inbox:
			l.handle(ev)
		case now := <-ticker.C:
			l.expire(now)
		case <-ctx.Done():
			l.terminateAll("cancelled")
			return fmt.Errorf("%w: %w", engine.ErrTerminated, ctx.Err())
		}
	}
}

// shouldSelfWork reports whether the coordinator reduces the next task
// itself: work is queued, the MinWorkers grace period is over, and either
// no worker is attached or none has asked for work within PairTimeout.
func (l *loop[C]) shouldSelfWork(now time.Time) bool {
	if !l.st.HasWork() {
		return false
	}
	opts := l.c.opts
	if opts.MinWorkers > 0 && len(l.sessions) < opts.MinWorkers && now.Before(l.waitUntil) {
		return false
	}
	return len(l.sessions) == 0 || now.Sub(l.lastRequest) > opts.PairTimeout
}

func (l *loop[C]) publishStatus() {
	phase := engine.PhaseRunning
	if !l.st.HasWork() && len(l.inflight) > 0 {
		phase = engine.PhaseDraining
	}
	l.c.setStatus(Status{
		RunID:       l.runID,
		Phase:       phase.String(),
		BasisLen:    l.st.Basis().Len(),
		QueuedPairs: l.st.Queued(),
		Workers:     len(l.sessions),
		Inflight:    len(l.inflight),
	})
}

func (l *loop[C]) handle(ev event) {
	s := ev.s
	if s.closed {
		return
	}
	if ev.err != nil {
		l.drop(s, "disconnect", ev.err)
		return
	}
	m := ev.msg
	switch m.Type {
	case MsgHello:
		if s.ready {
			l.drop(s, "duplicate hello", ErrProtocol)
			return
		}
		s.ready = true
		s.workerID = m.WorkerID
		l.sessions[s] = struct{}{}
		workersConnected.Inc()
		l.c.logger.Info("worker attached",
			slog.String("run_id", l.runID),
			slog.String("session", s.id),
			slog.String("worker_id", s.workerID),
			slog.Int("workers", len(l.sessions)),
		)
		if l.send(s, &Message{Type: MsgSetup, Ring: l.c.ring.String(), Variant: l.c.variant.Name()}) {
			l.push(s)
		}
	case MsgPairRequest:
		if !s.ready {
			l.drop(s, "request before hello", ErrProtocol)
			return
		}
		l.lastRequest = time.Now()
		l.assign(s)
	case MsgResult:
		if !s.ready {
			l.drop(s, "result before hello", ErrProtocol)
			return
		}
		l.result(s, m)
		l.broadcast()
	default:
		l.drop(s, "unexpected message "+string(m.Type), ErrProtocol)
	}
}

// send queues m on the session's outbox and drops the session when the
// outbox is full.
func (l *loop[C]) send(s *session, m *Message) bool {
	if s.closed {
		return false
	}
	select {
	case s.out <- m:
		return true
	default:
		l.drop(s, "outbox full", ErrBackpressure)
		return false
	}
}

// push sends s the basis elements it has not seen yet.
func (l *loop[C]) push(s *session) bool {
	n := l.st.Basis().Len()
	if s.sent >= n {
		return true
	}
	if !l.send(s, &Message{Type: MsgBasis, From: s.sent, Polys: l.encoded(n)[s.sent:n]}) {
		return false
	}
	s.sent = n
	return true
}

// broadcast pushes newly appended basis elements to every worker.
func (l *loop[C]) broadcast() {
	for s := range l.sessions {
		l.push(s)
	}
}

// encoded returns the wire form of the first n basis elements. Elements
// are encoded once and shared by every session.
func (l *loop[C]) encoded(n int) []WirePolynomial {
	if len(l.wire) < n {
		l.wire = append(l.wire, EncodeList(l.st.Basis().Snapshot(n)[len(l.wire):])...)
	}
	return l.wire
}

// drop closes a session and requeues its tasks.
func (l *loop[C]) drop(s *session, reason string, err error) {
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
	_ = s.conn.Close()
	if s.ready {
		delete(l.sessions, s)
		workersConnected.Dec()
	}
	requeued := 0
	for _, a := range l.inflight {
		if a.s == s {
			l.requeue(a, "disconnect")
			requeued++
		}
	}
	l.c.logger.Warn("worker detached",
		slog.String("run_id", l.runID),
		slog.String("session", s.id),
		slog.String("worker_id", s.workerID),
		slog.String("reason", reason),
		slog.Any("error", err),
		slog.Int("requeued", requeued),
	)
}

func (l *loop[C]) requeue(a *assignment[C], reason string) {
	delete(l.inflight, a.id)
	if a.kind == TaskPair {
		l.st.Requeue(a.pair)
	} else {
		l.st.RequeuePending(a.poly)
	}
	tasksRequeued.WithLabelValues(reason).Inc()
}

// next takes the next task off the state, fed-back polynomials first.
func (l *loop[C]) next() *assignment[C] {
	l.nextID++
	if p, ok := l.st.NextPending(); ok {
		return &assignment[C]{id: l.nextID, kind: TaskPoly, poly: p}
	}
	if pair, ok := l.st.NextPair(); ok {
		return &assignment[C]{id: l.nextID, kind: TaskPair, pair: pair}
	}
	return nil
}

func (l *loop[C]) assign(s *session) {
	if l.st.Unit() {
		l.send(s, &Message{Type: MsgTerminate, Reason: "unit"})
		return
	}
	a := l.next()
	if a == nil {
		l.send(s, &Message{Type: MsgNoWorkYet})
		return
	}
	now := time.Now()
	a.s, a.start, a.deadline = s, now, now.Add(l.c.opts.PairTimeout)
	l.inflight[a.id] = a

	if !l.push(s) {
		return
	}

	reply := &Message{Type: MsgPairReply, TaskID: a.id, Kind: a.kind}
	if a.kind == TaskPair {
		reply.I, reply.J = a.pair.I, a.pair.J
	} else {
		w := Encode(a.poly)
		reply.Poly = &w
	}
	if l.send(s, reply) {
		l.remote++
		tasksDispatched.WithLabelValues(string(a.kind), "remote").Inc()
	}
}

func (l *loop[C]) result(s *session, m *Message) {
	a, ok := l.inflight[m.TaskID]
	if !ok || a.s != s {
		resultsReceived.WithLabelValues("stale").Inc()
		l.c.logger.Debug("stale result ignored",
			slog.String("run_id", l.runID),
			slog.String("session", s.id),
			slog.Uint64("task_id", m.TaskID),
		)
		return
	}
	taskLatency.Observe(time.Since(a.start).Seconds())

	hs, err := DecodeList(l.c.ring, m.Polys)
	if err == nil && (m.BasisLen < 0 || m.BasisLen > l.st.Basis().Len()) {
		err = fmt.Errorf("%w: basis length %d", ErrProtocol, m.BasisLen)
	}
	if err != nil {
		l.requeue(a, "invalid")
		l.drop(s, "invalid result", err)
		return
	}
	delete(l.inflight, a.id)
	resultsReceived.WithLabelValues("accepted").Inc()

	l.st.RecordReductions(m.Reduced, max(m.Reduced-len(hs), 0))
	for _, h := range hs {
		if h.IsZero() {
			continue
		}
		if l.st.Basis().Len() != m.BasisLen {
			h, _ = l.st.Revalidate(m.BasisLen, h)
		}
		l.st.Accept(h)
		if l.st.Unit() {
			break
		}
	}
	if a.kind == TaskPair {
		l.st.Done(a.pair)
	}
}

// expire requeues tasks held past their deadline and drops their
// holders, which then count as having left the pool.
func (l *loop[C]) expire(now time.Time) {
	for _, a := range l.inflight {
		if now.After(a.deadline) {
			l.c.logger.Warn("task timed out",
				slog.String("run_id", l.runID),
				slog.String("session", a.s.id),
				slog.Uint64("task_id", a.id),
			)
			l.requeue(a, "timeout")
			l.drop(a.s, "task timed out", ErrTaskTimeout)
		}
	}
}

// selfWork processes one task on the coordinator.
func (l *loop[C]) selfWork() {
	st := l.st
	if p, ok := st.NextPending(); ok {
		st.Accept(st.Reduce(st.Basis().Len(), p))
		l.local++
		tasksDispatched.WithLabelValues(string(TaskPoly), "local").Inc()
		return
	}
	pair, ok := st.NextPair()
	if !ok {
		return
	}
	for _, c := range st.Critical(pair) {
		st.Accept(st.Reduce(st.Basis().Len(), c))
		if st.Unit() {
			break
		}
	}
	st.Done(pair)
	l.local++
	tasksDispatched.WithLabelValues(string(TaskPair), "local").Inc()
}

// terminateAll queues terminate for every worker; the writers close the
// connections once it is sent.
func (l *loop[C]) terminateAll(reason string) {
	for s := range l.sessions {
		select {
		case s.out <- &Message{Type: MsgTerminate, Reason: reason}:
		default:
		}
		s.closed = true
		close(s.out)
		workersConnected.Dec()
	}
	clear(l.sessions)
	clear(l.inflight)
	l.c.setStatus(Status{
		RunID:    l.runID,
		Phase:    engine.PhaseTerminated.String(),
		BasisLen: l.st.Basis().Len(),
	})
}
