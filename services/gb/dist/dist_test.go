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
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/groebner/services/gb/engine"
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

type qq = ring.Rational

func smallExample(t *testing.T) (*poly.Ring[qq], []*poly.Polynomial[qq]) {
	t.Helper()
	r := poly.NewRing[qq](ring.Rationals, poly.Lex, "x", "y")
	ps, err := r.ParseList("3 x^2 - 2 x y", "5 y^2 - x y")
	require.NoError(t, err)
	return r, ps
}

var smallBasis = []string{"y^3", "x y - 5 y^2", "x^2 - 10/3 y^2"}

func trinks(t *testing.T) (*poly.Ring[qq], []*poly.Polynomial[qq]) {
	t.Helper()
	r := poly.NewRing[qq](ring.Rationals, poly.Lex, "W", "P", "Z", "T", "S", "B")
	ps, err := r.ParseList(
		"45 P + 35 S - 165 B - 36",
		"35 P + 40 Z + 25 T - 27 S",
		"15 W + 25 S P + 30 Z - 18 T - 165 B^2",
		"-9 W + 15 T P + 20 S Z",
		"P W + 2 T Z - 11 B^3",
		"99 W - 11 B S + 3 B^2",
		"B^2 + 33/50 B + 2673/10000",
	)
	require.NoError(t, err)
	return r, ps
}

func strs[C ring.Element[C]](ps []*poly.Polynomial[C]) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

func testOptions() Options {
	return Options{
		PairTimeout:  5 * time.Second,
		MinWorkers:   2,
		WorkerWait:   5 * time.Second,
		TickInterval: 10 * time.Millisecond,
		Minimize:     true,
	}
}

// =============================================================================
// Wire codec
// =============================================================================

func TestEncodeDecode_RoundTrip(t *testing.T) {
	r, F := smallExample(t)
	for _, p := range F {
		w := Encode(p)
		b, err := json.Marshal(w)
		require.NoError(t, err)
		var back WirePolynomial
		require.NoError(t, json.Unmarshal(b, &back))
		q, err := Decode(r, back)
		require.NoError(t, err)
		assert.True(t, p.Equal(q))
	}

	pr := ring.NewPowerRing[qq](ring.Rationals, 2)
	rp := poly.NewRing[ring.Product[qq]](pr, poly.DegRevLex, "x")
	p, err := rp.Parse("(1/2, 0) x + (0, 3)")
	require.NoError(t, err)
	q, err := Decode(rp, Encode(p))
	require.NoError(t, err)
	assert.True(t, p.Equal(q))
}

func TestDecode_Errors(t *testing.T) {
	r, _ := smallExample(t)
	_, err := Decode(r, WirePolynomial{Terms: []WireTerm{{Exp: []int{1}, Coeff: "1"}}})
	assert.ErrorIs(t, err, ErrDecode)

	_, err = Decode(r, WirePolynomial{Terms: []WireTerm{{Exp: []int{1, -1}, Coeff: "1"}}})
	assert.ErrorIs(t, err, ErrDecode)

	_, err = Decode(r, WirePolynomial{Terms: []WireTerm{{Exp: []int{1, 0}, Coeff: "one"}}})
	assert.ErrorIs(t, err, ErrDecode)

	p, err := Decode(r, WirePolynomial{})
	require.NoError(t, err)
	assert.True(t, p.IsZero())
}

func TestPipe_CloseAfterSendDeliversMessage(t *testing.T) {
	a, b := Pipe()
	require.NoError(t, a.Send(&Message{Type: MsgTerminate, Reason: "done"}))
	require.NoError(t, a.Close())

	m, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, MsgTerminate, m.Type)
	assert.Equal(t, "done", m.Reason)

	_, err = b.Recv()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Send(&Message{Type: MsgHello}), ErrClosed)
}

// keepaliveServer serves one websocket with the given keepalive and
// reports the outcome of its first Recv.
func keepaliveServer(t *testing.T, wait, period time.Duration) (string, <-chan error) {
	t.Helper()
	recvErr := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			recvErr <- err
			return
		}
		conn := newWSConnWithKeepalive(ws, wait, period)
		defer conn.Close()
		_, err = conn.Recv()
		recvErr <- err
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), recvErr
}

func TestWSConn_SilentPeerTimesOut(t *testing.T) {
	url, recvErr := keepaliveServer(t, 100*time.Millisecond, time.Hour)
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	select {
	case err := <-recvErr:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not time out on a silent peer")
	}
}

func TestWSConn_PongsKeepPeerAlive(t *testing.T) {
	url, recvErr := keepaliveServer(t, 150*time.Millisecond, 30*time.Millisecond)
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	// Reading lets the default ping handler answer with pongs.
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()
	time.Sleep(500 * time.Millisecond)
	require.NoError(t, client.WriteJSON(&Message{Type: MsgHello, WorkerID: "late"}))

	select {
	case err := <-recvErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Recv never returned")
	}
}

// =============================================================================
// Distributed runs
// =============================================================================

func runWorkers[C ring.Element[C]](t *testing.T, workers []*Worker[C], conns []Conn) *sync.WaitGroup {
	t.Helper()
	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Run(context.Background(), conns[i]))
		}()
	}
	return &wg
}

func TestCoordinator_PipeWorkers(t *testing.T) {
	r, F := smallExample(t)
	v := engine.NewFieldVariant[qq]()
	c := NewCoordinator[qq](v, r, testOptions())

	var workers []*Worker[qq]
	var conns []Conn
	for range 2 {
		coordEnd, workerEnd := Pipe()
		c.Attach(coordEnd)
		workers = append(workers, NewWorker[qq](v, r, WorkerOptions{PollInterval: time.Millisecond}))
		conns = append(conns, workerEnd)
	}
	wg := runWorkers(t, workers, conns)

	res, err := c.GB(context.Background(), F)
	require.NoError(t, err)
	wg.Wait()

	assert.Equal(t, smallBasis, strs(res.Basis))
	assert.Equal(t, "distributed", res.Strategy)
	assert.Positive(t, workers[0].Tasks()+workers[1].Tasks())
	assert.Equal(t, engine.PhaseTerminated.String(), c.Status().Phase)
}

func TestCoordinator_WebsocketWorkers(t *testing.T) {
	r, F := trinks(t)
	v := engine.NewFieldVariant[qq]()
	c := NewCoordinator[qq](v, r, testOptions())
	require.NoError(t, c.Start("127.0.0.1:0"))
	defer func() { _ = c.Shutdown(context.Background()) }()

	addr, err := c.Addr()
	require.NoError(t, err)

	var workers []*Worker[qq]
	var conns []Conn
	for range 2 {
		conn, err := Dial(context.Background(), "ws://"+addr+"/ws")
		require.NoError(t, err)
		workers = append(workers, NewWorker[qq](v, r, WorkerOptions{PollInterval: time.Millisecond}))
		conns = append(conns, conn)
	}
	wg := runWorkers(t, workers, conns)

	res, err := c.GB(context.Background(), F)
	require.NoError(t, err)
	wg.Wait()

	seq, err := engine.NewSequential[qq](v).GB(context.Background(), F)
	require.NoError(t, err)
	assert.Len(t, res.Basis, 6)
	assert.True(t, engine.IsGB[qq](v, res.Basis))
	assert.True(t, engine.SameIdeal[qq](v, seq.Basis, res.Basis))
	assert.Positive(t, workers[0].Tasks()+workers[1].Tasks())

	resp, err := http.Get("http://" + addr + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "terminated", st.Phase)
	assert.Equal(t, res.RunID, st.RunID)
}

func TestCoordinator_SelfWorksWithoutWorkers(t *testing.T) {
	r, F := smallExample(t)
	opts := testOptions()
	opts.MinWorkers = 0
	c := NewCoordinator[qq](engine.NewFieldVariant[qq](), r, opts)

	res, err := c.GB(context.Background(), F)
	require.NoError(t, err)
	assert.Equal(t, smallBasis, strs(res.Basis))

	_, err = c.GB(context.Background(), F)
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestCoordinator_TwoSidedWithWorker(t *testing.T) {
	r := poly.NewSolvableRing[qq](ring.Rationals, poly.DegRevLex, "x", "d")
	require.NoError(t, poly.WeylRelations(r))
	F, err := r.ParseList("x")
	require.NoError(t, err)
	v := engine.NewTwoSidedVariant[qq]()

	opts := testOptions()
	opts.MinWorkers = 1
	c := NewCoordinator[qq](v, r, opts)
	coordEnd, workerEnd := Pipe()
	c.Attach(coordEnd)
	w := NewWorker[qq](v, r, WorkerOptions{PollInterval: time.Millisecond})
	wg := runWorkers(t, []*Worker[qq]{w}, []Conn{workerEnd})

	res, err := c.GB(context.Background(), F)
	require.NoError(t, err)
	wg.Wait()
	assert.Equal(t, []string{"1"}, strs(res.Basis))
}

func TestCoordinator_TwoSidedProperIdealWithWorker(t *testing.T) {
	// y * x = x y + x has proper two-sided ideals; x^2 + y generates (x, y).
	r := poly.NewSolvableRing[qq](ring.Rationals, poly.DegRevLex, "x", "y")
	prod, err := r.Parse("x y + x")
	require.NoError(t, err)
	require.NoError(t, r.Table().Update(poly.UnitExp(2, 1, 1), poly.UnitExp(2, 0, 1), prod))
	F, err := r.ParseList("x^2 + y")
	require.NoError(t, err)
	v := engine.NewTwoSidedVariant[qq]()

	opts := testOptions()
	opts.MinWorkers = 1
	c := NewCoordinator[qq](v, r, opts)
	coordEnd, workerEnd := Pipe()
	c.Attach(coordEnd)
	w := NewWorker[qq](v, r, WorkerOptions{PollInterval: time.Millisecond})
	wg := runWorkers(t, []*Worker[qq]{w}, []Conn{workerEnd})

	res, err := c.GB(context.Background(), F)
	require.NoError(t, err)
	wg.Wait()
	assert.ElementsMatch(t, []string{"x", "y"}, strs(res.Basis))
	assert.True(t, engine.IsTwosidedGB(res.Basis))
}

func TestWorker_SetupMismatch(t *testing.T) {
	r, F := smallExample(t)
	other := poly.NewRing[qq](ring.Rationals, poly.DegRevLex, "x", "y")
	v := engine.NewFieldVariant[qq]()

	opts := testOptions()
	opts.MinWorkers = 1
	opts.WorkerWait = 200 * time.Millisecond
	c := NewCoordinator[qq](v, r, opts)
	coordEnd, workerEnd := Pipe()
	c.Attach(coordEnd)

	errc := make(chan error, 1)
	go func() {
		errc <- NewWorker[qq](v, other, WorkerOptions{}).Run(context.Background(), workerEnd)
	}()

	res, err := c.GB(context.Background(), F)
	require.NoError(t, err)
	assert.Equal(t, smallBasis, strs(res.Basis))
	assert.ErrorIs(t, <-errc, ErrSetupMismatch)
}

// fakeWorker takes one task and returns its id without answering it.
func fakeWorker(conn Conn) (uint64, error) {
	if err := conn.Send(&Message{Type: MsgHello, WorkerID: "fake"}); err != nil {
		return 0, err
	}
	m, err := conn.Recv()
	if err != nil {
		return 0, err
	}
	if m.Type != MsgSetup {
		return 0, fmt.Errorf("expected setup, got %s", m.Type)
	}
	if err := conn.Send(&Message{Type: MsgPairRequest}); err != nil {
		return 0, err
	}
	for {
		m, err = conn.Recv()
		if err != nil {
			return 0, err
		}
		switch m.Type {
		case MsgPairReply:
			return m.TaskID, nil
		case MsgBasis:
		default:
			return 0, fmt.Errorf("unexpected %s", m.Type)
		}
	}
}

func TestCoordinator_RequeueOnDisconnect(t *testing.T) {
	r, F := smallExample(t)
	opts := testOptions()
	opts.MinWorkers = 1
	opts.WorkerWait = 300 * time.Millisecond
	c := NewCoordinator[qq](engine.NewFieldVariant[qq](), r, opts)
	coordEnd, workerEnd := Pipe()
	c.Attach(coordEnd)

	fakeErr := make(chan error, 1)
	go func() {
		_, err := fakeWorker(workerEnd)
		_ = workerEnd.Close()
		fakeErr <- err
	}()

	res, err := c.GB(context.Background(), F)
	require.NoError(t, err)
	require.NoError(t, <-fakeErr)
	assert.Equal(t, smallBasis, strs(res.Basis))
	assert.GreaterOrEqual(t, res.Stats.Pairs.Requeued, 1)
}

func TestCoordinator_RequeueOnTimeout(t *testing.T) {
	r, F := smallExample(t)
	opts := testOptions()
	opts.MinWorkers = 1
	opts.WorkerWait = 300 * time.Millisecond
	opts.PairTimeout = 50 * time.Millisecond
	c := NewCoordinator[qq](engine.NewFieldVariant[qq](), r, opts)
	coordEnd, workerEnd := Pipe()
	c.Attach(coordEnd)

	// The worker takes one task and then stays connected without ever
	// answering it.
	silent := make(chan error, 1)
	go func() {
		if _, err := fakeWorker(workerEnd); err != nil {
			silent <- err
			return
		}
		for {
			if _, err := workerEnd.Recv(); err != nil {
				silent <- nil
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := c.GB(ctx, F)
	require.NoError(t, err)
	assert.Equal(t, smallBasis, strs(res.Basis))
	assert.GreaterOrEqual(t, res.Stats.Pairs.Requeued, 1)

	select {
	case err := <-silent:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("silent worker was never disconnected")
	}
}

// listen attaches an idle session that never asks for work and records
// everything the coordinator sends it.
type listened struct {
	types []MessageType
	basis int
	err   error
}

func listen(conn Conn) listened {
	var out listened
	if out.err = conn.Send(&Message{Type: MsgHello, WorkerID: "listener"}); out.err != nil {
		return out
	}
	for {
		m, err := conn.Recv()
		if err != nil {
			return out
		}
		out.types = append(out.types, m.Type)
		switch m.Type {
		case MsgBasis:
			if m.From != out.basis {
				out.err = fmt.Errorf("basis update from %d, have %d", m.From, out.basis)
				return out
			}
			out.basis += len(m.Polys)
		case MsgTerminate:
			return out
		}
	}
}

func TestCoordinator_BroadcastsBasisToIdleSessions(t *testing.T) {
	r, F := smallExample(t)
	v := engine.NewFieldVariant[qq]()
	c := NewCoordinator[qq](v, r, testOptions())

	coordEnd, listenerEnd := Pipe()
	c.Attach(coordEnd)
	got := make(chan listened, 1)
	go func() { got <- listen(listenerEnd) }()

	coordEnd, workerEnd := Pipe()
	c.Attach(coordEnd)
	w := NewWorker[qq](v, r, WorkerOptions{PollInterval: time.Millisecond})
	wg := runWorkers(t, []*Worker[qq]{w}, []Conn{workerEnd})

	res, err := c.GB(context.Background(), F)
	require.NoError(t, err)
	wg.Wait()
	assert.Equal(t, smallBasis, strs(res.Basis))

	var l listened
	select {
	case l = <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never terminated")
	}
	require.NoError(t, l.err)
	require.NotEmpty(t, l.types)
	assert.Equal(t, MsgSetup, l.types[0])
	assert.Equal(t, MsgTerminate, l.types[len(l.types)-1])
	assert.Contains(t, l.types, MsgBasis)
	assert.Equal(t, res.Stats.Appended, l.basis)
	assert.Greater(t, l.basis, len(F))
}

func TestCoordinator_SelfWorksBesideIdleSession(t *testing.T) {
	r, F := smallExample(t)
	opts := testOptions()
	opts.MinWorkers = 1
	opts.PairTimeout = 50 * time.Millisecond
	c := NewCoordinator[qq](engine.NewFieldVariant[qq](), r, opts)

	coordEnd, listenerEnd := Pipe()
	c.Attach(coordEnd)
	got := make(chan listened, 1)
	go func() { got <- listen(listenerEnd) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := c.GB(ctx, F)
	require.NoError(t, err)
	assert.Equal(t, smallBasis, strs(res.Basis))

	l := <-got
	require.NoError(t, l.err)
	assert.Equal(t, res.Stats.Appended, l.basis)
}

func TestCoordinator_Cancelled(t *testing.T) {
	r, F := smallExample(t)
	c := NewCoordinator[qq](engine.NewFieldVariant[qq](), r, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GB(ctx, F)
	assert.ErrorIs(t, err, engine.ErrTerminated)
}

func TestCoordinator_RingMismatch(t *testing.T) {
	r, _ := smallExample(t)
	other := poly.NewRing[qq](ring.Rationals, poly.Lex, "u")
	c := NewCoordinator[qq](engine.NewFieldVariant[qq](), r, testOptions())
	_, err := c.GB(context.Background(), []*poly.Polynomial[qq]{other.Gen(0)})
	assert.ErrorIs(t, err, engine.ErrRingMismatch)
}
