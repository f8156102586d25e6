package i2cbus

import (
	"sync"
	"sync/atomic"
	"time"

	"watchcode-go/errcode"
	"watchcode-go/x/timex"

	"github.com/benbjohnson/clock"
)

const (
	// DefaultTimeoutMS is the per-request budget when Config leaves it unset.
	DefaultTimeoutMS = 100
	defaultQueueLen  = 16
)

// Config centralises the arbiter's timing. The timeout budget lives here and
// nowhere else; clients never pass their own.
type Config struct {
	TimeoutMS int         // 0 => DefaultTimeoutMS
	QueueLen  int         // 0 => 16
	Clock     clock.Clock // nil => wall clock
}

type reqKind uint8

const (
	kindRead reqKind = iota
	kindWrite
	kindWriteRead
	kindTx
)

var opNames = [...]string{"read", "write", "write_read", "transaction"}

// request lifecycle, advanced with CAS by exactly one of caller or worker.
const (
	stPending int32 = iota
	stRunning
	stAbandoned
)

// request posted to the worker. All buffers here are private copies: the
// worker never touches caller memory, so a caller that gave up can reuse its
// buffers immediately.
type request struct {
	kind     reqKind
	addr     Address
	w        []byte
	r        []byte
	ops      []Op
	deadline time.Time
	state    int32
	done     chan error // buffered(1); worker never blocks on reply
}

// Arbiter owns a Transport and services requests one at a time, in the order
// they are admitted to its queue.
type Arbiter struct {
	t       Transport
	clk     clock.Clock
	timeout time.Duration

	reqs      chan *request
	quit      chan struct{}
	closeOnce sync.Once

	submitted atomic.Uint32
	completed atomic.Uint32
	timeouts  atomic.Uint32
	nacks     atomic.Uint32
	others    atomic.Uint32
	abandoned atomic.Uint32
}

// New takes exclusive ownership of t and starts the bus worker.
func New(t Transport, cfg Config) *Arbiter {
	if cfg.TimeoutMS <= 0 {
		cfg.TimeoutMS = DefaultTimeoutMS
	}
	if cfg.QueueLen <= 0 {
		cfg.QueueLen = defaultQueueLen
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	a := &Arbiter{
		t:       t,
		clk:     cfg.Clock,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		reqs:    make(chan *request, cfg.QueueLen),
		quit:    make(chan struct{}),
	}
	go a.loop()
	return a
}

// Timeout returns the per-request budget.
func (a *Arbiter) Timeout() time.Duration { return a.timeout }

// Read fills out from the device at addr.
func (a *Arbiter) Read(addr Address, out []byte) error {
	req := &request{kind: kindRead, addr: addr, r: make([]byte, len(out))}
	if err := a.submit(req); err != nil {
		return err
	}
	copy(out, req.r)
	return nil
}

// Write sends payload to the device at addr.
func (a *Arbiter) Write(addr Address, payload []byte) error {
	return a.submit(&request{kind: kindWrite, addr: addr, w: clone(payload)})
}

// WriteRead writes payload then reads into out with no other request between
// the two phases (register-read protocol).
func (a *Arbiter) WriteRead(addr Address, payload, out []byte) error {
	req := &request{kind: kindWriteRead, addr: addr, w: clone(payload), r: make([]byte, len(out))}
	if err := a.submit(req); err != nil {
		return err
	}
	copy(out, req.r)
	return nil
}

// Transaction executes ops strictly in order as one indivisible unit. Read
// buffers in ops are filled only if every step succeeds.
func (a *Arbiter) Transaction(addr Address, ops []Op) error {
	priv := make([]Op, len(ops))
	for i, op := range ops {
		if op.Kind == OpRead {
			priv[i] = Op{Kind: OpRead, Buf: make([]byte, len(op.Buf))}
		} else {
			priv[i] = Op{Kind: OpWrite, Buf: clone(op.Buf)}
		}
	}
	req := &request{kind: kindTx, addr: addr, ops: priv}
	if err := a.submit(req); err != nil {
		return err
	}
	for i := range ops {
		if ops[i].Kind == OpRead {
			copy(ops[i].Buf, priv[i].Buf)
		}
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (a *Arbiter) Stats() Stats {
	return Stats{
		Submitted: a.submitted.Load(),
		Completed: a.completed.Load(),
		Timeouts:  a.timeouts.Load(),
		Nacks:     a.nacks.Load(),
		Others:    a.others.Load(),
		Abandoned: a.abandoned.Load(),
	}
}

// Close stops the worker. Requests issued afterwards fail with bus_other.
// Clients must not outlive the arbiter in normal operation.
func (a *Arbiter) Close() {
	a.closeOnce.Do(func() { close(a.quit) })
}

// submit enqueues req and waits for its completion. One timer bounds the
// whole call, queueing included.
func (a *Arbiter) submit(req *request) error {
	op := opNames[req.kind]
	if req.addr > MaxAddress {
		a.others.Add(1)
		return &errcode.E{C: errcode.BusOther, Op: op, Addr: uint16(req.addr), Msg: "invalid_address"}
	}
	select {
	case <-a.quit:
		return a.closed(op, req)
	default:
	}

	a.submitted.Add(1)
	req.done = make(chan error, 1)
	req.deadline = a.clk.Now().Add(a.timeout)
	t := a.clk.Timer(a.timeout)
	defer t.Stop()

	select {
	case a.reqs <- req:
	case <-t.C:
		a.timeouts.Add(1)
		a.abandoned.Add(1)
		return &errcode.E{C: errcode.BusTimeout, Op: op, Addr: uint16(req.addr), Msg: "queue_full"}
	case <-a.quit:
		return a.closed(op, req)
	}

	select {
	case err := <-req.done:
		if err != nil {
			return a.fail(op, req.addr, err)
		}
		a.completed.Add(1)
		return nil
	case <-t.C:
		// Still queued: make sure the worker skips it. Already running: the
		// worker finishes into its private buffers and the reply is dropped.
		atomic.CompareAndSwapInt32(&req.state, stPending, stAbandoned)
		a.timeouts.Add(1)
		return &errcode.E{C: errcode.BusTimeout, Op: op, Addr: uint16(req.addr)}
	case <-a.quit:
		return a.closed(op, req)
	}
}

func (a *Arbiter) closed(op string, req *request) error {
	atomic.CompareAndSwapInt32(&req.state, stPending, stAbandoned)
	a.others.Add(1)
	return &errcode.E{C: errcode.BusOther, Op: op, Addr: uint16(req.addr), Msg: "closed"}
}

func (a *Arbiter) fail(op string, addr Address, err error) error {
	c := errcode.MapTransportErr(err)
	switch c {
	case errcode.BusTimeout:
		a.timeouts.Add(1)
	case errcode.BusNack:
		a.nacks.Add(1)
	default:
		a.others.Add(1)
	}
	return &errcode.E{C: c, Op: op, Addr: uint16(addr), Err: err}
}

func (a *Arbiter) loop() {
	for {
		select {
		case req := <-a.reqs:
			a.serve(req)
		case <-a.quit:
			return
		}
	}
}

// serve runs one request to completion before the next is taken off the queue.
func (a *Arbiter) serve(req *request) {
	if !atomic.CompareAndSwapInt32(&req.state, stPending, stRunning) {
		a.abandoned.Add(1)
		return
	}
	addr := uint16(req.addr)
	var err error
	switch req.kind {
	case kindRead:
		err = a.t.Read(addr, req.r, a.remainingMS(req))
	case kindWrite:
		err = a.t.Write(addr, req.w, a.remainingMS(req))
	case kindWriteRead:
		err = a.t.WriteRead(addr, req.w, req.r, a.remainingMS(req))
	case kindTx:
		for i := range req.ops {
			op := &req.ops[i]
			if op.Kind == OpRead {
				err = a.t.Read(addr, op.Buf, a.remainingMS(req))
			} else {
				err = a.t.Write(addr, op.Buf, a.remainingMS(req))
			}
			if err != nil {
				break
			}
		}
	}
	req.done <- err
}

// remainingMS is what is left of the caller's budget, never below 1 ms so a
// started step always gets a bounded, non-zero timeout.
func (a *Arbiter) remainingMS(req *request) int {
	ms := timex.Ms(req.deadline.Sub(a.clk.Now()))
	if ms < 1 {
		ms = 1
	}
	return ms
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
