package modbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ReconnectStrategy selects how the pipeline re-establishes a lost or failed transport connection
// before retrying a submit.
type ReconnectStrategy uint8

const (
	// ReconnectDisabled never reconnects automatically; submits against a disconnected client fail immediately.
	ReconnectDisabled ReconnectStrategy = iota
	// ReconnectImmediate reconnects synchronously, inline with the submit call, before writing the request.
	ReconnectImmediate
	// ReconnectExponentialBackoff reconnects with a backoff delay that doubles from Initial up to Max.
	ReconnectExponentialBackoff
)

// ReconnectPolicy configures a pipeline's reconnection behaviour.
type ReconnectPolicy struct {
	Strategy ReconnectStrategy
	Initial  time.Duration
	Max      time.Duration
}

// ErrTooManyPending is returned by Submit when max in-flight requests are already outstanding and no permit
// is immediately available.
var ErrTooManyPending = errors.New("modbus: too many pending requests")

// ErrRequestTimeout is returned when a submitted request's deadline passes before a response arrives.
var ErrRequestTimeout = errors.New("modbus: request timeout")

// ErrPipelineClosed is returned by Submit once the pipeline has been shut down.
var ErrPipelineClosed = errors.New("modbus: pipeline closed")

// ErrTransportClosed is delivered to every outstanding transaction when the connection's read
// loop observes a transport error or peer close: the connection moves straight to Disconnected
// and every pending Submit fails with this error rather than waiting out its own timeout.
var ErrTransportClosed = errors.New("modbus: transport closed")

// pendingTransaction is one in-flight request's bookkeeping: the channel its response (or error)
// is delivered on, and the deadline after which the sweeper fails it.
type pendingTransaction struct {
	deadline time.Time
	done     chan pipelineResult
}

type pipelineResult struct {
	unitID uint8
	pdu    []byte
	err    error
}

// transactionPipeline is the request scheduler described by the connection's submit protocol: it
// multiplexes concurrent callers over one connection using transaction ids (MBAP) or serializes
// them to a single outstanding request (RTU/ASCII), bounds concurrent outstanding work with a
// permit, enforces a per-request timeout, and retries on timeout/transport error (never on
// exception responses, which are returned to the caller untouched).
type transactionPipeline struct {
	logger *slog.Logger

	maxInFlight int
	permits     chan struct{}

	timeout    time.Duration
	maxRetries int
	reconnect  ReconnectPolicy

	idleTimeout time.Duration

	writeFrame func(transactionID uint16, pdu []byte) error
	doReconnect func(ctx context.Context) error

	mu           sync.Mutex
	nextID       uint16
	table        map[uint16]*pendingTransaction
	serial       bool // true for RTU/ASCII: capacity is forced to 1 and ids are not wire-visible
	closed       bool
	closedCh     chan struct{}
	lastActivity time.Time
}

// pipelineConfig collects transactionPipeline's constructor arguments.
type pipelineConfig struct {
	Logger      *slog.Logger
	MaxInFlight int // configurable 1..=65535; default 1 (serial), recommended 4 for pipelined MBAP
	Timeout     time.Duration
	MaxRetries  int
	Reconnect   ReconnectPolicy
	IdleTimeout time.Duration
	Serial      bool // RTU/ASCII: forces MaxInFlight to 1 regardless of configured value
	WriteFrame  func(transactionID uint16, pdu []byte) error
	Reconnector func(ctx context.Context) error
}

func newTransactionPipeline(cfg pipelineConfig) *transactionPipeline {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	if cfg.Serial {
		maxInFlight = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &transactionPipeline{
		logger:       logger,
		maxInFlight:  maxInFlight,
		permits:      make(chan struct{}, maxInFlight),
		timeout:      timeout,
		maxRetries:   maxRetries,
		reconnect:    cfg.Reconnect,
		idleTimeout:  cfg.IdleTimeout,
		writeFrame:   cfg.WriteFrame,
		doReconnect:  cfg.Reconnector,
		nextID:       0,
		table:        make(map[uint16]*pendingTransaction),
		serial:       cfg.Serial,
		closedCh:     make(chan struct{}),
		lastActivity: time.Now(),
	}
	for i := 0; i < maxInFlight; i++ {
		p.permits <- struct{}{}
	}
	return p
}

// nextTransactionID returns the next id in the monotone 1..=65535 sequence, wrapping past 65535
// back to 1 and always skipping the reserved value 0. For serial transports the id is internal
// bookkeeping only (never placed on the wire) since RTU/ASCII frames carry no transaction id.
func (p *transactionPipeline) nextTransactionID() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	if p.nextID == 0 {
		p.nextID = 1
	}
	return p.nextID
}

// Submit runs one request through the full protocol: acquire permit, allocate transaction id,
// record deadline, write frame, await the response slot, retrying per policy on timeout/transport
// error. Exception responses (surfaced by the caller's decode step as a typed error passed back
// through Complete) are never retried here.
func (p *transactionPipeline) Submit(ctx context.Context, pdu []byte) (unitID uint8, respPDU []byte, err error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			if err := p.maybeReconnect(ctx); err != nil {
				return 0, nil, fmt.Errorf("modbus: reconnect before retry failed: %w", err)
			}
		}
		uid, respPDU, err := p.submitOnce(ctx, pdu)
		if err == nil {
			return uid, respPDU, nil
		}
		if errors.Is(err, errExceptionResponse) {
			return 0, nil, err // exceptions are never retried
		}
		lastErr = err
		p.logger.Debug("modbus: submit attempt failed, will retry", "attempt", attempt, "error", err)
	}
	return 0, nil, lastErr
}

// errExceptionResponse is a sentinel wrapped target; callers (the client façade) wrap their decoded
// exception errors with this via MarkException so the pipeline's retry loop can recognize them
// without needing to know about packet.ErrorResponseTCP/RTU.
var errExceptionResponse = errors.New("modbus: exception response")

// MarkException wraps err so the pipeline treats it as a non-retryable exception response.
func MarkException(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errExceptionResponse, err)
}

func (p *transactionPipeline) maybeReconnect(ctx context.Context) error {
	if p.reconnect.Strategy == ReconnectDisabled || p.doReconnect == nil {
		return nil
	}
	if p.reconnect.Strategy == ReconnectExponentialBackoff {
		delay := p.reconnect.Initial
		if delay <= 0 {
			delay = 100 * time.Millisecond
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.doReconnect(ctx)
}

func (p *transactionPipeline) submitOnce(ctx context.Context, pdu []byte) (uint8, []byte, error) {
	select {
	case <-p.closedCh:
		return 0, nil, ErrPipelineClosed
	default:
	}

	select {
	case <-p.permits:
	default:
		return 0, nil, ErrTooManyPending
	}
	defer func() { p.permits <- struct{}{} }()

	txID := p.nextTransactionID()
	deadline := time.Now().Add(p.timeout)
	pending := &pendingTransaction{deadline: deadline, done: make(chan pipelineResult, 1)}

	p.mu.Lock()
	p.table[txID] = pending
	p.mu.Unlock()

	cleanup := func() {
		p.mu.Lock()
		delete(p.table, txID)
		p.mu.Unlock()
	}

	p.touch()
	if err := p.writeFrame(txID, pdu); err != nil {
		cleanup()
		return 0, nil, fmt.Errorf("modbus: write frame: %w", err)
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case res := <-pending.done:
		cleanup()
		return res.unitID, res.pdu, res.err
	case <-timer.C:
		cleanup()
		return 0, nil, ErrRequestTimeout
	case <-ctx.Done():
		cleanup()
		return 0, nil, ctx.Err()
	case <-p.closedCh:
		cleanup()
		return 0, nil, ErrPipelineClosed
	}
}

// Complete delivers a decoded frame's PDU to the awaiting Submit call. For MBAP it looks the
// transaction up by id; for serial transports (RTU/ASCII) there is at most one outstanding
// transaction, so the single entry in the table is matched regardless of id. Frames matching no
// pending transaction are dropped (a stray response, logged and discarded).
func (p *transactionPipeline) Complete(transactionID uint16, unitID uint8, pdu []byte, err error) {
	p.mu.Lock()
	var pending *pendingTransaction
	if p.serial {
		for _, v := range p.table {
			pending = v
			break
		}
	} else {
		pending = p.table[transactionID]
	}
	p.mu.Unlock()

	if pending == nil {
		p.logger.Warn("modbus: dropping stray response", "transactionID", transactionID)
		return
	}
	p.touch()
	select {
	case pending.done <- pipelineResult{unitID: unitID, pdu: pdu, err: err}:
	default:
	}
}

// touch records activity (a submit or a received frame) for idle-timeout purposes.
func (p *transactionPipeline) touch() {
	p.mu.Lock()
	p.lastActivity = time.Now()
	p.mu.Unlock()
}

// IsIdle reports whether the pipeline has no in-flight transaction and has seen no submit or
// received frame for at least its configured IdleTimeout, as of now. Always false when no
// IdleTimeout was configured.
func (p *transactionPipeline) IsIdle(now time.Time) bool {
	if p.idleTimeout <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.table) > 0 {
		return false
	}
	return now.Sub(p.lastActivity) >= p.idleTimeout
}

// Sweep fails and removes any transaction whose deadline has already passed. Callers invoke this
// from the receive loop after each read and/or on a periodic tick.
func (p *transactionPipeline) Sweep(now time.Time) {
	p.mu.Lock()
	var expired []*pendingTransaction
	for id, t := range p.table {
		if now.After(t.deadline) {
			expired = append(expired, t)
			delete(p.table, id)
		}
	}
	p.mu.Unlock()

	for _, t := range expired {
		select {
		case t.done <- pipelineResult{err: ErrRequestTimeout}:
		default:
		}
	}
}

// FailAll delivers err to every currently pending transaction and clears the table. The read loop
// calls this with ErrTransportClosed as soon as it observes the connection has gone away, so
// in-flight Submit calls fail immediately instead of waiting out their own per-request timeout.
func (p *transactionPipeline) FailAll(err error) {
	p.mu.Lock()
	pending := make([]*pendingTransaction, 0, len(p.table))
	for id, t := range p.table {
		pending = append(pending, t)
		delete(p.table, id)
	}
	p.mu.Unlock()

	for _, t := range pending {
		select {
		case t.done <- pipelineResult{err: err}:
		default:
		}
	}
}

// Close shuts the pipeline down: pending submits observe ErrPipelineClosed and future Submit calls
// fail immediately.
func (p *transactionPipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.closedCh)
}
