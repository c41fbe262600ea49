package modbus

import (
	"context"
	"errors"
	"github.com/modbusgo/client/packet"
	"github.com/modbusgo/client/transport"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// tcpPacketMaxLen is maximum length in bytes that valid Modbus TCP packet can be
	//
	// Quote from MODBUS Application Protocol Specification V1.1b3:
	//   The size of the MODBUS PDU is limited by the size constraint inherited from the first
	//   MODBUS implementation on Serial Line network (max. RS485 ADU = 256 bytes).
	//   Therefore:
	//   MODBUS PDU for serial line communication = 256 - Server address (1 byte) - CRC (2bytes) = 253 bytes.
	//   Consequently:
	//   RS232 / RS485 ADU = 253 bytes + Server address (1 byte) + CRC (2 bytes) = 256 bytes.
	//   TCP MODBUS ADU = 253 bytes + MBAP (7 bytes) = 260 bytes.
	tcpPacketMaxLen = 7 + 253 // 2 trans id + 2 proto + 2 pdu len + 1 unit id + 253 max data len
	rtuPacketMaxLen = 256     // 1 unit id + 253 max data len + 2 crc

	defaultWriteTimeout   = 1 * time.Second
	defaultReadTimeout    = 2 * time.Second
	defaultConnectTimeout = 1 * time.Second
)

// ErrPacketTooLong is error indicating that modbus server sent amount of data that is bigger than any modbus packet could be
var ErrPacketTooLong = &ClientError{Err: errors.New("received more bytes than valid Modbus packet size can be")}

// ErrClientNotConnected is error indicating that Client has not yet connected to the modbus server
var ErrClientNotConnected = &ClientError{Err: errors.New("client is not connected")}

// ErrIdleTimeout describes a connection closed by the pipeline's idle timer after IdleTimeout
// elapsed with no in-flight transaction and no submit or received frame. Client does not return
// it: after an idle close, Do fails with ErrClientNotConnected (or reconnects first when the
// reconnection strategy is ReconnectImmediate).
var ErrIdleTimeout = &ClientError{Err: errors.New("connection closed due to idle timeout")}

// Client provides mechanisms to send requests to modbus server over network connection
type Client struct {
	timeNow func() time.Time

	// writeTimeout is total amount of time writing the request can take after client returns error
	writeTimeout time.Duration
	// readTimeout is total amount of time reading the response can take before client returns error
	readTimeout time.Duration

	dialContextFunc     func(ctx context.Context, address string) (net.Conn, error)
	asProtocolErrorFunc func(data []byte) error
	parseResponseFunc   func(data []byte) (packet.Response, error)

	mu      sync.RWMutex
	address string
	conn    net.Conn
	hooks   ClientHooks
	state   *connState
	logger  *slog.Logger

	// isMBAP is true for Modbus TCP clients, whose frames carry a transaction id that the pipeline
	// can use to multiplex several in-flight requests over one connection.
	isMBAP bool
	// pipelineCfg is non-nil when the caller asked for pipelined (MaxInFlight > 1) operation; the
	// actual pipeline and its reader goroutine are created in Connect, once a net.Conn exists.
	pipelineCfg *pipelineConfig
	pipeline    *transactionPipeline
	readerDone  chan struct{}
	// writeMu serializes writeFrame calls: in pipelined mode several goroutines can have a
	// submit permit at once, and net.Conn.Write is not safe to call concurrently from multiple
	// goroutines without one ending up with interleaved bytes on the wire.
	writeMu sync.Mutex
}

// ClientHooks allows to log bytes send/received by client.
// NB: Do not modify given slice - it is not a copy.
type ClientHooks interface {
	BeforeWrite(toWrite []byte)
	AfterEachRead(received []byte, n int, err error)
	BeforeParse(received []byte)
}

// ClientConfig is configuration for Client
type ClientConfig struct {
	// WriteTimeout is total amount of time writing the request can take after client returns error
	WriteTimeout time.Duration
	// ReadTimeout is total amount of time reading the response can take before client returns error
	ReadTimeout time.Duration

	DialContextFunc     func(ctx context.Context, address string) (net.Conn, error)
	AsProtocolErrorFunc func(data []byte) error
	ParseResponseFunc   func(data []byte) (packet.Response, error)

	Hooks ClientHooks

	// MaxInFlight is the number of requests the transaction pipeline may have outstanding at once.
	// 1 (the default) keeps the original strictly-serial request/response behaviour. Values above 1
	// switch Do to pipelined mode: requests are multiplexed over the connection by MBAP transaction
	// id and a background reader task delivers completions as they arrive, possibly out of order.
	MaxInFlight int
	// RequestTimeout bounds how long the pipeline waits for a single request's response in pipelined mode.
	RequestTimeout time.Duration
	// MaxRetries is how many times the pipeline resubmits a request (with a fresh transaction id)
	// after a timeout or transport error in pipelined mode. Exception responses are never retried.
	MaxRetries int
	// Reconnect configures the pipeline's reconnection behaviour in pipelined mode. When Strategy is
	// ReconnectImmediate, a Do call against a Disconnected client synchronously reconnects before
	// submitting instead of failing immediately with ErrClientNotConnected.
	Reconnect ReconnectPolicy
	// IdleTimeout, when non-zero, auto-closes the connection after this long with no in-flight
	// transaction and no submit or received frame. A pending transaction inhibits the timer; it
	// resets on every submit and on every received frame. Only meaningful in pipelined mode.
	IdleTimeout time.Duration

	// Logger receives the client's structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func defaultClient(conf ClientConfig) *Client {
	c := &Client{
		timeNow:      time.Now,
		writeTimeout: defaultWriteTimeout,
		readTimeout:  defaultReadTimeout,

		dialContextFunc: dialContext,
		// TCP is our default protocol
		asProtocolErrorFunc: packet.AsTCPErrorPacket,
		parseResponseFunc:   packet.ParseTCPResponse,
		isMBAP:              true,
		state:               newConnState(),
		logger:              conf.Logger,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if conf.MaxInFlight > 1 {
		c.pipelineCfg = &pipelineConfig{
			Logger:      c.logger,
			MaxInFlight: conf.MaxInFlight,
			Timeout:     conf.RequestTimeout,
			MaxRetries:  conf.MaxRetries,
			Reconnect:   conf.Reconnect,
			IdleTimeout: conf.IdleTimeout,
		}
	}

	if conf.WriteTimeout > 0 {
		c.writeTimeout = conf.WriteTimeout
	}
	if conf.ReadTimeout > 0 {
		c.readTimeout = conf.ReadTimeout
	}
	if conf.DialContextFunc != nil {
		c.dialContextFunc = conf.DialContextFunc
	}
	if conf.AsProtocolErrorFunc != nil {
		c.asProtocolErrorFunc = conf.AsProtocolErrorFunc
	}
	if conf.ParseResponseFunc != nil {
		c.parseResponseFunc = conf.ParseResponseFunc
	}
	if conf.Hooks != nil {
		c.hooks = conf.Hooks
	}
	return c
}

// NewTCPClient creates new instance of Modbus Client for Modbus TCP protocol
func NewTCPClient() *Client {
	return NewTCPClientWithConfig(ClientConfig{})
}

// NewTCPClientWithConfig creates new instance of Modbus Client for Modbus TCP protocol with given configuration options
func NewTCPClientWithConfig(conf ClientConfig) *Client {
	client := defaultClient(conf)
	client.asProtocolErrorFunc = packet.AsTCPErrorPacket
	client.parseResponseFunc = packet.ParseTCPResponse
	return client
}

// NewRTUClient creates new instance of Modbus Client for Modbus RTU protocol
func NewRTUClient() *Client {
	return NewRTUClientWithConfig(ClientConfig{})
}

// NewRTUClientWithConfig creates new instance of Modbus Client for Modbus RTU protocol with given configuration options
func NewRTUClientWithConfig(conf ClientConfig) *Client {
	client := defaultClient(conf)
	client.asProtocolErrorFunc = packet.AsRTUErrorPacket
	client.parseResponseFunc = packet.ParseRTUResponseWithCRC
	client.isMBAP = false
	if client.pipelineCfg != nil {
		client.pipelineCfg.Serial = true
	}
	return client
}

// NewClient creates new instance of Modbus Client with given configuration options
func NewClient(conf ClientConfig) *Client {
	return defaultClient(conf)
}

// Connect opens network connection to Client to server. Context lifetime is only meant for this call.
// ctx is to be used for to cancel connection attempt.
//
// `address` is `[network://]host:port`. The default dialer splits off an optional `network://`
// prefix and hands network and host:port to net.Dialer, so only networks net.Dial supports work.
// Example:
// * `127.0.0.1:502` (library defaults to `tcp` as network)
// * `udp://127.0.0.1:502`
// Serial device paths such as `/dev/ttyS0` are not opened by the default dialer.
func (c *Client) Connect(ctx context.Context, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx, address)
}

// connectLocked is Connect's body, factored out so the Immediate-reconnect-before-submit path in
// Do and the read loop's reconnection-strategy trigger can reconnect without re-acquiring c.mu
// (both already hold it, or acquire it themselves before calling in).
func (c *Client) connectLocked(ctx context.Context, address string) error {
	if err := c.state.transition(StateConnecting); err != nil {
		return err
	}
	conn, err := c.dialContextFunc(ctx, address)
	if err != nil {
		_ = c.state.transition(StateDisconnected)
		return err
	}
	c.conn = conn
	c.address = address

	if c.pipelineCfg != nil {
		cfg := *c.pipelineCfg
		// conn is captured by value here (this connectLocked call's own dial result), not read
		// back off c.conn, so a pipeline never writes to a connection a later reconnect replaced.
		cfg.WriteFrame = func(transactionID uint16, pdu []byte) error {
			return c.writeFrame(conn, transactionID, pdu)
		}
		c.pipeline = newTransactionPipeline(cfg)
		c.readerDone = make(chan struct{})
		go c.readLoop(conn, c.pipeline, c.readerDone)
	}

	if err := c.state.transition(StateConnected); err != nil {
		return err
	}
	return nil
}

// writeFrame encodes one PDU as a full ADU for this client's transport (MBAP for TCP, RTU for
// serial line) and writes it to conn. Used by the pipeline in pipelined mode; conn is whichever
// connection the pipeline was created for, not necessarily c.conn's current value.
func (c *Client) writeFrame(conn net.Conn, transactionID uint16, pdu []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// pdu here is unitID||functionCode||payload, as handed to Submit by Do; unitID travels
	// alongside the bare PDU because EncodeMBAP/EncodeRTU place it in a distinct wire field.
	unitID := pdu[0]
	bare := pdu[1:]

	var frame []byte
	if c.isMBAP {
		frame = transport.EncodeMBAP(transactionID, unitID, bare)
	} else {
		frame = transport.EncodeRTU(unitID, bare)
	}
	if err := conn.SetWriteDeadline(c.timeNow().Add(c.writeTimeout)); err != nil {
		return err
	}
	if c.hooks != nil {
		c.hooks.BeforeWrite(frame)
	}
	_, err := conn.Write(frame)
	return err
}

// readLoop is the pipelined-mode receive task: one long-lived goroutine per connection that reads
// bytes off the wire, frames them, and delivers completions to the pipeline by transaction id
// (MBAP) or to the single outstanding transaction (RTU).
func (c *Client) readLoop(conn net.Conn, p *transactionPipeline, done chan struct{}) {
	defer close(done)
	if c.isMBAP {
		c.readLoopMBAP(conn, p)
	} else {
		c.readLoopRTU(conn, p)
	}
}

func (c *Client) readLoopMBAP(conn net.Conn, p *transactionPipeline) {
	var dec transport.MBAPDecoder
	buf := make([]byte, 4096)
	for {
		select {
		case <-p.closedCh:
			return
		default:
		}
		_ = conn.SetReadDeadline(c.timeNow().Add(200 * time.Millisecond))
		n, err := conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				frame, ok, decErr := dec.Next()
				if decErr != nil {
					c.logger.Warn("modbus: framing error in read loop", "error", decErr)
					break
				}
				if !ok {
					break
				}
				var completeErr error
				if errPacket := c.asProtocolErrorFunc(transport.EncodeMBAP(frame.TransactionID, frame.UnitID, frame.PDU)); errPacket != nil {
					completeErr = MarkException(errPacket)
				}
				p.Complete(frame.TransactionID, frame.UnitID, frame.PDU, completeErr)
			}
		}
		p.Sweep(c.timeNow())
		if p.IsIdle(c.timeNow()) {
			c.logger.Debug("modbus: closing idle connection", "idleTimeout", p.idleTimeout)
			_ = c.Close()
			return
		}
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			if errors.Is(err, io.EOF) {
				c.handleTransportClosed(p)
				return
			}
			c.logger.Warn("modbus: read loop transport error", "error", err)
			c.handleTransportClosed(p)
			return
		}
	}
}

// readLoopRTU accumulates bytes and attempts to parse exactly one RTU frame per pass. RTU carries
// no length prefix, so a bad CRC is resolved by dropping the leading byte and retrying from the
// next one (resynchronizing on a single corrupted byte rather than discarding the whole buffer).
func (c *Client) readLoopRTU(conn net.Conn, p *transactionPipeline) {
	var acc []byte
	buf := make([]byte, 4096)
	for {
		select {
		case <-p.closedCh:
			return
		default:
		}
		_ = conn.SetReadDeadline(c.timeNow().Add(200 * time.Millisecond))
		n, err := conn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			for len(acc) > 0 {
				frame, consumed, parseErr := transport.TryParseRTU(acc)
				if parseErr == nil {
					acc = acc[consumed:]
					var completeErr error
					if errPacket := c.asProtocolErrorFunc(transport.EncodeRTU(frame.UnitID, frame.PDU)); errPacket != nil {
						completeErr = MarkException(errPacket)
					}
					p.Complete(0, frame.UnitID, frame.PDU, completeErr)
					break
				}
				if errors.Is(parseErr, transport.ErrBadFrame) {
					acc = acc[1:]
					continue
				}
				// ErrNeedMore (or anything else): wait for the next read
				break
			}
		}
		p.Sweep(c.timeNow())
		if p.IsIdle(c.timeNow()) {
			c.logger.Debug("modbus: closing idle connection", "idleTimeout", p.idleTimeout)
			_ = c.Close()
			return
		}
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			if errors.Is(err, io.EOF) {
				c.handleTransportClosed(p)
				return
			}
			c.logger.Warn("modbus: read loop transport error", "error", err)
			c.handleTransportClosed(p)
			return
		}
	}
}

// handleTransportClosed moves the connection straight to Disconnected (skipping Disconnecting,
// per the lifecycle's transport-error edge), fails every outstanding transaction with
// ErrTransportClosed so pending Submit calls do not wait out their own timeout, and then triggers
// the pipeline's configured reconnection strategy.
func (c *Client) handleTransportClosed(p *transactionPipeline) {
	c.mu.Lock()
	_ = c.state.transition(StateDisconnected)
	address := c.address
	c.mu.Unlock()

	p.FailAll(ErrTransportClosed)

	switch p.reconnect.Strategy {
	case ReconnectImmediate:
		c.reconnect(address)
	case ReconnectExponentialBackoff:
		delay := p.reconnect.Initial
		if delay <= 0 {
			delay = 100 * time.Millisecond
		}
		go func() {
			time.Sleep(delay)
			c.reconnect(address)
		}()
	}
}

// reconnect re-dials address if the connection is still Disconnected. Used by
// handleTransportClosed; a no-op if something else (e.g. a concurrent Connect) already moved the
// state on.
func (c *Client) reconnect(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Get() != StateDisconnected {
		return
	}
	if err := c.connectLocked(context.Background(), address); err != nil {
		c.logger.Warn("modbus: reconnect failed", "error", err)
	}
}

func dialContext(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{
		// Timeout is the maximum amount of time a dial will wait for a connect to complete.
		Timeout: defaultConnectTimeout,
		// KeepAlive specifies the interval between keep-alive probes for an active network connection.
		KeepAlive: 15 * time.Second,
	}
	network, addr := addressExtractor(address)
	return dialer.DialContext(ctx, network, addr)
}

func addressExtractor(address string) (string, string) {
	network, addr, ok := strings.Cut(address, "://")
	if !ok {
		return "tcp", address
	}
	return network, addr
}

// Close closes network connection to Modbus server
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	_ = c.state.transition(StateDisconnecting)
	if c.pipeline != nil {
		c.pipeline.Close()
	}
	err := c.conn.Close()
	_ = c.state.transition(StateDisconnected)
	return err
}

// State returns the client's current connection lifecycle state.
func (c *Client) State() ConnState {
	return c.state.Get()
}

// ClientError indicates errors returned by Client that network related and are possibly retryable
type ClientError struct {
	Err error
}

// Error returns contained error message
func (e *ClientError) Error() string { return e.Err.Error() }

// Unwrap allows unwrapping errors with errors.Is and errors.As
func (e *ClientError) Unwrap() error { return e.Err }

// Do sends given Modbus request to modbus server and returns parsed Response.
// ctx is to be used for to cancel connection attempt.
// On modbus exception nil is returned as response and error wraps value of type packet.ErrorResponseTCP or packet.ErrorResponseRTU
// User errors.Is and errors.As to check if error wraps packet.ErrorResponseTCP or packet.ErrorResponseRTU
func (c *Client) Do(ctx context.Context, req packet.Request) (packet.Response, error) {
	c.mu.Lock()

	if req == nil {
		c.mu.Unlock()
		return nil, errors.New("request can not be nil")
	}

	if err := c.state.requireConnected(); err != nil {
		// A submit against a connection that isn't Connected normally fails immediately, except
		// when the reconnection strategy is Immediate: then reconnect synchronously before
		// submitting instead of failing outright.
		if c.pipelineCfg == nil || c.pipelineCfg.Reconnect.Strategy != ReconnectImmediate {
			c.mu.Unlock()
			return nil, err
		}
		if cerr := c.connectLocked(ctx, c.address); cerr != nil {
			c.mu.Unlock()
			return nil, cerr
		}
	}

	// In pipelined mode the round trip is released from c.mu entirely: Submit multiplexes several
	// requests over one connection by transaction id and blocks until its own response arrives, so
	// holding c.mu across it would serialize every Do call and defeat MaxInFlight>1. The pipeline
	// pointer is captured while still locked so a concurrent reconnect swapping it in Connect can't
	// race this call.
	if p := c.pipeline; p != nil {
		c.mu.Unlock()
		return c.doPipelined(ctx, p, req)
	}

	defer c.mu.Unlock()
	resp, err := c.do(ctx, req.Bytes(), req.ExpectedResponseLength())
	if err != nil {
		return nil, err
	}
	if c.hooks != nil {
		c.hooks.BeforeParse(resp)
	}
	return c.parseResponseFunc(resp)
}

// doPipelined submits req through the transaction pipeline instead of the strictly-serial path,
// allowing several requests to be outstanding at once (MBAP) or simply benefiting from the
// pipeline's timeout/retry/reconnect handling (RTU/ASCII, where MaxInFlight is forced to 1). Called
// with c.mu already released: isMBAP, hooks and parseResponseFunc are fixed at construction time,
// so reading them here without the lock is safe, and p is the pipeline instance captured by Do.
//
// The pipeline only knows about unitID||functionCode||payload; this strips the wire framing
// (MBAP header / RTU CRC) from req.Bytes() before Submit, and rebuilds a minimal ADU that
// c.parseResponseFunc can decode unchanged from the pipeline's result.
func (c *Client) doPipelined(ctx context.Context, p *transactionPipeline, req packet.Request) (packet.Response, error) {
	full := req.Bytes()
	var unitIDAndPDU []byte
	if c.isMBAP {
		if len(full) < 8 {
			return nil, &ClientError{Err: errors.New("request too short for MBAP framing")}
		}
		// full[6] is unit id, full[7:] is function code + payload
		unitIDAndPDU = full[6:]
	} else {
		if len(full) < 4 {
			return nil, &ClientError{Err: errors.New("request too short for RTU framing")}
		}
		// full[0] is unit id, full[1:len-2] is function code + payload, last 2 bytes are CRC
		unitIDAndPDU = full[:len(full)-2]
	}

	unitID, respPDU, err := p.Submit(ctx, unitIDAndPDU)
	if err != nil {
		return nil, err
	}

	var resp []byte
	if c.isMBAP {
		resp = transport.EncodeMBAP(0, unitID, respPDU)
	} else {
		resp = transport.EncodeRTU(unitID, respPDU)
	}
	if c.hooks != nil {
		c.hooks.BeforeParse(resp)
	}
	return c.parseResponseFunc(resp)
}

func (c *Client) do(ctx context.Context, data []byte, expectedLen int) ([]byte, error) {
	if err := c.conn.SetWriteDeadline(c.timeNow().Add(c.writeTimeout)); err != nil {
		return nil, err
	}
	if c.hooks != nil {
		c.hooks.BeforeWrite(data)
	}
	if _, err := c.conn.Write(data); err != nil {
		return nil, &ClientError{Err: err}
	}

	// make buffer a little bit bigger than would be valid to see problems when somehow more bytes are sent
	const maxBytes = tcpPacketMaxLen + 10
	received := [maxBytes]byte{}
	total := 0
	readTimeout := time.After(c.readTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-readTimeout:
			return nil, &ClientError{Err: errors.New("total read timeout exceeded")}
		default:
		}

		_ = c.conn.SetReadDeadline(c.timeNow().Add(500 * time.Microsecond)) // max 0.5ms block time for read per iteration
		n, err := c.conn.Read(received[total:maxBytes])
		if c.hooks != nil {
			c.hooks.AfterEachRead(received[total:total+n], n, err)
		}
		// on read errors we do not return immediately as for:
		// os.ErrDeadlineExceeded - we set new deadline on next iteration
		// io.EOF - we check if read + received is enough to form complete packet
		if err != nil && !(errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF)) {
			return nil, &ClientError{Err: err}
		}
		total += n
		if total > tcpPacketMaxLen {
			return nil, ErrPacketTooLong
		}
		// check if we have exactly the error packet. Error packets are shorter than regulars packets
		if errPacket := c.asProtocolErrorFunc(received[0:total]); errPacket != nil {
			return nil, &ClientError{Err: errPacket}
		}
		if total >= expectedLen {
			break
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	if total == 0 {
		return nil, &ClientError{Err: errors.New("no bytes received")}
	}

	result := make([]byte, total)
	copy(result, received[:total])
	return result, nil
}
