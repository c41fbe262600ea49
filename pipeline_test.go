package modbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoWriteFrame(p *transactionPipeline, unitID uint8, respPDU []byte) func(transactionID uint16, pdu []byte) error {
	return func(transactionID uint16, pdu []byte) error {
		go p.Complete(transactionID, unitID, respPDU, nil)
		return nil
	}
}

func TestPipelineSubmitSuccess(t *testing.T) {
	p := newTransactionPipeline(pipelineConfig{MaxInFlight: 2, Timeout: time.Second})
	p.writeFrame = echoWriteFrame(p, 7, []byte{0x03, 0x02, 0x00, 0x01})

	unitID, resp, err := p.Submit(context.Background(), []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01})
	require.NoError(t, err)
	assert.Equal(t, uint8(7), unitID)
	assert.Equal(t, []byte{0x03, 0x02, 0x00, 0x01}, resp)
}

func TestPipelineSubmitConcurrent(t *testing.T) {
	p := newTransactionPipeline(pipelineConfig{MaxInFlight: 4, Timeout: time.Second})
	p.writeFrame = echoWriteFrame(p, 1, []byte{0x03, 0x00})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := p.Submit(context.Background(), []byte{0x01, 0x03})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestPipelineSubmitTimeout(t *testing.T) {
	p := newTransactionPipeline(pipelineConfig{
		MaxInFlight: 1,
		Timeout:     20 * time.Millisecond,
		WriteFrame: func(transactionID uint16, pdu []byte) error {
			return nil // never completes
		},
	})
	_, _, err := p.Submit(context.Background(), []byte{0x01, 0x03})
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestPipelineSubmitTooManyPending(t *testing.T) {
	release := make(chan struct{})
	p := newTransactionPipeline(pipelineConfig{
		MaxInFlight: 1,
		Timeout:     time.Second,
		WriteFrame: func(transactionID uint16, pdu []byte) error {
			<-release
			return nil
		},
	})

	go func() {
		_, _, _ = p.Submit(context.Background(), []byte{0x01, 0x03})
	}()
	time.Sleep(20 * time.Millisecond) // let the first Submit grab the only permit

	_, _, err := p.submitOnce(context.Background(), []byte{0x01, 0x03})
	assert.ErrorIs(t, err, ErrTooManyPending)
	close(release)
}

func TestPipelineSubmitRetriesOnTransportErrorThenSucceeds(t *testing.T) {
	var attempts int
	p := newTransactionPipeline(pipelineConfig{
		MaxInFlight: 1,
		Timeout:     time.Second,
		MaxRetries:  2,
	})
	p.writeFrame = func(transactionID uint16, pdu []byte) error {
		attempts++
		if attempts < 2 {
			return errors.New("simulated write failure")
		}
		go p.Complete(transactionID, 3, []byte{0x03}, nil)
		return nil
	}

	unitID, resp, err := p.Submit(context.Background(), []byte{0x01, 0x03})
	require.NoError(t, err)
	assert.Equal(t, uint8(3), unitID)
	assert.Equal(t, []byte{0x03}, resp)
	assert.Equal(t, 2, attempts)
}

func TestPipelineSubmitExceptionNotRetried(t *testing.T) {
	attempts := 0
	p := newTransactionPipeline(pipelineConfig{MaxInFlight: 1, Timeout: time.Second, MaxRetries: 3})
	wantErr := MarkException(errors.New("illegal function"))
	p.writeFrame = func(transactionID uint16, pdu []byte) error {
		attempts++
		go p.Complete(transactionID, 1, nil, wantErr)
		return nil
	}

	_, _, err := p.Submit(context.Background(), []byte{0x01, 0x03})
	assert.ErrorIs(t, err, errExceptionResponse)
	assert.Equal(t, 1, attempts)
}

func TestPipelineCloseFailsPendingSubmit(t *testing.T) {
	p := newTransactionPipeline(pipelineConfig{
		MaxInFlight: 1,
		Timeout:     time.Second,
		WriteFrame: func(transactionID uint16, pdu []byte) error {
			return nil // never completes
		},
	})

	done := make(chan error, 1)
	go func() {
		_, _, err := p.Submit(context.Background(), []byte{0x01, 0x03})
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	p.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrPipelineClosed)
	case <-time.After(time.Second):
		t.Fatal("Submit did not return after Close")
	}
}

func TestPipelineSweepExpiresStaleTransaction(t *testing.T) {
	p := newTransactionPipeline(pipelineConfig{MaxInFlight: 1, Timeout: time.Hour})
	p.writeFrame = func(transactionID uint16, pdu []byte) error { return nil }

	done := make(chan error, 1)
	go func() {
		_, _, err := p.Submit(context.Background(), []byte{0x01, 0x03})
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)

	p.mu.Lock()
	for _, pending := range p.table {
		pending.deadline = time.Now().Add(-time.Second)
	}
	p.mu.Unlock()
	p.Sweep(time.Now())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrRequestTimeout)
	case <-time.After(time.Second):
		t.Fatal("Sweep did not expire the pending transaction")
	}
}

func TestNextTransactionIDWrapsAndSkipsZero(t *testing.T) {
	p := newTransactionPipeline(pipelineConfig{MaxInFlight: 1})
	p.nextID = 65535
	assert.Equal(t, uint16(1), p.nextTransactionID())
	assert.Equal(t, uint16(2), p.nextTransactionID())
}
