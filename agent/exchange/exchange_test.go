package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lainio/err2/try"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanir-network/vanir-agency/agent/mesg"
)

// echoHandler answers status queries and ignores everything else.
type echoHandler struct{}

func (echoHandler) Process(req mesg.Request) mesg.Response {
	switch req := req.(type) {
	case mesg.WalletStatusReq:
		return mesg.WalletStatus{ID: req.ID, Created: true}
	case mesg.SyncReq:
		return mesg.Ack{}
	}
	return nil
}

func TestCall(t *testing.T) {
	x := New()
	defer x.Stop()
	require.NoError(t, x.Register("agency", echoHandler{}))

	resp, err := x.Call(context.Background(), "agency",
		mesg.WalletStatusReq{ID: "w1"})
	require.NoError(t, err)
	status, ok := resp.(mesg.WalletStatus)
	require.True(t, ok)
	assert.Equal(t, "w1", status.ID)
	assert.True(t, status.Created)
}

func TestRegisterDuplicate(t *testing.T) {
	x := New()
	defer x.Stop()
	require.NoError(t, x.Register("agency", echoHandler{}))
	assert.Error(t, x.Register("agency", echoHandler{}))
}

func TestCallUnknownTarget(t *testing.T) {
	x := New()
	defer x.Stop()

	_, err := x.Call(context.Background(), "nobody", mesg.SyncReq{})
	assert.Error(t, err)
}

func TestIgnoredRequestIsSilentNoOp(t *testing.T) {
	x := New()
	defer x.Stop()
	require.NoError(t, x.Register("agency", echoHandler{}))

	resp, err := x.Call(context.Background(), "agency", mesg.LedgerStatusReq{})
	require.NoError(t, err)
	assert.Nil(t, resp)
}

// faultyHandler throws instead of returning an error.
type faultyHandler struct{}

func (faultyHandler) Process(mesg.Request) mesg.Response {
	try.To(errors.New("key material unavailable"))
	return mesg.Ack{}
}

func TestHandlerFaultBecomesFail(t *testing.T) {
	x := New()
	defer x.Stop()
	require.NoError(t, x.Register("agency", faultyHandler{}))

	resp, err := x.Call(context.Background(), "agency", mesg.SyncReq{})
	require.NoError(t, err)
	fail, ok := resp.(mesg.Fail)
	require.True(t, ok)
	assert.Contains(t, fail.Msg, "key material unavailable")

	// the consumer goroutine survives the fault
	resp, err = x.Call(context.Background(), "agency", mesg.SyncReq{})
	require.NoError(t, err)
	assert.IsType(t, mesg.Fail{}, resp)
}

func TestCallAfterStop(t *testing.T) {
	x := New()
	require.NoError(t, x.Register("agency", echoHandler{}))
	x.Stop()
	x.Stop() // second stop is a no-op

	_, err := x.Call(context.Background(), "agency", mesg.SyncReq{})
	assert.Error(t, err)
}

func TestCallContextCancel(t *testing.T) {
	x := New()
	defer x.Stop()

	// a full mailbox with no consumer blocks the send until the deadline
	block := make(chan envelope)
	x.mu.Lock()
	x.boxes["stuck"] = block
	x.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := x.Call(ctx, "stuck", mesg.SyncReq{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
