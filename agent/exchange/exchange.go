// Package exchange routes typed requests between callers and service
// actors inside one process. Every registered actor gets a mailbox and a
// single goroutine consuming it, so an actor processes requests one at a
// time; long running work must be scheduled by the actor itself instead of
// blocking its mailbox.
package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/lainio/err2"

	"github.com/vanir-network/vanir-agency/agent/mesg"
)

const mailboxSize = 64

// Handler is the actor side of the exchange contract: one typed request
// in, one typed response out. A nil response means the actor did not
// recognize the request; the exchange then closes the reply without a
// value.
type Handler interface {
	Process(req mesg.Request) mesg.Response
}

type envelope struct {
	req   mesg.Request
	reply chan mesg.Response
}

// Exchange owns the mailboxes. Stop it to terminate all actor goroutines.
type Exchange struct {
	mu     sync.Mutex
	boxes  map[string]chan envelope
	done   chan struct{}
	closed bool
}

func New() *Exchange {
	return &Exchange{
		boxes: make(map[string]chan envelope),
		done:  make(chan struct{}),
	}
}

// Register connects a handler to the exchange under a name and starts its
// consumer goroutine. A duplicate name is a programming error.
func (x *Exchange) Register(name string, h Handler) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.boxes[name]; ok {
		return fmt.Errorf("service already registered: %s", name)
	}
	box := make(chan envelope, mailboxSize)
	x.boxes[name] = box
	go x.consume(name, box, h)
	return nil
}

func (x *Exchange) consume(name string, box chan envelope, h Handler) {
	for {
		select {
		case <-x.done:
			return
		case env := <-box:
			resp := process(name, h, env.req)
			if resp == nil {
				// unknown request variant, tolerated no-op
				glog.V(1).Infoln(name, "ignored request:",
					fmt.Sprintf("%T", env.req))
				close(env.reply)
				continue
			}
			env.reply <- resp
			close(env.reply)
		}
	}
}

// process shields the mailbox goroutine from thrown errors: a handler
// fault becomes a Fail reply instead of killing the consumer.
func process(name string, h Handler, req mesg.Request) (resp mesg.Response) {
	defer err2.Catch(func(err error) error {
		glog.Warningf("%s: request %T failed: %v", name, req, err)
		resp = mesg.Fail{Msg: err.Error()}
		return nil
	})
	return h.Process(req)
}

// Call sends a request to the named actor and waits for the reply. The
// returned response is nil without error when the actor ignored the
// request variant.
func (x *Exchange) Call(ctx context.Context, target string, req mesg.Request) (resp mesg.Response, err error) {
	x.mu.Lock()
	box, ok := x.boxes[target]
	x.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown service: %s", target)
	}

	env := envelope{req: req, reply: make(chan mesg.Response, 1)}
	select {
	case box <- env:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-x.done:
		return nil, fmt.Errorf("exchange stopped")
	}

	select {
	case resp = <-env.reply:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-x.done:
		return nil, fmt.Errorf("exchange stopped")
	}
}

// Stop terminates every actor goroutine. Pending calls return an error.
func (x *Exchange) Stop() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.closed {
		x.closed = true
		close(x.done)
	}
}
