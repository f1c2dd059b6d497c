package mutation

import (
	"fmt"
	"time"
)

// Kind classifies a notification for the presentation layer.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
)

func (k Kind) String() string {
	if k == KindError {
		return "error"
	}
	return "success"
}

// Op names the mutation a notification reports on.
type Op string

const (
	OpDelete Op = "delete"
	OpCreate Op = "create"
)

// Notification is emitted once per finished mutation.
type Notification struct {
	Kind      Kind
	Op        Op
	ProductID int64
	Message   string
	At        time.Time
}

func (n Notification) String() string {
	return fmt.Sprintf("%s %s: %s", n.Op, n.Kind, n.Message)
}

// Notifier receives mutation outcomes. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// ChanNotifier buffers notifications on a channel. When the buffer is full the
// oldest entry is dropped so producers never stall.
type ChanNotifier struct {
	ch chan Notification
}

// NewChanNotifier returns a ChanNotifier with room for size notifications.
func NewChanNotifier(size int) *ChanNotifier {
	if size < 1 {
		size = 1
	}
	return &ChanNotifier{ch: make(chan Notification, size)}
}

// C exposes the receive side.
func (c *ChanNotifier) C() <-chan Notification { return c.ch }

func (c *ChanNotifier) Notify(n Notification) {
	for {
		select {
		case c.ch <- n:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}
