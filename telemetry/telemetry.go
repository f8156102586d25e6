// Package telemetry is a small in-process publish/subscribe bus for state,
// battery and fault reports. Topics are token paths; subscriptions may use
// "+" (one token) and "#" (the rest, including none). Retained messages are
// replayed to late subscribers. Slow subscribers lose their oldest message,
// publishers never block.
package telemetry

import (
	"context"
	"strings"
	"sync"
)

const (
	SingleWild = "+"
	MultiWild  = "#"
)

// Topic is a sequence of tokens.
type Topic []string

func (t Topic) String() string { return strings.Join(t, "/") }

// Parse splits "a/b/c" into a Topic.
func Parse(s string) Topic {
	if s == "" {
		return nil
	}
	return Topic(strings.Split(s, "/"))
}

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	pattern Topic
	ch      chan *Message
	conn    *Connection
	closed  bool // guarded by Bus.mu
}

func (s *Subscription) Topic() Topic             { return s.pattern }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

type node struct {
	children map[string]*node
	subs     []*Subscription
}

type Bus struct {
	mu       sync.Mutex
	root     *node
	retained map[string]*Message
	qLen     int
}

// New creates a bus whose subscriptions buffer queueLen messages.
func New(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{root: &node{}, retained: make(map[string]*Message), qLen: queueLen}
}

func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// Publish delivers msg to every matching subscription. A retained message
// with a nil payload clears the retained value for its topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		key := msg.Topic.String()
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
	}
	b.deliver(b.root, msg, 0)
}

func (b *Bus) deliver(n *node, msg *Message, i int) {
	if i == len(msg.Topic) {
		for _, s := range n.subs {
			push(s.ch, msg)
		}
		// "a/#" also matches "a".
		if h := n.children[MultiWild]; h != nil {
			for _, s := range h.subs {
				push(s.ch, msg)
			}
		}
		return
	}
	if c := n.children[msg.Topic[i]]; c != nil {
		b.deliver(c, msg, i+1)
	}
	if c := n.children[SingleWild]; c != nil {
		b.deliver(c, msg, i+1)
	}
	if c := n.children[MultiWild]; c != nil {
		for _, s := range c.subs {
			push(s.ch, msg)
		}
	}
}

// push never blocks: when the queue is full the oldest message is dropped.
func push(ch chan *Message, msg *Message) {
	select {
	case ch <- msg:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- msg:
	default:
	}
}

// Retained returns the retained message for an exact topic.
func (b *Bus) Retained(t Topic) (*Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.retained[t.String()]
	return m, ok
}

func (b *Bus) add(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.pattern {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		c, ok := n.children[tok]
		if !ok {
			c = &node{}
			n.children[tok] = c
		}
		n = c
	}
	n.subs = append(n.subs, sub)

	for _, m := range b.retained {
		if Match(sub.pattern, m.Topic) {
			push(sub.ch, m)
		}
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true

	n := b.root
	path := make([]*node, 0, len(sub.pattern)+1)
	path = append(path, n)
	for _, tok := range sub.pattern {
		n = n.children[tok]
		if n == nil {
			close(sub.ch)
			return
		}
		path = append(path, n)
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	// Prune empty nodes bottom-up.
	for i := len(sub.pattern) - 1; i >= 0; i-- {
		c := path[i+1]
		if len(c.subs) != 0 || len(c.children) != 0 {
			break
		}
		delete(path[i].children, sub.pattern[i])
	}
	close(sub.ch)
}

// Match reports whether topic t matches pattern p.
func Match(p, t Topic) bool {
	for i, tok := range p {
		if tok == MultiWild {
			return true
		}
		if i >= len(t) {
			return false
		}
		if tok != SingleWild && tok != t[i] {
			return false
		}
	}
	return len(p) == len(t)
}

// Connection groups the subscriptions of one component so they can be
// released together.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(pattern Topic) *Subscription {
	sub := &Subscription{pattern: pattern, ch: make(chan *Message, c.bus.qLen), conn: c}
	c.bus.add(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.remove(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// Disconnect releases every subscription of the connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		c.bus.remove(s)
	}
}

// Pump calls fn for every message on sub until ctx ends or the subscription
// is closed.
func Pump(ctx context.Context, sub *Subscription, fn func(*Message)) {
	for {
		select {
		case m, ok := <-sub.Channel():
			if !ok {
				return
			}
			fn(m)
		case <-ctx.Done():
			return
		}
	}
}
