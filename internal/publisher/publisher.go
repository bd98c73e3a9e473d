// Package publisher pushes one status to the remote endpoint per call. Calls
// are independent: there is no queue, no coalescing and no retry, the next
// tick simply sends a fresher status.
package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/QwQ-dev/LiveStatus/pkg/status"
)

const (
	DefaultTimeout = 30 * time.Second

	stageTimeout = 10 * time.Second
	contentType  = "application/json; charset=utf-8"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Target supplies the endpoint and credential, read again on every publish.
type Target interface {
	URL() string
	AuthKey() string
}

// FailureLog records deliveries that did not succeed.
type FailureLog interface {
	Record(o Outcome)
}

type OutcomeKind int

const (
	OutcomeSent OutcomeKind = iota
	OutcomeRejected
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSent:
		return "sent"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransportError:
		return "transport"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the completion event of one publish.
type Outcome struct {
	Kind   OutcomeKind
	Status status.Status
	Code   int
	Err    error
}

// Message is the indicator text for the outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeSent:
		return "Reporting: " + o.Status.AppName
	case OutcomeRejected:
		return fmt.Sprintf("Server error: %d", o.Code)
	default:
		return "Connection error"
	}
}

// Publisher sends statuses with an HTTP PUT.
type Publisher struct {
	client   Doer
	target   Target
	timeout  time.Duration
	failures FailureLog

	wg sync.WaitGroup
}

// Option configures a Publisher
type Option func(*Publisher)

// WithClient replaces the default HTTP client.
func WithClient(client Doer) Option {
	return func(p *Publisher) { p.client = client }
}

// WithTimeout sets the overall deadline of one publish.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Publisher) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithFailureLog records rejected and failed deliveries.
func WithFailureLog(failures FailureLog) Option {
	return func(p *Publisher) { p.failures = failures }
}

func New(target Target, opts ...Option) *Publisher {
	p := &Publisher{
		target:  target,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = NewClient(p.timeout)
	}
	return p
}

// NewClient returns a client with the per-stage timeouts of the reporter:
// connect, TLS handshake and response headers each get 10s under an overall
// deadline of timeout.
func NewClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   stageTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   stageTimeout,
		ResponseHeaderTimeout: stageTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          2,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Publish sends st in the background and returns immediately. done runs on
// the sending goroutine once the request finishes. When the endpoint or key
// is not configured nothing is sent and done is never called.
func (p *Publisher) Publish(st status.Status, done func(Outcome)) {
	url, key := p.target.URL(), p.target.AuthKey()
	if url == "" || key == "" {
		log.Println("Warning: server URL or auth key not configured, status not sent")
		return
	}

	body, err := st.Encode()
	if err != nil {
		log.Printf("Failed to encode status %s: %v", st, err)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		outcome := p.send(url, key, st, body)
		if outcome.Kind != OutcomeSent && p.failures != nil {
			p.failures.Record(outcome)
		}
		if done != nil {
			done(outcome)
		}
	}()
}

// Wait blocks until every in-flight publish has completed.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

func (p *Publisher) send(url, key string, st status.Status, body []byte) Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("Failed to send status: %v", err)
		return Outcome{Kind: OutcomeTransportError, Status: st, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", key)

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("Failed to send status: %v", err)
		return Outcome{Kind: OutcomeTransportError, Status: st, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("Server returned error: %d", resp.StatusCode)
		return Outcome{Kind: OutcomeRejected, Status: st, Code: resp.StatusCode}
	}

	log.Printf("Sent status: %s", st)
	return Outcome{Kind: OutcomeSent, Status: st, Code: resp.StatusCode}
}
