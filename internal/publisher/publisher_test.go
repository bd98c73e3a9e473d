package publisher

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QwQ-dev/LiveStatus/internal/models"
	"github.com/QwQ-dev/LiveStatus/pkg/status"
)

type staticTarget struct {
	url, key string
}

func (t staticTarget) URL() string {
	return t.url
}

func (t staticTarget) AuthKey() string {
	return t.key
}

type countingDoer struct {
	calls atomic.Int32
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return nil, errors.New("unexpected call")
}

type recordingFailures struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recordingFailures) Record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingFailures) All() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome{}, r.outcomes...)
}

func publishAndWait(t *testing.T, p *Publisher, st status.Status) Outcome {
	t.Helper()

	got := make(chan Outcome, 1)
	p.Publish(st, func(o Outcome) { got <- o })

	select {
	case o := <-got:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("publish did not complete")
		return Outcome{}
	}
}

type capturedRequest struct {
	method, auth, ctype string
	body                []byte
}

func TestPublishRequest(t *testing.T) {
	captured := make(chan capturedRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured <- capturedRequest{
			method: r.Method,
			auth:   r.Header.Get("Authorization"),
			ctype:  r.Header.Get("Content-Type"),
			body:   body,
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(staticTarget{srv.URL, "k"})
	o := publishAndWait(t, p, status.New("com.example.app", "Example"))

	assert.Equal(t, OutcomeSent, o.Kind)
	assert.Equal(t, "Reporting: Example", o.Message())

	req := <-captured
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "k", req.auth)
	assert.Equal(t, "application/json; charset=utf-8", req.ctype)
	assert.JSONEq(t,
		`{"title":"com.example.app","app_name":"Example","os_name":"`+status.Platform+`","force_status_type":"N/A"}`,
		string(req.body))
}

func TestPublishRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	failures := &recordingFailures{}
	p := New(staticTarget{srv.URL, "k"}, WithFailureLog(failures))
	o := publishAndWait(t, p, status.Unknown())

	assert.Equal(t, OutcomeRejected, o.Kind)
	assert.Equal(t, 503, o.Code)
	assert.Equal(t, "Server error: 503", o.Message())
	require.Len(t, failures.All(), 1)
	assert.Equal(t, OutcomeRejected, failures.All()[0].Kind)
}

func TestPublishTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	failures := &recordingFailures{}
	p := New(staticTarget{url, "k"}, WithFailureLog(failures), WithTimeout(2*time.Second))
	o := publishAndWait(t, p, status.ScreenOff())

	assert.Equal(t, OutcomeTransportError, o.Kind)
	assert.Error(t, o.Err)
	assert.Equal(t, "Connection error", o.Message())
	assert.Len(t, failures.All(), 1)
}

func TestPublishSkippedWhenUnconfigured(t *testing.T) {
	tests := []staticTarget{
		{"", "k"},
		{"http://127.0.0.1:1239/api/status", ""},
		{"", ""},
	}

	for _, target := range tests {
		doer := &countingDoer{}
		p := New(target, WithClient(doer))

		var called atomic.Bool
		p.Publish(status.Unknown(), func(Outcome) { called.Store(true) })
		p.Wait()

		assert.Zero(t, doer.calls.Load(), "target %+v must not reach the network", target)
		assert.False(t, called.Load(), "done must not run for target %+v", target)
	}
}

func TestPublishIsIndependentPerCall(t *testing.T) {
	var requests atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		<-release
	}))
	defer srv.Close()

	p := New(staticTarget{srv.URL, "k"})
	var done atomic.Int32
	for i := 0; i < 3; i++ {
		p.Publish(status.Unknown(), func(Outcome) { done.Add(1) })
	}

	assert.Eventually(t, func() bool { return requests.Load() == 3 }, 2*time.Second, 5*time.Millisecond,
		"publishes must not wait for each other")
	close(release)
	p.Wait()
	assert.Equal(t, int32(3), done.Load())
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "sent", OutcomeSent.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
	assert.Equal(t, "transport", OutcomeTransportError.String())
	assert.Equal(t, "OutcomeKind(9)", OutcomeKind(9).String())
}

type fakeErrorStore struct {
	created []*models.ErrorLog
	pruned  int
	keep    int
}

func (s *fakeErrorStore) CreateErrorLog(e *models.ErrorLog) error {
	s.created = append(s.created, e)
	return nil
}

func (s *fakeErrorStore) PruneErrors(before time.Time, keep int) (int64, error) {
	s.pruned++
	s.keep = keep
	return 0, nil
}

func TestStoreFailureLog(t *testing.T) {
	store := &fakeErrorStore{}
	l := NewStoreFailureLog(store)

	l.Record(Outcome{Kind: OutcomeRejected, Code: 500, Status: status.New("code", "VS Code")})
	l.Record(Outcome{Kind: OutcomeTransportError, Err: errors.New("connection refused"), Status: status.Unknown()})

	require.Len(t, store.created, 2)
	assert.Equal(t, "rejected", store.created[0].Kind)
	assert.Equal(t, 500, store.created[0].StatusCode)
	assert.Equal(t, "VS Code", store.created[0].AppName)
	assert.Equal(t, "Server error: 500", store.created[0].ErrorMsg)
	assert.Equal(t, "connection refused", store.created[1].ErrorMsg)
	assert.Equal(t, 2, store.pruned)
	assert.Equal(t, 500, store.keep)
}
