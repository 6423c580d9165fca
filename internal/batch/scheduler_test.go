package batch

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pagesmith/internal/job"
	"pagesmith/internal/llmclient"
	"pagesmith/internal/session"
)

const gaugeDoc = `<!DOCTYPE html>
<html><head><title>t</title></head><body><p>long enough body to pass the structural check</p></body></html>`

// gaugeClient tracks how many calls are in flight at once.
type gaugeClient struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	failIDs  map[string]bool
	mu       sync.Mutex
	order    []string
}

func (g *gaugeClient) Name() string { return "gauge" }

func (g *gaugeClient) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	cur := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if cur <= p || g.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	g.mu.Lock()
	g.order = append(g.order, req.Prompt)
	g.mu.Unlock()

	if g.failIDs[req.Prompt] {
		return "", &llmclient.ServiceError{Message: "boom"}
	}
	return gaugeDoc, nil
}

func (g *gaugeClient) GenerateStream(ctx context.Context, req llmclient.Request, onChunk func(string)) (string, error) {
	text, err := g.Generate(ctx, req)
	if err == nil {
		onChunk(text)
	}
	return text, err
}

func (g *gaugeClient) Close() error { return nil }

func makeJobs(cli llmclient.Client, n int, settle func(id string, st session.Status)) []*job.Job {
	jobs := make([]*job.Job, 0, n)
	for i := 0; i < n; i++ {
		id := "a" + string(rune('1'+i))
		jobs = append(jobs, &job.Job{
			TargetID: id,
			Request:  llmclient.Request{Prompt: id},
			Client:   cli,
			OnSettle: func(st session.Status, _, _ string) { settle(id, st) },
			Logger:   zerolog.Nop(),
		})
	}
	return jobs
}

func TestRunNeverExceedsWidth(t *testing.T) {
	cli := &gaugeClient{}
	var mu sync.Mutex
	settled := map[string]session.Status{}

	jobs := makeJobs(cli, 7, func(id string, st session.Status) {
		mu.Lock()
		settled[id] = st
		mu.Unlock()
	})
	Run(context.Background(), jobs, Options{
		Width:  3,
		Retry:  llmclient.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond},
		Logger: zerolog.Nop(),
	})

	if peak := cli.peak.Load(); peak > 3 {
		t.Fatalf("peak concurrency = %d, want <= 3", peak)
	}
	if len(settled) != 7 {
		t.Fatalf("settled = %d, want 7", len(settled))
	}
}

func TestRunFailureDoesNotAbortSiblings(t *testing.T) {
	cli := &gaugeClient{failIDs: map[string]bool{"a2": true}}
	var mu sync.Mutex
	settled := map[string]session.Status{}

	jobs := makeJobs(cli, 4, func(id string, st session.Status) {
		mu.Lock()
		settled[id] = st
		mu.Unlock()
	})
	Run(context.Background(), jobs, Options{
		Width:  2,
		Retry:  llmclient.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond},
		Logger: zerolog.Nop(),
	})

	if len(settled) != 4 {
		t.Fatalf("settled = %d, want 4", len(settled))
	}
	if settled["a2"] != session.StatusError {
		t.Fatalf("a2 = %s, want error", settled["a2"])
	}
	for _, id := range []string{"a1", "a3", "a4"} {
		if settled[id] != session.StatusComplete {
			t.Fatalf("%s = %s, want complete", id, settled[id])
		}
	}
}

func TestRunGroupsAreSequential(t *testing.T) {
	cli := &gaugeClient{}
	jobs := makeJobs(cli, 4, func(string, session.Status) {})
	Run(context.Background(), jobs, Options{
		Width:  2,
		Retry:  llmclient.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond},
		Logger: zerolog.Nop(),
	})

	firstGroup := strings.Join(cli.order[:2], ",")
	if strings.Contains(firstGroup, "a3") || strings.Contains(firstGroup, "a4") {
		t.Fatalf("second group started before first finished: %v", cli.order)
	}
}

func TestRunStopsLaunchingAfterCancel(t *testing.T) {
	cli := &gaugeClient{}
	ctx, cancel := context.WithCancel(context.Background())

	var settledCount atomic.Int32
	jobs := makeJobs(cli, 6, func(string, session.Status) {
		settledCount.Add(1)
		cancel()
	})
	Run(ctx, jobs, Options{
		Width:  2,
		Retry:  llmclient.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond},
		Logger: zerolog.Nop(),
	})

	if n := settledCount.Load(); n > 2 {
		t.Fatalf("jobs settled after cancel = %d, want <= 2", n)
	}
}
