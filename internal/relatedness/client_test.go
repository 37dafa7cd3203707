package relatedness

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/kgfed/internal/core/scoring"
)

func service(t *testing.T, distances map[string]float64, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)

		var req request
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		var resp response
		for _, p := range req.Pairs {
			d := distance{Input: p.Input, Output: p.Output}
			if v, ok := distances[p.Key()]; ok {
				d.Distance = &v
			}
			resp.Results = append(resp.Results, d)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(url, timeout, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestLookup(t *testing.T) {
	var calls atomic.Int32
	srv := service(t, map[string]float64{"C1-C2": 0.5, "C1-C4": -1}, &calls)
	defer srv.Close()

	c := newClient(t, srv.URL, time.Second)
	pairs := []scoring.Pair{{Input: "C1", Output: "C2"}, {Input: "C1", Output: "C3"}, {Input: "C1", Output: "C4"}}

	table, err := c.Lookup(context.Background(), pairs)
	require.NoError(t, err)
	assert.Equal(t, scoring.RelatednessTable{"C1-C2": 0.5}, table)
	assert.Equal(t, int32(1), calls.Load())

	// known distances are served locally
	table, err = c.Lookup(context.Background(), pairs[:1])
	require.NoError(t, err)
	assert.Equal(t, 0.5, table["C1-C2"])
	assert.Equal(t, int32(1), calls.Load())
}

func TestLookup_Batches(t *testing.T) {
	var calls atomic.Int32
	srv := service(t, map[string]float64{"A-B": 1, "A-C": 2, "A-D": 3}, &calls)
	defer srv.Close()

	c := newClient(t, srv.URL, time.Second)
	c.BatchSize = 2
	table, err := c.Lookup(context.Background(), []scoring.Pair{
		{Input: "A", Output: "B"}, {Input: "A", Output: "C"}, {Input: "A", Output: "D"},
	})
	require.NoError(t, err)
	assert.Len(t, table, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLookup_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, time.Second).Lookup(context.Background(), []scoring.Pair{{Input: "A", Output: "B"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "overloaded")
}

func TestLookup_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newClient(t, srv.URL, 50*time.Millisecond).Lookup(context.Background(), []scoring.Pair{{Input: "A", Output: "B"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLookup_NoPairs(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:0", time.Second)
	table, err := c.Lookup(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestLookup_MemoExpires(t *testing.T) {
	var calls atomic.Int32
	srv := service(t, map[string]float64{"A-B": 1}, &calls)
	defer srv.Close()

	c := newClient(t, srv.URL, time.Second)
	c.MemoTTL = 50 * time.Millisecond
	pairs := []scoring.Pair{{Input: "A", Output: "B"}}

	_, err := c.Lookup(context.Background(), pairs)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	table, err := c.Lookup(context.Background(), pairs)
	require.NoError(t, err)
	assert.Equal(t, 1.0, table["A-B"])
	assert.Equal(t, int32(2), calls.Load())
}

func TestLookup_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var calls atomic.Int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [{"input": "A", "output": "B", "distance": 0.5}]}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 5*time.Second)
	pairs := []scoring.Pair{{Input: "A", Output: "B"}}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Lookup(firstCtx, pairs)
		firstErr <- err
	}()
	<-arrived

	type outcome struct {
		table scoring.RelatednessTable
		err   error
	}
	second := make(chan outcome, 1)
	go func() {
		table, err := c.Lookup(context.Background(), pairs)
		second <- outcome{table, err}
	}()
	// let the second caller join the in-flight request
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 0.5, got.table["A-B"])
	assert.Equal(t, int32(1), calls.Load())
}
