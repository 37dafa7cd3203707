// Package relatedness queries the relatedness (normalized distance) service
// used to weight result scores.
package relatedness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/agenthands/kgfed/internal/core/scoring"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultBatchSize = 1000
	DefaultMemoSize  = 100_000
	DefaultMemoTTL   = time.Hour
)

type request struct {
	Pairs []scoring.Pair `json:"pairs"`
}

type distance struct {
	Input    string   `json:"input"`
	Output   string   `json:"output"`
	Distance *float64 `json:"distance"`
}

type response struct {
	Results []distance `json:"results"`
}

// Client looks up distances for UMLS pairs. Identical concurrent lookups
// share one request, and distances seen recently are served from a bounded
// memo.
type Client struct {
	URL       string
	HTTP      *http.Client
	Timeout   time.Duration
	BatchSize int
	MemoTTL   time.Duration
	Logger    *slog.Logger

	group singleflight.Group
	known *ristretto.Cache[string, float64]
}

// NewClient builds a client whose memo holds at most DefaultMemoSize pairs.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	return NewClientWithMemo(url, timeout, DefaultMemoSize, logger)
}

func NewClientWithMemo(url string, timeout time.Duration, memoSize int64, logger *slog.Logger) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if memoSize <= 0 {
		memoSize = DefaultMemoSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	known, err := ristretto.NewCache(&ristretto.Config[string, float64]{
		NumCounters:        memoSize * 10,
		MaxCost:            memoSize,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create relatedness memo: %w", err)
	}
	return &Client{
		URL:       url,
		HTTP:      &http.Client{},
		Timeout:   timeout,
		BatchSize: DefaultBatchSize,
		MemoTTL:   DefaultMemoTTL,
		Logger:    logger,
		known:     known,
	}, nil
}

// Close releases the memo.
func (c *Client) Close() {
	c.known.Close()
}

// Lookup returns the distances the service knows for pairs. Pairs it has no
// value for are absent from the table.
func (c *Client) Lookup(ctx context.Context, pairs []scoring.Pair) (scoring.RelatednessTable, error) {
	table := make(scoring.RelatednessTable, len(pairs))
	var missing []scoring.Pair

	for _, p := range pairs {
		if d, ok := c.known.Get(p.Key()); ok {
			table[p.Key()] = d
			continue
		}
		missing = append(missing, p)
	}

	for start := 0; start < len(missing); start += c.BatchSize {
		end := min(start+c.BatchSize, len(missing))
		batch := missing[start:end]

		// the shared fetch is not bound to the first caller's cancellation;
		// each caller stops waiting on its own ctx
		shared := context.WithoutCancel(ctx)
		ch := c.group.DoChan(batchKey(batch), func() (any, error) {
			return c.fetch(shared, batch)
		})
		var res singleflight.Result
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res = <-ch:
		}
		if res.Err != nil {
			return nil, res.Err
		}
		fetched, ok := res.Val.(scoring.RelatednessTable)
		if !ok {
			return nil, fmt.Errorf("unexpected type from relatedness lookup: %T", res.Val)
		}
		if res.Shared {
			c.Logger.Debug("relatedness lookup shared", slog.Int("pairs", len(batch)))
		}
		for k, d := range fetched {
			table[k] = d
		}
	}
	return table, nil
}

func (c *Client) fetch(ctx context.Context, pairs []scoring.Pair) (scoring.RelatednessTable, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	body, err := json.Marshal(request{Pairs: pairs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode relatedness request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build relatedness request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relatedness request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("relatedness service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode relatedness response: %w", err)
	}

	table := make(scoring.RelatednessTable, len(out.Results))
	for _, r := range out.Results {
		if r.Distance == nil || *r.Distance <= 0 {
			continue
		}
		table[scoring.PairKey(r.Input, r.Output)] = *r.Distance
	}

	for k, d := range table {
		c.known.SetWithTTL(k, d, 1, c.MemoTTL)
	}
	c.known.Wait()

	c.Logger.Debug("relatedness lookup finished",
		slog.Int("pairs", len(pairs)),
		slog.Int("found", len(table)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return table, nil
}

func batchKey(pairs []scoring.Pair) string {
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key()
	}
	return strings.Join(keys, ",")
}
