package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	Endpoint       string
	Total          int
	Rate           int
	Concurrency    int
	RowsPerBatch   int
	InvalidPercent int
	Platform       string
}

func parseFlags() *Config {
	c := &Config{}
	flag.StringVar(&c.Endpoint, "endpoint", "", "Target ingest URL (required)")
	flag.IntVar(&c.Total, "total", 1000, "Total batches")
	flag.IntVar(&c.Rate, "rate", 50, "Batches per second")
	flag.IntVar(&c.Concurrency, "concurrency", 0, "Worker count (0=auto)")
	flag.IntVar(&c.RowsPerBatch, "rows", 200, "Rows per batch")
	flag.IntVar(&c.InvalidPercent, "invalid-percent", 0, "Percent of rows made invalid (0 = all clean)")
	flag.StringVar(&c.Platform, "platform", "google", "Row schema: google, meta or flipkart")
	flag.Parse()

	if c.Endpoint == "" {
		fmt.Fprintln(os.Stderr, "Error: -endpoint is required")
		flag.Usage()
		os.Exit(1)
	}

	if c.Concurrency == 0 {
		c.Concurrency = c.Rate / 5 // Auto-scale workers
		if c.Concurrency < 10 {
			c.Concurrency = 10
		}
	}

	if c.InvalidPercent > 100 {
		c.InvalidPercent = 100
	} else if c.InvalidPercent < 0 {
		c.InvalidPercent = 0
	}

	return c
}

type Stats struct {
	ok      uint64
	errors  uint64
	latency int64 // microseconds
}

func (s *Stats) AddOK(duration time.Duration) {
	atomic.AddUint64(&s.ok, 1)
	atomic.AddInt64(&s.latency, duration.Microseconds())
}

func (s *Stats) AddError() {
	atomic.AddUint64(&s.errors, 1)
}

func (s *Stats) StartLogger(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var lastOK, lastErr uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok := atomic.LoadUint64(&s.ok)
			errs := atomic.LoadUint64(&s.errors)
			latTotal := atomic.LoadInt64(&s.latency)

			curOK := ok - lastOK
			curErr := errs - lastErr
			lastOK, lastErr = ok, errs

			avgLat := 0.0
			if ok > 0 {
				avgLat = float64(latTotal) / float64(ok) / 1000.0
			}

			log.Printf("[STATS] 1s -> OK: %d | ERR: %d | AvgLat: %.2fms | Total OK: %d", curOK, curErr, avgLat, ok)
		}
	}
}

func main() {
	cfg := parseFlags()
	stats := &Stats{}

	// High-performance HTTP Client
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency,
			MaxIdleConnsPerHost: cfg.Concurrency, // Critical: Keep as many connections open as there are workers.
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	log.Printf("Starting Load Test: Target=%s Rate=%d/s Total=%d Workers=%d RowsPerBatch=%d", cfg.Endpoint, cfg.Rate, cfg.Total, cfg.Concurrency, cfg.RowsPerBatch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stats Logger
	go stats.StartLogger(ctx)

	// Job Queue
	jobs := make(chan struct{}, cfg.Rate*2)
	var wg sync.WaitGroup
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rngs := make([]*rand.Rand, cfg.Concurrency)
	for i := 0; i < cfg.Concurrency; i++ {
		rngs[i] = rand.New(rand.NewSource(rng.Int63()))
	}

	// Workers
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go startWorker(client, cfg, jobs, stats, rngs[i], &wg)
	}

	// Rate Limiter (Main Loop)
	remaining := cfg.Total
	for remaining > 0 {
		start := time.Now()
		batch := cfg.Rate
		if remaining < batch {
			batch = remaining
		}

		for i := 0; i < batch; i++ {
			jobs <- struct{}{}
		}
		remaining -= batch

		elapsed := time.Since(start)
		if elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}

	close(jobs)
	wg.Wait()

	log.Printf("DONE. Total OK: %d | Total Errors: %d", atomic.LoadUint64(&stats.ok), atomic.LoadUint64(&stats.errors))
}

func startWorker(client *http.Client, cfg *Config, jobs <-chan struct{}, stats *Stats, rng *rand.Rand, wg *sync.WaitGroup) {
	defer wg.Done()

	headers := http.Header{"Content-Type": []string{"application/json"}}

	for range jobs {
		payload := generateBatch(rng, cfg)
		start := time.Now()

		err := sendBatch(client, cfg.Endpoint, payload, headers)
		if err != nil {
			stats.AddError()
		} else {
			stats.AddOK(time.Since(start))
		}
	}
}

func sendBatch(client *http.Client, url string, data any, headers http.Header) error {
	body, _ := json.Marshal(data)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header = headers

	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	// Performance Hack: Read and discard the Body so the connection can be reused (Keep-Alive)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}
	return nil
}

var campaignNames = []string{
	"Summer Sale", "Brand Push", "Winter Promo", "Spring Launch",
	"Clearance", "Retargeting", "New Arrivals", "Holiday Blitz",
}

func generateBatch(rng *rand.Rand, cfg *Config) []map[string]any {
	rows := make([]map[string]any, 0, cfg.RowsPerBatch)
	for i := 0; i < cfg.RowsPerBatch; i++ {
		row := generateRow(rng, cfg.Platform)
		if cfg.InvalidPercent > 0 && rng.Intn(100) < cfg.InvalidPercent {
			corruptRow(rng, row)
		}
		rows = append(rows, row)
	}
	return rows
}

func generateRow(rng *rand.Rand, platform string) map[string]any {
	campaign := campaignNames[rng.Intn(len(campaignNames))]
	date := time.Now().AddDate(0, 0, -rng.Intn(30)).Format("2006-01-02")
	impressions := rng.Intn(50000)
	clicks := 0
	if impressions > 0 {
		clicks = rng.Intn(impressions / 10)
	}
	conversions := 0
	if clicks > 0 {
		conversions = rng.Intn(clicks)
	}
	spend := fmt.Sprintf("%.2f", rng.Float64()*1000)

	switch platform {
	case "meta":
		return map[string]any{
			"campaign_name": campaign,
			"adset":         fmt.Sprintf("adset_%02d", rng.Intn(20)),
			"date_start":    date,
			"reach":         impressions,
			"link_clicks":   clicks,
			"spend":         spend,
			"purchases":     conversions,
		}
	case "flipkart":
		return map[string]any{
			"seller_id": fmt.Sprintf("slr_%04d", rng.Intn(1000)),
			"campaign":  campaign,
			"date":      date,
			"views":     impressions,
			"clicks":    clicks,
			"spend":     spend,
			"orders":    conversions,
		}
	default:
		return map[string]any{
			"campaign":    campaign,
			"day":         date,
			"impressions": impressions,
			"clicks":      clicks,
			"cost":        spend,
			"conversions": conversions,
		}
	}
}

// corruptRow makes a row fail one validation rule at random, so admission
// control and discard accounting get exercised under load.
func corruptRow(rng *rand.Rand, row map[string]any) {
	switch rng.Intn(4) {
	case 0:
		delete(row, "campaign")
		delete(row, "campaign_name")
	case 1:
		for _, k := range []string{"day", "date", "date_start"} {
			if _, ok := row[k]; ok {
				row[k] = "not-a-date"
			}
		}
	case 2:
		for _, k := range []string{"impressions", "reach", "views"} {
			if _, ok := row[k]; ok {
				row[k] = -1
			}
		}
	case 3:
		for _, k := range []string{"cost", "spend"} {
			if _, ok := row[k]; ok {
				row[k] = "-5.00"
			}
		}
	}
}
