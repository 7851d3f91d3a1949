package loadgen

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config drives one synthetic traffic run against a live server.
type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int
	Failures      int
	StatusClasses map[string]int
}

type target struct {
	method string
	path   string
	body   string
}

var searchTargets = []target{
	{method: http.MethodGet, path: "/health/live"},
	{method: http.MethodGet, path: "/api/community/search?keyword=docker"},
	{method: http.MethodGet, path: "/api/community/search?category=tech&sort=likeCount"},
	{method: http.MethodGet, path: "/api/portfolio/search?page=1&size=10"},
	{method: http.MethodGet, path: "/api/portfolio/search?category=backend"},
}

var authTargets = []target{
	{method: http.MethodPost, path: "/api/auth/login", body: `{"login_id":"loadgen","password":"wrong-password"}`},
	{method: http.MethodPost, path: "/api/auth/refresh"},
	{method: http.MethodGet, path: "/api/me"},
}

// Run fires Profile-shaped traffic at BaseURL for Duration and reports
// aggregate outcomes. 4xx answers count as served traffic, not failures.
func Run(ctx context.Context, cfg Config) (Result, error) {
	profile := normalizeProfile(cfg.Profile)
	targets := targetsFor(profile)
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 5 * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	rng := rand.New(rand.NewSource(cfg.Seed))
	work := make(chan target, cfg.Concurrency)
	results := make(chan int, cfg.Concurrency)

	var wg sync.WaitGroup
	client := &http.Client{Timeout: 10 * time.Second}
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tgt := range work {
				results <- fire(runCtx, client, cfg.BaseURL, tgt)
			}
		}()
	}

	go func() {
		defer close(work)
		interval := time.Second / time.Duration(cfg.RPS)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				select {
				case work <- targets[rng.Intn(len(targets))]:
				case <-runCtx.Done():
					return
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	res := Result{StatusClasses: map[string]int{}}
	for status := range results {
		res.TotalRequests++
		if status == 0 || status >= 500 {
			res.Failures++
		}
		res.StatusClasses[classifyStatusClass(status)]++
	}
	if res.TotalRequests == 0 {
		return res, fmt.Errorf("no requests completed against %s", cfg.BaseURL)
	}
	return res, nil
}

func fire(ctx context.Context, client *http.Client, baseURL string, tgt target) int {
	var body io.Reader
	if tgt.body != "" {
		body = strings.NewReader(tgt.body)
	}
	req, err := http.NewRequestWithContext(ctx, tgt.method, strings.TrimRight(baseURL, "/")+tgt.path, body)
	if err != nil {
		return 0
	}
	if tgt.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func targetsFor(profile string) []target {
	switch profile {
	case "auth":
		return authTargets
	case "search":
		return searchTargets
	default:
		return append(append([]target{}, searchTargets...), authTargets...)
	}
}

func normalizeProfile(profile string) string {
	profile = strings.ToLower(strings.TrimSpace(profile))
	if profile == "" {
		return "mixed"
	}
	return profile
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}
