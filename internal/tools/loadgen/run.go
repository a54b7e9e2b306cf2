package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"sync"
	"time"
)

// Config drives a synthetic two-player session against a running instance.
type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64

	// Passwords maps role name to login secret. When empty the standard
	// MEFIL_BELAL_PASSWORD / MEFIL_RUTBAH_PASSWORD variables are used.
	Passwords map[string]string
}

type Result struct {
	TotalRequests int
	Failures      int
	StatusClasses map[string]int
}

type roleClient struct {
	role   string
	client *http.Client
}

// Run logs in both roles and replays the traffic the real clients generate: a
// state poll every second plus occasional event and chat reads and writes.
func Run(ctx context.Context, cfg Config) (Result, error) {
	res := Result{StatusClasses: map[string]int{}}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5070"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	profile := normalizeProfile(cfg.Profile)
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}

	passwords := cfg.Passwords
	if len(passwords) == 0 {
		passwords = map[string]string{
			"belal":  os.Getenv("MEFIL_BELAL_PASSWORD"),
			"rutbah": os.Getenv("MEFIL_RUTBAH_PASSWORD"),
		}
	}

	clients := make([]roleClient, 0, len(passwords))
	for _, role := range []string{"belal", "rutbah"} {
		password, ok := passwords[role]
		if !ok {
			continue
		}
		rc, err := login(ctx, cfg.BaseURL, role, password)
		if err != nil {
			return res, fmt.Errorf("login %s: %w", role, err)
		}
		clients = append(clients, rc)
	}
	if len(clients) == 0 {
		return res, fmt.Errorf("no role could log in")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var mu sync.Mutex
	record := func(status int, err error) {
		mu.Lock()
		defer mu.Unlock()
		res.TotalRequests++
		if err != nil || status >= 500 {
			res.Failures++
		}
		if err == nil {
			res.StatusClasses[classifyStatusClass(status)]++
		}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(cfg.Seed + int64(worker)))
			for range jobs {
				rc := clients[rng.Intn(len(clients))]
				status, err := fire(ctx, cfg.BaseURL, rc, profile, rng)
				record(status, err)
			}
		}(w)
	}

	interval := time.Second / time.Duration(cfg.RPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n := 0
feed:
	for {
		select {
		case <-ctx.Done():
			break feed
		case <-ticker.C:
			select {
			case jobs <- n:
				n++
			case <-ctx.Done():
				break feed
			}
		}
	}
	close(jobs)
	wg.Wait()
	return res, nil
}

func login(ctx context.Context, baseURL, role, password string) (roleClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return roleClient{}, err
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}
	body, err := json.Marshal(map[string]string{"role": role, "password": password})
	if err != nil {
		return roleClient{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/mefil/auth/login", bytes.NewReader(body))
	if err != nil {
		return roleClient{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return roleClient{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return roleClient{}, fmt.Errorf("login returned %s", resp.Status)
	}
	return roleClient{role: role, client: client}, nil
}

func fire(ctx context.Context, baseURL string, rc roleClient, profile string, rng *rand.Rand) (int, error) {
	method := http.MethodGet
	path := "/api/mefil/state"
	var body []byte

	switch profile {
	case "auth":
		path = "/api/mefil/auth/session"
	case "state":
		// state poll only
	default: // mixed
		switch p := rng.Intn(10); {
		case p < 6:
			// state poll
		case p < 8:
			path = "/api/mefil/events"
		case p < 9:
			path = "/api/mefil/chat"
		default:
			method = http.MethodPost
			path = "/api/mefil/chat"
			body, _ = json.Marshal(map[string]string{"text": fmt.Sprintf("loadgen note %d", rng.Intn(1000))})
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := rc.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
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

func normalizeProfile(profile string) string {
	p := strings.ToLower(strings.TrimSpace(profile))
	if p == "" {
		return "mixed"
	}
	return p
}
