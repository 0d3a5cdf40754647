package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Drives concurrent transfers through the HTTP API to observe lock
// contention on shared accounts. Assumes the seeder has run (demo users
// demoNNN@oakline.dev, two accounts each).

var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
)

// Metrics
var (
	totalRequests uint64
	success200    uint64
	denied400     uint64 // validation rejections (mostly insufficient funds)
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, i, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

type session struct {
	client   *http.Client
	accounts []int64
}

func login(client *http.Client, userIdx int) (*session, error) {
	body, _ := json.Marshal(map[string]string{
		"email":    fmt.Sprintf("demo%03d@oakline.dev", userIdx),
		"password": "password123",
	})
	resp, err := client.Post(targetURL+"/api/v1/login", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("login failed: status %d", resp.StatusCode)
	}

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			token = c.Value
		}
	}
	if token == "" {
		return nil, fmt.Errorf("login returned no session cookie")
	}

	s := &session{client: client}
	req, _ := http.NewRequest("GET", targetURL+"/api/v1/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	accResp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer accResp.Body.Close()

	var accounts []struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(accResp.Body).Decode(&accounts); err != nil {
		return nil, err
	}
	for _, a := range accounts {
		s.accounts = append(s.accounts, a.ID)
	}
	if len(s.accounts) < 2 {
		return nil, fmt.Errorf("user %d has fewer than 2 accounts", userIdx)
	}

	s.client = &http.Client{Timeout: 5 * time.Second, Transport: &tokenTransport{token: token}}
	return s, nil
}

type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

func worker(wg *sync.WaitGroup, idx int, start time.Time) {
	defer wg.Done()

	// Hotspot: every worker hammers user 0's account pair.
	userIdx := idx
	if workload == "hotspot" {
		userIdx = 0
	}

	s, err := login(&http.Client{Timeout: 5 * time.Second}, userIdx)
	if err != nil {
		log.Printf("worker %d login failed: %v", idx, err)
		return
	}

	dir := 0
	for time.Since(start) < duration {
		from, to := s.accounts[0], s.accounts[1]
		if dir%2 == 1 {
			from, to = to, from
		}
		dir++

		payload := map[string]interface{}{
			"fromAccountId": from,
			"toAccountId":   to,
			"amount":        "1.00",
			"description":   "benchmark transfer",
		}
		body, _ := json.Marshal(payload)

		resp, err := s.client.Post(targetURL+"/api/v1/transfers", "application/json", bytes.NewBuffer(body))
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 200:
			atomic.AddUint64(&success200, 1)
		case 400:
			atomic.AddUint64(&denied400, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	ok := atomic.LoadUint64(&success200)
	denied := atomic.LoadUint64(&denied400)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()

	results := map[string]interface{}{
		"workload":       workload,
		"duration_sec":   d.Seconds(),
		"total_requests": total,
		"throughput_tps": tps,
		"completed":      ok,
		"denied":         denied,
		"errors":         fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
