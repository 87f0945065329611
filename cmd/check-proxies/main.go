// check-proxies loads the proxy pool from config and probes each proxy
// against the provider's scheduled-events endpoint (connectivity + auth +
// not-blocked). Use to verify proxies work and payment has not expired.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/ndmitriev/shotvalue/internal/pkg/config"
	"github.com/ndmitriev/shotvalue/internal/pkg/proxy"
)

const timeoutSec = 15

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/production.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool := proxy.NewPool(proxy.Sources{
		ListFile: cfg.Proxy.ListFile,
		ListURL:  cfg.Proxy.ListURL,
		URL:      cfg.Proxy.URL,
	})
	list := pool.Load(ctx)
	if len(list) == 0 {
		fmt.Println("No proxies configured (proxy.list_file / proxy.list_url / proxy.url).")
		os.Exit(0)
	}

	checkURL := fmt.Sprintf("%s/api/v1/sport/football/scheduled-events/%s",
		cfg.Provider.BaseURL, time.Now().Format("2006-01-02"))
	fmt.Printf("Checking %d proxies (timeout %ds, test URL %s)...\n\n", len(list), timeoutSec, checkURL)

	var wg sync.WaitGroup
	type result struct {
		addr string
		ok   bool
		err  string
	}
	results := make([]result, len(list))
	for i, proxyURL := range list {
		wg.Add(1)
		go func(i int, proxyURL string) {
			defer wg.Done()
			err := checkProxy(ctx, proxyURL, checkURL, cfg.Provider.UserAgent)
			results[i] = result{addr: proxy.MaskURL(proxyURL), ok: err == nil}
			if err != nil {
				results[i].err = err.Error()
			}
		}(i, proxyURL)
	}
	wg.Wait()

	okCount := 0
	for _, r := range results {
		if r.ok {
			okCount++
			fmt.Printf("[OK] %s\n", r.addr)
		} else {
			fmt.Printf("[FAIL] %s -> %s\n", r.addr, r.err)
		}
	}

	fmt.Printf("\n--- Summary: %d OK, %d FAIL (total %d)\n", okCount, len(list)-okCount, len(list))
	if okCount == 0 {
		fmt.Println("All proxies failed. Possible causes: expired payment, wrong credentials, or provider blocking.")
		os.Exit(1)
	}
}

func checkProxy(ctx context.Context, proxyURL, checkURL, userAgent string) error {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	client := &http.Client{
		Timeout: timeoutSec * time.Second,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(parsed),
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	// A blocked proxy often still gets an HTML challenge page back.
	buf := make([]byte, 512)
	n, _ := resp.Body.Read(buf)
	body := strings.TrimSpace(string(buf[:n]))
	if body == "" {
		return fmt.Errorf("empty body")
	}
	if !json.Valid([]byte(body)) && !strings.HasPrefix(body, "{") && !strings.HasPrefix(body, "[") {
		return fmt.Errorf("non-JSON response (blocked?)")
	}
	return nil
}
