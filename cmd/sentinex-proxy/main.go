// sentinex-proxy forwards inference traffic to the upstream model server,
// injecting the API key so camera hosts never hold the real credential.
package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agui1era/Sentinex/internal/redact"
)

func main() {
	addr := flag.String("addr", ":8600", "listen address")
	upstream := flag.String("upstream", "", "upstream inference base URL (required)")
	apiKeyEnv := flag.String("api-key-env", "SENTINEX_API_KEY", "env var holding the API key to inject")
	flag.Parse()

	if *upstream == "" {
		redact.Fatalf("missing -upstream")
	}
	target, err := url.Parse(*upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		redact.Fatalf("invalid -upstream %q", *upstream)
	}
	apiKey := os.Getenv(*apiKeyEnv)
	if apiKey == "" {
		redact.Logf("warning: %s is empty, forwarding without Authorization", *apiKeyEnv)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Host = target.Host
		if apiKey != "" {
			r.Header.Set("Authorization", "Bearer "+apiKey)
		}
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		redact.Logf("proxy %s %s: %v", r.Method, r.URL.Path, err)
		http.Error(w, `{"error":"upstream unreachable"}`, http.StatusBadGateway)
	}

	srv := &http.Server{
		Addr:    *addr,
		Handler: proxy,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	redact.Logf("sentinex-proxy on %s -> %s", *addr, *upstream)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		redact.Fatalf("server error: %v", err)
	}
}
