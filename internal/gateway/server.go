// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package gateway serves the portal and its games over loopback HTTP,
// sitting between the player and the network: game assets come
// cache-first, API calls proxy upstream with offline fallbacks, and
// embedded game frames post channel messages to /channel.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"celestial/arcade/internal/assetcache"
	"celestial/arcade/internal/channel"
	"celestial/arcade/internal/metrics"
	"celestial/arcade/internal/progression"
)

// Server is the loopback gateway.
type Server struct {
	baseURL       string
	shellVersion  string
	assets        *assetcache.Store
	handler       channel.Handler
	trustedOrigin string
	mon           *progression.Monitor
	client        *http.Client
	logf          func(format string, args ...any)
	httpServer    *http.Server
}

// Config carries the gateway's dependencies.
type Config struct {
	Addr          string
	BaseURL       string
	ShellVersion  string
	Assets        *assetcache.Store
	Handler       channel.Handler
	TrustedOrigin string
	Monitor       *progression.Monitor
	Logf          func(format string, args ...any)
}

// NewServer builds the gateway.
func NewServer(cfg Config) *Server {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	s := &Server{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		shellVersion:  cfg.ShellVersion,
		assets:        cfg.Assets,
		handler:       cfg.Handler,
		trustedOrigin: cfg.TrustedOrigin,
		mon:           cfg.Monitor,
		client:        &http.Client{Timeout: 30 * time.Second},
		logf:          logf,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/games/", s.handleGameAsset)
	mux.HandleFunc("/api/", s.handleAPI)
	mux.HandleFunc("/channel", s.handleChannel)
	mux.HandleFunc("/", s.handleShell)
	s.httpServer = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s
}

// Handler exposes the gateway's routing for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Stop shuts the gateway down, draining in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleGameAsset serves game assets cache-first. A cached game never
// touches the network; an uncached one proxies upstream, and when the
// upstream is unreachable the response is a plain 503.
func (s *Server) handleGameAsset(w http.ResponseWriter, r *http.Request) {
	slug := gameSlug(r.URL.Path)
	if slug == "" {
		http.NotFound(w, r)
		return
	}

	if asset, err := s.assets.GetGameAsset(slug, r.URL.Path); err == nil {
		metrics.CacheServeTotal.WithLabelValues("cache").Inc()
		serveAsset(w, asset)
		return
	}

	asset, err := s.fetchUpstream(r)
	if err != nil {
		metrics.CacheServeTotal.WithLabelValues("fallback").Inc()
		http.Error(w, "Game not cached and network unavailable", http.StatusServiceUnavailable)
		return
	}
	metrics.CacheServeTotal.WithLabelValues("network").Inc()
	if err := s.assets.PutGameAsset(slug, asset); err != nil {
		s.logf("gateway: cache game asset %s: %v", r.URL.Path, err)
	}
	serveAsset(w, asset)
}

// handleAPI proxies portal API calls. Offline behavior differs by route:
// progression sync reports queued (the reconciler will flush it later),
// everything else reports the network as unavailable.
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	resp, err := s.proxyUpstream(r)
	if err != nil {
		if r.Method == http.MethodPost && r.URL.Path == "/api/progression/sync" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]any{"queued": true})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"error": "Network unavailable"})
		return
	}
	defer resp.Body.Close()

	for k, vals := range resp.Header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// handleChannel accepts channel envelopes from embedded game frames. The
// HTTP Origin header is authoritative for origin validation; whatever the
// body claims is overwritten before dispatch. Untrusted senders get an
// empty 204, indistinguishable from an ignored message.
func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var env channel.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "invalid envelope", http.StatusBadRequest)
		return
	}
	env.Origin = r.Header.Get("Origin")

	if env.Origin != s.trustedOrigin {
		s.logf("gateway: dropping %s from untrusted origin %q", env.Type, env.Origin)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp, err := s.handler.Handle(r.Context(), env)
	if err != nil {
		s.logf("gateway: channel handler failed for %s: %v", env.Type, err)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if resp.CorrelationID == "" {
		resp.CorrelationID = env.CorrelationID
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleShell serves the portal shell cache-first from the active
// generation, refreshing the cache on network hits. When both cache and
// network miss, the offline page is the last resort.
func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if asset, err := s.assets.GetShellAsset(s.shellVersion, path); err == nil {
		metrics.CacheServeTotal.WithLabelValues("cache").Inc()
		serveAsset(w, asset)
		return
	}

	asset, err := s.fetchUpstream(r)
	if err == nil {
		metrics.CacheServeTotal.WithLabelValues("network").Inc()
		if err := s.assets.PutShellAsset(s.shellVersion, asset); err != nil {
			s.logf("gateway: cache shell %s: %v", path, err)
		}
		serveAsset(w, asset)
		return
	}

	metrics.CacheServeTotal.WithLabelValues("fallback").Inc()
	if offline, oerr := s.assets.GetShellAsset(s.shellVersion, "/offline.html"); oerr == nil {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write(offline.Body)
		return
	}
	http.Error(w, "Offline", http.StatusServiceUnavailable)
}

// fetchUpstream GETs one upstream path and buffers it as an asset.
func (s *Server) fetchUpstream(r *http.Request) (assetcache.Asset, error) {
	resp, err := s.proxyUpstream(r)
	if err != nil {
		return assetcache.Asset{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return assetcache.Asset{}, errors.New("upstream status " + resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return assetcache.Asset{}, err
	}
	return assetcache.Asset{
		Path:        r.URL.Path,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// proxyUpstream replays the request against the portal and feeds the
// result to the connectivity monitor.
func (s *Server) proxyUpstream(r *http.Request) (*http.Response, error) {
	var body io.Reader
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	url := s.baseURL + r.URL.Path
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, url, body)
	if err != nil {
		return nil, err
	}
	for _, h := range []string{"Authorization", "Content-Type", "Accept"} {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := s.client.Do(req)
	if s.mon != nil {
		s.mon.SetOnline(err == nil)
	}
	return resp, err
}

func serveAsset(w http.ResponseWriter, asset assetcache.Asset) {
	if asset.ContentType != "" {
		w.Header().Set("Content-Type", asset.ContentType)
	}
	w.Write(asset.Body)
}

// gameSlug extracts the slug from a /games/<slug>/... path.
func gameSlug(path string) string {
	rest := strings.TrimPrefix(path, "/games/")
	if i := strings.IndexByte(rest, '/'); i > 0 {
		return rest[:i]
	}
	return ""
}
