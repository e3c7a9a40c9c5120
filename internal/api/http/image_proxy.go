package apihttp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"filmsearch/searchservice/internal/sanitize"
)

const maxPosterBytes = int64(10 * 1024 * 1024) // 10MB

var errPosterNotAllowed = errors.New("poster url is not allowed")

// handlePoster streams a catalog poster so clients never load images from
// third-party hosts directly. Only https URLs on the poster allow-list are
// fetched, redirects included.
func (s *Server) handlePoster(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing url")
		return
	}
	if sanitize.PosterURL(raw, s.posterHosts) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", errPosterNotAllowed.Error())
		return
	}
	target, err := url.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid url")
		return
	}
	if err := s.checkPosterURL(r.Context(), target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid url")
		return
	}
	req.Header.Set("User-Agent", "filmsearch/1.0")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := s.posterClient.Do(req)
	if err != nil {
		s.logger.Debug("poster fetch failed", slog.String("host", target.Hostname()), slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "upstream_error", "failed to fetch image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Upstream bodies are never forwarded.
		writeError(w, http.StatusBadGateway, "upstream_error", fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode))
		return
	}
	if resp.ContentLength > maxPosterBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "image too large")
		return
	}

	limited := io.LimitReader(resp.Body, maxPosterBytes)
	head := make([]byte, 512)
	n, readErr := io.ReadFull(limited, head)
	if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) && !errors.Is(readErr, io.EOF) {
		writeError(w, http.StatusBadGateway, "upstream_error", "failed to read image")
		return
	}
	head = head[:n]

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(head)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		writeError(w, http.StatusBadGateway, "upstream_error", "not an image")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(head)
	_, _ = io.Copy(w, limited)
}

// checkPosterURL applies the allow-list and the network guard to u.
func (s *Server) checkPosterURL(ctx context.Context, u *url.URL) error {
	if u == nil || sanitize.PosterURL(u.String(), s.posterHosts) == "" {
		return errPosterNotAllowed
	}
	return s.posterGuard(ctx, u)
}

func newImageProxyClient(check func(context.Context, *url.URL) error) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.ForceAttemptHTTP2 = false
	transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}

	dialer := &net.Dialer{Timeout: 8 * time.Second, KeepAlive: 30 * time.Second}
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   12 * time.Second,
		Transport: otelhttp.NewTransport(transport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("stopped after 5 redirects")
			}
			if req.URL == nil {
				return errors.New("redirect missing url")
			}
			return check(req.Context(), req.URL)
		},
	}
}

// validateProxyURL refuses hosts that resolve into loopback or private
// networks.
func validateProxyURL(ctx context.Context, u *url.URL) error {
	host := strings.ToLower(strings.TrimSpace(u.Hostname()))
	if host == "" {
		return errors.New("invalid url host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".localhost") {
		return errors.New("blocked url host")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return errors.New("blocked url host")
		}
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	addrs, err := net.DefaultResolver.LookupIPAddr(lookupCtx, host)
	if err != nil || len(addrs) == 0 {
		return errors.New("failed to resolve url host")
	}
	for _, addr := range addrs {
		if isBlockedIP(addr.IP) {
			return errors.New("blocked url host")
		}
	}
	return nil
}

func isBlockedIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified()
}
