package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/assetstore"
)

const maxImageSize = 20 << 20 // 20 MB

type insertResult struct {
	ID      string `json:"id"`
	Handle  string `json:"handle"`
	Warning string `json:"warning,omitempty"`
}

func (s *Server) insertImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filename := ""
	if v, fErr := req.RequireString("filename"); fErr == nil {
		filename = v
	}

	var p assetstore.Payload
	if strings.HasPrefix(rawURL, "data:") {
		p, err = assetstore.DecodeDataURI(rawURL)
	} else {
		p, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(p.Data) > maxImageSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(p.Data), maxImageSize)), nil
	}

	if filename == "" {
		filename = filenameFromURL(rawURL, assetstore.Extension(p.MIME))
	}
	p.Name = sanitizeFilename(filename)
	// Trust the bytes, not the declared type.
	p.MIME = assetstore.DetectMIME(p.Data, p.Name)

	res, err := s.sess.InsertImage(ctx, p, nil, 0)
	out := insertResult{ID: res.ID, Handle: res.Handle}
	if err != nil {
		if !apperr.IsStorageWrite(err) || res.Handle == "" {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out.Warning = err.Error()
	}
	raw, _ := json.Marshal(out)
	return mcp.NewToolResultText(string(raw)), nil
}

// fetchHTTP downloads an image from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) (assetstore.Payload, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return assetstore.Payload{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return assetstore.Payload{}, fmt.Errorf("unsupported scheme: %s (only http/https or data:)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return assetstore.Payload{}, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return assetstore.Payload{}, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return assetstore.Payload{}, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return assetstore.Payload{}, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxImageSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return assetstore.Payload{}, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxImageSize {
		return assetstore.Payload{}, fmt.Errorf("file too large: exceeds %d bytes", maxImageSize)
	}

	return assetstore.Payload{MIME: strings.Split(resp.Header.Get("Content-Type"), ";")[0], Data: data}, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// filenameFromURL tries to extract a filename from a URL, falling back to UUID.
func filenameFromURL(rawURL string, fallbackExt string) string {
	if fallbackExt == "" {
		fallbackExt = ".bin"
	}
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	return uuid.New().String() + fallbackExt
}

// sanitizeFilename strips path separators and reduces the stem to a slug.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(name))
	stem := slug.Make(strings.TrimSuffix(name, filepath.Ext(name)))
	if stem == "" {
		stem = uuid.New().String()
	}
	return stem + ext
}
