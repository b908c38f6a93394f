package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jmylchreest/backdrop/internal/security"
	"github.com/jmylchreest/backdrop/internal/version"
)

const (
	// UserAgentName is the application name used in the User-Agent header.
	UserAgentName = "backdrop"

	// DefaultTimeout bounds a single image download.
	DefaultTimeout = 30 * time.Second

	remoteFallbackName = "image"
)

// IsRemote reports whether s is an http or https URL.
func IsRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// RemoteLoader downloads image payloads over HTTP.
type RemoteLoader struct {
	Client *http.Client
	// MaxSize is the largest body accepted, in bytes. Zero means DefaultMaxFileSize.
	MaxSize int64
}

// NewRemoteLoader creates a RemoteLoader with DefaultTimeout.
func NewRemoteLoader() *RemoteLoader {
	return &RemoteLoader{
		Client:  &http.Client{Timeout: DefaultTimeout},
		MaxSize: DefaultMaxFileSize,
	}
}

// Fetch downloads rawURL. The response Content-Type is kept as the declared
// media type; the name is the last path segment of the URL.
func (l *RemoteLoader) Fetch(ctx context.Context, rawURL string) (*File, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid image URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgentName+"/"+version.Version)
	req.Header.Set("Accept", "image/*")

	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	maxSize := l.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	data, err := io.ReadAll(security.NewLimitedReader(resp.Body, maxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = remoteFallbackName
	}
	return &File{
		Name: name,
		MIME: DetectMIME(resp.Header.Get("Content-Type"), name, data),
		Data: data,
	}, nil
}

// Load reads a local file, or downloads it when source is a URL.
func Load(ctx context.Context, source string) (*File, error) {
	if IsRemote(source) {
		return NewRemoteLoader().Fetch(ctx, source)
	}
	return NewFileLoader().Load(source)
}
