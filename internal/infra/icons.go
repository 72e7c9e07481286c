package infra

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// IconCache downloads and caches coin icons on disk.
// Images are resized to 24x24 pixels for consistent rendering.
type IconCache struct {
	basePath string
	client   *http.Client
}

// NewIconCache creates an IconCache rooted at dir. An empty dir falls back
// to assets/icons under the working directory.
func NewIconCache(dir string) (*IconCache, error) {
	if dir == "" {
		dir = filepath.Join("assets", "icons")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create icons directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconCache{
		basePath: dir,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// Download fetches the icon at iconURL for coinID if not already cached.
// Returns the local file path on success.
func (c *IconCache) Download(ctx context.Context, coinID, iconURL string) (string, error) {
	safeID := sanitizeCoinID(coinID)
	if safeID == "" {
		return "", fmt.Errorf("invalid coin id: %s", coinID)
	}
	if iconURL == "" {
		return "", fmt.Errorf("no icon URL for %s", coinID)
	}

	filePath := filepath.Join(c.basePath, safeID+".png")
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Cache hit
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Resize to 24x24 with high-quality Lanczos filter
	resizedImg := imaging.Resize(srcImg, 24, 24, imaging.Lanczos)

	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// Path returns the local cache path for a coin's icon. The file may not exist.
func (c *IconCache) Path(coinID string) string {
	return filepath.Join(c.basePath, sanitizeCoinID(coinID)+".png")
}

// sanitizeCoinID strips anything that could escape the cache directory.
// CoinGecko ids are lowercase words separated by hyphens.
func sanitizeCoinID(id string) string {
	id = strings.ToLower(id)
	res := make([]rune, 0, len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			res = append(res, r)
		}
	}
	return string(res)
}
