// Package capture takes a visual snapshot of a media URL.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

const (
	defaultThumbnailBase = "https://img.youtube.com/vi"
	viewportWidth        = 1280
	viewportHeight       = 720
	settleDelay          = 3 * time.Second
	minThumbnailSide     = 100
)

// Options configures the capturer.
type Options struct {
	ChromePath string
	Timeout    time.Duration
	Log        zerolog.Logger
}

// Capturer saves a PNG snapshot of a URL. YouTube links use the video
// thumbnail; everything else, or a failed thumbnail fetch, gets a headless
// browser screenshot.
type Capturer struct {
	chromePath    string
	timeout       time.Duration
	thumbnailBase string
	http          *http.Client
	browser       func(ctx context.Context, pageURL string) ([]byte, error)
	log           zerolog.Logger
}

// New creates a capturer.
func New(opts Options) *Capturer {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	c := &Capturer{
		chromePath:    opts.ChromePath,
		timeout:       opts.Timeout,
		thumbnailBase: defaultThumbnailBase,
		http:          &http.Client{Timeout: 30 * time.Second},
		log:           opts.Log.With().Str("component", "capture").Logger(),
	}
	c.browser = c.browserScreenshot
	return c
}

// Capture writes a snapshot of pageURL to destPath. Navigation and
// rendering problems are logged and leave no file behind; only a browser
// that cannot start is reported as an error.
func (c *Capturer) Capture(ctx context.Context, pageURL, destPath string) error {
	if id := YouTubeVideoID(pageURL); id != "" {
		err := c.captureThumbnail(ctx, id, destPath)
		if err == nil {
			return nil
		}
		c.log.Warn().Err(err).Str("video_id", id).Msg("thumbnail capture failed, falling back to page screenshot")
	}

	data, err := c.browser(ctx, pageURL)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

// YouTubeVideoID extracts the video ID from youtube.com/watch?v= and
// youtu.be/ links. Returns "" for anything else.
func YouTubeVideoID(raw string) string {
	if !strings.Contains(raw, "youtube.com") && !strings.Contains(raw, "youtu.be") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if strings.Contains(u.Host, "youtu.be") {
		return strings.Trim(u.Path, "/")
	}
	return u.Query().Get("v")
}

// captureThumbnail tries maxresdefault then hqdefault and stores the first
// usable image as PNG.
func (c *Capturer) captureThumbnail(ctx context.Context, videoID, destPath string) error {
	var lastErr error
	for _, name := range []string{"maxresdefault.jpg", "hqdefault.jpg"} {
		img, err := c.fetchImage(ctx, fmt.Sprintf("%s/%s/%s", c.thumbnailBase, videoID, name))
		if err != nil {
			lastErr = err
			continue
		}
		b := img.Bounds()
		if b.Dx() < minThumbnailSide || b.Dy() < minThumbnailSide {
			lastErr = fmt.Errorf("thumbnail %s too small (%dx%d)", name, b.Dx(), b.Dy())
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		return os.WriteFile(destPath, buf.Bytes(), 0o644)
	}
	return lastErr
}

func (c *Capturer) fetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail fetch: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}
	return img, nil
}

// browserScreenshot renders pageURL in headless Chrome. A browser that fails
// to launch is an error; a page that fails to load returns (nil, nil).
func (c *Capturer) browserScreenshot(ctx context.Context, pageURL string) ([]byte, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-zygote", true),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	if c.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.chromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// An empty Run starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	runCtx, cancel := context.WithTimeout(browserCtx, c.timeout)
	defer cancel()

	c.log.Info().Str("url", pageURL).Msg("capturing page screenshot")
	var buf []byte
	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(settleDelay),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		c.log.Warn().Err(err).Str("url", pageURL).Msg("page screenshot failed")
		return nil, nil
	}
	return buf, nil
}
