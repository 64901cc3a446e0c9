package imaging

import (
	"fmt"
	"image"
	"os"
	"sync"
)

// ImageCache provides thread-safe caching of decoded images to avoid
// redundant disk reads.
//
// The cache stores decoded Source values keyed by their file path. Once an
// image is loaded, subsequent Load() calls for the same path return the
// cached copy without disk I/O.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear(). Long-running servers should evict images once a censoring request
// is done with them.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	src, err := cache.Load("/path/to/image.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Use src.Image, src.Format...
//	cache.Evict("/path/to/image.png")
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*Source
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*Source),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Parameters:
//   - path: Absolute or relative file path to the image. Supported formats
//     are PNG, JPEG, GIF and WebP, detected by content.
//
// Returns:
//   - *Source: The decoded image and its detected format.
//   - error: Non-nil if the file cannot be read or decoded.
//
// The image is cached using the exact path string provided. Different paths
// to the same file (e.g., relative vs absolute) result in separate entries.
func (c *ImageCache) Load(path string) (*Source, error) {
	c.mu.RLock()
	if src, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return src, nil
	}
	c.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	src, err := Decode(data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = src
	c.mu.Unlock()

	return src, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*Source)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the detected image format: "png", "jpeg", "gif" or "webp".
	// Detection is based on file contents, not the extension.
	Format Format `json:"format"`

	// MimeType is the MIME type matching Format.
	MimeType string `json:"mime_type"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image and returns metadata about it.
//
// # Color Depth Detection
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	src, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	info := Describe(src)
	info.FileSizeBytes = stat.Size()
	return info, nil
}

// Describe returns the metadata that can be read from a decoded image.
// FileSizeBytes is left at zero.
func Describe(src *Source) *ImageInfo {
	bounds := src.Image.Bounds()

	hasAlpha := false
	colorDepth := "8-bit"
	switch src.Image.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     src.Format,
		MimeType:   src.Format.MimeType(),
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
	}
}
