package assets

import (
	"bufio"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DirStore serves assets from a folder tree:
//
//	<root>/<kind>/<category>/<file>   images, e.g. stickers/cats/01.png
//	<root>/captions/<category>.txt    one caption per line, # starts a comment
//
// Images are filtered by aspect ratio from their header only; the chosen
// file is then read in full. Caption files are parsed once and re-read when
// their modification time changes. DirStore is safe for concurrent use.
type DirStore struct {
	root string

	mu       sync.Mutex
	rng      *rand.Rand
	captions map[string]captionList
}

type captionList struct {
	modTime time.Time
	lines   []string
}

// NewDirStore returns a store rooted at root. A nil rng uses a randomly
// seeded source.
func NewDirStore(root string, rng *rand.Rand) *DirStore {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &DirStore{root: root, rng: rng, captions: make(map[string]captionList)}
}

// Root returns the directory the store reads from.
func (s *DirStore) Root() string { return s.root }

// RandomCaption implements Store.
func (s *DirStore) RandomCaption(ctx context.Context, categories []string) (string, error) {
	files, err := s.captionFiles(categories)
	if err != nil {
		return "", err
	}

	var captions []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		lines, err := s.captionLines(f)
		if err != nil {
			return "", err
		}
		captions = append(captions, lines...)
	}
	if len(captions) == 0 {
		return "", ErrNotFound
	}
	return captions[s.intN(len(captions))], nil
}

// RandomImage implements Store.
func (s *DirStore) RandomImage(ctx context.Context, kind string, ratio float64, categories []string) ([]byte, error) {
	files, err := s.imageFiles(kind, categories)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, h, err := imageSize(f)
		if err != nil || h == 0 {
			continue
		}
		if RatioMatches(float64(w)/float64(h), ratio) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(candidates[s.intN(len(candidates))])
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	return data, nil
}

// captionLines returns the parsed lines of a caption file, from the cache
// when the file is unchanged.
func (s *DirStore) captionLines(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat captions: %w", err)
	}

	s.mu.Lock()
	cached, ok := s.captions[path]
	s.mu.Unlock()
	if ok && cached.modTime.Equal(info.ModTime()) {
		return cached.lines, nil
	}

	lines, err := readCaptions(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.captions[path] = captionList{modTime: info.ModTime(), lines: lines}
	s.mu.Unlock()
	return lines, nil
}

func (s *DirStore) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// captionFiles lists caption files for categories, or every caption file
// when categories is empty. Results are sorted so a seeded store is
// reproducible.
func (s *DirStore) captionFiles(categories []string) ([]string, error) {
	dir := filepath.Join(s.root, "captions")
	if len(categories) == 0 {
		files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
		if err != nil {
			return nil, fmt.Errorf("failed to list captions: %w", err)
		}
		sort.Strings(files)
		return files, nil
	}

	var files []string
	for _, c := range categories {
		f := filepath.Join(dir, cleanCategory(c)+".txt")
		if _, err := os.Stat(f); err == nil {
			files = append(files, f)
		}
	}
	return files, nil
}

// imageFiles lists every regular file under the kind folder, limited to the
// category subfolders when categories is set.
func (s *DirStore) imageFiles(kind string, categories []string) ([]string, error) {
	base := filepath.Join(s.root, cleanCategory(kind))
	roots := []string{base}
	if len(categories) > 0 {
		roots = roots[:0]
		for _, c := range categories {
			roots = append(roots, filepath.Join(base, cleanCategory(c)))
		}
	}

	var files []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return filepath.SkipDir
				}
				return err
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s assets: %w", kind, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// cleanCategory keeps category names from escaping the asset root.
func cleanCategory(c string) string {
	c = strings.TrimSpace(c)
	return filepath.Base(filepath.Clean("/" + c))
}

func readCaptions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open captions: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read captions: %w", err)
	}
	return lines, nil
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
