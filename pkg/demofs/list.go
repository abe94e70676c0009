package demofs

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

//
// Demo directory listing, refreshed in background.
//

type Item struct {
	Name    string      `json:"name"`
	Size    int64       `json:"size"`
	ModTime time.Time   `json:"modTime"`
	Hash    Hashes      `json:"hash"`
	Info    os.FileInfo `json:"-"`
}

type List []Item

// Find returns the item with name.
func (l List) Find(name string) (Item, bool) {
	for _, it := range l {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}

// ListDir returns the demos of dir, most recent first.
func ListDir(dir string) (List, error) {
	f, err := os.Open(dir)
	if err != nil {
		return List{}, err
	}
	defer f.Close()

	// Get file list in demo dir.
	infosFull, err := f.Readdir(-1)
	// Filter out unnecessary files.
	list := make(List, 0, len(infosFull))
	for _, info := range infosFull {
		name := info.Name()
		if strings.HasPrefix(name, ".") {
			continue // Ignore hidden files.
		}
		if info.IsDir() || !IsDemoName(name) {
			continue // Unknown extension.
		}
		if info.Size() == 0 {
			continue // Empty file.
		}

		hashes, hErr := HashFile(filepath.Join(dir, name))
		if hErr != nil {
			log.Trace().Str("ctx", "demofs").Str("event", "listDir").Str("file", name).Int64("size", info.Size()).Err(hErr).Msg("hash")
			continue
		}

		list = append(list, Item{
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Hash:    hashes,
			Info:    info,
		})
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ModTime.After(list[j].ModTime) })
	return list, err
}

// Catalog keeps the listing of one demo directory.
type Catalog struct {
	dir  string
	list atomic.Value // copy-on-write.
	mu   sync.Mutex   // Used for updater only. Getters does not need it
}

func NewCatalog(dir string) *Catalog {
	c := &Catalog{dir: dir}
	c.set(List{})
	return c
}

func (c *Catalog) Dir() string {
	return c.dir
}

func (c *Catalog) set(l List) {
	c.mu.Lock()
	c.list.Store(l)
	c.mu.Unlock()
}

func (c *Catalog) List() List {
	return c.list.Load().(List)
}

// Refresh lists the directory again. On error the list is emptied.
func (c *Catalog) Refresh() error {
	l, err := ListDir(c.dir)
	c.set(l)
	return multierror.Prefix(err, "Catalog.Refresh:")
}

// Run refreshes the catalog every interval until ctx is done.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) (err error) {
	defer func() { log.Trace().Str("ctx", "Catalog").Str("name", "Run").Str("event", "out").Msg("") }()
	defer func() { err = multierror.Prefix(err, "Catalog.Run:") }()

	t := time.NewTimer(0)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := c.Refresh(); err != nil {
				// Don't be fatal.
				log.Err(err).Msg("")
			}
			t.Reset(interval)
		}
	}
}
