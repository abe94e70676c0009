package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	stdlog "log"
	"net"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adam-lavrik/go-imath/ix"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/qw-group/srcdemo-go/pkg/demo"
	"github.com/qw-group/srcdemo-go/pkg/demofs"
)

//
// HTTP JSON interface for demo viewers.
//

const (
	defaultPageSize = 64
	maxPageSize     = 4096
)

// entry is a demo parsed or being parsed.
type entry struct {
	name   string
	hash   demofs.Hashes
	parser *demo.Parser // Set while the parse runs.
	result *demo.Result // Set when done.
	err    error
	prev   *entry // Entry replaced by a running parse, until the demo is read.
}

func (e *entry) done() bool {
	return e.result != nil
}

type Server struct {
	catalog *demofs.Catalog
	opts    demo.Options

	mu      sync.RWMutex
	entries map[string]*entry
}

// New returns a server over the demos of catalog, parsed with opts.
func New(catalog *demofs.Catalog, opts demo.Options) *Server {
	return &Server{
		catalog: catalog,
		opts:    opts,
		entries: map[string]*entry{},
	}
}

// Add registers an already parsed demo.
func (sv *Server) Add(name string, hash demofs.Hashes, res *demo.Result, err error) {
	sv.mu.Lock()
	sv.entries[name] = &entry{name: name, hash: hash, result: res, err: err}
	sv.mu.Unlock()
}

// snapshot copies the entry of name under the lock.
func (sv *Server) snapshot(name string) (e entry, ok bool) {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	p, ok := sv.entries[name]
	if !ok {
		return entry{}, false
	}
	return *p, true
}

// ErrParseRunning is returned when a parse of the same demo has not finished yet.
var ErrParseRunning = errors.New("demo is being parsed")

// Parse parses the demo called name from the catalog directory.
// The result replaces any previous one.
func (sv *Server) Parse(ctx context.Context, name string) (err error) {
	defer func() { err = multierror.Prefix(err, "Server.Parse:") }()

	if _, err = demofs.DemoPath(sv.catalog.Dir(), name); err != nil {
		return err
	}
	e, err := sv.reserve(name)
	if err != nil {
		return err
	}
	return sv.run(ctx, e)
}

// reserve registers a running entry for name unless one is already running.
func (sv *Server) reserve(name string) (*entry, error) {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	prev := sv.entries[name]
	if prev != nil && prev.parser != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrParseRunning)
	}
	e := &entry{name: name, parser: demo.NewParser(sv.opts), prev: prev}
	sv.entries[name] = e
	return e, nil
}

// run parses the demo of the reserved entry e.
func (sv *Server) run(ctx context.Context, e *entry) error {
	b, err := sv.read(e.name)
	if err != nil {
		// Unreadable demo, put back what was there before.
		sv.mu.Lock()
		if sv.entries[e.name] == e {
			if e.prev != nil {
				sv.entries[e.name] = e.prev
			} else {
				delete(sv.entries, e.name)
			}
		}
		e.parser, e.prev = nil, nil
		sv.mu.Unlock()
		return err
	}

	sv.mu.Lock()
	e.hash = demofs.HashBytes(b)
	e.prev = nil
	p := e.parser
	sv.mu.Unlock()

	perr := p.Parse(ctx, b)
	res := p.Result()

	sv.mu.Lock()
	e.result = res
	e.err = perr
	e.parser = nil
	sv.mu.Unlock()

	log.Trace().Str("ctx", "Server").Str("event", "parse").Str("demo", e.name).Err(perr).Msg("")
	return perr
}

func (sv *Server) read(name string) ([]byte, error) {
	path, err := demofs.DemoPath(sv.catalog.Dir(), name)
	if err != nil {
		return nil, err
	}
	return demofs.ReadDemo(path)
}

type demoListItem struct {
	demofs.Item
	Parsed  bool   `json:"parsed"`
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(multierror.Prefix(err, "writeJSON:")).Str("ctx", "Server").Msg("")
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (sv *Server) demosHandler(w http.ResponseWriter, r *http.Request) {
	list := sv.catalog.List()
	items := make([]demoListItem, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, it := range list {
		seen[it.Name] = true
		item := demoListItem{Item: it}
		if e, ok := sv.snapshot(it.Name); ok {
			item.Parsed = e.done()
			item.Running = e.parser != nil
			item.Error = errString(e.err)
		}
		items = append(items, item)
	}

	// Demos added without a file in the catalog.
	sv.mu.RLock()
	var extra []demoListItem
	for name, e := range sv.entries {
		if seen[name] {
			continue
		}
		extra = append(extra, demoListItem{
			Item:    demofs.Item{Name: name, Hash: e.hash},
			Parsed:  e.done(),
			Running: e.parser != nil,
			Error:   errString(e.err),
		})
	}
	sv.mu.RUnlock()
	sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })

	writeJSON(w, http.StatusOK, append(items, extra...))
}

// demoName returns the name route variable, writing the error response if it is not a plain demo name.
func demoName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := mux.Vars(r)["name"]
	if !demofs.IsDemoName(name) || !demofs.IsSimplePath(demofs.DemoStem(name)) {
		writeError(w, http.StatusBadRequest, "invalid demo name %q", name)
		return "", false
	}
	return name, true
}

// result looks up the finished result for the request, writing the error response if there is none.
func (sv *Server) result(w http.ResponseWriter, r *http.Request) (*demo.Result, bool) {
	name, ok := demoName(w, r)
	if !ok {
		return nil, false
	}
	e, ok := sv.snapshot(name)
	if !ok {
		writeError(w, http.StatusNotFound, "demo %q is not parsed", name)
		return nil, false
	}
	if !e.done() {
		writeError(w, http.StatusConflict, "demo %q is being parsed", name)
		return nil, false
	}
	return e.result, true
}

func (sv *Server) headerHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := sv.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Header     demo.Header     `json:"header"`
		ServerInfo demo.ServerInfo `json:"serverInfo"`
		Duration   string          `json:"duration"`
		TickRate   float64         `json:"tickRate"`
	}{res.Header, res.ServerInfo, res.Header.Duration().String(), res.Header.TickRate()})
}

func (sv *Server) playersHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := sv.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Players)
}

func (sv *Server) cvarsHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := sv.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Cvars)
}

// queryInt reads an integer query parameter, def if absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad %s: %q", key, s)
	}
	return v, nil
}

func pageLimit(r *http.Request) (int, error) {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		return 0, err
	}
	return ix.Max(1, ix.Min(limit, maxPageSize)), nil
}

type positionsPage struct {
	Ticks []int32                     `json:"ticks"`
	Data  map[int32][]demo.PlayerTick `json:"data"`
	Next  int32                       `json:"next"` // -1 when there is no more.
}

// Positions of ticks in [from, to], at most limit ticks.
func (sv *Server) positionsHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := sv.result(w, r)
	if !ok {
		return
	}
	from, err := queryInt(r, "from", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	to, err := queryInt(r, "to", int(^uint32(0)>>1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	limit, err := pageLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	page := positionsPage{Ticks: []int32{}, Data: map[int32][]demo.PlayerTick{}, Next: -1}
	if res.Positions != nil {
		for _, tick := range res.Positions.Ticks() {
			if int(tick) < from || int(tick) > to {
				continue
			}
			if len(page.Ticks) == limit {
				page.Next = tick
				break
			}
			page.Ticks = append(page.Ticks, tick)
			page.Data[tick] = res.Positions.At(tick)
		}
	}
	writeJSON(w, http.StatusOK, page)
}

// Game events, optionally filtered by name, paged by offset/limit.
func (sv *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := sv.result(w, r)
	if !ok {
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	limit, err := pageLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	name := r.URL.Query().Get("name")

	events := make([]*demo.GameEvent, 0, ix.Min(limit, len(res.Events)))
	for _, ev := range res.Events {
		if name != "" && ev.Name != name {
			continue
		}
		events = append(events, ev)
	}
	offset = ix.Max(0, ix.Min(offset, len(events)))
	end := ix.Min(offset+limit, len(events))
	writeJSON(w, http.StatusOK, events[offset:end])
}

// Stats of a finished parse, or live counters of a running one.
func (sv *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := demoName(w, r)
	if !ok {
		return
	}
	e, ok := sv.snapshot(name)
	if !ok {
		writeError(w, http.StatusNotFound, "demo %q is not parsed", name)
		return
	}
	var stats demo.StatsSnapshot
	if e.parser != nil {
		stats = e.parser.Stats().Snapshot()
	} else if e.result != nil {
		stats = e.result.Stats
	}
	writeJSON(w, http.StatusOK, struct {
		Done  bool               `json:"done"`
		Error string             `json:"error,omitempty"`
		Stats demo.StatsSnapshot `json:"stats"`
	}{e.done(), errString(e.err), stats})
}

// Start parsing in background, progress is reported by the stats route.
func (sv *Server) parseHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := demoName(w, r)
	if !ok {
		return
	}
	if _, err := demofs.DemoPath(sv.catalog.Dir(), name); err != nil {
		writeError(w, http.StatusBadRequest, "invalid demo name %q", name)
		return
	}
	if _, ok := sv.catalog.List().Find(name); !ok {
		writeError(w, http.StatusNotFound, "demo %q not found", name)
		return
	}
	e, err := sv.reserve(name)
	if err != nil {
		writeError(w, http.StatusConflict, "demo %q is being parsed", name)
		return
	}

	go func() {
		if err := sv.run(context.Background(), e); err != nil {
			log.Debug().Err(err).Str("ctx", "Server").Str("demo", name).Msg("")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"demo": name})
}

// Returns true if file name starts with dot.
func hiddenFile(name string) bool {
	return strings.HasPrefix(name, ".")
}

// containsHiddenFile reports whether name contains a path element starting with a period.
func containsHiddenFile(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if hiddenFile(part) {
			return true
		}
	}
	return false
}

// demoFileSystem serves demo files only.
type demoFileSystem struct {
	http.FileSystem
}

func (fsys demoFileSystem) Open(name string) (http.File, error) {
	if containsHiddenFile(name) || !demofs.IsDemoName(filepath.Base(name)) {
		return nil, fs.ErrPermission
	}
	return fsys.FileSystem.Open(name)
}

// Handler returns the routes of the server.
func (sv *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/demos", sv.demosHandler).Methods(http.MethodGet)
	api.HandleFunc("/demos/{name}/parse", sv.parseHandler).Methods(http.MethodPost)
	api.HandleFunc("/demos/{name}/header", sv.headerHandler).Methods(http.MethodGet)
	api.HandleFunc("/demos/{name}/players", sv.playersHandler).Methods(http.MethodGet)
	api.HandleFunc("/demos/{name}/positions", sv.positionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/demos/{name}/events", sv.eventsHandler).Methods(http.MethodGet)
	api.HandleFunc("/demos/{name}/cvars", sv.cvarsHandler).Methods(http.MethodGet)
	api.HandleFunc("/demos/{name}/stats", sv.statsHandler).Methods(http.MethodGet)

	// Raw demo download.
	demosFileSys := demoFileSystem{http.Dir(sv.catalog.Dir())}
	r.PathPrefix("/demos/").Handler(http.StripPrefix("/demos/", http.FileServer(demosFileSys)))

	return r
}

// Serve HTTP requests on l until ctx is done.
func (sv *Server) Serve(ctx context.Context, l net.Listener) (err error) {
	defer func() { err = multierror.Prefix(err, "Server.Serve:") }()

	// Replace stdlog with zerolog inside http server.
	stdLog := stdlog.New(nil, "", 0)
	stdLog.SetFlags(0)
	stdLog.SetOutput(log.Logger)

	s := &http.Server{
		Handler:      sv.Handler(),
		ErrorLog:     stdLog,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(shutdownCtx)
	}()

	if err = s.Serve(l); errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
