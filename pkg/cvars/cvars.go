package cvars

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

//
// Console variables the server pushed to the client with net_SetConVar.
//

const (
	MaxNameLen  = 260
	MaxValueLen = 4096
)

var (
	ErrTooLong   = errors.New("cvars: too long name or value")
	ErrEmptyName = errors.New("cvars: empty name")
	ErrBadChars  = errors.New("cvars: bad characters inside name or value")
)

// Console variables storage object.
type Store struct {
	vars map[string]string
}

func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Remove all variables.
func (s *Store) Reset() {
	*s = Store{
		vars: map[string]string{},
	}
}

func (s *Store) Len() int {
	return len(s.vars)
}

// Get value for name, empty if not set.
func (s *Store) Get(name string) string {
	value, _ := s.GetOK(name)
	return value
}

// Get value for name with OK idiom.
func (s *Store) GetOK(name string) (value string, ok bool) {
	value, ok = s.vars[strings.ToLower(name)]
	return value, ok
}

// Names are case insensitive, values are kept verbatim.
func (s *Store) Set(name string, value string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) >= MaxNameLen || len(value) >= MaxValueLen {
		return ErrTooLong
	}
	if strings.ContainsAny(name, " \"\x00\r\n;") || strings.ContainsAny(value, "\x00\r\n") {
		return ErrBadChars
	}
	if s.vars == nil {
		s.Reset() // Allow using zero value.
	}
	s.vars[strings.ToLower(name)] = value
	return nil
}

// SetAll applies name/value pairs, bad pairs are skipped and reported together.
func (s *Store) SetAll(pairs [][2]string) (mErr error) {
	defer func() { mErr = multierror.Prefix(mErr, "Store.SetAll:") }()

	for _, p := range pairs {
		if err := s.Set(p[0], p[1]); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%q: %w", p[0], err))
		}
	}
	return mErr
}

// Names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.vars))
	for k := range s.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of all variables.
func (s *Store) Map() map[string]string {
	m := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		m[k] = v
	}
	return m
}

// String renders variables as config file lines: `name "value"`.
func (s *Store) String() string {
	var b strings.Builder
	for _, k := range s.Names() {
		fmt.Fprintf(&b, "%s %q\n", k, s.vars[k])
	}
	return b.String()
}

// PrintList print variables as human readable list.
func (s *Store) PrintList() string {
	var b strings.Builder
	for _, k := range s.Names() {
		fmt.Fprintf(&b, "%-31s %s\n", k, s.vars[k])
	}
	return b.String()
}
