package export

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// JSON writes one gzip compressed JSON document per demo into a directory.
type JSON struct {
	dir string
}

func NewJSON(dir string) *JSON {
	if dir == "" {
		dir = "."
	}
	return &JSON{dir: dir}
}

type jsonDocument struct {
	Name   string `json:"name"`
	XXH3   string `json:"xxh3,omitempty"`
	SHA3   string `json:"sha3,omitempty"`
	Result any    `json:"result"`
}

// WriteJSON encodes d into w, gzip compressed when compress is set.
func WriteJSON(w io.Writer, d *Demo, compress bool) (err error) {
	defer func() { err = multierror.Prefix(err, "WriteJSON:") }()

	var zw *gzip.Writer
	if compress {
		zw = gzip.NewWriter(w)
		w = zw
	}
	doc := jsonDocument{
		Name:   d.Name,
		XXH3:   d.Hash.XXH3,
		SHA3:   d.Hash.SHA3,
		Result: d.Result,
	}
	if err = json.NewEncoder(w).Encode(&doc); err != nil {
		return err
	}
	if zw != nil {
		return zw.Close()
	}
	return nil
}

// FileName is the output file of the demo called name.
func (j *JSON) FileName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(j.dir, base+".json.gz")
}

func (j *JSON) Export(ctx context.Context, d *Demo) (err error) {
	defer func() { err = multierror.Prefix(err, "JSON.Export:") }()

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}
	name := j.FileName(d.Name)
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err = WriteJSON(f, d, true); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	log.Debug().Str("ctx", "export").Str("event", "json").Str("file", name).Msg("")
	return nil
}

func (j *JSON) Close() error {
	return nil
}
