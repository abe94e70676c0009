package export

import (
	"context"
	"fmt"

	"github.com/qw-group/srcdemo-go/pkg/config"
	"github.com/qw-group/srcdemo-go/pkg/demo"
	"github.com/qw-group/srcdemo-go/pkg/demofs"
)

//
// Sinks for decoded demos.
//

// Demo is one parsed demo ready to be exported.
type Demo struct {
	Name   string
	Hash   demofs.Hashes
	Result *demo.Result
}

type Exporter interface {
	Export(ctx context.Context, d *Demo) error
	Close() error
}

const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
	KindInflux = "influx"
)

// New returns the exporter selected by cfg.Export.Kind, nil if none is.
func New(cfg *config.Config) (Exporter, error) {
	switch cfg.Export.Kind {
	case "":
		return nil, nil
	case KindJSON:
		return NewJSON(cfg.Export.Path), nil
	case KindSQLite:
		s, err := OpenSQLite(cfg.Export.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindInflux:
		return NewInflux(cfg.Export.Influx), nil
	}
	return nil, fmt.Errorf("export.New: unknown export kind %q", cfg.Export.Kind)
}
