package demo

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
	"github.com/qw-group/srcdemo-go/pkg/netmsg"
)

const maxClassName = 256

// readDataTables decodes a DEM_DATATABLES frame: send tables up to the one
// marked as end, then the server class list. Every class is flattened.
func (p *Parser) readDataTables(r *bitbuf.BitReader) (err error) {
	defer func() { err = multierror.Prefix(err, "Parser.readDataTables:") }()

	p.sendTables = p.sendTables[:0]
	for {
		cmd := netmsg.Cmd(r.ReadVarUint32())
		size := int(r.ReadVarUint32())
		if err := r.Err(); err != nil {
			return err
		}
		if size > r.BitsLeft()/8 {
			return fmt.Errorf("%v size %d overruns data tables: %w", cmd, size, ErrMalformedFraming)
		}
		b := r.ReadBytes(size)

		msg, err := p.codec.Decode(cmd, b)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedFraming, err)
		}
		m, ok := msg.(*netmsg.SendTable)
		if !ok {
			return fmt.Errorf("expected %v, got %v: %w", netmsg.SvcSendTable, cmd, ErrMalformedFraming)
		}
		if m.IsEnd {
			break
		}
		p.sendTables = append(p.sendTables, newSendTable(m))
	}

	numClasses := int(r.ReadInt16())
	if err := r.Err(); err != nil {
		return err
	}
	if numClasses < 0 {
		return fmt.Errorf("negative class count %d: %w", numClasses, ErrMalformedFraming)
	}

	p.serverClasses = make([]*ServerClass, 0, numClasses)
	for i := 0; i < numClasses; i++ {
		sc := &ServerClass{
			ClassID: int(r.ReadInt16()),
			Name:    r.ReadCString(maxClassName),
			DTName:  r.ReadCString(maxClassName),
		}
		if err := r.Err(); err != nil {
			return err
		}
		p.serverClasses = append(p.serverClasses, sc)
	}
	p.classBits = serverClassBits(numClasses)

	f := newFlattener(p.sendTables, p.log, &p.stats)
	for _, sc := range p.serverClasses {
		f.flatten(sc)
	}

	p.log.Debug().Str("ctx", "Parser").Str("event", "dataTables").Int("tables", len(p.sendTables)).
		Int("classes", numClasses).Int("classBits", p.classBits).Msg("")
	return nil
}
