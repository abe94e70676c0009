package demo

import (
	"math/bits"
	"sort"

	"github.com/qw-group/srcdemo-go/pkg/netmsg"
	"github.com/rs/zerolog"
)

//
// Send tables, server classes and the flattening of a class into the
// ordered prop list which entity field indices refer to.
//

type PropType int32

const (
	PropInt PropType = iota
	PropFloat
	PropVector
	PropVectorXY
	PropString
	PropArray
	PropDataTable
	PropInt64
)

var propTypeNames = [...]string{"int", "float", "vector", "vectorxy", "string", "array", "datatable", "int64"}

func (t PropType) String() string {
	if t >= 0 && int(t) < len(propTypeNames) {
		return propTypeNames[t]
	}
	return "unknown"
}

type PropFlag uint32

const (
	PropUnsigned              PropFlag = 1 << 0
	PropCoord                 PropFlag = 1 << 1
	PropNoScale               PropFlag = 1 << 2
	PropRoundDown             PropFlag = 1 << 3
	PropRoundUp               PropFlag = 1 << 4
	PropNormal                PropFlag = 1 << 5
	PropExclude               PropFlag = 1 << 6
	PropXYZE                  PropFlag = 1 << 7
	PropInsideArray           PropFlag = 1 << 8
	PropProxyAlwaysYes        PropFlag = 1 << 9
	PropIsAVectorElem         PropFlag = 1 << 10
	PropCollapsible           PropFlag = 1 << 11
	PropCoordMP               PropFlag = 1 << 12
	PropCoordMPLowPrecision   PropFlag = 1 << 13
	PropCoordMPIntegral       PropFlag = 1 << 14
	PropCellCoord             PropFlag = 1 << 15
	PropCellCoordLowPrecision PropFlag = 1 << 16
	PropCellCoordIntegral     PropFlag = 1 << 17
	PropChangesOften          PropFlag = 1 << 18
	PropVarInt                PropFlag = 1 << 19
)

// Priority tier which also takes every PropChangesOften prop.
const changesOftenPriority = 64

type SendProp struct {
	Name         string
	Type         PropType
	Flags        PropFlag
	NumBits      int
	LowValue     float32
	HighValue    float32
	Priority     int
	NumElements  int
	DTName       string    // Referenced table of a DataTable prop.
	ArrayElement *SendProp // Element of an Array prop, the prop preceding it in its table.
}

func (p *SendProp) Has(f PropFlag) bool {
	return p.Flags&f != 0
}

type SendTable struct {
	Name         string
	NeedsDecoder bool
	Props        []*SendProp
}

func newSendTable(m *netmsg.SendTable) *SendTable {
	t := &SendTable{
		Name:         m.NetTableName,
		NeedsDecoder: m.NeedsDecoder,
		Props:        make([]*SendProp, 0, len(m.Props)),
	}
	for i, mp := range m.Props {
		p := &SendProp{
			Name:        mp.VarName,
			Type:        PropType(mp.Type),
			Flags:       PropFlag(mp.Flags),
			NumBits:     int(mp.NumBits),
			LowValue:    mp.LowValue,
			HighValue:   mp.HighValue,
			Priority:    int(mp.Priority),
			NumElements: int(mp.NumElements),
			DTName:      mp.DTName,
		}
		if p.Type == PropArray && i > 0 {
			p.ArrayElement = t.Props[i-1]
		}
		t.Props = append(t.Props, p)
	}
	return t
}

type ServerClass struct {
	ClassID        int
	Name           string
	DTName         string
	FlattenedProps []*SendProp
}

// serverClassBits is the width of a class id inside entity updates.
func serverClassBits(numClasses int) int {
	if numClasses <= 0 {
		return 0
	}
	return bits.Len(uint(numClasses))
}

type exclude struct {
	table string
	prop  string
}

// flattener resolves server classes against the send tables of one demo.
type flattener struct {
	tables   map[string]*SendTable
	excludes []exclude
	log      *zerolog.Logger
	stats    *Stats
}

func newFlattener(tables []*SendTable, log *zerolog.Logger, stats *Stats) *flattener {
	f := &flattener{
		tables: make(map[string]*SendTable, len(tables)),
		log:    log,
		stats:  stats,
	}
	for _, t := range tables {
		f.tables[t.Name] = t
	}
	return f
}

// lookup returns the named table, a missing one is logged and skipped.
func (f *flattener) lookup(name string) *SendTable {
	t, ok := f.tables[name]
	if !ok {
		f.log.Debug().Str("ctx", "flattener").Str("event", "unresolvedTable").Str("table", name).Msg("")
		f.stats.UnresolvedTables.Inc()
	}
	return t
}

// flatten fills sc.FlattenedProps.
func (f *flattener) flatten(sc *ServerClass) {
	sc.FlattenedProps = sc.FlattenedProps[:0]

	root := f.lookup(sc.DTName)
	if root == nil {
		return
	}

	f.excludes = f.excludes[:0]
	f.gatherExcludes(root)
	f.gatherProps(root, &sc.FlattenedProps)
	sortByPriority(sc.FlattenedProps)

	f.log.Trace().Str("ctx", "flattener").Str("event", "flatten").Int("class", sc.ClassID).
		Str("name", sc.Name).Int("props", len(sc.FlattenedProps)).Msg("")
}

func (f *flattener) gatherExcludes(t *SendTable) {
	for _, p := range t.Props {
		if p.Has(PropExclude) {
			f.excludes = append(f.excludes, exclude{table: p.DTName, prop: p.Name})
		}
		if p.Type == PropDataTable {
			if sub := f.lookup(p.DTName); sub != nil {
				f.gatherExcludes(sub)
			}
		}
	}
}

func (f *flattener) excluded(t *SendTable, p *SendProp) bool {
	for _, e := range f.excludes {
		if e.table == t.Name && e.prop == p.Name {
			return true
		}
	}
	return false
}

// gatherProps collects the props of t into a fresh list and appends it to out.
func (f *flattener) gatherProps(t *SendTable, out *[]*SendProp) {
	var props []*SendProp
	f.iterateProps(t, &props, out)
	*out = append(*out, props...)
}

// iterateProps walks t depth first. Collapsible sub-tables land in props,
// the other sub-tables are gathered straight into out.
func (f *flattener) iterateProps(t *SendTable, props, out *[]*SendProp) {
	for _, p := range t.Props {
		if p.Has(PropInsideArray) || p.Has(PropExclude) || f.excluded(t, p) {
			continue
		}

		if p.Type == PropDataTable {
			sub := f.lookup(p.DTName)
			if sub == nil {
				continue
			}
			if p.Has(PropCollapsible) {
				f.iterateProps(sub, props, out)
			} else {
				f.gatherProps(sub, out)
			}
			continue
		}

		*props = append(*props, p)
	}
}

// sortByPriority moves props into ascending priority tiers. For each tier the
// first matching prop at or after the partition point is swapped into it,
// which is not a stable sort. Tier 64 also takes PropChangesOften props.
func sortByPriority(props []*SendProp) {
	priorities := []int{changesOftenPriority}
	seen := map[int]bool{changesOftenPriority: true}
	for _, p := range props {
		if !seen[p.Priority] {
			seen[p.Priority] = true
			priorities = append(priorities, p.Priority)
		}
	}
	sort.Ints(priorities)

	start := 0
	for _, pri := range priorities {
		for {
			cur := start
			for ; cur < len(props); cur++ {
				p := props[cur]
				if p.Priority == pri || (pri == changesOftenPriority && p.Has(PropChangesOften)) {
					props[start], props[cur] = props[cur], props[start]
					start++
					break
				}
			}
			if cur == len(props) {
				break
			}
		}
	}
}
