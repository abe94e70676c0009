package demo

import (
	"fmt"
	"math/bits"

	"github.com/hashicorp/go-multierror"
	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
	"github.com/qw-group/srcdemo-go/pkg/netmsg"
)

//
// String tables: creation, incremental updates and the full dump frame.
//

const (
	userInfoTable = "userinfo"

	stringHistorySize  = 32
	substringBits      = 5
	maxUserDataBits    = 14
	maxStringTableName = 256
	maxEntryNameLen    = 1024
	maxDumpEntryLen    = 4096
)

type StringTableEntry struct {
	String   string `json:"string"`
	UserData []byte `json:"userData,omitempty"`
}

type StringTable struct {
	Name              string             `json:"name"`
	MaxEntries        int                `json:"maxEntries"`
	UserDataFixedSize bool               `json:"userDataFixedSize"`
	UserDataSize      int                `json:"userDataSize"`
	UserDataSizeBits  int                `json:"userDataSizeBits"`
	Flags             int                `json:"flags"`
	Entries           []StringTableEntry `json:"entries"`
}

func (t *StringTable) set(i int, s string, ud []byte) {
	for len(t.Entries) <= i {
		t.Entries = append(t.Entries, StringTableEntry{})
	}
	t.Entries[i].String = s
	if ud != nil {
		t.Entries[i].UserData = ud
	}
}

func (t *StringTable) entry(i int) (StringTableEntry, bool) {
	if i < 0 || i >= len(t.Entries) {
		return StringTableEntry{}, false
	}
	return t.Entries[i], true
}

// stringHistory holds the last decoded names for substring references.
// Oldest entries go first once it is full.
type stringHistory struct {
	items []string
}

func (h *stringHistory) push(s string) {
	if len(h.items) == stringHistorySize {
		copy(h.items, h.items[1:])
		h.items = h.items[:stringHistorySize-1]
	}
	h.items = append(h.items, s)
}

// prefix returns the first n bytes of history entry i.
func (h *stringHistory) prefix(i, n int) (string, bool) {
	if i < 0 || i >= len(h.items) {
		return "", false
	}
	s := h.items[i]
	if n > len(s) {
		n = len(s)
	}
	return s[:n], true
}

func (p *Parser) findStringTable(name string) *StringTable {
	for _, t := range p.stringTables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func (p *Parser) createStringTable(m *netmsg.CreateStringTable) (err error) {
	defer func() { err = multierror.Prefix(err, "Parser.createStringTable:") }()

	t := &StringTable{
		Name:              m.Name,
		MaxEntries:        int(m.MaxEntries),
		UserDataFixedSize: m.UserDataFixedSize,
		UserDataSize:      int(m.UserDataSize),
		UserDataSizeBits:  int(m.UserDataSizeBits),
		Flags:             int(m.Flags),
	}
	// Tables are referenced by creation order in updates.
	p.stringTables = append(p.stringTables, t)

	p.log.Trace().Str("ctx", "Parser").Str("event", "createStringTable").Str("name", t.Name).
		Int("maxEntries", t.MaxEntries).Int32("entries", m.NumEntries).Msg("")

	return p.decodeStringTable(bitbuf.NewBitReader(m.StringData), t, int(m.NumEntries))
}

func (p *Parser) updateStringTable(m *netmsg.UpdateStringTable) (err error) {
	defer func() { err = multierror.Prefix(err, "Parser.updateStringTable:") }()

	if m.TableID < 0 || int(m.TableID) >= len(p.stringTables) {
		p.log.Warn().Str("ctx", "Parser").Str("event", "updateStringTable").Int32("table", m.TableID).Msg("unknown table")
		return nil
	}
	t := p.stringTables[m.TableID]
	return p.decodeStringTable(bitbuf.NewBitReader(m.StringData), t, int(m.NumChangedEntries))
}

// decodeStringTable applies numEntries encoded entries to t.
func (p *Parser) decodeStringTable(r *bitbuf.BitReader, t *StringTable, numEntries int) error {
	// Dictionary encoded tables are not supported.
	if r.ReadBool() {
		p.log.Debug().Str("ctx", "Parser").Str("event", "unsupportedEncoding").Str("table", t.Name).Msg("dictionary")
		p.stats.UnsupportedTables.Inc()
		return r.Err()
	}

	entryBits := 0
	if t.MaxEntries > 0 {
		entryBits = bits.Len(uint(t.MaxEntries)) - 1
	}

	var history stringHistory
	last := -1
	for i := 0; i < numEntries; i++ {
		index := last + 1
		if !r.ReadBool() {
			index = int(r.ReadUBits(entryBits))
		}
		last = index

		if index < 0 || (t.MaxEntries > 0 && index >= t.MaxEntries) {
			return fmt.Errorf("table %q: entry %d out of %d: %w", t.Name, index, t.MaxEntries, ErrMalformedFraming)
		}

		old, _ := t.entry(index)
		name := old.String
		sent := ""
		if r.ReadBool() {
			if r.ReadBool() {
				hi := int(r.ReadUBits(substringBits))
				n := int(r.ReadUBits(substringBits))
				prefix, ok := history.prefix(hi, n)
				if !ok && r.Err() == nil {
					return fmt.Errorf("table %q: history index %d out of %d: %w", t.Name, hi, len(history.items), ErrMalformedFraming)
				}
				name = prefix + r.ReadCString(maxEntryNameLen)
			} else {
				name = r.ReadCString(maxEntryNameLen)
			}
			sent = name
		}

		var userData []byte
		if r.ReadBool() {
			if t.UserDataFixedSize {
				userData = r.ReadBitsAsBytes(t.UserDataSizeBits)
			} else {
				userData = r.ReadBytes(int(r.ReadUBits(maxUserDataBits)))
			}
		}

		if err := r.Err(); err != nil {
			return fmt.Errorf("table %q: %w", t.Name, err)
		}

		t.set(index, name, userData)
		// An entry without a name takes an empty history slot.
		history.push(sent)

		if t.Name == userInfoTable && userData != nil {
			p.setPlayerInfo(index, userData)
		}
	}
	return nil
}

// readStringTablesDump decodes a DEM_STRINGTABLES frame.
func (p *Parser) readStringTablesDump(r *bitbuf.BitReader) (err error) {
	defer func() { err = multierror.Prefix(err, "Parser.readStringTablesDump:") }()

	numTables := int(r.ReadUint8())
	for i := 0; i < numTables; i++ {
		name := r.ReadCString(maxStringTableName)
		t := p.findStringTable(name)
		if t == nil {
			t = &StringTable{Name: name}
			p.stringTables = append(p.stringTables, t)
		}

		numEntries := int(r.ReadUint16())
		for e := 0; e < numEntries; e++ {
			s := r.ReadCString(maxDumpEntryLen)
			var userData []byte
			if r.ReadBool() {
				userData = r.ReadBytes(int(r.ReadUint16()))
			}
			if err := r.Err(); err != nil {
				return fmt.Errorf("table %q: %w", name, err)
			}
			t.set(e, s, userData)
			if name == userInfoTable && userData != nil {
				p.setPlayerInfo(e, userData)
			}
		}

		// Client side entries, not kept.
		if r.ReadBool() {
			numEntries := int(r.ReadUint16())
			for e := 0; e < numEntries; e++ {
				r.ReadCString(maxDumpEntryLen)
				if r.ReadBool() {
					r.ReadBytes(int(r.ReadUint16()))
				}
			}
		}
		if err := r.Err(); err != nil {
			return fmt.Errorf("table %q: %w", name, err)
		}

		p.log.Trace().Str("ctx", "Parser").Str("event", "stringTableDump").Str("name", name).Int("entries", numEntries).Msg("")
	}
	return r.Err()
}

// setPlayerInfo upserts the player of a userinfo slot.
func (p *Parser) setPlayerInfo(slot int, userData []byte) {
	for len(p.playerInfos) <= slot {
		p.playerInfos = append(p.playerInfos, nil)
	}
	pi := parsePlayerInfo(slot, userData)
	if pi.Disconnected && p.playerInfos[slot] != nil {
		// Keep the identity of who left.
		prev := *p.playerInfos[slot]
		prev.Disconnected = true
		pi = &prev
	}
	p.playerInfos[slot] = pi

	p.log.Trace().Str("ctx", "Parser").Str("event", "playerInfo").Int("slot", slot).
		Str("name", pi.Name).Int32("userId", pi.UserID).Bool("disconnected", pi.Disconnected).Msg("")
}
