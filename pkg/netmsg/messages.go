package netmsg

//
// Decoded message variants. Only the fields the demo decoder consumes are kept,
// everything else is skipped on the wire.
//

// Message is a decoded NET_ or SVC_ message.
type Message interface {
	Cmd() Cmd
}

type Tick struct {
	Tick                      uint32
	HostComputationTime       uint32
	HostComputationTimeStdDev uint32
	HostFrameStartTimeStdDev  uint32
}

type ConVar struct {
	Name  string
	Value string
}

type SetConVar struct {
	ConVars []ConVar
}

type SignonState struct {
	SignonState      uint32
	SpawnCount       uint32
	NumServerPlayers uint32
	MapName          string
}

type ServerInfo struct {
	Protocol     int32
	ServerCount  int32
	IsDedicated  bool
	IsHLTV       bool
	OS           int32
	MapCRC       uint32
	MaxClients   int32
	MaxClasses   int32
	PlayerSlot   int32
	TickInterval float32
	GameDir      string
	MapName      string
	MapGroupName string
	SkyName      string
	HostName     string
}

type SendTableProp struct {
	Type        int32
	VarName     string
	Flags       int32
	Priority    int32
	DTName      string
	NumElements int32
	LowValue    float32
	HighValue   float32
	NumBits     int32
}

type SendTable struct {
	IsEnd        bool
	NetTableName string
	NeedsDecoder bool
	Props        []SendTableProp
}

type CreateStringTable struct {
	Name              string
	MaxEntries        int32
	NumEntries        int32
	UserDataFixedSize bool
	UserDataSize      int32
	UserDataSizeBits  int32
	Flags             int32
	StringData        []byte
}

type UpdateStringTable struct {
	TableID           int32
	NumChangedEntries int32
	StringData        []byte
}

type PacketEntities struct {
	MaxEntries     int32
	UpdatedEntries int32
	IsDelta        bool
	UpdateBaseline bool
	Baseline       int32
	DeltaFrom      int32
	EntityData     []byte
}

type GameEventKeyDescriptor struct {
	Type int32
	Name string
}

type GameEventDescriptor struct {
	EventID int32
	Name    string
	Keys    []GameEventKeyDescriptor
}

type GameEventList struct {
	Descriptors []GameEventDescriptor
}

type GameEventKey struct {
	Type       int32
	ValString  string
	ValFloat   float32
	ValLong    int32
	ValShort   int32
	ValByte    int32
	ValBool    bool
	ValUint64  uint64
	ValWString []byte
}

type GameEvent struct {
	EventName   string
	EventID     int32
	Keys        []GameEventKey
	Passthrough int32
}

type Print struct {
	Text string
}

// Unknown carries a message the codec has no decoder for.
type Unknown struct {
	Command Cmd
	Raw     []byte
}

func (*Tick) Cmd() Cmd              { return NetTick }
func (*SetConVar) Cmd() Cmd         { return NetSetConVar }
func (*SignonState) Cmd() Cmd       { return NetSignonState }
func (*ServerInfo) Cmd() Cmd        { return SvcServerInfo }
func (*SendTable) Cmd() Cmd         { return SvcSendTable }
func (*CreateStringTable) Cmd() Cmd { return SvcCreateStringTable }
func (*UpdateStringTable) Cmd() Cmd { return SvcUpdateStringTable }
func (*PacketEntities) Cmd() Cmd    { return SvcPacketEntities }
func (*GameEventList) Cmd() Cmd     { return SvcGameEventList }
func (*GameEvent) Cmd() Cmd         { return SvcGameEvent }
func (*Print) Cmd() Cmd             { return SvcPrint }
func (m *Unknown) Cmd() Cmd         { return m.Command }
