package netmsg

import "strconv"

//
// Numeric ids of NET_ and SVC_ messages as they appear inside demo packets.
//

type Cmd uint32

const (
	NetNOP             Cmd = 0
	NetDisconnect      Cmd = 1
	NetFile            Cmd = 2
	NetSplitScreenUser Cmd = 3
	NetTick            Cmd = 4
	NetStringCmd       Cmd = 5
	NetSetConVar       Cmd = 6
	NetSignonState     Cmd = 7

	SvcServerInfo        Cmd = 8
	SvcSendTable         Cmd = 9
	SvcClassInfo         Cmd = 10
	SvcSetPause          Cmd = 11
	SvcCreateStringTable Cmd = 12
	SvcUpdateStringTable Cmd = 13
	SvcVoiceInit         Cmd = 14
	SvcVoiceData         Cmd = 15
	SvcPrint             Cmd = 16
	SvcSounds            Cmd = 17
	SvcSetView           Cmd = 18
	SvcFixAngle          Cmd = 19
	SvcCrosshairAngle    Cmd = 20
	SvcBSPDecal          Cmd = 21
	SvcSplitScreen       Cmd = 22
	SvcUserMessage       Cmd = 23
	SvcEntityMessage     Cmd = 24
	SvcGameEvent         Cmd = 25
	SvcPacketEntities    Cmd = 26
	SvcTempEntities      Cmd = 27
	SvcPrefetch          Cmd = 28
	SvcMenu              Cmd = 29
	SvcGameEventList     Cmd = 30
	SvcGetCvarValue      Cmd = 31
)

var cmdNames = [...]string{
	NetNOP:               "net_NOP",
	NetDisconnect:        "net_Disconnect",
	NetFile:              "net_File",
	NetSplitScreenUser:   "net_SplitScreenUser",
	NetTick:              "net_Tick",
	NetStringCmd:         "net_StringCmd",
	NetSetConVar:         "net_SetConVar",
	NetSignonState:       "net_SignonState",
	SvcServerInfo:        "svc_ServerInfo",
	SvcSendTable:         "svc_SendTable",
	SvcClassInfo:         "svc_ClassInfo",
	SvcSetPause:          "svc_SetPause",
	SvcCreateStringTable: "svc_CreateStringTable",
	SvcUpdateStringTable: "svc_UpdateStringTable",
	SvcVoiceInit:         "svc_VoiceInit",
	SvcVoiceData:         "svc_VoiceData",
	SvcPrint:             "svc_Print",
	SvcSounds:            "svc_Sounds",
	SvcSetView:           "svc_SetView",
	SvcFixAngle:          "svc_FixAngle",
	SvcCrosshairAngle:    "svc_CrosshairAngle",
	SvcBSPDecal:          "svc_BSPDecal",
	SvcSplitScreen:       "svc_SplitScreen",
	SvcUserMessage:       "svc_UserMessage",
	SvcEntityMessage:     "svc_EntityMessage",
	SvcGameEvent:         "svc_GameEvent",
	SvcPacketEntities:    "svc_PacketEntities",
	SvcTempEntities:      "svc_TempEntities",
	SvcPrefetch:          "svc_Prefetch",
	SvcMenu:              "svc_Menu",
	SvcGameEventList:     "svc_GameEventList",
	SvcGetCvarValue:      "svc_GetCvarValue",
}

func (c Cmd) String() string {
	if int(c) < len(cmdNames) {
		return cmdNames[c]
	}
	return "cmd_" + strconv.FormatUint(uint64(c), 10)
}

// Known reports whether c is a NET_ or SVC_ message id.
func (c Cmd) Known() bool {
	return int(c) < len(cmdNames)
}

// GameEvent key value types.
const (
	EventKeyString  = 1
	EventKeyFloat   = 2
	EventKeyLong    = 3
	EventKeyShort   = 4
	EventKeyByte    = 5
	EventKeyBool    = 6
	EventKeyUint64  = 7
	EventKeyWString = 8
)
