package demo

import (
	"bytes"
	"encoding/binary"
)

//
// Player identity records carried as user data of the "userinfo" string table.
//

const (
	maxPlayerNameLength = 128
	signedGUIDLen       = 33
	maxCustomFiles      = 4

	offVersion         = 0
	offXUID            = 8
	offName            = 16
	offUserID          = offName + maxPlayerNameLength // 144
	offGUID            = offUserID + 4                 // 148
	offFriendsID       = offGUID + signedGUIDLen + 3   // 184, struct padding follows the guid.
	offFriendsName     = offFriendsID + 4              // 188
	offFakePlayer      = offFriendsName + maxPlayerNameLength
	offIsHLTV          = offFakePlayer + 1
	offCustomFiles     = offIsHLTV + 1 + 2 // 320
	offFilesDownloaded = offCustomFiles + 4*maxCustomFiles
	playerInfoMinSize  = offFilesDownloaded + 1 // 337
)

type PlayerInfo struct {
	Slot            int       `json:"slot"`
	Version         uint64    `json:"version"`
	XUID            uint64    `json:"xuid"`
	Name            string    `json:"name"`
	UserID          int32     `json:"userId"`
	GUID            string    `json:"guid"`
	FriendsID       uint32    `json:"friendsId"`
	FriendsName     string    `json:"friendsName"`
	IsFakePlayer    bool      `json:"fakePlayer"`
	IsHLTV          bool      `json:"hltv"`
	CustomFiles     [4]uint32 `json:"customFiles"`
	FilesDownloaded uint8     `json:"filesDownloaded"`
	Disconnected    bool      `json:"disconnected"`
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// parsePlayerInfo decodes a userinfo blob. Numeric ids are big-endian, the
// CRC list is little-endian. A short blob marks the slot disconnected.
func parsePlayerInfo(slot int, b []byte) *PlayerInfo {
	pi := &PlayerInfo{Slot: slot}
	if len(b) < playerInfoMinSize {
		pi.Disconnected = true
		return pi
	}

	pi.Version = binary.BigEndian.Uint64(b[offVersion:])
	pi.XUID = binary.BigEndian.Uint64(b[offXUID:])
	pi.Name = cString(b[offName : offName+maxPlayerNameLength])
	pi.UserID = int32(binary.BigEndian.Uint32(b[offUserID:]))
	pi.GUID = cString(b[offGUID : offGUID+signedGUIDLen])
	pi.FriendsID = binary.BigEndian.Uint32(b[offFriendsID:])
	pi.FriendsName = cString(b[offFriendsName : offFriendsName+maxPlayerNameLength])
	pi.IsFakePlayer = b[offFakePlayer] != 0
	pi.IsHLTV = b[offIsHLTV] != 0
	for i := range pi.CustomFiles {
		pi.CustomFiles[i] = binary.LittleEndian.Uint32(b[offCustomFiles+4*i:])
	}
	pi.FilesDownloaded = b[offFilesDownloaded]
	return pi
}

// MarshalPlayerInfo is the inverse of the userinfo decoding.
func MarshalPlayerInfo(pi *PlayerInfo) []byte {
	b := make([]byte, playerInfoMinSize+3)
	binary.BigEndian.PutUint64(b[offVersion:], pi.Version)
	binary.BigEndian.PutUint64(b[offXUID:], pi.XUID)
	copy(b[offName:offName+maxPlayerNameLength-1], pi.Name)
	binary.BigEndian.PutUint32(b[offUserID:], uint32(pi.UserID))
	copy(b[offGUID:offGUID+signedGUIDLen-1], pi.GUID)
	binary.BigEndian.PutUint32(b[offFriendsID:], pi.FriendsID)
	copy(b[offFriendsName:offFriendsName+maxPlayerNameLength-1], pi.FriendsName)
	if pi.IsFakePlayer {
		b[offFakePlayer] = 1
	}
	if pi.IsHLTV {
		b[offIsHLTV] = 1
	}
	for i, crc := range pi.CustomFiles {
		binary.LittleEndian.PutUint32(b[offCustomFiles+4*i:], crc)
	}
	b[offFilesDownloaded] = pi.FilesDownloaded
	return b
}
