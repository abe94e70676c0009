package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//
// SQLite storage of parsed demos.
//

type DemoRow struct {
	ID            uint      `json:"id" gorm:"primarykey"`
	CreatedAt     time.Time `json:"createdAt"`
	Name          string    `json:"name" gorm:"size:255;index:idx_demo_name"`
	XXH3          string    `json:"xxh3" gorm:"size:16"`
	SHA3          string    `json:"sha3" gorm:"size:64"`
	MapName       string    `json:"mapName" gorm:"size:260"`
	ServerName    string    `json:"serverName" gorm:"size:260"`
	ClientName    string    `json:"clientName" gorm:"size:260"`
	PlaybackTime  float32   `json:"playbackTime"`
	PlaybackTicks int32     `json:"playbackTicks"`
	TickInterval  float32   `json:"tickInterval"`
}

func (DemoRow) TableName() string { return "demos" }

type PlayerRow struct {
	ID           uint    `json:"id" gorm:"primarykey"`
	DemoID       uint    `json:"demoId" gorm:"index:idx_player_demo_id"`
	Demo         DemoRow `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	Slot         int     `json:"slot"`
	UserID       int32   `json:"userId"`
	Name         string  `json:"name" gorm:"size:128"`
	GUID         string  `json:"guid" gorm:"size:33"`
	XUID         int64   `json:"xuid"`
	IsFakePlayer bool    `json:"fakePlayer"`
	IsHLTV       bool    `json:"hltv"`
}

func (PlayerRow) TableName() string { return "players" }

type PositionRow struct {
	ID     uint    `json:"id" gorm:"primarykey"`
	DemoID uint    `json:"demoId" gorm:"index:idx_position_demo_tick"`
	Demo   DemoRow `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	Tick   int32   `json:"tick" gorm:"index:idx_position_demo_tick"`
	Slot   int     `json:"slot"`
	UserID int32   `json:"userId"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Z      float32 `json:"z"`
	Pitch  float32 `json:"pitch"`
	Yaw    float32 `json:"yaw"`
	Team   string  `json:"team" gorm:"size:2"`
}

func (PositionRow) TableName() string { return "positions" }

type EventRow struct {
	ID      uint    `json:"id" gorm:"primarykey"`
	DemoID  uint    `json:"demoId" gorm:"index:idx_event_demo_id"`
	Demo    DemoRow `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	Tick    int32   `json:"tick"`
	EventID int32   `json:"eventId"`
	Name    string  `json:"name" gorm:"size:64;index:idx_event_name"`
	Fields  string  `json:"fields"` // JSON object.
}

func (EventRow) TableName() string { return "events" }

var models = []any{
	&DemoRow{},
	&PlayerRow{},
	&PositionRow{},
	&EventRow{},
}

type SQLite struct {
	DB *gorm.DB
}

// OpenSQLite opens or creates the database file at path and migrates the schema.
func OpenSQLite(path string) (s *SQLite, err error) {
	defer func() { err = multierror.Prefix(err, "OpenSQLite:") }()

	if path == "" {
		return nil, fmt.Errorf("empty database path")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}

	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %s", err)
	}
	log.Debug().Str("ctx", "export").Str("event", "sqlite").Str("path", path).Msg("opened")
	return &SQLite{DB: db}, nil
}

func demoRow(d *Demo) *DemoRow {
	r := d.Result
	return &DemoRow{
		Name:          d.Name,
		XXH3:          d.Hash.XXH3,
		SHA3:          d.Hash.SHA3,
		MapName:       r.Header.MapName,
		ServerName:    r.Header.ServerName,
		ClientName:    r.Header.ClientName,
		PlaybackTime:  r.Header.PlaybackTime,
		PlaybackTicks: r.Header.PlaybackTicks,
		TickInterval:  r.ServerInfo.TickInterval,
	}
}

// Export stores d in one transaction and returns the demo row id through d.
func (s *SQLite) Export(ctx context.Context, d *Demo) (err error) {
	defer func() { err = multierror.Prefix(err, "SQLite.Export:") }()

	_, err = s.Store(ctx, d)
	return err
}

// Store is Export returning the id of the inserted demo row.
func (s *SQLite) Store(ctx context.Context, d *Demo) (id uint, err error) {
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := demoRow(d)
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		id = row.ID

		r := d.Result
		players := make([]PlayerRow, 0, len(r.Players))
		for _, pi := range r.Players {
			players = append(players, PlayerRow{
				DemoID:       id,
				Slot:         pi.Slot,
				UserID:       pi.UserID,
				Name:         pi.Name,
				GUID:         pi.GUID,
				XUID:         int64(pi.XUID),
				IsFakePlayer: pi.IsFakePlayer,
				IsHLTV:       pi.IsHLTV,
			})
		}
		if len(players) > 0 {
			if err := tx.Create(&players).Error; err != nil {
				return err
			}
		}

		var positions []PositionRow
		if r.Positions != nil {
			for _, tick := range r.Positions.Ticks() {
				for _, pt := range r.Positions.At(tick) {
					positions = append(positions, PositionRow{
						DemoID: id,
						Tick:   pt.Tick,
						Slot:   pt.Slot,
						UserID: pt.UserID,
						X:      pt.X,
						Y:      pt.Y,
						Z:      pt.Z,
						Pitch:  pt.Pitch,
						Yaw:    pt.Yaw,
						Team:   pt.Team,
					})
				}
			}
		}
		if len(positions) > 0 {
			if err := tx.Create(&positions).Error; err != nil {
				return err
			}
		}

		events := make([]EventRow, 0, len(r.Events))
		for _, ev := range r.Events {
			fields, err := json.Marshal(ev.Fields)
			if err != nil {
				return err
			}
			events = append(events, EventRow{
				DemoID:  id,
				Tick:    ev.Tick,
				EventID: ev.ID,
				Name:    ev.Name,
				Fields:  string(fields),
			})
		}
		if len(events) > 0 {
			if err := tx.Create(&events).Error; err != nil {
				return err
			}
		}

		log.Debug().Str("ctx", "export").Str("event", "sqlite").Str("demo", d.Name).
			Int("players", len(players)).Int("positions", len(positions)).Int("events", len(events)).Msg("stored")
		return nil
	})
	return id, err
}

func (s *SQLite) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
