package history

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dartopia/darts-server/internal/session"
)

// Match is the archived row for a finished game. Live sessions stay in
// memory; only the final result and its raw throw log are written.
type Match struct {
	ID         uint      `gorm:"primaryKey"`
	Code       string    `gorm:"index;not null"`
	Variant    string    `gorm:"not null"`
	Winner     string
	FinishedAt time.Time
	Throws     []Throw `gorm:"foreignKey:MatchID"`
}

type Throw struct {
	ID         uint `gorm:"primaryKey"`
	MatchID    uint `gorm:"index"`
	Seq        int
	PlayerID   string
	Section    int
	Multiplier int
	Points     int
	Reverted   bool
	At         time.Time
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, zlog *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Match{}, &Throw{}); err != nil {
		return nil, err
	}
	return &Store{db: db, log: zlog}, nil
}

// RecordMatch implements session.Recorder.
func (s *Store) RecordMatch(snap session.Snapshot) error {
	m := Match{
		Code:       snap.ID,
		Variant:    snap.Variant,
		Winner:     snap.Winner,
		FinishedAt: time.Now(),
		Throws:     make([]Throw, 0, len(snap.Events)),
	}
	for _, ev := range snap.Events {
		m.Throws = append(m.Throws, Throw{
			Seq:        ev.Seq,
			PlayerID:   ev.PlayerID,
			Section:    ev.Section,
			Multiplier: ev.Multiplier,
			Points:     ev.Points,
			Reverted:   ev.Reverted,
			At:         ev.At,
		})
	}
	if err := s.db.Create(&m).Error; err != nil {
		return err
	}
	s.log.Info("match archived",
		zap.String("session", snap.ID),
		zap.String("winner", snap.Winner),
		zap.Int("throws", len(m.Throws)))
	return nil
}
