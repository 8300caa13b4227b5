package data

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Player is the chip account for one player name. Balances survive
// restarts; round history deliberately does not.
type Player struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"unique; not null"`
	Chips     uint64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}

// FindPlayerByName searches for a player with the specified name, returning
// the *Player instance if found or nil if there is no match.
func FindPlayerByName(db *gorm.DB, name string) (*Player, error) {
	var player Player
	err := db.Where("name = ?", name).First(&player).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &player, nil
}

// CreatePlayer persists the Player record to the database.
func CreatePlayer(db *gorm.DB, player *Player) error {
	return db.Create(player).Error
}

// UpdatePlayerChips persists a new chip balance for the player.
func UpdatePlayerChips(db *gorm.DB, player *Player, chips uint64) error {
	player.Chips = chips
	return db.Model(player).Update("chips", chips).Error
}

// DeletePlayer soft-deletes a Player record from the database.
func DeletePlayer(db *gorm.DB, player *Player) error {
	return db.Delete(player).Error
}
