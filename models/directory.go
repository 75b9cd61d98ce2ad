package models

import "time"

// The tables below belong to the user and property modules. The governance
// core only reads them.

type User struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Name      string    `gorm:"size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Role struct {
	ID   uint64 `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;not null;uniqueIndex" json:"name"`
}

type UserRole struct {
	UserID uint64 `gorm:"primaryKey;autoIncrement:false"`
	RoleID uint64 `gorm:"primaryKey;autoIncrement:false"`
}

type Building struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Address   string    `gorm:"size:255;not null" json:"address"`
	IsDeleted bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Apartment struct {
	ID         uint64   `gorm:"primaryKey" json:"id"`
	BuildingID uint64   `gorm:"not null;index" json:"building_id"`
	Number     string   `gorm:"size:64;not null" json:"number"`
	SizeSqM    *float64 `gorm:"column:size_sq_m" json:"size_sq_m"`
	IsDeleted  bool     `gorm:"not null;default:false" json:"-"`
}

type ApartmentOwner struct {
	ApartmentID uint64 `gorm:"primaryKey;autoIncrement:false"`
	UserID      uint64 `gorm:"primaryKey;autoIncrement:false;index"`
}

type ApartmentRenter struct {
	ID          uint64 `gorm:"primaryKey"`
	ApartmentID uint64 `gorm:"not null;index"`
	UserID      uint64 `gorm:"not null;index"`
	IsActive    bool   `gorm:"not null;default:true"`
}

type BuildingManager struct {
	BuildingID uint64 `gorm:"primaryKey;autoIncrement:false"`
	UserID     uint64 `gorm:"primaryKey;autoIncrement:false;index"`
}

// OwnedApartment is an apartment as seen by the ownership snapshot.
type OwnedApartment struct {
	ApartmentID uint64   `gorm:"column:apartment_id"`
	BuildingID  uint64   `gorm:"column:building_id"`
	SizeSqM     *float64 `gorm:"column:size_sq_m"`
}

// AllModels is the migration set in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&User{}, &Role{}, &UserRole{},
		&Building{}, &Apartment{}, &ApartmentOwner{}, &ApartmentRenter{}, &BuildingManager{},
		&Proposal{}, &Vote{}, &ProposalResult{},
	}
}
