package models

import "time"

// Sex values accepted for a pigeon.
const (
	SexMale    = "Male"
	SexFemale  = "Female"
	SexUnknown = "Unknown"
)

// Inline image slots on a pigeon: pigeon, father and mother images, the
// gallery and one per pedigree tier.
const (
	MaxGalleryImages = 3
	MaxPigeonImages  = 3 + MaxGalleryImages + 6
)

// ValidSex reports whether s is one of the accepted sex values.
func ValidSex(s string) bool {
	return s == SexMale || s == SexFemale || s == SexUnknown
}

// Ancestor is a single pedigree entry.
type Ancestor struct {
	Name  string `json:"name" validate:"max=100"`
	Image string `json:"image,omitempty"`
}

// Pedigree holds the ancestors above the parents, keyed by tier.
type Pedigree struct {
	GreatGreatGrandfather *Ancestor `json:"greatGreatGrandfather,omitempty"`
	GreatGreatGrandmother *Ancestor `json:"greatGreatGrandmother,omitempty"`
	GreatGrandfather      *Ancestor `json:"greatGrandfather,omitempty"`
	GreatGrandmother      *Ancestor `json:"greatGrandmother,omitempty"`
	Grandfather           *Ancestor `json:"grandfather,omitempty"`
	Grandmother           *Ancestor `json:"grandmother,omitempty"`
}

// Tiers returns pointers to every tier slot, in order from the oldest generation.
func (p *Pedigree) Tiers() map[string]**Ancestor {
	return map[string]**Ancestor{
		"greatGreatGrandfather": &p.GreatGreatGrandfather,
		"greatGreatGrandmother": &p.GreatGreatGrandmother,
		"greatGrandfather":      &p.GreatGrandfather,
		"greatGrandmother":      &p.GreatGrandmother,
		"grandfather":           &p.Grandfather,
		"grandmother":           &p.Grandmother,
	}
}

// RaceResult records a single race placing.
type RaceResult struct {
	Date     *Date   `json:"date,omitempty"`
	Location string  `json:"location,omitempty" validate:"max=100"`
	Distance float64 `json:"distance,omitempty" validate:"gte=0"`
	Position int     `json:"position,omitempty" validate:"gte=0"`
	Speed    float64 `json:"speed,omitempty" validate:"gte=0"`
}

// Vaccination records a single vaccination.
type Vaccination struct {
	Type  string `json:"type,omitempty" validate:"max=100"`
	Date  *Date  `json:"date,omitempty"`
	Notes string `json:"notes,omitempty" validate:"max=500"`
}

// Pigeon is a bird owned by exactly one user.
type Pigeon struct {
	ID           string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID      string        `json:"owner" gorm:"index:idx_pigeons_owner_name,priority:1;type:varchar(36);not null"`
	Name         string        `json:"name" gorm:"index:idx_pigeons_owner_name,priority:2;type:varchar(100);not null"`
	RingNumber   string        `json:"ringNumber" gorm:"type:varchar(50)"`
	DateOfBirth  *Date         `json:"dateOfBirth,omitempty"`
	Color        string        `json:"color" gorm:"type:varchar(50)"`
	Sex          string        `json:"sex" gorm:"type:varchar(10);default:Unknown"`
	Strain       string        `json:"strain" gorm:"type:varchar(100)"`
	Breeder      string        `json:"breeder" gorm:"type:varchar(100)"`
	Notes        string        `json:"notes" gorm:"type:varchar(1000)"`
	Achievements []string      `json:"achievements" gorm:"serializer:json"`
	RaceResults  []RaceResult  `json:"raceResults" gorm:"serializer:json"`
	Vaccinations []Vaccination `json:"vaccinations" gorm:"serializer:json"`
	Images       []string      `json:"images" gorm:"serializer:json"`
	FatherName   string        `json:"fatherName" gorm:"type:varchar(100)"`
	MotherName   string        `json:"motherName" gorm:"type:varchar(100)"`
	PigeonImage  string        `json:"pigeonImage" gorm:"type:text"`
	FatherImage  string        `json:"fatherImage" gorm:"type:text"`
	MotherImage  string        `json:"motherImage" gorm:"type:text"`
	Pedigree     Pedigree      `json:"pedigree" gorm:"serializer:json"`
	CreatedAt    time.Time     `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// PigeonFilter narrows a pigeon listing.
type PigeonFilter struct {
	Search string
	Sex    string
}
