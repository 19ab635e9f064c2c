package gormstore

// Directory records mirror the platform collections the fabric is
// allowed to read. Only the columns search and uniqueness probes touch
// are mapped.

type Person struct {
	ID        string `gorm:"primaryKey"`
	ProfileID string `gorm:"uniqueIndex"`
	FullName  string `gorm:"index"`
	Headline  string
	Email     string
}

type Business struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"index"`
	ProfileID string `gorm:"uniqueIndex"`
	Name      string `gorm:"index"`
	Industry  string
	Location  string
}

type Institute struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"index"`
	ProfileID string `gorm:"uniqueIndex"`
	Name      string `gorm:"index"`
	Kind      string // university, college, training center
	Location  string
}

type Skill struct {
	ID       string `gorm:"primaryKey"`
	Name     string `gorm:"index"`
	Category string
}

type Job struct {
	ID         string `gorm:"primaryKey"`
	BusinessID string `gorm:"index"`
	Title      string `gorm:"index"`
	Summary    string
	Location   string
}

type Course struct {
	ID          string `gorm:"primaryKey"`
	InstituteID string `gorm:"index"`
	Title       string `gorm:"index"`
	Summary     string
	Field       string
}
