package models

// StorageItem is a single durable key/value pair, the database counterpart of
// one entry in the file state store.
type StorageItem struct {
	Key       string `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value     string `gorm:"type:text" json:"value"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

// Durable storage keys.
const (
	KeyHistory    = "scanHistory"
	KeyHostmaster = "isHostmaster"
)
