package model

// LevelKind distinguishes support from resistance
type LevelKind string

const (
	LevelSupport    LevelKind = "SUPPORT"
	LevelResistance LevelKind = "RESISTANCE"
)

// KeyLevel is a clustered support/resistance price derived from swing points
type KeyLevel struct {
	Price           float64   `json:"price"`
	Kind            LevelKind `json:"kind"`
	Strength        int       `json:"strength"` // number of swings in the cluster
	SourceTimeframe Timeframe `json:"source_timeframe"`
}
