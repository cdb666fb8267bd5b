package models

// JunctionRecord is one capture of one junction at one instant. Rows are only
// ever appended to junction_data, never updated.
type JunctionRecord struct {
	JunctionName        string  `gorm:"column:junction_name;not null" json:"junction_name"`
	PrimaryDirection    string  `gorm:"column:primary_direction;not null" json:"primary_direction"`
	PrimarySpeedLimit   int     `gorm:"column:primary_speed_limit;not null" json:"primary_speed_limit"`
	PrimaryAvgSpeed     float64 `gorm:"column:primary_avg_speed;not null" json:"primary_avg_speed"`
	SecondaryDirection  string  `gorm:"column:secondary_direction;not null" json:"secondary_direction"`
	SecondarySpeedLimit int     `gorm:"column:secondary_speed_limit;not null" json:"secondary_speed_limit"`
	SecondaryAvgSpeed   float64 `gorm:"column:secondary_avg_speed;not null" json:"secondary_avg_speed"`
	RecordTime          string  `gorm:"column:record_time;size:8" json:"record_time"`
	RecordDate          string  `gorm:"column:record_date;size:10" json:"record_date"`
	DayOfWeek           string  `gorm:"column:day_of_week;size:16" json:"day_of_week"`
}

func (JunctionRecord) TableName() string { return "junction_data" }

// Columns lists the junction_data columns in table order.
var Columns = []string{
	"junction_name",
	"primary_direction",
	"primary_speed_limit",
	"primary_avg_speed",
	"secondary_direction",
	"secondary_speed_limit",
	"secondary_avg_speed",
	"record_time",
	"record_date",
	"day_of_week",
}
