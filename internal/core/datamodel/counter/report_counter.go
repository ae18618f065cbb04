package counter

import "time"

// ReportCounter holds the last issued report sequence for one company and year.
type ReportCounter struct {
	CompanyID string    `gorm:"column:company_id;primaryKey;type:varchar(64)"`
	Year      int       `gorm:"column:year;primaryKey;autoIncrement:false"`
	LastSeq   int       `gorm:"column:last_seq;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ReportCounter) TableName() string {
	return "report_counters"
}
