package entity

// Alert 告警持久化行, Payload 为完整告警 JSON, 其余列仅用于过滤与排序
type Alert struct {
	Id          string  `gorm:"primaryKey;type:text"`
	Symbol      string  `gorm:"index"`
	Verdict     int     `gorm:"index"`
	Severity    int
	Confidence  float64
	CreatedAtMs int64  `gorm:"index"`
	Payload     string `gorm:"type:text"`
}
