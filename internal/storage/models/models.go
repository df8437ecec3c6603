package models

import "time"

// Device 映射 devices 表（一个串口上的一台 8824）
type Device struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Port       string     `gorm:"column:port;type:text;not null;uniqueIndex"`
	Address    int16      `gorm:"column:address;not null;default:0"`
	LastSeenAt *time.Time `gorm:"column:last_seen_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Device) TableName() string { return "devices" }

// Exchange 映射 exchange_log 表（一次命令/应答交互）
type Exchange struct {
	ID         string    `gorm:"column:id;type:uuid;primaryKey"`
	DeviceID   int64     `gorm:"column:device_id;not null;index:idx_exchange_device_time,priority:1"`
	Command    string    `gorm:"column:command;type:text;not null"`
	Opcode     int16     `gorm:"column:opcode;not null"`
	Address    int16     `gorm:"column:address;not null"`
	Request    []byte    `gorm:"column:request"`
	Response   []byte    `gorm:"column:response"`
	Attempts   int16     `gorm:"column:attempts;not null;default:0"`
	Result     string    `gorm:"column:result;type:text;not null"` // ok | no_response | bad_frame | ...
	Error      *string   `gorm:"column:error;type:text"`
	DurationMs int32     `gorm:"column:duration_ms;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;index:idx_exchange_device_time,priority:2,sort:desc"`
}

func (Exchange) TableName() string { return "exchange_log" }
