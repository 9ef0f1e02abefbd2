package domain

import "time"

// Session 表示一个已登录的设备/浏览器。
// 明文令牌从不落库，只保存密钥部分的 HMAC。
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"-" gorm:"type:varchar(36);index;not null"`
	TokenHash string    `json:"-" gorm:"type:varchar(128);not null"`
	UserAgent string    `json:"userAgent" gorm:"type:varchar(512)"`
	IPAddress string    `json:"ipAddress" gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"index;not null"`
}

// Expired 判断会话在给定时间是否已过期
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// ClientMeta 登录时采集的客户端信息，仅用于展示
type ClientMeta struct {
	UserAgent string
	IPAddress string
}
