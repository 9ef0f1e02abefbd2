package domain

import "time"

// CustomDomain 用户自定义域名
type CustomDomain struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string    `json:"userId" gorm:"type:varchar(36);not null;uniqueIndex:idx_custom_domains_user_name,priority:1"`
	DomainName  string    `json:"domainName" gorm:"type:varchar(253);not null;uniqueIndex:idx_custom_domains_user_name,priority:2"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"isActive" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CustomUsername 用户额外的发件身份（邮箱格式）
type CustomUsername struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string    `json:"-" gorm:"type:varchar(36);not null;uniqueIndex:idx_custom_usernames_user_name,priority:1"`
	Username    string    `json:"username" gorm:"type:varchar(320);not null;uniqueIndex:idx_custom_usernames_user_name,priority:2;index"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"isActive" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt"`
}
