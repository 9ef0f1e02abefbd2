package domain

import (
	"strings"
	"time"
)

// Theme 界面主题
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// AliasCase 随机串的大小写风格
type AliasCase string

const (
	AliasCaseMixed     AliasCase = "mixed"
	AliasCaseLowercase AliasCase = "lowercase"
	AliasCaseUppercase AliasCase = "uppercase"
)

// 生成偏好的取值范围
const (
	MinDefaultAliasCount = 1
	MaxDefaultAliasCount = 5
	DefaultAliasLength   = 12
	LongAliasLength      = 16
	DefaultAliasSep      = "-"
)

// User 表示注册用户的业务实体
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"` // 不返回给前端
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSettings 用户偏好设置，每个用户一行
type UserSettings struct {
	UserID                string    `json:"-" gorm:"primaryKey;type:varchar(36)"`
	DisplayName           string    `json:"displayName" gorm:"type:varchar(255)"`
	FirstName             string    `json:"firstName" gorm:"type:varchar(255)"`
	LastName              string    `json:"lastName" gorm:"type:varchar(255)"`
	Theme                 Theme     `json:"theme" gorm:"type:varchar(16);not null"`
	DefaultAliasCount     int       `json:"defaultAliasCount" gorm:"not null"`
	DefaultAliasLength    int       `json:"defaultAliasLength" gorm:"not null"`
	NotifyOnAliasCreation bool      `json:"notifyOnAliasCreation" gorm:"not null"`
	NotifyOnSecurityEvent bool      `json:"notifyOnSecurityEvent" gorm:"not null"`
	SendWeeklySummary     bool      `json:"sendWeeklySummary" gorm:"not null"`
	AliasSeparator        string    `json:"aliasSeparator" gorm:"type:varchar(1);not null"`
	AliasCase             AliasCase `json:"aliasCase" gorm:"type:varchar(16);not null"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (UserSettings) TableName() string {
	return "user_settings"
}

// DefaultSettings 返回新注册用户的默认设置，显示名取邮箱的本地部分
func DefaultSettings(userID, email string) *UserSettings {
	displayName := email
	if at := strings.Index(email, "@"); at > 0 {
		displayName = email[:at]
	}
	return &UserSettings{
		UserID:                userID,
		DisplayName:           displayName,
		Theme:                 ThemeSystem,
		DefaultAliasCount:     MinDefaultAliasCount,
		DefaultAliasLength:    DefaultAliasLength,
		NotifyOnAliasCreation: true,
		NotifyOnSecurityEvent: true,
		AliasSeparator:        DefaultAliasSep,
		AliasCase:             AliasCaseMixed,
	}
}

// ValidTheme 判断主题取值是否合法
func ValidTheme(t Theme) bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// ValidAliasCase 判断大小写风格是否合法
func ValidAliasCase(c AliasCase) bool {
	switch c {
	case AliasCaseMixed, AliasCaseLowercase, AliasCaseUppercase:
		return true
	}
	return false
}

// ValidAliasSeparator 判断分隔符是否合法
func ValidAliasSeparator(sep string) bool {
	return sep == "-" || sep == "_" || sep == "."
}
