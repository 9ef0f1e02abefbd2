package domain

import "time"

// Alias 表示一个在用别名（启用或停用）。
// 同一用户的在用别名地址唯一。
type Alias struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string    `json:"-" gorm:"type:varchar(36);not null;uniqueIndex:idx_aliases_user_address,priority:1"`
	Address     string    `json:"alias" gorm:"type:varchar(320);not null;uniqueIndex:idx_aliases_user_address,priority:2"`
	Description string    `json:"description" gorm:"type:text;not null"`
	IsActive    bool      `json:"isActive" gorm:"not null;index"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}

// DeletedAlias 表示软删除的别名，保留原 ID 与创建时间，没有启用状态
type DeletedAlias struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string    `json:"-" gorm:"type:varchar(36);not null;index"`
	Address     string    `json:"alias" gorm:"type:varchar(320);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"createdAt"`
	DeletedAt   time.Time `json:"deletedAt" gorm:"index"`
}

// ToDeleted 生成对应的已删除记录
func (a *Alias) ToDeleted(at time.Time) *DeletedAlias {
	return &DeletedAlias{
		ID:          a.ID,
		UserID:      a.UserID,
		Address:     a.Address,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
		DeletedAt:   at,
	}
}

// Restore 生成恢复后的在用别名
func (d *DeletedAlias) Restore(active bool) *Alias {
	return &Alias{
		ID:          d.ID,
		UserID:      d.UserID,
		Address:     d.Address,
		Description: d.Description,
		IsActive:    active,
		CreatedAt:   d.CreatedAt,
	}
}

// AliasState 别名状态过滤条件
type AliasState string

const (
	AliasStateAny      AliasState = ""
	AliasStateActive   AliasState = "active"
	AliasStateInactive AliasState = "inactive"
)

// ActiveFlag 返回状态对应的启用标志，AliasStateAny 返回 nil
func (s AliasState) ActiveFlag() *bool {
	switch s {
	case AliasStateActive:
		v := true
		return &v
	case AliasStateInactive:
		v := false
		return &v
	}
	return nil
}

// AliasCounts 别名统计
type AliasCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Deleted  int `json:"deleted"`
	Limit    int `json:"limit"`
}

// Application 按描述分组的别名集合
type Application struct {
	Name          string    `json:"name"`
	AliasCount    int       `json:"aliasCount"`
	ActiveCount   int       `json:"activeCount"`
	LastCreatedAt time.Time `json:"lastCreatedAt"`
}
