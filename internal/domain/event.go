package domain

// 变更事件类型，推送给用户已连接的客户端
const (
	EventAliasesChanged   = "aliases.changed"
	EventDomainsChanged   = "domains.changed"
	EventUsernamesChanged = "usernames.changed"
	EventSettingsChanged  = "settings.changed"
	EventSessionsRevoked  = "sessions.revoked"
)

// Event 推送给客户端的变更通知
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
