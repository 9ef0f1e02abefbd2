// Package migrations 内嵌数据库迁移脚本
package migrations

import "embed"

// FS 包含 postgres/ 目录下的全部迁移文件
//
//go:embed postgres/*.sql
var FS embed.FS
