package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Action 迁移方向
type Action string

const (
	Up   Action = "up"
	Down Action = "down"
)

// ParseAction 解析命令行传入的迁移方向
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(s)) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("unknown migration action %q (expected up or down)", s)
}

// Runner 按文件顺序执行 SQL 迁移脚本，每个文件一个事务
type Runner struct {
	db    *sql.DB
	files fs.FS
	dir   string
	log   *zap.Logger
}

// NewRunner 创建迁移执行器，dir 为 files 中迁移脚本所在目录
func NewRunner(db *sql.DB, files fs.FS, dir string, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{db: db, files: files, dir: dir, log: log}
}

// Files 返回指定方向的迁移文件，up 按文件名升序，down 按降序
func (r *Runner) Files(action Action) ([]string, error) {
	matches, err := fs.Glob(r.files, path.Join(r.dir, "*."+string(action)+".sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if action == Down {
		sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	}
	return matches, nil
}

// Run 执行迁移，返回执行的语句数
func (r *Runner) Run(ctx context.Context, action Action) (int, error) {
	files, err := r.Files(action)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no %s migrations found in %s", action, r.dir)
	}

	executed := 0
	for _, name := range files {
		content, err := fs.ReadFile(r.files, name)
		if err != nil {
			return executed, fmt.Errorf("read %s: %w", name, err)
		}

		stmts := SplitStatements(string(content))
		if err := r.apply(ctx, stmts); err != nil {
			return executed, fmt.Errorf("apply %s: %w", name, err)
		}
		executed += len(stmts)

		r.log.Info("migration applied",
			zap.String("file", name),
			zap.String("action", string(action)),
			zap.Int("statements", len(stmts)),
		)
	}
	return executed, nil
}

func (r *Runner) apply(ctx context.Context, stmts []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w\nSQL: %s", err, stmt)
		}
	}
	return tx.Commit()
}

// SplitStatements 分割SQL语句（按分号分割，忽略字符串中的分号和整行注释）
func SplitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	var inString bool
	var stringChar rune

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(sql, "\n") {
		if !inString && strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for _, r := range line {
			switch {
			case r == '\'' || r == '"':
				if !inString {
					inString = true
					stringChar = r
				} else if r == stringChar {
					inString = false
				}
				current.WriteRune(r)
			case r == ';' && !inString:
				current.WriteRune(r)
				flush()
			default:
				current.WriteRune(r)
			}
		}
		current.WriteRune('\n')
	}
	flush()

	return statements
}
