// Package bootstrap 负责启动阶段的数据库准备：
// 按文件名顺序执行迁移目录里的 *.up.sql。
// 迁移语句全部使用 IF NOT EXISTS，重复执行是安全的。
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// EnsureSchema 应用迁移目录中的全部升级脚本；目录为空串时跳过。
func EnsureSchema(ctx context.Context, db *sql.DB, migrationsDir string, logger *zap.Logger) error {
	dir := strings.TrimSpace(migrationsDir)
	if dir == "" {
		logger.Info("schema bootstrap skipped (no migrations dir)")
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		script, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		logger.Info("migration applied", zap.String("file", name))
	}

	logger.Info("schema bootstrap complete", zap.Int("migrations", len(files)))
	return nil
}
