package cmd

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/database"
	"github.com/anoixa/image-admin/internal/app"
	"github.com/anoixa/image-admin/internal/maintenance"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// migrateCmd 迁移当前数据库结构并补齐权限
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate database schema and seed model permissions",
	Run: func(cmd *cobra.Command, args []string) {
		container := app.NewContainer(config.Get())
		if err := container.InitDatabase(); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer func() { _ = container.Close() }()

		if err := InitDatabase(container); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

// migrateCopyCmd 跨数据库复制数据
var migrateCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy all data from one database to another",
	Long: `Copy all admin data from source to target database, keeping primary keys.

Examples:
  # Copy from SQLite to PostgreSQL
  image-admin migrate copy --from-sqlite ./data/image-admin.db --to-postgres "host=localhost user=postgres password=secret dbname=imageadmin port=5432"

  # Overwrite rows that already exist in the target
  image-admin migrate copy --from-sqlite ./data/image-admin.db --to-postgres "..." --on-conflict=overwrite

  # Stop on conflict
  image-admin migrate copy --from-sqlite ./data/image-admin.db --to-postgres "..." --on-conflict=error`,
	Run: func(cmd *cobra.Command, args []string) {
		fromType, _ := cmd.Flags().GetString("from-type")
		toType, _ := cmd.Flags().GetString("to-type")
		fromDSN, _ := cmd.Flags().GetString("from-dsn")
		toDSN, _ := cmd.Flags().GetString("to-dsn")
		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")
		skipConfirm, _ := cmd.Flags().GetBool("yes")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		onConflict, _ := cmd.Flags().GetString("on-conflict")

		if fromSQLite != "" {
			fromType, fromDSN = "sqlite", fromSQLite
		}
		if toPostgres != "" {
			toType, toDSN = "postgres", toPostgres
		}

		if err := runCopy(fromType, toType, fromDSN, toDSN, skipConfirm, batchSize, onConflict); err != nil {
			log.Fatalf("Copy failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateCopyCmd)

	migrateCopyCmd.Flags().String("from-type", "", "Source database type (sqlite, postgres)")
	migrateCopyCmd.Flags().String("to-type", "", "Target database type (sqlite, postgres)")
	migrateCopyCmd.Flags().String("from-dsn", "", "Source database DSN/connection string")
	migrateCopyCmd.Flags().String("to-dsn", "", "Target database DSN/connection string")
	migrateCopyCmd.Flags().String("from-sqlite", "", "Source SQLite file path (shortcut)")
	migrateCopyCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string (shortcut)")
	migrateCopyCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	migrateCopyCmd.Flags().Int("batch-size", 500, "Batch size for data copy")
	migrateCopyCmd.Flags().String("on-conflict", maintenance.ConflictSkip, "Conflict resolution strategy: skip (default), overwrite, error")
}

// runCopy 执行跨库复制
func runCopy(fromType, toType, fromDSN, toDSN string, skipConfirm bool, batchSize int, onConflict string) error {
	if fromType == "" || toType == "" {
		return fmt.Errorf("both --from-type and --to-type are required")
	}
	if fromDSN == "" || toDSN == "" {
		return fmt.Errorf("both --from-dsn and --to-dsn (or shortcuts) are required")
	}
	if fromType == toType && fromDSN == toDSN {
		return fmt.Errorf("source and target databases are the same")
	}

	log.Printf("Copying from %s to %s", fromType, toType)
	log.Printf("Source: %s", maskDSN(fromDSN))
	log.Printf("Target: %s", maskDSN(toDSN))
	log.Printf("Conflict strategy: %s", onConflict)

	sourceDB, err := openDatabase(fromType, fromDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer closeDB(sourceDB)

	targetDB, err := openDatabase(toType, toDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	defer closeDB(targetDB)

	copier, err := maintenance.NewCopier(sourceDB, targetDB, batchSize, onConflict)
	if err != nil {
		return err
	}

	fmt.Println("\nWarning: This will copy all data from source to target database.")
	fmt.Printf("Conflict resolution strategy: %s\n", onConflict)
	if !confirm("Do you want to continue?", skipConfirm) {
		fmt.Println("Copy cancelled.")
		return nil
	}

	stats, err := copier.Run(context.Background(), func(db *gorm.DB) error {
		return db.AutoMigrate(database.Models()...)
	})
	printCopyStats(stats)
	if err != nil {
		return err
	}

	log.Println("Copy completed successfully!")
	return nil
}

// openDatabase 打开数据库连接
func openDatabase(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// maskDSN 截断 DSN，避免在日志中输出完整密码
func maskDSN(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:50] + "..."
	}
	return dsn
}

// printCopyStats 打印复制统计
func printCopyStats(stats *maintenance.CopyStats) {
	if stats == nil {
		return
	}
	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("          Copy Statistics")
	fmt.Println("========================================")
	printCounts(stats.Rows)
	fmt.Println("========================================")

	if len(stats.Errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.Errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}

// printCounts 按表名排序输出行数
func printCounts(counts map[string]int64) {
	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Printf("  %-18s %d\n", table+":", counts[table])
	}
}
