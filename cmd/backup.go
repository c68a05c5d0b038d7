package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/internal/app"
	"github.com/anoixa/image-admin/internal/maintenance"
	"github.com/spf13/cobra"
)

// backupCmd 数据库备份命令
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Backup database to JSONL archive",
	Long: `Backup database to JSONL format and pack into tar.gz archive.

Example:
  # Backup to default file (./backups/backup_YYYYMMDD_HHMMSS.tar.gz)
  image-admin backup

  # Backup to specific file
  image-admin backup --output ./my-backup.tar.gz

  # Backup specific tables only
  image-admin backup --tables users,user_groups,user_permissions`,
	Run: func(cmd *cobra.Command, args []string) {
		outputFile, _ := cmd.Flags().GetString("output")
		tables, _ := cmd.Flags().GetStringSlice("tables")

		if err := runBackup(outputFile, tables); err != nil {
			log.Fatalf("Backup failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringP("output", "o", "", "Output tar.gz file path (default: ./backups/backup_YYYYMMDD_HHMMSS.tar.gz)")
	backupCmd.Flags().StringSliceP("tables", "t", []string{}, "Specific tables to backup (default: all)")
}

// runBackup 执行备份
func runBackup(outputFile string, tables []string) error {
	container := app.NewContainer(config.Get())
	if err := container.InitDatabase(); err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	if outputFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputFile = filepath.Join("./backups", fmt.Sprintf("backup_%s.tar.gz", timestamp))
	}
	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	log.Printf("Starting backup to: %s", outputFile)
	meta, err := maintenance.Backup(context.Background(), container.GetDatabaseProvider().DB(), file, tables)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(outputFile)
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}

	log.Printf("Backup completed successfully: %s", outputFile)
	printBackupSummary(meta, outputFile)
	return nil
}

// printBackupSummary 打印备份摘要
func printBackupSummary(meta *maintenance.ArchiveMeta, outputFile string) {
	fmt.Println("\nBackup Summary:")
	fmt.Println("===============")
	fmt.Printf("Version:    %s\n", meta.Version)
	fmt.Printf("Timestamp:  %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Database:   %s\n", meta.Database)
	fmt.Printf("Output:     %s\n", outputFile)
	fmt.Println("\nTables backed up:")
	var total int64
	for _, table := range meta.Tables {
		count := meta.RecordCount[table]
		total += count
		fmt.Printf("  - %s: %d records\n", table, count)
	}
	fmt.Printf("\nTotal records: %d\n", total)
}
