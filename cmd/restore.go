package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/internal/app"
	"github.com/anoixa/image-admin/internal/maintenance"
	"github.com/spf13/cobra"
)

// restoreCmd 数据库还原命令
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore database from backup archive",
	Long: `Restore database from tar.gz backup archive created by backup command.

Example:
  # Restore from backup file
  image-admin restore --input ./backups/backup_20260214_222320.tar.gz

  # Restore with dry-run (preview only)
  image-admin restore --input ./backup.tar.gz --dry-run

  # Restore specific tables only
  image-admin restore --input ./backup.tar.gz --tables labels

  # Clear existing data before restore
  image-admin restore --input ./backup.tar.gz --truncate`,
	Run: func(cmd *cobra.Command, args []string) {
		inputFile, _ := cmd.Flags().GetString("input")
		skipConfirm, _ := cmd.Flags().GetBool("yes")
		opts := maintenance.RestoreOptions{}
		opts.Tables, _ = cmd.Flags().GetStringSlice("tables")
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		opts.Truncate, _ = cmd.Flags().GetBool("truncate")
		opts.OnConflict, _ = cmd.Flags().GetString("on-conflict")

		if err := runRestore(inputFile, opts, skipConfirm); err != nil {
			log.Fatalf("Restore failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().StringP("input", "i", "", "Input tar.gz backup file path (required)")
	restoreCmd.Flags().StringSliceP("tables", "t", []string{}, "Specific tables to restore (default: all)")
	restoreCmd.Flags().Bool("dry-run", false, "Preview restore without actually writing to database")
	restoreCmd.Flags().Bool("truncate", false, "Clear existing data before restore")
	restoreCmd.Flags().String("on-conflict", maintenance.ConflictSkip, "Conflict resolution strategy: skip (default), overwrite, error")
	restoreCmd.Flags().Bool("yes", false, "Skip confirmation prompt")

	_ = restoreCmd.MarkFlagRequired("input")
}

// runRestore 执行还原
func runRestore(inputFile string, opts maintenance.RestoreOptions, skipConfirm bool) error {
	file, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}
	defer func() { _ = file.Close() }()

	container := app.NewContainer(config.Get())
	if err := container.InitDatabase(); err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	if !opts.DryRun {
		if err := InitDatabase(container); err != nil {
			return err
		}
		fmt.Println("\nWarning: This will restore data from backup to the current database.")
		if opts.Truncate {
			fmt.Println("Existing data will be TRUNCATED.")
		}
		if !confirm("Do you want to continue?", skipConfirm) {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	log.Printf("Restoring from: %s", inputFile)
	stats, err := maintenance.Restore(context.Background(), container.GetDatabaseProvider().DB(), file, opts)
	if stats != nil {
		printRestoreSummary(stats, opts.DryRun)
	}
	return err
}

// printRestoreSummary 打印还原摘要
func printRestoreSummary(stats *maintenance.RestoreStats, dryRun bool) {
	fmt.Println()
	fmt.Println("========================================")
	if dryRun {
		fmt.Println("       [DRY RUN MODE]")
	}
	fmt.Println("         Restore Summary")
	fmt.Println("========================================")

	if len(stats.Restored) > 0 {
		fmt.Println("Restored records:")
		printCounts(stats.Restored)
	}
	if len(stats.Errors) > 0 {
		fmt.Println("\nErrors:")
		printCounts(stats.Errors)
	}
	fmt.Println("========================================")
}
