package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/internal/app"
	"github.com/anoixa/image-admin/internal/maintenance"
	"github.com/spf13/cobra"
)

// purgeCmd 物理删除过期的软删除数据
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Hard-delete soft-deleted rows older than the retention window",
	Long: `Hard-delete users, images, labels and labeled images that were soft-deleted
before the retention window, removing stored objects of purged images.

Example:
  # Preview what would be removed
  image-admin purge --older-than 720h --dry-run`,
	Run: func(cmd *cobra.Command, args []string) {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if err := runPurge(olderThan, dryRun); err != nil {
			log.Fatalf("Purge failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().Duration("older-than", 720*time.Hour, "Retention window for soft-deleted rows")
	purgeCmd.Flags().Bool("dry-run", false, "Only report what would be removed")
}

func runPurge(olderThan time.Duration, dryRun bool) error {
	container := app.NewContainer(config.Get())
	if err := container.InitDatabase(); err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	if err := container.InitCache(); err != nil {
		return err
	}
	if err := container.InitStorage(); err != nil {
		return err
	}

	stats, err := container.Purger().Run(context.Background(), olderThan, dryRun)
	if stats != nil {
		printPurgeStats(stats, dryRun)
	}
	return err
}

// printPurgeStats 打印清理摘要
func printPurgeStats(stats *maintenance.PurgeStats, dryRun bool) {
	fmt.Println()
	fmt.Println("========================================")
	if dryRun {
		fmt.Println("       [DRY RUN MODE]")
	}
	fmt.Println("          Purge Summary")
	fmt.Println("========================================")
	fmt.Printf("Labeled images:  %d\n", stats.LabeledImages)
	fmt.Printf("Images:          %d\n", stats.Images)
	fmt.Printf("Labels:          %d\n", stats.Labels)
	fmt.Printf("Users:           %d\n", stats.Users)
	fmt.Printf("Stored objects:  %d\n", stats.Objects)
	fmt.Println("========================================")

	if len(stats.Errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.Errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}
