package cmd

import (
	"context"
	"log"

	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/internal/app"
	"github.com/spf13/cobra"
)

// cacheCmd 缓存管理命令
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache management commands",
	Long:  "Manage application cache, including cached filter choices and image previews.",
}

// cacheClearCmd 清除缓存命令
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cache",
	Long: `Clear application cache. By default clears everything this service wrote.

Example:
  # Drop the cached preview of one image
  image-admin cache clear --image 42`,
	Run: func(cmd *cobra.Command, args []string) {
		imageIDs, _ := cmd.Flags().GetUintSlice("image")

		if err := runCacheClear(imageIDs); err != nil {
			log.Fatalf("Cache clear failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().UintSlice("image", nil, "Only drop cached previews of these image IDs")
}

// runCacheClear 执行缓存清理
func runCacheClear(imageIDs []uint) error {
	container := app.NewContainer(config.Get())
	if err := container.InitCache(); err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	helper := container.GetCacheHelper()
	log.Printf("Cache provider: %s", helper.Provider().Name())
	if helper.Provider().Name() == "memory" {
		log.Println("Warning: memory cache lives inside the server process, nothing shared to clear")
	}

	ctx := context.Background()
	if len(imageIDs) > 0 {
		for _, id := range imageIDs {
			if err := helper.DeleteCachedPreview(ctx, id); err != nil {
				log.Printf("Warning: failed to delete preview of image %d: %v", id, err)
			}
		}
		log.Printf("Dropped cached previews of %d images", len(imageIDs))
		return nil
	}

	log.Println("Clearing all cache...")
	if err := helper.Clear(ctx); err != nil {
		return err
	}
	log.Println("All cache cleared successfully")
	return nil
}
