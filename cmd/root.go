package cmd

import (
	"fmt"
	"os"

	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/utils/i18n"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "image-admin",
	Short: "Admin API for users, images and labels",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.InitConfig()
		i18n.Init(config.Get().AdminDefaultLocale)
	},
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (eg: /etc/image-admin/.env)")
	err := viper.BindPFlag("config_file_path", rootCmd.PersistentFlags().Lookup("config"))
	if err != nil {
		return
	}
}

// confirm 交互确认，yes 为 true 时直接通过
func confirm(prompt string, yes bool) bool {
	if yes {
		return true
	}
	fmt.Print(prompt + " [y/N]: ")
	var response string
	_, _ = fmt.Scanln(&response)
	return response == "y" || response == "Y"
}
