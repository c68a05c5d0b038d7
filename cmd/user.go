package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/app"
	"github.com/anoixa/image-admin/utils"
	"github.com/spf13/cobra"
)

// createSuperuserCmd 创建超级用户
var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a superuser account",
	Run: func(cmd *cobra.Command, args []string) {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if err := withDatabase(func(container *app.Container) error {
			return createSuperuser(context.Background(), container, email, password)
		}); err != nil {
			log.Fatalf("Create superuser failed: %v", err)
		}
	},
}

// changePasswordCmd 修改用户密码
var changePasswordCmd = &cobra.Command{
	Use:   "changepassword",
	Short: "Change a user's password",
	Run: func(cmd *cobra.Command, args []string) {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if err := withDatabase(func(container *app.Container) error {
			return changePassword(context.Background(), container, email, password)
		}); err != nil {
			log.Fatalf("Change password failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(createSuperuserCmd, changePasswordCmd)

	for _, c := range []*cobra.Command{createSuperuserCmd, changePasswordCmd} {
		c.Flags().String("email", "", "User email (required)")
		c.Flags().String("password", "", "New password (required)")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
	}
}

// withDatabase 初始化数据库并确保结构最新
func withDatabase(fn func(container *app.Container) error) error {
	container := app.NewContainer(config.Get())
	if err := container.InitDatabase(); err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	if err := InitDatabase(container); err != nil {
		return err
	}
	return fn(container)
}

// checkPassword 合并密码策略的全部违规项
func checkPassword(container *app.Container, password string, user *models.User) error {
	violations := container.GetPasswordPolicy().Validate(password, user)
	if len(violations) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}
	return errors.New(strings.Join(msgs, " "))
}

func createSuperuser(ctx context.Context, container *app.Container, email, password string) error {
	email = models.NormalizeEmail(email)
	existing, err := container.AccountsRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("user with email %s already exists", email)
	}

	user := &models.User{Email: email, IsActive: true, IsStaff: true, IsSuperuser: true}
	if err := checkPassword(container, password, user); err != nil {
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := container.AccountsRepo.CreateUser(ctx, user); err != nil {
		return err
	}

	log.Printf("Superuser %s created (id=%d)", utils.SanitizeLogEmail(email), user.ID)
	return nil
}

func changePassword(ctx context.Context, container *app.Container, email, password string) error {
	user, err := container.AccountsRepo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", email)
	}
	if err := checkPassword(container, password, user); err != nil {
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := container.AccountsRepo.UpdatePassword(ctx, user); err != nil {
		return err
	}

	log.Printf("Password changed for %s", utils.SanitizeLogEmail(user.Email))
	return nil
}
