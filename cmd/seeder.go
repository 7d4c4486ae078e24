package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/leave-management/internal/auth"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/leavebalance"
	balancePostgres "github.com/frahmantamala/leave-management/internal/leavebalance/postgres"
	userPostgres "github.com/frahmantamala/leave-management/internal/user/postgres"
	"github.com/frahmantamala/leave-management/pkg/logger"
	"github.com/spf13/cobra"
)

const seedPassword = "12345678"

type seedUser struct {
	Email     string
	FirstName string
	LastName  string
	Role      coreUser.Role
}

var seedUsers = []seedUser{
	{Email: "viet@gmail.com", FirstName: "Viet", LastName: "Nguyen", Role: coreUser.RoleManager},
	{Email: "test@gmail.com", FirstName: "Jane", LastName: "Smith", Role: coreUser.RoleEmployee},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed a manager and an employee (password 12345678) with default leave balances for the current year.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		lg := logger.LoggerWrapper()

		s, err := openStore(cfg.Database)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		users := userPostgres.NewUserRepository(s.SQLX)
		balances := leavebalance.NewService(balancePostgres.NewLeaveBalanceRepository(s.Gorm), lg).
			WithLocation(cfg.Scheduler.Location())

		hash, err := auth.HashPassword(seedPassword, cfg.Security.BCryptCost)
		if err != nil {
			return err
		}

		year := time.Now().In(cfg.Scheduler.Location()).Year()
		for _, su := range seedUsers {
			u, err := users.GetByEmail(ctx, su.Email)
			switch {
			case err == nil:
				lg.Info("user already exists", "email", su.Email)
			case errors.Is(err, coreUser.ErrNotFound):
				u = &coreUser.User{
					Email:        su.Email,
					PasswordHash: hash,
					FirstName:    su.FirstName,
					LastName:     su.LastName,
					Role:         su.Role,
					IsActive:     true,
				}
				if err := users.Create(ctx, u); err != nil {
					return fmt.Errorf("failed to insert %s: %w", su.Email, err)
				}
				lg.Info("seeded user", "email", su.Email, "role", su.Role)
			default:
				return fmt.Errorf("failed to look up %s: %w", su.Email, err)
			}

			created, err := balances.EnsureDefaultLeaveBalances(ctx, u.ID, year)
			if err != nil {
				return fmt.Errorf("failed to seed balances for %s: %w", su.Email, err)
			}
			lg.Info("seeded leave balances", "email", su.Email, "year", year, "created", created)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
