// Command server runs the freight delivery service and its maintenance tasks.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"freightDeliveryManagement/internal/auth"
	"freightDeliveryManagement/internal/config"
	"freightDeliveryManagement/internal/db"
	"freightDeliveryManagement/models"
	"freightDeliveryManagement/repository"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:           "freight",
		Short:         "Freight shipment lifecycle service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&strict, "strict", false, "Require production secrets instead of development defaults")

	loadConfig := func() (*config.Config, error) {
		if strict {
			return config.Load()
		}
		return config.LoadWithDefaults()
	}

	cmd.AddCommand(serveCmd(loadConfig), migrateCmd(loadConfig), tokenCmd(loadConfig))
	return cmd
}

func migrateCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert database migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := db.OpenRaw(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := db.Migrate(d); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recently applied migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := db.OpenRaw(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := db.RollbackLast(d); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "last migration reverted")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether each is applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := db.OpenRaw(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer d.Close()
			status, err := db.Status(d)
			if err != nil {
				return err
			}
			for _, m := range status {
				state := "pending"
				if m.Applied {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%04d_%s\t%s\n", m.Version, m.Name, state)
			}
			return nil
		},
	})
	return cmd
}

func tokenCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		username string
		role     string
		phone    string
		ttl      time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a development JWT, creating the user if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := models.Role(role)
			switch r {
			case models.RoleShipper, models.RoleDriver, models.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			d, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer d.Close()

			u, err := repository.NewUserRepository(d).GetOrCreate(cmd.Context(), username, r, phone)
			if err != nil {
				return err
			}
			if u.Role != r {
				return fmt.Errorf("user %s already exists with role %s", u.Username, u.Role)
			}
			tok, err := auth.Issue(cfg.Auth.JWTSecret, u.ID, u.Username, string(u.Role), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issue.Flags().StringVarP(&username, "username", "u", "", "User name")
	issue.Flags().StringVarP(&role, "role", "r", string(models.RoleShipper), "shipper | driver | admin")
	issue.Flags().StringVar(&phone, "phone", "", "Phone number stored for a new user")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to JWT_TTL)")
	_ = issue.MarkFlagRequired("username")

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}
	cmd.AddCommand(issue)
	return cmd
}
