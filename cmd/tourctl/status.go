package main

import (
	"fmt"
	"time"

	"github.com/matheus3301/tourchat/internal/auth"
	"github.com/matheus3301/tourchat/internal/config"
	"github.com/matheus3301/tourchat/internal/lock"
	"github.com/matheus3301/tourchat/internal/session"
	"github.com/spf13/cobra"
)

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(statusCmd, sessionsCmd, configCmd)
}

type statusReport struct {
	Session   string    `json:"session"`
	APIBase   string    `json:"apiBaseUrl"`
	UserID    string    `json:"userId,omitempty"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
	TokenErr  string    `json:"tokenError,omitempty"`
	HolderPID int       `json:"holderPid,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session, the signed-in user and whether a TUI holds the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := sessionName()
		if err != nil {
			return err
		}
		cfg, err := config.LoadOrDefault(session.ConfigPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		r := statusReport{Session: name, APIBase: cfg.APIBaseURL}
		if id, err := auth.FromToken(cfg.APIToken, time.Now()); err != nil {
			r.TokenErr = err.Error()
		} else {
			r.UserID, r.Name, r.ExpiresAt = id.UserID, id.Name, id.ExpiresAt
		}
		if pid, held := lock.Holder(session.Dir(name)); held {
			r.HolderPID = pid
		}

		if jsonFlag {
			return outputJSON(r)
		}
		fmt.Printf("Session:  %s\n", r.Session)
		fmt.Printf("API:      %s\n", r.APIBase)
		if r.TokenErr != "" {
			fmt.Printf("Token:    %s\n", r.TokenErr)
		} else {
			fmt.Printf("User:     %s (%s)\n", r.Name, r.UserID)
			if !r.ExpiresAt.IsZero() {
				fmt.Printf("Expires:  %s\n", r.ExpiresAt.Local().Format(time.RFC3339))
			}
		}
		if r.HolderPID > 0 {
			fmt.Printf("TUI:      running (pid %d)\n", r.HolderPID)
		} else {
			fmt.Println("TUI:      not running")
		}
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := session.List()
		if err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(names)
		}
		if len(names) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}
		for _, n := range names {
			state := "idle"
			if pid, held := lock.Holder(session.Dir(n)); held {
				state = fmt.Sprintf("open (pid %d)", pid)
			}
			fmt.Printf("%-20s %s (%s)\n", n, session.Dir(n), state)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ~/.tourchat/config.toml",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value (e.g. api_token, api_base_url)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := session.ConfigPath()
		cfg, err := config.LoadOrDefault(path)
		if err != nil {
			return err
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Printf("set %s\n", args[0])
		return nil
	},
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "default_session":
		if err := session.ValidateName(value); err != nil {
			return err
		}
		cfg.DefaultSession = value
	case "api_base_url":
		cfg.APIBaseURL = value
	case "api_token":
		cfg.APIToken = value
	case "cache_namespace":
		cfg.CacheNamespace = value
	case "log_level":
		cfg.LogLevel = value
	case "request_timeout":
		return cfg.RequestTimeout.UnmarshalText([]byte(value))
	case "conversation_poll_interval":
		return cfg.ConversationPollInterval.UnmarshalText([]byte(value))
	case "message_poll_interval":
		return cfg.MessagePollInterval.UnmarshalText([]byte(value))
	case "db_busy_timeout":
		return cfg.DBBusyTimeout.UnmarshalText([]byte(value))
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
