// Package main provides a command-line client for the chat API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xiaot623/chatrelay/internal/client"
)

const (
	keyServer  = "server"
	keyToken   = "token"
	keySession = "session"
)

var cfgFile string

var (
	bold    = color.New(color.Bold).SprintFunc()
	green   = color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan    = color.New(color.FgCyan, color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	errText = color.New(color.FgRed).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "chatrelay",
	Short: "Command-line client for the chatrelay API",
	Long: `chatrelay talks to a chatrelay server: sign up and in, start chat
sessions, send prompts, read history and watch sessions live.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.chatrelay.yaml)")
	rootCmd.PersistentFlags().String(keyServer, "http://localhost:3000", "server base URL")
	rootCmd.PersistentFlags().String(keyToken, "", "bearer token (defaults to the one saved by signin)")
	_ = viper.BindPFlag(keyServer, rootCmd.PersistentFlags().Lookup(keyServer))
	_ = viper.BindPFlag(keyToken, rootCmd.PersistentFlags().Lookup(keyToken))

	rootCmd.AddCommand(signupCmd, signinCmd, startCmd, sendCmd, historyCmd,
		sessionsCmd, closeCmd, renameCmd, watchCmd, chatCmd)
}

func loadConfig() error {
	viper.SetEnvPrefix("CHATRELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetConfigType("yaml")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to locate home directory")
		}
		viper.SetConfigFile(filepath.Join(home, ".chatrelay.yaml"))
	}

	if err := viper.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, new(viper.ConfigFileNotFoundError)) {
			return errors.Wrap(err, "failed to read config")
		}
	}
	return nil
}

// saveConfig persists key=value to the config file.
func saveConfig(key, value string) error {
	viper.Set(key, value)
	if err := viper.WriteConfigAs(viper.ConfigFileUsed()); err != nil {
		return errors.Wrap(err, "failed to save config")
	}
	return nil
}

func newClient() *client.Client {
	return client.NewClient(viper.GetString(keyServer), viper.GetString(keyToken))
}

// sessionArg returns args[0] or the last session started from this CLI.
func sessionArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if id := viper.GetString(keySession); id != "" {
		return id, nil
	}
	return "", errors.New("no chat session given; pass one or run: chatrelay start")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errText("Error: "+err.Error()))
		os.Exit(1)
	}
}
