package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xiaot623/chatrelay/internal/domain"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		resp, err := newClient().Signup(cmd.Context(), username, email, password)
		if err != nil {
			return err
		}
		fmt.Printf("%s user %s\n", green(resp.Msg), resp.UserID)
		return nil
	},
}

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in and save the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		token, err := newClient().Signin(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		if err := saveConfig(keyToken, token); err != nil {
			return err
		}
		fmt.Println(green("Signed in."), faint("token saved to "+viper.ConfigFileUsed()))
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a chat session and make it current",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := newClient().StartSession(cmd.Context())
		if err != nil {
			return err
		}
		if err := saveConfig(keySession, id); err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <prompt>...",
	Short: "Send a prompt to the current (or --session) chat session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flag, _ := cmd.Flags().GetString("session")
		sessionID, err := sessionArg([]string{flag})
		if err != nil {
			return err
		}
		reply, err := newClient().Send(cmd.Context(), sessionID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [chatSessionId]",
	Short: "Print a session's messages",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := sessionArg(args)
		if err != nil {
			return err
		}
		messages, err := newClient().History(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
		for _, m := range messages {
			printMessage(m)
		}
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List your chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := newClient().Sessions(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range sessions {
			state := "open"
			if s.Closed() {
				state = "closed"
			}
			fmt.Printf("%s  %-6s  %s  %s\n", s.ID, state, s.StartTime.Local().Format(time.DateTime), bold(s.Name))
		}
		return nil
	},
}

var closeCmd = &cobra.Command{
	Use:   "close [chatSessionId]",
	Short: "Close a chat session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := sessionArg(args)
		if err != nil {
			return err
		}
		resp, err := newClient().Close(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", green("Closed"), resp.ChatSessionID)
		fmt.Println(resp.Summary)
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <chatSessionId> <title>...",
	Short: "Rename a chat session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newClient().Rename(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", session.ID, bold(session.Name))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [chatSessionId]",
	Short: "Stream a session's events until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := sessionArg(args)
		if err != nil {
			return err
		}
		fmt.Println(faint("watching " + sessionID + ", Ctrl+C to stop"))
		return newClient().Watch(cmd.Context(), sessionID, printEvent)
	},
}

func init() {
	signupCmd.Flags().String("username", "", "display name")
	signupCmd.Flags().String("email", "", "email address")
	signupCmd.Flags().String("password", "", "password (at least 8 characters)")
	_ = signupCmd.MarkFlagRequired("email")
	_ = signupCmd.MarkFlagRequired("password")

	signinCmd.Flags().String("email", "", "email address")
	signinCmd.Flags().String("password", "", "password")
	_ = signinCmd.MarkFlagRequired("email")
	_ = signinCmd.MarkFlagRequired("password")

	sendCmd.Flags().String("session", "", "chat session id (defaults to the current one)")
}

func printMessage(m domain.ChatMessage) {
	ts := faint(m.Timestamp.Local().Format(time.TimeOnly))
	if m.IsUserMessage {
		fmt.Printf("%s %s %s\n", ts, green("You:"), m.Content)
		return
	}
	fmt.Printf("%s %s %s\n", ts, cyan("Assistant:"), m.Content)
}

func printEvent(ev domain.Event) {
	switch ev.Type {
	case domain.EventTypeMessageAppended:
		if ev.Message != nil {
			printMessage(*ev.Message)
		}
	case domain.EventTypeSessionClosed, domain.EventTypeSessionRenamed:
		if ev.Session != nil {
			summary := ""
			if ev.Session.Summary != nil {
				summary = *ev.Session.Summary
			}
			fmt.Println(faint(fmt.Sprintf("[%s] %s %s", ev.Type, ev.Session.Name, summary)))
		}
	default:
		fmt.Println(faint(fmt.Sprintf("[%s]", ev.Type)))
	}
}
