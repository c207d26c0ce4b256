package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [chatSessionId]",
	Short: "Interactive chat; starts a new session unless one is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c := newClient()

		var sessionID string
		if len(args) > 0 {
			sessionID = args[0]
			messages, err := c.History(ctx, sessionID)
			if err != nil {
				return err
			}
			for _, m := range messages {
				printMessage(m)
			}
		} else {
			id, err := c.StartSession(ctx)
			if err != nil {
				return err
			}
			sessionID = id
			if err := saveConfig(keySession, id); err != nil {
				return err
			}
		}

		fmt.Println(green("chatrelay"), faint("session "+sessionID))
		fmt.Println("Type a message and press Enter. /quit to leave, /close to end the session.")
		fmt.Println()

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			fmt.Print(green("You: "))
			var input string
			select {
			case <-ctx.Done():
				fmt.Println()
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				input = strings.TrimSpace(line)
			}

			switch input {
			case "":
				continue
			case "/quit", "exit":
				return nil
			case "/close":
				resp, err := c.Close(ctx, sessionID)
				if err != nil {
					return err
				}
				fmt.Println(faint(resp.Summary))
				return nil
			}

			reply, err := c.Send(ctx, sessionID, input)
			if err != nil {
				fmt.Fprintln(os.Stderr, errText("Error: "+err.Error()))
				continue
			}
			fmt.Printf("%s %s\n\n", cyan("Assistant:"), reply)
		}
	},
}
