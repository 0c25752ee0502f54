package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/tourchat/internal/conversation"
	"github.com/matheus3301/tourchat/internal/core"
	"github.com/matheus3301/tourchat/internal/identity"
	"github.com/matheus3301/tourchat/internal/messaging"
	"github.com/spf13/cobra"
)

var filterFlag string

func init() {
	conversationsCmd.Flags().StringVarP(&filterFlag, "filter", "f", "", "only show conversations whose participant or tour matches")
	rootCmd.AddCommand(conversationsCmd, messagesCmd, sendCmd)
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"ls"},
	Short:   "List conversations with their unread counts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd, func(ctx context.Context, c *core.Core) error {
			if err := c.Index.Refresh(ctx); err != nil {
				return err
			}
			convs := conversation.Filter(c.Index.Snapshot(), filterFlag)
			if jsonFlag {
				return outputJSON(convs)
			}
			if len(convs) == 0 {
				fmt.Println("No conversations.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tPARTICIPANT\tTOUR\tUNREAD\tLAST MESSAGE")
			for _, cv := range convs {
				last := ""
				if cv.LastMessage != nil {
					last = fmt.Sprintf("%s  %s", cv.LastMessage.Timestamp.Local().Format(time.DateTime), oneLine(cv.LastMessage.Content, 40))
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", cv.ID, cv.ParticipantName, cv.RelatedTourTitle, cv.UnreadCount, last)
			}
			_ = w.Flush()
			fmt.Printf("\n%d unread\n", c.Index.TotalUnread())
			return nil
		})
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <conversation-id>",
	Short: "Print a conversation thread, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd, func(ctx context.Context, c *core.Core) error {
			participantID, err := participantOf(ctx, c, args[0])
			if err != nil {
				return err
			}
			msgs, err := loadThread(ctx, c, args[0])
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(msgs)
			}
			for _, m := range msgs {
				who := m.SenderName
				if c.Resolver.Classify(m.ID, m.SenderID, participantID) == identity.Own {
					who = "You"
				}
				fmt.Printf("[%s] %s (%s): %s\n", m.Timestamp.Local().Format(time.DateTime), who, m.Status, m.Content)
			}
			return nil
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <conversation-id> <text>...",
	Short: "Send a text message to a conversation",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, text := args[0], strings.Join(args[1:], " ")
		return withCore(cmd, func(ctx context.Context, c *core.Core) error {
			participantID, err := participantOf(ctx, c, id)
			if err != nil {
				return err
			}
			if err := c.Scheduler.MountConversation(ctx, id, participantID); err != nil {
				return err
			}
			msg, err := c.Scheduler.Send(ctx, id, text)
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(msg)
			}
			fmt.Printf("sent %s (%s)\n", msg.ID, msg.Status)
			return nil
		})
	},
}

// participantOf looks the conversation up in a fresh index.
func participantOf(ctx context.Context, c *core.Core, conversationID string) (string, error) {
	if err := c.Index.Refresh(ctx); err != nil {
		return "", err
	}
	cv, ok := c.Index.Get(conversationID)
	if !ok {
		return "", fmt.Errorf("conversation %q not found", conversationID)
	}
	return cv.ParticipantID, nil
}

// loadThread runs one refresh through the message store so the output is
// ordered and deduplicated the way the TUI shows it.
func loadThread(ctx context.Context, c *core.Core, conversationID string) ([]messaging.Message, error) {
	gen := c.Store.Mount(conversationID)
	defer c.Store.Unmount(conversationID)

	msgs, err := c.API.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	c.Store.ApplyRefresh(conversationID, gen, msgs)
	return c.Store.Snapshot(conversationID), nil
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
