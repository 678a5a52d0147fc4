package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	chatAgentID string
	chatThread  string
	chatName    string
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a message to a hosted agent, creating one if needed",
	Long: `Sends one message to a hosted agent on the configured Foundry project.
Without --agent-id a new agent is created first, advertising every tool from
the manifest. Pass --thread to continue an earlier conversation; the thread
ID is printed after each turn.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "chat")
		defer span.End()

		a, _, _, store, err := buildAgent(true)
		if err != nil {
			return err
		}
		defer closeStore(store)

		agentID := chatAgentID
		if agentID == "" {
			agentID, err = a.CreateAgent(ctx, chatName)
			if err != nil {
				return err
			}
			fmt.Printf("Agent: %s\n", agentID)
		}

		reply, threadID, err := a.RunAgent(ctx, agentID, args[0], chatThread)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		fmt.Printf("\nThread: %s\n", threadID)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatAgentID, "agent-id", "", "existing hosted agent to use")
	chatCmd.Flags().StringVar(&chatThread, "thread", "", "thread ID to continue")
	chatCmd.Flags().StringVar(&chatName, "name", "", "name for a newly created agent")
	rootCmd.AddCommand(chatCmd)
}
