package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <会话ID>",
		Short: "查看会话历史",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	messages, err := c.Messages(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("获取历史失败: %w", err)
	}
	if len(messages) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "（暂无消息）")
		return nil
	}
	for _, msg := range messages {
		printMessage(cmd.OutOrStdout(), msg)
	}
	return nil
}

func newSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "列出所有会话",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			sessions, err := c.Sessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("获取会话失败: %w", err)
			}
			for _, id := range sessions {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
