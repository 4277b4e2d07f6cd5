package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [消息]",
		Short: "发送一条消息并打印 AI 回复",
		Long: `发送一条消息并打印 AI 回复。

未指定 --session 时自动生成新的会话 ID。`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSend,
	}
	cmd.Flags().String("session", "", "会话 ID")
	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
		fmt.Fprintf(cmd.ErrOrStderr(), "新会话: %s\n", sessionID)
	}

	result, err := c.Chat(cmd.Context(), sessionID, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("发送失败: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.AIMessage.Content)
	return nil
}
