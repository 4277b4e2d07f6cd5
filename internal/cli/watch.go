package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relay-chat-server/internal/model"
)

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <会话ID>",
		Short: "实时查看会话中的新消息",
		Long: `通过 WebSocket 订阅会话，打印之后写入的每一条消息。

按 Ctrl+C 退出。`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "✓ 正在监听会话 %s\n", args[0])
	return c.Watch(ctx, args[0], func(msg model.Message) {
		printMessage(cmd.OutOrStdout(), msg)
	})
}
