// Package cli 实现 chat-cli 命令
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"relay-chat-server/internal/client"
	"relay-chat-server/internal/model"
)

// NewRootCommand 构建完整的命令树
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chat-cli",
		Short: "Relay Chat 命令行客户端",
		Long: `Relay Chat 命令行客户端

通过 HTTP API 与聊天服务交互：发送消息、查看历史、列出会话，
或进入交互模式连续对话。`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("server", "s", "", "服务器地址 (默认: "+defaultServerURL+")")

	rootCmd.AddCommand(
		newSendCommand(),
		newHistoryCommand(),
		newSessionsCommand(),
		newReplCommand(),
		newWatchCommand(),
	)
	return rootCmd
}

// Execute 执行根命令
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗", err)
		os.Exit(1)
	}
}

// newClient 按配置和 --server 参数创建 API 客户端
func newClient(cmd *cobra.Command) (*client.Client, error) {
	server, _ := cmd.Flags().GetString("server")
	settings, err := loadSettings(server)
	if err != nil {
		return nil, err
	}
	return client.NewClient(settings.ServerURL, settings.Timeout), nil
}

// printMessage 输出一条消息，例如 [12:00:01] assistant: Hello!
func printMessage(w io.Writer, msg model.Message) {
	fmt.Fprintf(w, "[%s] %s: %s\n", msg.Timestamp.Local().Format("15:04:05"), msg.Role, msg.Content)
}
