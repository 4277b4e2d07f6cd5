package cli

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newReplCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "进入交互模式",
		Long: `进入交互模式，在同一会话中连续对话。

内置命令：
  /history  打印当前会话历史
  /quit     退出`,
		Args: cobra.NoArgs,
		RunE: runRepl,
	}
	cmd.Flags().String("session", "", "会话 ID (默认新建)")
	return cmd
}

func runRepl(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	// 只有交互终端才打印提示符，管道输入时输出保持干净
	interactive := cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Fprintf(out, "会话: %s  (输入 /quit 退出)\n", sessionID)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			messages, err := c.Messages(ctx, sessionID)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ 获取历史失败: %v\n", err)
				continue
			}
			for _, msg := range messages {
				printMessage(out, msg)
			}
			continue
		}

		result, err := c.Chat(ctx, sessionID, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
			continue
		}
		fmt.Fprintln(out, result.AIMessage.Content)
	}
}
