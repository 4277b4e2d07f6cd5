package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultServerURL = "http://localhost:5000"

// Settings CLI 配置
type Settings struct {
	ServerURL string
	Timeout   time.Duration // 单次请求超时，需覆盖模型生成时间
}

// loadSettings 读取 ~/.relay-chat/config.yaml 与 CHAT_SERVER_URL 环境变量
// 命令行 --server 优先级最高
func loadSettings(serverFlag string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("server.url", defaultServerURL)
	v.SetDefault("server.timeout", 90*time.Second)

	if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".relay-chat", "config.yaml"))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("读取配置失败: %w", err)
			}
		}
	}

	v.BindEnv("server.url", "CHAT_SERVER_URL")

	s := Settings{
		ServerURL: v.GetString("server.url"),
		Timeout:   v.GetDuration("server.timeout"),
	}
	if serverFlag != "" {
		s.ServerURL = serverFlag
	}
	s.ServerURL = strings.TrimRight(s.ServerURL, "/")
	if s.Timeout <= 0 {
		s.Timeout = 90 * time.Second
	}
	return &s, nil
}
