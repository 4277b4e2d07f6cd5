// Package main 是 chat-cli 的入口点
package main

import "relay-chat-server/internal/cli"

func main() {
	cli.Execute()
}
