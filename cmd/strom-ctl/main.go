package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"strom/internal/config"
	"strom/internal/ipc"
)

func main() {
	cfgFile := cli.StringP("config", "c", "config/settings.yaml", "Config file path")
	socket := cli.StringP("socket", "s", "", "Daemon socket (overrides config)")
	timeout := cli.DurationP("timeout", "t", 90*time.Second, "Response timeout")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: strom-ctl [flags] trigger | say <text...> | status")
		cli.PrintDefaults()
	}
	cli.Parse()

	path := *socket
	if path == "" {
		cfg, err := config.Load(*cfgFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		path = cfg.IPC.Socket
	}

	args := cli.Args()
	if len(args) == 0 {
		args = []string{ipc.CmdTrigger}
	}

	msg := ipc.ControlMessage{Cmd: args[0]}
	switch msg.Cmd {
	case ipc.CmdTrigger, ipc.CmdStatus:
	case ipc.CmdSay:
		msg.Text = strings.Join(args[1:], " ")
		if msg.Text == "" {
			cli.Usage()
			os.Exit(2)
		}
	default:
		cli.Usage()
		os.Exit(2)
	}

	resp, err := ipc.Send(path, msg, *timeout)
	if err != nil {
		fmt.Println("strom-daemon not running:", err)
		os.Exit(1)
	}
	if resp.Text != "" {
		fmt.Println(resp.Text)
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, "error:", resp.Error)
		os.Exit(1)
	}
}
