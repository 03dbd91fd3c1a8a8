// Package cli 录音服务的控制命令
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/justa-cai/glite-go/internal/bridge"
	"github.com/justa-cai/glite-go/internal/client"
	"github.com/justa-cai/glite-go/internal/config"
	"github.com/justa-cai/glite-go/internal/protocol"
	"github.com/justa-cai/glite-go/internal/version"
)

type Dependencies struct {
	Config *config.Config
	// Dial 连接录音服务，为空时使用 WebSocket 客户端
	Dial func(url string) (*client.Client, error)
}

type rootOptions struct {
	addr    string
	timeout time.Duration
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "callrec",
		Short:         "Control the call recording daemon",
		Long:          "A CLI for the callrecd daemon: start and stop call recordings, manage storage access and the recordings folder.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.PersistentFlags().StringVar(&opts.addr, "addr", deps.Config.ListenAddr, "Daemon address (host:port)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", client.DefaultCallTimeout, "Timeout for each call")

	rootCmd.AddCommand(NewStartCmd(deps, opts))
	rootCmd.AddCommand(NewStopCmd(deps, opts))
	rootCmd.AddCommand(NewAccessCmd(deps, opts))
	rootCmd.AddCommand(NewRequestAccessCmd(deps, opts))
	rootCmd.AddCommand(NewEnsureFolderCmd(deps, opts))
	rootCmd.AddCommand(NewFolderPathCmd(deps, opts))
	rootCmd.AddCommand(NewFolderExistsCmd(deps, opts))
	rootCmd.AddCommand(NewDoctorCmd(deps, opts))

	return rootCmd
}

func channelURL(addr string) string {
	return "ws://" + addr + bridge.ChannelPath
}

// invoke 连接服务、调用一次方法后断开
func invoke(deps *Dependencies, opts *rootOptions, cmd bridge.Command, args map[string]interface{}) (interface{}, error) {
	dial := deps.Dial
	if dial == nil {
		dial = dialWebsocket
	}
	c, err := dial(channelURL(opts.addr))
	if err != nil {
		return nil, fmt.Errorf("connecting to callrecd at %s: %w", opts.addr, err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	return c.Invoke(ctx, cmd.Channel(), cmd.String(), args)
}

func dialWebsocket(url string) (*client.Client, error) {
	c := client.New(protocol.NewWebsocketProtocol())
	if err := c.Open(url); err != nil {
		return nil, err
	}
	return c, nil
}

func printBool(w io.Writer, v interface{}) {
	if b, ok := v.(bool); ok && b {
		fmt.Fprintln(w, "yes")
		return
	}
	fmt.Fprintln(w, "no")
}
