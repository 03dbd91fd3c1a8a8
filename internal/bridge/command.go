// Package bridge 把宿主的通道调用转发给录音控制器和存储
package bridge

import "github.com/justa-cai/glite-go/internal/protocol"

// Command 宿主可以调用的命令
type Command int

const (
	CommandUnknown Command = iota
	CommandStartRecording
	CommandStopRecording
	CommandHasStorageAccess
	CommandRequestStorageAccess
	CommandEnsureOutputFolder
	CommandGetOutputFolderPath
	CommandFolderExists
)

// ArgPhoneNumber startRecording 的号码参数
const ArgPhoneNumber = "phoneNumber"

type commandKey struct {
	channel string
	method  string
}

var commandTable = map[commandKey]Command{
	{protocol.ChannelCallRecording, "startRecording"}:           CommandStartRecording,
	{protocol.ChannelCallRecording, "stopRecording"}:            CommandStopRecording,
	{protocol.ChannelStoragePermission, "hasStorageAccess"}:     CommandHasStorageAccess,
	{protocol.ChannelStoragePermission, "requestStorageAccess"}: CommandRequestStorageAccess,
	{protocol.ChannelStoragePermission, "ensureOutputFolder"}:   CommandEnsureOutputFolder,
	{protocol.ChannelStoragePermission, "getOutputFolderPath"}:  CommandGetOutputFolderPath,
	{protocol.ChannelStoragePermission, "folderExists"}:         CommandFolderExists,
}

// ParseCommand 按通道和方法名查找命令，未知组合返回 CommandUnknown
func ParseCommand(channel, method string) Command {
	return commandTable[commandKey{channel, method}]
}

// Channel 命令所属的通道
func (c Command) Channel() string {
	for k, v := range commandTable {
		if v == c {
			return k.channel
		}
	}
	return ""
}

func (c Command) String() string {
	for k, v := range commandTable {
		if v == c {
			return k.method
		}
	}
	return "unknown"
}
