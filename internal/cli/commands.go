package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justa-cai/glite-go/internal/bridge"
)

func NewStartCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	var number string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start recording a call",
		Long:  "Start recording the current call. The number is only used in the file name; without it the recording is named REC_unknown_<timestamp>.m4a.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var callArgs map[string]interface{}
			if cmd.Flags().Changed("number") {
				callArgs = map[string]interface{}{bridge.ArgPhoneNumber: number}
			}
			if _, err := invoke(deps, opts, bridge.CommandStartRecording, callArgs); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Recording started")
			return nil
		},
	}

	cmd.Flags().StringVarP(&number, "number", "n", "", "Phone number of the call")
	return cmd
}

func NewStopCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the current recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := invoke(deps, opts, bridge.CommandStopRecording, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Recording stopped")
			return nil
		},
	}
}

func NewAccessCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "access",
		Short: "Check whether the daemon may write to the recordings folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := invoke(deps, opts, bridge.CommandHasStorageAccess, nil)
			if err != nil {
				return err
			}
			printBool(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func NewRequestAccessCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "request-access",
		Short: "Open the system settings where storage access is granted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := invoke(deps, opts, bridge.CommandRequestStorageAccess, nil)
			return err
		},
	}
}

func NewEnsureFolderCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-folder",
		Short: "Create the recordings folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := invoke(deps, opts, bridge.CommandEnsureOutputFolder, nil)
			if err != nil {
				return err
			}
			if ok, _ := v.(bool); !ok {
				return fmt.Errorf("could not create the recordings folder, check storage access")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Folder ready")
			return nil
		},
	}
}

func NewFolderPathCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "folder-path",
		Short: "Print the recordings folder path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := invoke(deps, opts, bridge.CommandGetOutputFolderPath, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func NewFolderExistsCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "folder-exists",
		Short: "Check whether the recordings folder exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := invoke(deps, opts, bridge.CommandFolderExists, nil)
			if err != nil {
				return err
			}
			printBool(cmd.OutOrStdout(), v)
			return nil
		},
	}
}
