package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/justa-cai/glite-go/internal/audio"
	"github.com/justa-cai/glite-go/internal/config"
	"github.com/justa-cai/glite-go/internal/storage"
)

func NewDoctorCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			cfg := deps.Config
			ok := true

			if err := audio.CheckFFmpeg(cfg.FFmpegPath); err != nil {
				setupCheck(w, "ffmpeg", false, err.Error())
				ok = false
			} else {
				setupCheck(w, "ffmpeg", true, cfg.FFmpegPath)

				audioOpts := audio.Options{FFmpegPath: cfg.FFmpegPath, InputDevice: cfg.InputDevice}
				if err := audio.SupportsSource(audioOpts, audio.SourceVoiceCall); err != nil {
					setupCheck(w, "Call audio", false, "no loopback device, recordings fall back to the microphone only")
				} else {
					setupCheck(w, "Call audio", true, "microphone and system playback")
				}
			}

			if storage.New(cfg.StorageRoot).HasAccess() {
				setupCheck(w, "Storage access", true, cfg.StorageRoot)
			} else {
				setupCheck(w, "Storage access", false, "cannot write to "+cfg.StorageRoot+". Run 'callrec request-access'")
				ok = false
			}
			setupCheck(w, "Recordings folder", true, cfg.Recordings())

			if cfg.Source != "" {
				setupCheck(w, "Config file", true, cfg.Source)
			} else {
				setupCheck(w, "Config file", true, "none, using defaults ("+config.FilePath()+")")
			}

			dial := deps.Dial
			if dial == nil {
				dial = dialWebsocket
			}
			if c, err := dial(channelURL(opts.addr)); err != nil {
				setupCheck(w, "Daemon", false, "not reachable at "+opts.addr+". Start it with 'callrecd'")
				ok = false
			} else {
				c.Close()
				setupCheck(w, "Daemon", true, "listening on "+opts.addr)
			}

			if ok {
				fmt.Fprintln(w, "\nAll prerequisites met. Ready to record!")
			} else {
				fmt.Fprintln(w, "\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}

func setupCheck(w io.Writer, name string, ok bool, detail string) {
	mark := "✅"
	if !ok {
		mark = "❌"
	}
	fmt.Fprintf(w, "%s %s: %s\n", mark, name, detail)
}
