package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"transcriptor/internal/source"
)

var platformColumns = []column{
	{title: "Platform"},
	{title: "Hosts", wide: true},
	{title: "Handled by"},
}

func newPlatformsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "platforms",
		Short:       "List supported platforms",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			platforms := source.Platforms()
			rows := make([][]string, 0, len(platforms)+2)
			for _, p := range platforms {
				rows = append(rows, []string{p.Name, strings.Join(p.Hosts, ", "), "yt-dlp"})
			}
			rows = append(rows,
				[]string{"Direct media URLs", "any http(s) host", "download"},
				[]string{"Local files", "audio and video files", "ffmpeg when needed"},
			)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(platformColumns, rows))
			return nil
		},
	}
}
