package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/temirov/fileprompt/internal/services/server"
	"github.com/temirov/fileprompt/internal/types"
)

const (
	historyUse              = "history"
	historyShortDescription = "list recent copy jobs of a running serve process"
	historyRequestTimeout   = 10 * time.Second
	historyTimestampLayout  = time.DateTime

	historyEntryFormat      = "%s  %d paths\n"
	historyStackEntryFormat = "%s  %d paths  [stack %s]\n"
	historyPreviewFormat    = "    %s\n"
	historyEmptyMessage     = "no copy jobs yet\n"

	errorDecodeHistoryFormat = "decode history: %w"
)

// createHistoryCommand returns the history subcommand.
func createHistoryCommand(options *rootOptions) *cobra.Command {
	var serverAddress string
	historyCommand := &cobra.Command{
		Use:   historyUse,
		Short: historyShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			if serverAddress == "" {
				env, environmentError := newEnvironment(options, command.OutOrStdout())
				if environmentError != nil {
					return environmentError
				}
				serverAddress = env.currentConfiguration().ServerAddress()
			}
			ctx, cancel := context.WithTimeout(command.Context(), historyRequestTimeout)
			defer cancel()
			entries, fetchError := fetchHistory(ctx, server.NewClient(serverAddress))
			if fetchError != nil {
				return fetchError
			}
			writeHistory(command.OutOrStdout(), entries)
			return nil
		},
	}
	historyCommand.Flags().StringVar(&serverAddress, addressFlagName, "", addressFlagDescription)
	return historyCommand
}

func fetchHistory(ctx context.Context, client server.Client) ([]types.HistoryEntry, error) {
	response, callError := client.Call(ctx, types.CommandHistory, struct{}{})
	if callError != nil {
		return nil, callError
	}
	var data historyData
	if decodeError := json.Unmarshal(response.Data, &data); decodeError != nil {
		return nil, fmt.Errorf(errorDecodeHistoryFormat, decodeError)
	}
	return data.Entries, nil
}

func writeHistory(writer io.Writer, entries []types.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprint(writer, historyEmptyMessage)
		return
	}
	for _, entry := range entries {
		timestamp := entry.Timestamp.Local().Format(historyTimestampLayout)
		if entry.StackName != "" {
			fmt.Fprintf(writer, historyStackEntryFormat, timestamp, len(entry.Paths), entry.StackName)
		} else {
			fmt.Fprintf(writer, historyEntryFormat, timestamp, len(entry.Paths))
		}
		for _, previewLine := range strings.Split(entry.TreePreview, "\n") {
			fmt.Fprintf(writer, historyPreviewFormat, previewLine)
		}
	}
}
