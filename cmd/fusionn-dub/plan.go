package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/internal/segment"
	"github.com/fusionn-dub/internal/textutil"
)

const planTextWidth = 48

func newPlanCommand() *cobra.Command {
	var transcriptPath, textPath, translation string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how a translation is distributed over transcript segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := readTranscript(transcriptPath)
			if err != nil {
				return err
			}
			if textPath != "" {
				b, err := os.ReadFile(textPath)
				if err != nil {
					return fmt.Errorf("read translation: %w", err)
				}
				translation = string(b)
			}
			if strings.TrimSpace(translation) == "" {
				return errors.New("a translation is required (--text or --translation)")
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPlan(transcript, translation))
			return nil
		},
	}
	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Transcript JSON ({text, language, segments:[{text,start,end}]})")
	cmd.Flags().StringVar(&textPath, "text", "", "File containing the translated text")
	cmd.Flags().StringVar(&translation, "translation", "", "Translated text")
	_ = cmd.MarkFlagRequired("transcript")
	return cmd
}

func readTranscript(path string) (domain.Transcript, error) {
	var t domain.Transcript
	b, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read transcript: %w", err)
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return t, fmt.Errorf("parse transcript: %w", err)
	}
	return t, nil
}

// renderPlan tabulates the distributed segments, followed by a summary line.
func renderPlan(transcript domain.Transcript, translation string) string {
	segments := segment.Distribute(transcript.Segments, translation)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Start", "End", "Dur", "Text", "Original"})
	for i, s := range segments {
		tw.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.2f", s.Start),
			fmt.Sprintf("%.2f", s.End),
			fmt.Sprintf("%.2f", s.Duration()),
			textutil.Truncate(s.Text, planTextWidth),
			textutil.Truncate(s.OriginalText, planTextWidth),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	sentences := len(textutil.SplitSentences(translation))
	summary := fmt.Sprintf("%d sentences, %d original segments → %d translated segments",
		sentences, len(transcript.Segments), len(segments))
	if unused := segment.UnusedSentences(len(transcript.Segments), sentences); unused > 0 {
		summary += fmt.Sprintf(" (%d trailing sentences unused)", unused)
	}
	return tw.Render() + "\n" + summary
}
