package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ari/internal/assistant/ports"
	"ari/internal/diff"
)

func newTransformCmd(opts *cliOptions) *cobra.Command {
	var showDiff bool
	var conversationID string
	cmd := &cobra.Command{
		Use:   "transform <kind> [file]",
		Short: "Rewrite text as a summary, quiz, flashcards, or bullets",
		Long: `Rewrite content under one of the transform kinds: shorten,
formalize, bullets, quiz, or flashcards. Content comes from the file
argument or stdin. Quiz, flashcard, and bullet output is parsed into
its structured form before rendering.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := ports.ParseTransformKind(args[0])
			if err != nil {
				return err
			}

			content, err := readContent(args[1:])
			if err != nil {
				return err
			}
			if strings.TrimSpace(content) == "" {
				return fmt.Errorf("no content to transform")
			}

			c, err := buildContainer(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			text, err := c.coordinator.Transform(cmd.Context(), conversationID, content, kind)
			if err != nil {
				return err
			}

			fmt.Println(renderTransform(c, kind, text))

			if showDiff {
				result := diff.NewRenderer(!opts.plain).Compare(content, text)
				fmt.Println(result.Unified)
				fmt.Println(gray(result.Summary()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDiff, "diff", false, "Show a unified diff against the input")
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Apply this conversation's preferences")
	return cmd
}

func readContent(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
