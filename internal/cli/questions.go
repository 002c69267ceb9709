package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"quiz-night/internal/app"
	"quiz-night/internal/config"
	"quiz-night/internal/domain"
)

// NewQuestionsCmd prints the questions a genre resolves to with the configured stores.
func NewQuestionsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "questions [genre]",
		Short: "Print the question set a genre plays (lists genres without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, g := range domain.Genres() {
					fmt.Fprintln(out, g)
				}
				return nil
			}
			genre, err := domain.ParseGenre(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			client := newRedisClient(cfg)
			if client != nil {
				defer client.Close()
			}
			bank, cleanup, err := newQuestionBank(cmd.Context(), cfg, client, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return printQuestions(cmd, out, bank, genre)
		},
	}
}

func printQuestions(cmd *cobra.Command, out io.Writer, bank app.QuestionBank, genre domain.Genre) error {
	questions, err := bank.Questions(cmd.Context(), genre)
	if err != nil {
		return err
	}
	for i, q := range questions {
		fmt.Fprintf(out, "%d. %s\n", i+1, q.Prompt)
		for j, opt := range q.Options {
			marker := " "
			if j == q.CorrectIndex {
				marker = "*"
			}
			fmt.Fprintf(out, "   %s %c) %s\n", marker, 'A'+j, opt)
		}
	}
	return nil
}
