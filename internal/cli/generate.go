package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"quizdeck-service/internal/config"
	"quizdeck-service/internal/domain"
	"quizdeck-service/internal/genai"
	"github.com/spf13/cobra"
)

// NewGenerateCmd drafts a quiz from AI-generated questions and prints it
// as JSON, ready to be inserted into the quizzes table.
func NewGenerateCmd(configPath *string) *cobra.Command {
	var (
		topic      string
		difficulty string
		count      int
		qtype      string
		creator    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft a quiz with AI-generated questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			endpoint := cfg.GenAI.URL
			if env := os.Getenv("GENAI_URL"); env != "" {
				endpoint = env
			}
			if endpoint == "" {
				return fmt.Errorf("genai url not configured")
			}

			questionType := domain.QuestionType(qtype)
			if questionType != domain.MultipleChoice && questionType != domain.TrueFalse {
				return fmt.Errorf("unsupported question type %q", qtype)
			}

			client := genai.NewClient(endpoint)
			text, err := client.GenerateText(cmd.Context(), genai.BuildPrompt(topic, difficulty, count, questionType))
			if err != nil {
				return err
			}

			questions, err := genai.ParseQuestions(text, questionType)
			if err != nil {
				return err
			}

			draft := domain.Quiz{
				Title:       fmt.Sprintf("%s quiz", topic),
				Description: fmt.Sprintf("AI-generated %s questions about %s", difficulty, topic),
				Difficulty:  difficulty,
				IsDraft:     true,
				Creator:     creator,
				Questions:   questions,
			}
			if err := draft.Validate(); err != nil {
				return fmt.Errorf("generated quiz invalid: %w", err)
			}

			encoded, err := json.MarshalIndent(draft, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "quiz topic (required)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "medium", "question difficulty")
	cmd.Flags().IntVar(&count, "count", 5, "number of questions")
	cmd.Flags().StringVar(&qtype, "type", string(domain.MultipleChoice), "question type: multiple-choice or true-false")
	cmd.Flags().StringVar(&creator, "creator", "", "creator username recorded on the draft")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
