package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/config"
	"github.com/gramo-ai/gramo-cli/internal/observability"
)

// newAnalyzeCmd creates and configures the `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Runs a one-shot analysis of the given text",
		Long: `Analyze runs the full grammar, style and structure pipeline over a
single piece of text and prints the unified result. The text is taken
from the argument, from --file, or from stdin when neither is given.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := config.Get()

			text, err := readInputText(cmd, args)
			if err != nil {
				return err
			}

			focus, err := parseFocusAreas(viper.GetString("focus"))
			if err != nil {
				return err
			}

			req := schemas.AnalysisRequest{
				Text:        text,
				OutputStyle: schemas.OutputStyle(viper.GetString("style")),
				FocusAreas:  focus,
			}

			components, err := initializeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			result, err := components.Analyzer.Analyze(ctx, req)
			if err != nil {
				logger.Error("Analysis failed", zap.Error(err))
				return err
			}

			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printReadable(cmd.OutOrStdout(), result)
			return nil
		},
	}

	analyzeCmd.Flags().String("style", string(schemas.StyleProfessional), "Target output style ('grammar', 'friendly', 'professional', 'concise').")
	analyzeCmd.Flags().String("focus", "grammar,style,structure", "Comma-separated analysis roles to run.")
	analyzeCmd.Flags().StringP("file", "f", "", "Read the input text from a file instead of the argument.")
	analyzeCmd.Flags().Bool("json", false, "Print the raw JSON result instead of the readable summary.")

	return analyzeCmd
}

// readInputText resolves the input text from the argument, the --file
// flag, or stdin, in that order.
func readInputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if path := viper.GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// parseFocusAreas splits the --focus flag into validated roles.
func parseFocusAreas(raw string) ([]schemas.Role, error) {
	var focus []schemas.Role
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		role := schemas.Role(part)
		if !schemas.ValidRole(role) {
			return nil, fmt.Errorf("unknown focus area %q (valid: grammar, style, structure)", part)
		}
		focus = append(focus, role)
	}
	return focus, nil
}

func printJSON(w io.Writer, result schemas.UnifiedAnalysisResult) error {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// printReadable renders the result as a terminal-friendly summary.
func printReadable(w io.Writer, result schemas.UnifiedAnalysisResult) {
	fmt.Fprintf(w, "Overall score: %d/100\n", result.Feedback.OverallScore)
	fmt.Fprintf(w, "Tone: %s\n", result.ToneAnalysis.PrimaryTone)
	fmt.Fprintf(w, "Readability: %.1f/100 (%d words, %d sentences)\n\n",
		result.TextStats.ReadabilityScore, result.TextStats.WordCount, result.TextStats.SentenceCount)

	if len(result.Feedback.Pros) > 0 {
		fmt.Fprintln(w, "Strengths:")
		for _, pro := range result.Feedback.Pros {
			fmt.Fprintf(w, "  + %s\n", pro)
		}
		fmt.Fprintln(w)
	}
	if len(result.Feedback.Cons) > 0 {
		fmt.Fprintln(w, "Suggestions:")
		for _, con := range result.Feedback.Cons {
			fmt.Fprintf(w, "  - %s\n", con)
		}
		fmt.Fprintln(w)
	}

	if result.ImprovedText != "" && result.ImprovedText != result.OriginalText {
		fmt.Fprintln(w, "Improved text:")
		fmt.Fprintln(w, result.ImprovedText)
	}
}
