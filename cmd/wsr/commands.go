package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/wsr/internal/config"
)

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current review as bridge text",
	Long: `Export the current review as bridge text for pasting into a chat model.

Examples:
  wsr export --week "Week 18"
  wsr export --week "Week 18" --include-sensitive --output review.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		week, _ := cmd.Flags().GetString("week")
		includeSensitive, _ := cmd.Flags().GetBool("include-sensitive")
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"weekLabel":        week,
			"includeSensitive": includeSensitive,
		}
		resp, err := client.post(cmd.Context(), "/api/review/bridge", req)
		if err != nil {
			return err
		}

		var result struct {
			Text string `json:"text"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if output != "" {
			if err := os.WriteFile(output, []byte(result.Text+"\n"), 0o644); err != nil {
				return fmt.Errorf("writing output file: %w", err)
			}
			printSuccess("Review exported to %s", output)
			return nil
		}

		fmt.Println(result.Text)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("week", "", "week label for the export header")
	exportCmd.Flags().Bool("include-sensitive", false, "include sectors marked sensitive")
	exportCmd.Flags().String("output", "", "output file path (default: stdout)")
}

// --- log ---

var logCmd = &cobra.Command{
	Use:   "log <text>",
	Short: "Log a meal from a free-text description",
	Long: `Log a meal from a free-text description.

The text is sent to the food analyzer for a calorie and protein estimate,
then appended to today's log. Without a configured model key the analyzer
returns a fixed estimate.

Example:
  wsr log two eggs and a slice of toast`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/food/analyze-text", map[string]any{"input": input})
		if err != nil {
			return err
		}

		var estimate struct {
			Item       string  `json:"item"`
			Calories   float64 `json:"calories"`
			Protein    float64 `json:"protein"`
			Confidence float64 `json:"confidence"`
		}
		if err := decodeJSON(resp, &estimate); err != nil {
			return err
		}

		logResp, err := client.post(cmd.Context(), "/api/logs", map[string]any{
			"type":       "food",
			"item":       estimate.Item,
			"calories":   estimate.Calories,
			"protein":    estimate.Protein,
			"confidence": estimate.Confidence,
		})
		if err != nil {
			return err
		}

		var entry struct {
			ID string `json:"id"`
		}
		if err := decodeJSON(logResp, &entry); err != nil {
			return err
		}

		printSuccess("Logged %s: %.0f kcal, %.0fg protein (confidence %.2f)",
			estimate.Item, estimate.Calories, estimate.Protein, estimate.Confidence)
		return nil
	},
}

// --- scores ---

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show sector scores for the current review",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/review/scores")
		if err != nil {
			return err
		}

		var result struct {
			Scores []struct {
				Icon      string  `json:"icon"`
				Name      string  `json:"name"`
				Score     float64 `json:"score"`
				Rationale string  `json:"rationale"`
			} `json:"scores"`
			Overall float64 `json:"overall"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Scores) == 0 {
			fmt.Println("No active sectors.")
			return nil
		}

		for _, s := range result.Scores {
			fmt.Printf("%s %s %s\n",
				s.Icon,
				colorize(colorBold, s.Name),
				fmt.Sprintf("%.1f/10", s.Score),
			)
			if s.Rationale != "" {
				fmt.Printf("  %s\n", s.Rationale)
			}
		}
		fmt.Printf("\n%s %.1f/10\n", colorize(colorBold, "Overall:"), result.Overall)
		return nil
	},
}

// --- weeks ---

var weeksCmd = &cobra.Command{
	Use:   "weeks",
	Short: "List locked weeks",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/weeks")
		if err != nil {
			return err
		}

		var weeks []struct {
			Week  string  `json:"week"`
			Title string  `json:"title"`
			Dates string  `json:"dates"`
			Score float64 `json:"score"`
			Trend string  `json:"trend"`
		}
		if err := decodeJSON(resp, &weeks); err != nil {
			return err
		}

		if len(weeks) == 0 {
			fmt.Println("No locked weeks yet.")
			return nil
		}

		for _, w := range weeks {
			fmt.Printf("%s  %.1f %s  %s  %s\n",
				colorize(colorCyan, w.Week),
				w.Score,
				trendGlyph(w.Trend),
				w.Dates,
				w.Title,
			)
		}
		return nil
	},
}

func trendGlyph(trend string) string {
	switch trend {
	case "up":
		return "↑"
	case "down":
		return "↓"
	default:
		return "→"
	}
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the identity snapshot",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the identity snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/profile")
		if err != nil {
			return err
		}

		var snapshot any
		if err := decodeJSON(resp, &snapshot); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set an identity snapshot field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.patch(cmd.Context(), "/api/profile", map[string]any{key: value})
		if err != nil {
			return err
		}

		var updated any
		if err := decodeJSON(resp, &updated); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the identity snapshot in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/profile")
		if err != nil {
			return err
		}

		var snapshot any
		if err := decodeJSON(resp, &snapshot); err != nil {
			return err
		}

		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return err
		}

		tmpFile, err := os.CreateTemp("", "wsr-profile-*.json")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		if _, err := tmpFile.Write(data); err != nil {
			tmpFile.Close()
			return err
		}
		tmpFile.Close()

		editorCmd := exec.Command(editor, tmpPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr
		if err := editorCmd.Run(); err != nil {
			return fmt.Errorf("editor exited with error: %w", err)
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}

		var fields map[string]any
		if err := json.Unmarshal(edited, &fields); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}

		patchResp, err := client.patch(cmd.Context(), "/api/profile", fields)
		if err != nil {
			return err
		}
		defer patchResp.Body.Close()

		if patchResp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", patchResp.StatusCode)
		}

		printSuccess("Profile updated")
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileEditCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
