package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/agentskel/internal/config"
	"github.com/kalambet/agentskel/internal/pipeline"
)

type agentRequest struct {
	RequestText string `json:"request_text"`
	UserID      string `json:"user_id,omitempty"`
}

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run <text>",
	Short: "Plan a request on the running server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := runAgent(cmd.Context(), client, strings.Join(args, " "), user)
		if err != nil {
			return err
		}
		if asJSON {
			return writeIndented(os.Stdout, resp)
		}
		printPlan(os.Stdout, resp)
		return nil
	},
}

func runAgent(ctx context.Context, client *apiClient, text, user string) (pipeline.PlanResponse, error) {
	var out pipeline.PlanResponse
	resp, err := client.post(ctx, "/run-agent", agentRequest{RequestText: text, UserID: user})
	if err != nil {
		return out, err
	}
	err = decodeJSON(resp, &out)
	return out, err
}

func init() {
	runCmd.Flags().String("user", "", "user id for profile lookup")
	runCmd.Flags().Bool("json", false, "print the raw JSON response")
}

// --- enhance ---

var enhanceCmd = &cobra.Command{
	Use:   "enhance <text>",
	Short: "Enhance a prompt on the running server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/enhance_prompt", agentRequest{RequestText: strings.Join(args, " "), UserID: user})
		if err != nil {
			return err
		}
		var out pipeline.EnhanceResponse
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}

		if asJSON {
			return writeIndented(os.Stdout, out)
		}
		printEnhanced(os.Stdout, out)
		return nil
	},
}

func init() {
	enhanceCmd.Flags().String("user", "", "user id for profile lookup")
	enhanceCmd.Flags().Bool("json", false, "print the raw JSON response")
}

// --- classify ---

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Classify a text locally without contacting the server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		tables, err := loadTables(cfg)
		if err != nil {
			return err
		}

		agent := pipeline.New(tables, pipeline.Options{NumKeywords: cfg.RAG.NumKeywords})
		return writeIndented(os.Stdout, agent.Classify(strings.Join(args, " ")))
	},
}

// --- demo ---

type scenario struct {
	Name   string
	Text   string
	UserID string
}

var demoScenarios = []scenario{
	{Name: "Writing Task", Text: "Write a short blog post about artificial intelligence"},
	{Name: "Analysis Task", Text: "Analyze the trends in renewable energy adoption"},
	{Name: "Development Task", Text: "Develop a simple REST API for a todo application"},
	{Name: "First-time Buyer", Text: "Tell me about mortgages for first-time buyers.", UserID: "user002"},
	{Name: "Complex Design", Text: "Design a machine learning system for predictive maintenance in manufacturing", UserID: "user001"},
	{Name: "Empty Request", Text: ""},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the demo scenarios against the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runDemo(cmd.Context(), client, os.Stdout)
	},
}

func runDemo(ctx context.Context, client *apiClient, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	printStep("Checking server health...")
	resp, err := client.get(ctx, "/health")
	if err != nil {
		return err
	}
	var health healthPayload
	if err := decodeJSON(resp, &health); err != nil {
		return err
	}
	printSuccess("Server %s (%s mode, version %s)", health.Status, health.Mode, health.Version)

	failed := 0
	for i, sc := range demoScenarios {
		printStep("Scenario %d/%d: %s", i+1, len(demoScenarios), sc.Name)
		fmt.Fprintf(w, "%s %q\n", colorize(colorBold, "Request:"), sc.Text)

		start := time.Now()
		out, err := runAgent(ctx, client, sc.Text, sc.UserID)
		if err != nil {
			printError("%s: %v", sc.Name, err)
			failed++
			continue
		}
		printPlan(w, out)
		printSuccess("%s completed in %s", sc.Name, time.Since(start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(demoScenarios))
	}
	printSuccess("All %d scenarios completed", len(demoScenarios))
	return nil
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

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
