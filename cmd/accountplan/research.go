package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sellscope/accountplan/config"
	"github.com/sellscope/accountplan/internal/agent/core"
	"github.com/sellscope/accountplan/internal/agent/telemetry"
	"github.com/sellscope/accountplan/tools/web_search"
)

// newResearchCmd runs the interactive research flow: generate a plan for a
// company, then loop offering section edits and grounded questions.
func newResearchCmd(cfgPath *string) *cobra.Command {
	var maxResults int
	cmd := &cobra.Command{
		Use:   "research [company]",
		Short: "Research a company and build an account plan interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return runResearchFlow(cfg, strings.Join(args, " "), maxResults)
		},
	}
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "evidence cap (0 = config default)")
	return cmd
}

func runResearchFlow(cfg *config.Config, company string, maxResults int) error {
	in := bufio.NewReader(os.Stdin)
	if strings.TrimSpace(company) == "" {
		fmt.Print("Enter company name: ")
		line, _ := in.ReadString('\n')
		company = strings.TrimSpace(line)
	}

	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), searchAPIKey(cfg))
	if err != nil {
		return err
	}
	llm, err := core.NewLLMProvider(cfg.LLM)
	if err != nil {
		return err
	}
	tele := telemetry.NewTelemetry(cfg.Telemetry)
	aggregator := core.NewAggregator(cfg, searcher, tele)
	synthesizer := core.NewSynthesizer(cfg, llm, tele)
	editor := core.NewEditor(cfg, llm, tele)
	chat := core.NewChat(cfg, llm, tele)

	ctx := context.Background()
	fmt.Println("\nResearching... please wait...")
	evidence, err := aggregator.FetchEvidence(ctx, company, maxResults)
	if err != nil {
		return err
	}
	plan, err := synthesizer.Synthesize(ctx, company, evidence)
	if err != nil {
		return err
	}
	displayPlan(plan)

	for {
		fmt.Print("\n[e]dit a section, [a]sk a question, [q]uit: ")
		line, _ := in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "e":
			fmt.Printf("Section (%s): ", strings.Join(core.EditableSections(), ", "))
			section, _ := in.ReadString('\n')
			fmt.Print("Instruction: ")
			instruction, _ := in.ReadString('\n')
			updated, err := editor.Edit(ctx, plan, core.EditRequest{
				Section:     strings.TrimSpace(section),
				Instruction: strings.TrimSpace(instruction),
			})
			if err != nil {
				fmt.Println("edit failed:", err)
				continue
			}
			plan = updated
			displayPlan(plan)
		case "a":
			fmt.Print("Question: ")
			question, _ := in.ReadString('\n')
			answer, err := chat.Answer(ctx, plan, strings.TrimSpace(question))
			if err != nil {
				fmt.Println("answer failed:", err)
				continue
			}
			fmt.Println("\n" + answer)
		case "q", "":
			fmt.Println("\nFinal Plan:")
			displayPlan(plan)
			if cfg.Telemetry.CostTracking {
				fmt.Printf("\nTelemetry: %v\n", tele.Summary())
			}
			return nil
		}
	}
}

func displayPlan(plan core.Plan) {
	fmt.Println("\n===== GENERATED ACCOUNT PLAN =====")
	for _, key := range core.SectionKeys() {
		content, _ := plan.Section(key)
		fmt.Printf("\n### %s ###\n%s\n", strings.ToUpper(key), content)
	}
	fmt.Printf("\n### CONFIDENCE_ESTIMATE ###\n%s\n", plan.Confidence)
	fmt.Println("\n### SOURCES ###")
	for i, s := range plan.Sources {
		fmt.Printf("%d. %s\n", i+1, s)
	}
	fmt.Println("\n================================")
}

func searchAPIKey(cfg *config.Config) string {
	switch web_search.Provider(cfg.Search.Provider) {
	case web_search.SerperProvider:
		return cfg.Search.SerperAPIKey
	case web_search.BraveProvider:
		return cfg.Search.BraveAPIKey
	default:
		return cfg.Search.TavilyAPIKey
	}
}
