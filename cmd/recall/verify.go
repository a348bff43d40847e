package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/airealtor/recall/internal/core"
	"github.com/airealtor/recall/internal/service/memory"
	"github.com/airealtor/recall/internal/storage/sqlite"
	"github.com/airealtor/recall/pkg/log"
)

// Budgets the assistant relies on: a thousand remembers in under five
// seconds, a default summary window in under 100ms.
const (
	insertBudgetPerNode = 5 * time.Millisecond
	summaryBudget       = 100 * time.Millisecond
	summaryRuns         = 10
)

var verifyNodes int

var verifyCmd = &cobra.Command{
	Use:          "verify",
	Short:        "Check storage performance against the shipping budgets",
	Long:         `Seeds a scratch database with a synthetic session, then measures remember throughput and summary latency. Exits non-zero when a budget is missed.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		if verifyNodes < 1 {
			return fmt.Errorf("nodes must be positive, got %d", verifyNodes)
		}

		dir, err := os.MkdirTemp("", "recall-verify-*")
		if err != nil {
			return fmt.Errorf("failed to create scratch dir: %w", err)
		}
		defer os.RemoveAll(dir)

		db, err := sqlite.NewDB(ctx, filepath.Join(dir, "verify.db"))
		if err != nil {
			return fmt.Errorf("failed to open scratch database: %w", err)
		}
		defer db.Close()

		svc := memory.NewMemory(sqlite.NewMemoryRepo(db), nil)
		const sessionID = "verify"

		logger.Info().Int("nodes", verifyNodes).Msg("seeding synthetic session")

		start := time.Now()
		if err := seedSession(ctx, svc, sessionID, verifyNodes); err != nil {
			return err
		}
		insertElapsed := time.Since(start)
		insertBudget := time.Duration(verifyNodes) * insertBudgetPerNode

		// Worst case over several runs, not the average: the assistant
		// blocks on every summary call.
		var worstSummary time.Duration
		for i := 0; i < summaryRuns; i++ {
			begin := time.Now()
			if _, err := svc.SessionSummary(ctx, sessionID, memory.DefaultSummaryNodes); err != nil {
				return fmt.Errorf("failed to summarize session: %w", err)
			}
			if d := time.Since(begin); d > worstSummary {
				worstSummary = d
			}
		}

		logger.Info().
			Dur("elapsed", insertElapsed).
			Dur("budget", insertBudget).
			Dur("per_op", insertElapsed/time.Duration(verifyNodes)).
			Msg("remember throughput")
		logger.Info().
			Dur("worst", worstSummary).
			Dur("budget", summaryBudget).
			Int("window", memory.DefaultSummaryNodes).
			Msg("summary latency")

		if insertElapsed > insertBudget || worstSummary > summaryBudget {
			return fmt.Errorf("performance budget missed: inserts took %s (budget %s), summary took %s (budget %s)",
				insertElapsed, insertBudget, worstSummary, summaryBudget)
		}

		logger.Info().Msg("all performance budgets satisfied")
		return nil
	},
}

// seedSession writes a mix of memory types so the measurement covers
// anchors and edges, not just plain node inserts.
func seedSession(ctx context.Context, svc *memory.Memory, sessionID string, n int) error {
	for i := 0; i < n; i++ {
		var err error
		switch i % 4 {
		case 0:
			_, err = svc.RememberFact(ctx, memory.FactInput{
				SessionID: sessionID,
				Fact:      fmt.Sprintf("synthetic fact %06d", i),
			})
		case 1:
			_, err = svc.RememberPreference(ctx, memory.PreferenceInput{
				SessionID:  sessionID,
				Preference: fmt.Sprintf("synthetic preference %06d", i),
				EntityType: "property",
				EntityID:   fmt.Sprintf("prop_%03d", i%50),
			})
		case 2:
			_, err = svc.RememberEvent(ctx, memory.EventInput{
				SessionID:   sessionID,
				EventType:   "showing",
				Description: fmt.Sprintf("synthetic showing %06d", i),
				Entities: []core.EntityRef{
					{Type: "contact", ID: fmt.Sprintf("c_%03d", i%30)},
				},
			})
		case 3:
			_, err = svc.RememberTodo(ctx, memory.TodoInput{
				SessionID:  sessionID,
				Task:       fmt.Sprintf("synthetic task %06d", i),
				PropertyID: fmt.Sprintf("prop_%03d", i%50),
			})
		}
		if err != nil {
			return fmt.Errorf("failed to seed node %d: %w", i, err)
		}
	}
	return nil
}

func init() {
	verifyCmd.Flags().IntVar(&verifyNodes, "nodes", 1000, "number of memories to seed")
	rootCmd.AddCommand(verifyCmd)
}
