package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelbio/forager/internal/config"
	"github.com/kestrelbio/forager/internal/state"
)

var (
	sessionsLimit    int
	sessionsShowJSON bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent research sessions",
	Long: `List recent research sessions, newest first.

Use 'forager sessions show <id>' to display the stored result of a
session, including its fused findings and per-task outcomes.`,
	RunE: runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the stored result of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Max sessions to list")
	sessionsShowCmd.Flags().BoolVar(&sessionsShowJSON, "json", false, "Emit the full result as JSON")
	sessionsCmd.AddCommand(sessionsShowCmd)
}

func openStore() (*state.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dbPath := cfg.State.DBPath
	if dbPath == "" {
		dbPath = state.DefaultDBPath()
	}
	db, err := state.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := db.ListSessions(cmd.Context(), sessionsLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Run 'forager research <query>' to start one.")
		return nil
	}

	dim := color.New(color.Faint)
	for _, s := range sessions {
		fmt.Printf("%s  %s\n", s.ID, s.Title)
		dim.Printf("    %s", s.CreatedAt.Local().Format(time.DateTime))
		if s.TherapeuticArea != "" {
			dim.Printf("  area: %s", s.TherapeuticArea)
		}
		fmt.Println()
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := db.GetResult(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if sessionsShowJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(result)
	return nil
}
