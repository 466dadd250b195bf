package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/skladops/sklad/internal/api"
	"github.com/skladops/sklad/internal/scheduler"
	"github.com/skladops/sklad/internal/update"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	flag.Parse()

	path := *configPath
	if path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			path = filepath.Join(dir, "sklad", "config.toml")
		}
	}

	cfg, err := update.LoadRuntimeConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sklad failed: %v\n", err)
		os.Exit(1)
	}

	client := api.New(cfg.APIBaseURL, cfg.RequestTimeout)

	engine := scheduler.NewEngine(cfg.SchedulerBuffer)
	engine.Start()
	defer engine.Stop()
	if err := engine.ScheduleEvery("refresh", scheduler.KindRefresh, cfg.RefreshInterval); err != nil {
		fmt.Fprintf(os.Stderr, "sklad failed: %v\n", err)
		os.Exit(1)
	}
	if err := engine.ScheduleEvery("archive-sweep", scheduler.KindArchiveSweep, cfg.ArchiveSweepInterval); err != nil {
		fmt.Fprintf(os.Stderr, "sklad failed: %v\n", err)
		os.Exit(1)
	}

	program := tea.NewProgram(update.NewModelWithConfig(client, engine, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "sklad failed: %v\n", err)
		os.Exit(1)
	}
}
