package cmd

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"fresnel/asset"
	"fresnel/config"
	"fresnel/coordinator"
	"fresnel/registry"
)

// Render is the coordinator's single CLI entry point: load the run's
// config and scene, drive the render to completion, and report final
// per-worker stats.
func Render(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 2 {
		return errors.New("usage: fresnel render <config> <scene>")
	}

	cfgRes, err := asset.NewResource(ctx.Args().Get(0), nil)
	if err != nil {
		return fmt.Errorf("cmd: opening config: %w", err)
	}
	defer cfgRes.Close()

	cfg, err := config.Load(cfgRes)
	if err != nil {
		return err
	}

	sceneRes, err := asset.NewResource(ctx.Args().Get(1), nil)
	if err != nil {
		return fmt.Errorf("cmd: opening scene: %w", err)
	}
	defer sceneRes.Close()

	maxIntervals := cfg.MaxIntervals
	if v := ctx.Int("intervals"); v > 0 {
		maxIntervals = v
	}
	useLinearScan := cfg.UseLinearScan || ctx.Bool("linear-scan")

	co := coordinator.New(cfg, maxIntervals, useLinearScan)
	if err := co.Run(sceneRes); err != nil {
		return err
	}

	displayRunStats(co.RunID(), co.Registry())
	return nil
}

// displayRunStats prints each worker's final state, progress and ray
// counters as a tablewriter table.
func displayRunStats(runID uuid.UUID, reg *registry.Registry) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Worker", "State", "Progress", "Produced", "Killed", "Queued"})

	reg.ForEachWorker(func(id uint32, w *registry.Worker) {
		var produced, killed, queued uint64
		for _, s := range w.StatsHistory() {
			produced += uint64(s.Produced)
			killed += uint64(s.Killed)
			queued += uint64(s.Queued)
		}
		table.Append([]string{
			fmt.Sprintf("%d", id),
			w.State.String(),
			fmt.Sprintf("%.1f%%", w.Progress()*100),
			fmt.Sprintf("%d", produced),
			fmt.Sprintf("%d", killed),
			fmt.Sprintf("%d", queued),
		})
	})

	table.Render()
	logger.Noticef("run %s statistics\n%s", runID, buf.String())
}
