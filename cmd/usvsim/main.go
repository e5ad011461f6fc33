package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/usvsim/internal/automation"
	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/controllers"
	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/export"
	"github.com/san-kum/usvsim/internal/integrators"
	"github.com/san-kum/usvsim/internal/logging"
	"github.com/san-kum/usvsim/internal/optim"
	"github.com/san-kum/usvsim/internal/sim"
	"github.com/san-kum/usvsim/internal/storage"
	"github.com/san-kum/usvsim/internal/viz"
)

var (
	configFile  string
	preset      string
	policyName  string
	integrator  string
	numEnvs     int
	seed        uint64
	steps       int
	recordEvery int
	taskFilter  string
	seeds       int
	frameSteps  int
	svgPath     string
	svgEnvs     int
	gainGrid    map[string]string

	log zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "usvsim",
		Short: "vectorized surface vessel and floating platform task simulator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initSettings()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("data", ".usvsim", "data directory")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error, off)")
	rootCmd.PersistentFlags().String("log-format", logging.FormatConsole, "log format (console, json)")
	viper.BindPFlag("data", rootCmd.PersistentFlags().Lookup("data"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a policy on the vectorized environment and save the run",
		RunE:  runSimulation,
	}
	addEnvFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", 2000, "environment steps")
	runCmd.Flags().IntVar(&recordEvery, "record-every", 1, "keep every n-th step record")
	runCmd.Flags().StringVar(&svgPath, "svg", "", "write the trajectories of the first envs to this SVG file")
	runCmd.Flags().IntVar(&svgEnvs, "svg-envs", 4, "number of envs drawn into the SVG")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&taskFilter, "task", "", "only runs of this task")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the step series of a run to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [platform]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark integrators and seed spread",
		RunE:  bench,
	}
	addEnvFlags(benchCmd)
	benchCmd.Flags().IntVar(&steps, "steps", 500, "environment steps per measurement")
	benchCmd.Flags().IntVar(&seeds, "seeds", 4, "ensemble members for the seed spread")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the environment with live visualization",
		RunE:  runLive,
	}
	addEnvFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameSteps, "steps-per-frame", 2, "environment steps per redraw")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search goal policy gains for the best mean reward",
		RunE:  tune,
	}
	addEnvFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&steps, "steps", 500, "environment steps per evaluation")
	tuneCmd.Flags().StringToStringVar(&gainGrid, "grid",
		map[string]string{config.GainSurge: "0.5;1;2", config.GainHeading: "1;2;4"},
		"gain=v1;v2;... per searched gain ("+strings.Join(config.TunableGains(), ", ")+")")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of runs from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd, benchCmd, liveCmd, tuneCmd, scenarioCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initSettings layers flags over USVSIM_* environment variables over an
// optional usvsim.yaml in the working directory.
func initSettings() error {
	viper.SetEnvPrefix("USVSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("usvsim")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read settings: %w", err)
		}
	}

	log = logging.New(viper.GetString("log.level"), viper.GetString("log.format"), os.Stderr)
	return nil
}

func addEnvFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "usv/go_to_xy", "preset as platform/name")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml), applied over the preset")
	cmd.Flags().StringVar(&policyName, "policy", "", "policy (goal, random, none)")
	cmd.Flags().StringVar(&integrator, "integrator", "", "integrator")
	cmd.Flags().IntVar(&numEnvs, "envs", 0, "number of environments")
	cmd.Flags().Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
}

// buildConfig resolves preset, then config file, then explicit flags.
func buildConfig(cmd *cobra.Command) (*config.Config, string, string, error) {
	platform, name, ok := strings.Cut(preset, "/")
	if !ok {
		return nil, "", "", fmt.Errorf("preset %q: want platform/name", preset)
	}
	cfg := config.GetPreset(platform, name)
	if cfg == nil {
		return nil, "", "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(platform))
	}

	if configFile != "" {
		loaded, err := config.LoadFrom(configFile, cfg)
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("policy") {
		cfg.Policy.Name = policyName
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Env.Integrator = integrator
	}
	if cmd.Flags().Changed("envs") {
		cfg.Env.NumEnvs = numEnvs
	}
	if cmd.Flags().Changed("seed") {
		cfg.Env.Seed = seed
	}
	return cfg, platform, name, cfg.Validate()
}

func openStore() (*storage.Store, error) {
	st := storage.New(viper.GetString("data"))
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func newEnvAndPolicy(cfg *config.Config) (*sim.VecEnv, core.Policy, error) {
	env, err := sim.NewVecEnv(cfg, rand.NewSource(cfg.Env.Seed), log)
	if err != nil {
		return nil, nil, err
	}
	policy, err := controllers.New(cfg.Policy, rand.NewSource(cfg.Env.PolicySeed()))
	if err != nil {
		return nil, nil, err
	}
	return env, policy, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	steps, _ = cmd.Flags().GetInt("steps")
	cfg, platform, name, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	env, policy, err := newEnvAndPolicy(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rec := storage.NewRecorder(recordEvery)
	observers := []sim.Observer{rec}
	var tracks *export.Tracks
	if svgPath != "" {
		ids := make([]int, min(svgEnvs, cfg.Env.NumEnvs))
		for i := range ids {
			ids[i] = i
		}
		tracks = export.NewTracks(env, ids...)
		observers = append(observers, tracks)
	}

	fmt.Printf("running %s on %d envs with policy %s...\n", cfg.Task.Name, cfg.Env.NumEnvs, policy.Name())
	start := time.Now()

	summary, err := env.Run(ctx, policy, steps, observers...)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	elapsed := time.Since(start)

	if tracks != nil {
		if err := writeSVG(svgPath, tracks.Episodes()); err != nil {
			return err
		}
		fmt.Printf("trajectories written to %s\n", svgPath)
	}

	runID, err := st.Save(storage.NewRunMetadata(cfg, platform, name, policy.Name(), summary), rec)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", summary.Steps)
	fmt.Printf("mean reward: %.4f\n", summary.MeanReward)
	fmt.Printf("episodes: %d (success %d, out of bounds %d, timeout %d)\n",
		summary.Outcomes.Episodes, summary.Outcomes.Successes, summary.Outcomes.OutOfBounds, summary.Outcomes.Timeouts)
	if len(summary.Extras) > 0 {
		fmt.Println("\nlast episode means:")
		for _, k := range sortedKeys(summary.Extras) {
			fmt.Printf("  %s: %.6f\n", k, summary.Extras[k])
		}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(taskFilter)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTASK\tPRESET\tPOLICY\tTIME\tENVS\tSTEPS\tREWARD\tSUCCESS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\t%s\t%d\t%d\t%.4f\t%.1f%%\n",
			run.ID,
			run.Task,
			run.Platform, run.Preset,
			run.Policy,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.NumEnvs,
			run.Steps,
			run.MeanReward,
			100*run.SuccessRate,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(viper.GetString("data"))

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("task: %s  policy: %s\n", meta.Task, meta.Policy)
	fmt.Printf("samples: %d\n\n", len(series))

	reward := make([]float64, len(series))
	done := make([]float64, len(series))
	for i, r := range series {
		reward[i] = r.MeanReward
		done[i] = r.DoneRate
	}
	plot(reward, "mean reward")
	plot(done, "done rate")

	episodes, err := st.LoadEpisodes(runID)
	if err != nil {
		return err
	}
	for _, k := range sortedKeys(episodes) {
		if len(episodes[k]) > 1 {
			plot(episodes[k], k+" (episode mean)")
		}
	}
	return nil
}

func plot(data []float64, caption string) {
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)
	fmt.Println()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(viper.GetString("data"))
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"step", "mean_reward", "done_rate"}); err != nil {
		return err
	}
	for _, r := range series {
		row := []string{
			strconv.Itoa(r.Step),
			strconv.FormatFloat(r.MeanReward, 'f', 6, 64),
			strconv.FormatFloat(r.DoneRate, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(viper.GetString("data"))
	return st.ExportJSON(os.Stdout, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	platforms := config.ListPlatforms()
	if len(args) == 1 {
		platforms = []string{args[0]}
	}
	for _, platform := range platforms {
		presets := config.ListPresets(platform)
		if len(presets) == 0 {
			fmt.Printf("no presets for platform: %s\n", platform)
			continue
		}
		fmt.Printf("presets for %s:\n", platform)
		for _, p := range presets {
			cfg := config.GetPreset(platform, p)
			fmt.Printf("  %-22s task=%s policy=%s\n", p, cfg.Task.Name, cfg.Policy.Name)
		}
	}
	return nil
}

func bench(cmd *cobra.Command, args []string) error {
	steps, _ = cmd.Flags().GetInt("steps")
	cfg, _, _, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()

	fmt.Printf("benchmarking %s on %d envs, %d steps\n\n", cfg.Task.Name, cfg.Env.NumEnvs, steps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tTIME\tENV-STEPS/SEC\tMEAN REWARD")
	for _, name := range integrators.Names() {
		c := cfg.Clone()
		c.Env.Integrator = name
		env, policy, err := newEnvAndPolicy(c)
		if err != nil {
			return err
		}
		start := time.Now()
		summary, err := env.Run(ctx, policy, steps)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		rate := float64(summary.Steps*c.Env.NumEnvs) / elapsed.Seconds()
		fmt.Fprintf(w, "%s\t%v\t%.0f\t%.4f\n", name, elapsed, rate, summary.MeanReward)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if seeds < 2 {
		return nil
	}
	ens := sim.NewEnsemble(cfg, seeds, cfg.Env.Seed, func(src rand.Source) (core.Policy, error) {
		return controllers.New(cfg.Policy, src)
	}, log)
	results, err := ens.Run(ctx, steps)
	if err != nil {
		return err
	}
	rewards := make([]float64, len(results))
	success := make([]float64, len(results))
	for i, r := range results {
		rewards[i] = r.MeanReward
		success[i] = r.Outcomes.SuccessRate()
	}
	rm, rs := stat.MeanStdDev(rewards, nil)
	sm, ss := stat.MeanStdDev(success, nil)
	fmt.Printf("\nseed spread over %d runs:\n", seeds)
	fmt.Printf("  mean reward:  %.4f ± %.4f\n", rm, rs)
	fmt.Printf("  success rate: %.3f ± %.3f\n", sm, ss)
	return nil
}

func writeSVG(path string, tracks []export.Track) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteSVG(f, tracks, 800, 800); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func tune(cmd *cobra.Command, args []string) error {
	steps, _ = cmd.Flags().GetInt("steps")
	cfg, _, _, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Policy.Name = "goal"

	var params []optim.Param
	for _, name := range sortedKeys(gainGrid) {
		p := optim.Param{Name: name}
		for _, field := range strings.Split(gainGrid[name], ";") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return fmt.Errorf("grid %s: %w", name, err)
			}
			p.Values = append(p.Values, v)
		}
		params = append(params, p)
	}
	search, err := optim.NewGridSearch(params...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("tuning %s over %d gain sets, %d steps each...\n", cfg.Task.Name, search.Size(), steps)
	start := time.Now()
	res, err := search.Search(ctx, optim.GainObjective(cfg, steps, log))
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("best mean reward: %.4f\n", res.Score)
	for _, k := range sortedKeys(res.Params) {
		fmt.Printf("  %s: %g\n", k, res.Params[k])
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunScenario(ctx, sc, st, log)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN ID\tSTEPS\tREWARD\tEPISODES\tSUCCESS")
	for _, r := range results {
		runID := r.RunID
		if runID == "" {
			runID = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%d\t%.1f%%\n",
			r.Name, runID, r.Summary.Steps, r.Summary.MeanReward,
			r.Summary.Outcomes.Episodes, 100*r.Summary.Outcomes.SuccessRate())
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, _, name, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	// Keep log lines from tearing the terminal UI.
	log = log.Level(zerolog.Disabled)

	env, policy, err := newEnvAndPolicy(cfg)
	if err != nil {
		return err
	}
	m, err := viz.NewModel(env, policy, name, frameSteps)
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(viz.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
