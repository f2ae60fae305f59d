package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/ballpit/internal/automation"
	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/export"
	"github.com/san-kum/ballpit/internal/metrics"
	"github.com/san-kum/ballpit/internal/sim"
	"github.com/san-kum/ballpit/internal/storage"
	"github.com/san-kum/ballpit/internal/viz"
)

var (
	dataDir     string
	logLevel    string
	logFormat   string
	configFile  string
	preset      string
	frames      int
	fps         float64
	seed        int64
	workers     int
	subSteps    int
	radius      float64
	boundary    string
	spawnCount  int
	validate    bool
	metric      string
	format      string
	benchRuns   int
	benchFrames int
	sweepFrames int
	workerList  []int
	outFile     string
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepSteps  int
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

var spawnPoint = dynamo.Vec{X: 100, Y: 100}

func main() {
	rootCmd := &cobra.Command{
		Use:   "ballpit",
		Short: "parallel verlet particle simulator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel, logFormat)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ballpit", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and store the result",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addEngineFlags(runCmd)
	runCmd.Flags().IntVar(&frames, "frames", config.DefaultFrames, "frames to simulate")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "spawn jitter seed")
	runCmd.Flags().BoolVar(&validate, "validate", true, "stop on non-finite positions")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the simulation in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addEngineFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot per-frame run metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&metric, "metric", "", "plot one column (kinetic, corrections, clamped, step_us)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a run's frame records to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCSVCmd.Flags().StringVar(&format, "format", "csv", "output format (csv, json)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSPAWNS\tPARTICLES\tBOUNDARY\tFRAMES")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				n := 0
				for _, sp := range cfg.Spawns {
					n += sp.Count
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\n", name, len(cfg.Spawns), n, cfg.Engine.Boundary, cfg.Run.Frames)
			}
			return w.Flush()
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark frame time across worker counts",
		Args:  cobra.NoArgs,
		RunE:  benchWorkers,
	}
	addEngineFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchFrames, "frames", 120, "frames per run")
	benchCmd.Flags().IntVar(&benchRuns, "runs", 2, "concurrent runs per worker count")
	benchCmd.Flags().IntSliceVar(&workerList, "worker-counts", []int{1, 2, 4, 8}, "worker counts to compare")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [run_id]",
		Short: "render a run's final positions as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  snapshotRun,
	}
	snapshotCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default: stdout)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one engine per value of a parameter",
		Args:  cobra.NoArgs,
		RunE:  sweepParameter,
	}
	addEngineFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepFrames, "frames", 300, "frames per run")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "restitution", fmt.Sprintf("parameter to vary %v", automation.SweepParams()))
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of runs")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCSVCmd, presetsCmd, benchCmd, snapshotCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "start from a preset (see presets)")
	cmd.Flags().Float64Var(&fps, "fps", config.DefaultFPS, "frames per simulated second")
	cmd.Flags().IntVar(&workers, "workers", 0, "collision workers (0: one per CPU)")
	cmd.Flags().IntVar(&subSteps, "substeps", 8, "sub-steps per frame")
	cmd.Flags().Float64Var(&radius, "radius", 2, "particle radius")
	cmd.Flags().StringVar(&boundary, "boundary", dynamo.BoundaryOverdamped, "wall response (overdamped, elastic)")
	cmd.Flags().IntVar(&spawnCount, "spawn", 0, "extra particles dropped at the spawn point")
}

func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// resolveConfig applies preset, then config file, then explicitly set engine
// flags. Frame counts are per command and handled by the caller.
// With neither preset nor file, the sandbox preset is used.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	name := preset
	if name == "" && configFile == "" {
		name = "sandbox"
	}

	cfg := config.DefaultConfig()
	if name != "" {
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Overlay(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("fps") {
		cfg.Run.FPS = fps
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Engine.Workers = workers
	}
	if flags.Changed("substeps") {
		cfg.Engine.SubSteps = subSteps
	}
	if flags.Changed("radius") {
		cfg.Engine.Radius = radius
	}
	if flags.Changed("boundary") {
		cfg.Engine.Boundary = boundary
	}
	if spawnCount > 0 {
		cfg.Spawns = append(cfg.Spawns, config.SpawnConfig{X: spawnPoint.X, Y: spawnPoint.Y, Count: spawnCount})
	}
	return cfg, nil
}

func newEngine(cfg *config.Config, opts ...sim.Option) (*sim.Engine, error) {
	eng, err := sim.New(cfg.Dynamo(), opts...)
	if err != nil {
		return nil, err
	}
	cfg.ApplySpawns(eng)
	return eng, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("frames") {
		cfg.Run.Frames = frames
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	logger := slog.Default()
	eng, err := newEngine(cfg, sim.WithLogger(logger))
	if err != nil {
		return err
	}
	for _, m := range metrics.Defaults(eng.Config()) {
		eng.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting headless simulation",
		"particles", eng.ParticleCount(),
		"frames", cfg.Run.Frames,
		"workers", eng.Config().WorkerCount,
		"boundary", eng.Config().Boundary)

	result, runErr := eng.Run(ctx, sim.RunConfig{
		Frames:        cfg.Run.Frames,
		FrameDt:       cfg.FrameDt(),
		ValidateState: validate,
	})
	if result == nil {
		return runErr
	}
	if runErr != nil {
		logger.Warn("run ended early", "frames", result.FramesRun, "error", runErr)
	}

	name := preset
	if name == "" {
		name = "run"
	}
	runID, err := st.Save(storage.RunMetadata{
		Name:    name,
		Seed:    cfg.Run.Seed,
		FrameDt: cfg.FrameDt(),
		Engine:  eng.Config(),
	}, result, eng.Positions())
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("run " + runID))
	fmt.Printf("completed %d frames in %v\n", result.FramesRun, result.Elapsed.Round(time.Millisecond))
	if result.FramesRun > 0 {
		fmt.Printf("mean frame time: %v\n", (result.Elapsed / time.Duration(result.FramesRun)).Round(time.Microsecond))
	}
	fmt.Printf("particles: %d\n", eng.ParticleCount())
	fmt.Println(dimStyle.Render("\nmetrics:"))
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	factory := func() (*sim.Engine, error) {
		return newEngine(cfg)
	}
	m, err := viz.NewModel(factory, cfg.FrameDt(), spawnPoint)
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tFRAMES\tPARTICLES\tWORKERS\tBOUNDARY\tELAPSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%v\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Particles,
			run.Engine.WorkerCount,
			run.Engine.Boundary,
			run.Elapsed.Round(time.Millisecond),
		)
	}

	return w.Flush()
}

var plotColumns = map[string]func(storage.FrameRecord) float64{
	"kinetic":     func(r storage.FrameRecord) float64 { return r.Kinetic },
	"corrections": func(r storage.FrameRecord) float64 { return float64(r.Corrections) },
	"clamped":     func(r storage.FrameRecord) float64 { return float64(r.Clamped) },
	"step_us":     func(r storage.FrameRecord) float64 { return float64(r.StepMicros) },
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	records, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no data to plot")
	}

	columns := []string{"kinetic", "corrections", "step_us"}
	if metric != "" {
		if _, ok := plotColumns[metric]; !ok {
			return fmt.Errorf("unknown metric %q", metric)
		}
		columns = []string{metric}
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("particles: %d\n", meta.Particles)
	fmt.Printf("frames: %d\n\n", len(records))

	for _, col := range columns {
		get := plotColumns[col]
		data := make([]float64, len(records))
		for i, r := range records {
			data[i] = get(r)
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(col+" vs frame"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).Export(os.Stdout, args[0], strings.ToLower(format))
}

func benchWorkers(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if benchRuns < 1 {
		return fmt.Errorf("runs must be at least 1")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rc := sim.RunConfig{Frames: benchFrames, FrameDt: cfg.FrameDt()}

	fmt.Printf("benchmarking %d frames, %d concurrent runs per setting\n\n", rc.Frames, benchRuns)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKERS\tPARTICLES\tFRAME\tFRAMES/SEC\tCORRECTIONS/FRAME")

	for _, n := range workerList {
		base := cfg.Dynamo()
		base.WorkerCount = n
		configs := make([]dynamo.Config, benchRuns)
		for i := range configs {
			configs[i] = base
		}

		particles := 0
		ens := sim.NewEnsemble(configs, func(e *sim.Engine) {
			cfg.ApplySpawns(e)
			particles = e.ParticleCount()
		})
		results, err := ens.Run(ctx, rc)
		if err != nil {
			return err
		}

		var elapsed time.Duration
		var corrections, framesRun int
		for _, r := range results {
			elapsed += r.Elapsed
			framesRun += r.FramesRun
			for _, s := range r.Samples {
				corrections += s.Corrections
			}
		}
		if framesRun == 0 {
			continue
		}
		perFrame := elapsed / time.Duration(framesRun)
		fmt.Fprintf(w, "%d\t%d\t%v\t%.1f\t%d\n",
			n, particles, perFrame.Round(time.Microsecond), 1/perFrame.Seconds(), corrections/framesRun)
	}

	return w.Flush()
}

func snapshotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	positions, err := st.LoadPositions(runID)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	e := meta.Engine
	return export.SnapshotSVG(out, positions, e.Radius, e.DomainWidth, e.DomainHeight, "")
}

func sweepParameter(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sweep := automation.ParameterSweep{
		Base:   cfg,
		Param:  sweepParam,
		Min:    sweepMin,
		Max:    sweepMax,
		Steps:  sweepSteps,
		Frames: sweepFrames,
	}
	slog.Info("starting sweep", "param", sweep.Param, "min", sweep.Min, "max", sweep.Max, "steps", sweep.Steps)

	results, err := automation.RunSweep(ctx, sweep)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tKINETIC\tMAX OVERLAP\tCONTAINMENT\tELAPSED\n", strings.ToUpper(sweep.Param))
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%.4f\t%.4f\t%.4f\t%v\n",
			r.ParamValue,
			r.Metrics["kinetic_energy"],
			r.Metrics["max_overlap"],
			r.Metrics["containment"],
			r.Elapsed.Round(time.Millisecond))
	}
	return w.Flush()
}
