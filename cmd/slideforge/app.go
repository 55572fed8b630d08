package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/slideforge/slideforge/config"
	"github.com/slideforge/slideforge/diagram"
	"github.com/slideforge/slideforge/export"
	"github.com/slideforge/slideforge/imagegen"
	"github.com/slideforge/slideforge/llm"
	"github.com/slideforge/slideforge/plan"
	"github.com/slideforge/slideforge/relay"
	"github.com/slideforge/slideforge/schema"
	"github.com/slideforge/slideforge/source"
	"github.com/slideforge/slideforge/structurer"
)

const defaultSessionFile = "session.json"

func loadConfig() (*config.Config, error) {
	loader := config.NewLoader(slog.Default())
	return loader.Load()
}

func newLLMClient(cfg *config.Config) (*llm.Client, error) {
	if cfg.LLM.RelayURL == "" && cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("no ANTHROPIC_API_KEY set and no relay configured")
	}
	opts := []llm.Option{
		llm.WithModel(cfg.LLM.Model),
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithRetryConfig(llm.RetryConfig{
			MaxAttempts: cfg.LLM.MaxAttempts,
			BackoffBase: llm.DefaultRetryConfig().BackoffBase,
			MaxBackoff:  llm.DefaultRetryConfig().MaxBackoff,
		}),
	}
	if cfg.LLM.RelayURL != "" {
		opts = append(opts, llm.WithRelay(cfg.LLM.RelayURL))
	}
	if cfg.LLM.Timeout > 0 {
		opts = append(opts, llm.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}))
	}
	return llm.NewClient(cfg.LLM.APIKey, opts...), nil
}

func sessionPath(cfg *config.Config, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return filepath.Join(cfg.Output.Dir, defaultSessionFile)
}

func newGenerateCmd() *cobra.Command {
	var (
		inputPath   string
		inputURL    string
		sessionFile string
		audience    string
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a slide plan from a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (inputPath == "") == (inputURL == "") {
				return fmt.Errorf("exactly one of --input or --url is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			profile, err := cfg.ResolveProfile()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			doc, err := loadDocument(ctx, inputPath, inputURL)
			if err != nil {
				return err
			}
			slog.Info("Parsed source document",
				"title", doc.Title,
				"sections", len(doc.Sections),
				"figures", len(doc.Figures))

			client, err := newLLMClient(cfg)
			if err != nil {
				return err
			}
			var sOpts []structurer.StructurerOption
			if strict || cfg.LLM.Strict {
				sOpts = append(sOpts, structurer.WithStrictValidation())
			}
			s := structurer.NewStructurer(client, profile, sOpts...)

			level := profile.DefaultAudience
			if audience != "" {
				level = schema.ParseAudienceLevel(audience)
			}

			fmt.Printf("Generating slide plan with %s...\n", cfg.LLM.Model)
			result, err := s.StructureDocument(ctx, doc, level)
			if err != nil {
				return err
			}
			for _, w := range result.Warnings {
				slog.Warn("Plan repaired", "slide", w.SlideNumber, "message", w.Message)
			}

			path := sessionPath(cfg, sessionFile)
			if err := export.SaveSnapshot(path, result.Plan, profile); err != nil {
				return err
			}

			fmt.Printf("Generated %d slides: %q\n", len(result.Plan.Slides), result.Plan.Title())
			fmt.Printf("Session saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "f", "", "Source file (.md or .txt)")
	cmd.Flags().StringVarP(&inputURL, "url", "u", "", "Source web page URL")
	cmd.Flags().StringVarP(&sessionFile, "session", "s", "", "Session file path")
	cmd.Flags().StringVarP(&audience, "audience", "a", "", "Audience level (pharmacy_undergrad, grad_student, researcher, general)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject plans that needed structural repair")
	return cmd
}

func loadDocument(ctx context.Context, inputPath, inputURL string) (*schema.ParsedDocument, error) {
	if inputURL != "" {
		return source.NewFetcher().Fetch(ctx, inputURL)
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	switch strings.ToLower(filepath.Ext(inputPath)) {
	case ".md", ".markdown":
		return source.ParseMarkdown(string(data))
	default:
		return source.ParseText(string(data))
	}
}

func newRefineCmd() *cobra.Command {
	var (
		sessionFile string
		instruction string
		interactive bool
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Refine the slide plan with natural-language instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := sessionPath(cfg, sessionFile)
			snap, err := export.LoadSnapshot(path)
			if err != nil {
				return err
			}

			client, err := newLLMClient(cfg)
			if err != nil {
				return err
			}
			var rOpts []structurer.RefinerOption
			if strict || cfg.LLM.Strict {
				rOpts = append(rOpts, structurer.WithRefinerStrict())
			}
			refiner := structurer.NewRefiner(client, rOpts...)

			if interactive {
				return runRefineLoop(cmd.Context(), refiner, snap, path)
			}

			if instruction == "" {
				return fmt.Errorf("--instruction is required (or use --interactive)")
			}
			result, err := refiner.RefinePlan(cmd.Context(), snap.Plan, instruction)
			if err != nil {
				return err
			}
			if err := export.SaveSnapshot(path, result.Plan, snap.Profile); err != nil {
				return err
			}
			fmt.Printf("Plan refined, now %d slides. Session saved to %s\n", len(result.Plan.Slides), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionFile, "session", "s", "", "Session file path")
	cmd.Flags().StringVarP(&instruction, "instruction", "m", "", "Refinement instruction")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Interactive refinement with undo/redo")
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject revised plans that needed structural repair")
	return cmd
}

// runRefineLoop reads instructions from stdin. Plain lines go to the
// model; slash commands manage history and the session file.
func runRefineLoop(ctx context.Context, refiner *structurer.Refiner, snap *export.Snapshot, path string) error {
	store := plan.NewStore()
	store.SetPlan(snap.Plan)
	// Snapshot the loaded plan so the first refinement is undoable.
	store.PushHistory()

	fmt.Println("Interactive refinement. Type an instruction, or /undo /redo /show /save /quit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return saveStore(store, snap, path)
		case line == "/undo":
			if store.Undo() {
				fmt.Println("Undone.")
			} else {
				fmt.Println("Nothing to undo.")
			}
		case line == "/redo":
			if store.Redo() {
				fmt.Println("Redone.")
			} else {
				fmt.Println("Nothing to redo.")
			}
		case line == "/show":
			printOutline(store.Plan())
		case line == "/save":
			if err := saveStore(store, snap, path); err != nil {
				fmt.Printf("Save failed: %v\n", err)
			} else {
				fmt.Printf("Saved to %s\n", path)
			}
		case strings.HasPrefix(line, "/"):
			fmt.Println("Unknown command. Available: /undo /redo /show /save /quit")
		default:
			result, err := refiner.RefinePlan(ctx, store.Plan(), line)
			if err != nil {
				fmt.Printf("Refinement failed: %v\n", err)
				continue
			}
			store.SetPlan(result.Plan)
			store.PushHistory()
			fmt.Printf("Applied. Plan now has %d slides.\n", len(result.Plan.Slides))
		}
	}
	return saveStore(store, snap, path)
}

func saveStore(store *plan.Store, snap *export.Snapshot, path string) error {
	if store.Plan() == nil {
		return fmt.Errorf("no plan to save")
	}
	return export.SaveSnapshot(path, store.Plan(), snap.Profile)
}

func printOutline(p *schema.PresentationPlan) {
	if p == nil {
		fmt.Println("No plan loaded.")
		return
	}
	fmt.Printf("%s (%d slides)\n", p.Title(), len(p.Slides))
	for _, s := range p.Slides {
		fmt.Printf("  %2d. [%s] %s\n", s.SlideNumber, s.LayoutType, s.Title)
	}
}

func newImagesCmd() *cobra.Command {
	var sessionFile string

	cmd := &cobra.Command{
		Use:   "images",
		Short: "Generate images for slides with image prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Images.Enabled {
				return fmt.Errorf("image generation is disabled in config")
			}
			if cfg.Images.APIKey == "" {
				return fmt.Errorf("no GEMINI_API_KEY set")
			}
			path := sessionPath(cfg, sessionFile)
			snap, err := export.LoadSnapshot(path)
			if err != nil {
				return err
			}

			gen := imagegen.NewGenerator(cfg.Images.APIKey,
				imagegen.WithModel(cfg.Images.Model),
				imagegen.WithRateLimit(cfg.Images.RequestsPerSecond),
			)
			augmenter := imagegen.NewAugmenter(gen, slog.Default())

			result, err := augmenter.AugmentPlan(cmd.Context(), snap.Plan, func(current, total int) {
				fmt.Printf("Generating image %d/%d...\n", current, total)
			})
			if err != nil {
				return err
			}

			imageDir := filepath.Join(filepath.Dir(path), "images")
			if err := os.MkdirAll(imageDir, 0750); err != nil {
				return fmt.Errorf("create image directory: %w", err)
			}
			for slideNum, data := range result.Images {
				name := fmt.Sprintf("generated_slide_%d.png", slideNum)
				if err := os.WriteFile(filepath.Join(imageDir, name), data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", name, err)
				}
			}
			for slideNum, ferr := range result.Failures {
				slog.Warn("Image generation failed", "slide", slideNum, "error", ferr)
			}

			if err := export.SaveSnapshot(path, result.Plan, snap.Profile); err != nil {
				return err
			}
			fmt.Printf("Generated %d images (%d failed). Session saved to %s\n",
				result.GeneratedCount, len(result.Failures), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionFile, "session", "s", "", "Session file path")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		sessionFile string
		outPath     string
		noDiagrams  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the slide plan as a PPTX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := sessionPath(cfg, sessionFile)
			snap, err := export.LoadSnapshot(path)
			if err != nil {
				return err
			}
			profile := snap.Profile
			if profile == nil {
				if profile, err = cfg.ResolveProfile(); err != nil {
					return err
				}
			}

			var renderer diagram.Renderer = diagram.NullRenderer{}
			if cfg.Diagram.Enabled && !noDiagrams {
				renderer = diagram.NewKrokiRenderer(diagram.WithBaseURL(cfg.Diagram.KrokiURL))
			}
			exp := export.NewExporter(renderer)

			images := loadSlideImages(snap.Plan, filepath.Join(filepath.Dir(path), "images"))

			if outPath == "" {
				outPath = filepath.Join(cfg.Output.Dir, sanitizeFilename(snap.Plan.Title())+".pptx")
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0750); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}

			result, exportErr := exp.ExportPPTX(cmd.Context(), snap.Plan, profile, images, f)
			closeErr := f.Close()
			if exportErr != nil {
				os.Remove(outPath)
				return exportErr
			}
			if closeErr != nil {
				return closeErr
			}

			fmt.Printf("Exported %d slides to %s", result.SlideCount, outPath)
			if result.DiagramsRendered > 0 || result.DiagramsFailed > 0 {
				fmt.Printf(" (%d diagrams rendered, %d fell back to text)",
					result.DiagramsRendered, result.DiagramsFailed)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionFile, "session", "s", "", "Session file path")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output .pptx path")
	cmd.Flags().BoolVar(&noDiagrams, "no-diagrams", false, "Skip diagram rendering, use fallback text")
	return cmd
}

// loadSlideImages reads previously generated image files for slides that
// reference them. Missing files just leave the slide with a placeholder.
func loadSlideImages(p *schema.PresentationPlan, dir string) map[int][]byte {
	images := make(map[int][]byte)
	for _, s := range p.Slides {
		if !strings.HasPrefix(s.ImageRef, "generated_slide_") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, s.ImageRef))
		if err != nil {
			slog.Debug("No image file for slide", "slide", s.SlideNumber, "ref", s.ImageRef)
			continue
		}
		images[s.SlideNumber] = data
	}
	return images
}

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N} ._-]+`)

func sanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	if name == "" {
		return "presentation"
	}
	if len([]rune(name)) > 80 {
		name = string([]rune(name)[:80])
	}
	return name
}

func newRelayCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the API key relay server",
		Long: `The relay keeps provider API keys on the server. Clients send requests
as {url, body} envelopes; the relay injects the matching key and passes
the upstream response back verbatim.

Keys are read from ANTHROPIC_API_KEY and GEMINI_API_KEY.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.Relay.Listen
			}

			srv := relay.NewServer(
				relay.WithAnthropicKey(os.Getenv("ANTHROPIC_API_KEY")),
				relay.WithGoogleKey(os.Getenv("GEMINI_API_KEY")),
			)
			httpSrv := &http.Server{
				Addr:              listen,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				slog.Info("Relay listening", "addr", listen)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("Shutting down relay")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Bind address (default from config)")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user config file with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.NewLoader(slog.Default()).EnsureUserConfig()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Keys come in from the environment; never echo them.
			if cfg.LLM.APIKey != "" {
				cfg.LLM.APIKey = "(set)"
			}
			if cfg.Images.APIKey != "" {
				cfg.Images.APIKey = "(set)"
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	})
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List built-in theme presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range schema.Presets() {
				fmt.Printf("%-16s %-16s primary %s accent %s\n",
					p.Name, p.DisplayName, p.Colors.Primary, p.Colors.Accent)
			}
		},
	}
}
