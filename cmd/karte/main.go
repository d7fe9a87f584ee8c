// Package main is the karte CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/karte/internal/cli"
	"github.com/hyperjump/karte/internal/config"
	"github.com/hyperjump/karte/internal/docgen"
	"github.com/hyperjump/karte/internal/embedding"
	"github.com/hyperjump/karte/internal/generation"
	"github.com/hyperjump/karte/internal/indexer"
	"github.com/hyperjump/karte/internal/knowledge"
	"github.com/hyperjump/karte/internal/metrics"
	"github.com/hyperjump/karte/internal/models"
	"github.com/hyperjump/karte/internal/retrieval"
	"github.com/hyperjump/karte/internal/safety"
	"github.com/hyperjump/karte/internal/server"
	"github.com/hyperjump/karte/internal/storage"
	"github.com/hyperjump/karte/internal/watcher"
	"github.com/hyperjump/karte/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/karte/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml in the
// current directory wins; when neither exists, configuration comes from the
// environment alone. Returns the config and the path actually loaded ("" for none).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	var err error
	switch command {
	case "server":
		err = runServer(args)
	case "generate":
		err = runGenerate(args)
	case "get":
		err = runGet(args)
	case "types":
		err = runTypes(args)
	case "reindex":
		err = runReindex(args)
	case "stats":
		err = runStats(args)
	case "patient":
		err = runPatient(args)
	case "version", "--version", "-v":
		fmt.Printf("karte version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for request errors and 1 for everything else.
func exitCode(err error) int {
	if models.CodeOf(err) != "" {
		return 2
	}
	return 1
}

// app holds the wired pipeline and what must be closed on exit.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	loader   *knowledge.Loader
	registry *indexer.Registry
	service  *docgen.Service
	embedder embedding.Embedder
	store    storage.Store
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
}

// buildApp wires the pipeline from cfg. The embedder is shared by indexing and retrieval.
func buildApp(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*app, error) {
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	store, err := storage.New(cfg.Storage)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	filter, err := safety.New(cfg.Safety)
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize safety filter: %w", err)
	}

	loader := knowledge.NewLoader(cfg.Knowledge.Dir,
		knowledge.WithExtensions(cfg.Knowledge.Extensions),
		knowledge.WithLogger(logger),
	)
	idx := indexer.NewIndexer(loader, embedder, cfg.Retrieval.ChunkSize, indexer.WithLogger(logger))
	registry := indexer.NewRegistry(idx, indexer.WithRegistryLogger(logger), indexer.WithMetrics(m))
	retriever := retrieval.New(registry, embedder, cfg.Retrieval.TopK,
		retrieval.WithLogger(logger),
		retrieval.WithMetrics(m),
	)
	gen := generation.New(cfg.Generation,
		generation.WithOpenAILogger(logger),
		generation.WithOpenAIMetrics(m),
	)
	client := generation.NewClient(gen, generation.WithLogger(logger), generation.WithMetrics(m))
	logger.Info("generation backend selected", zap.String("backend", client.Backend()))

	svc := docgen.New(registry, retriever, client, filter, store,
		docgen.WithLogger(logger),
		docgen.WithMetrics(m),
	)
	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		loader:   loader,
		registry: registry,
		service:  svc,
		embedder: embedder,
		store:    store,
	}, nil
}

// openApp loads config and builds the pipeline for one-shot commands. Logging is
// silent unless debug is on.
func openApp(configPath string, debug bool) (*app, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := zap.NewNop()
	if cfg.Debug || debug {
		if logger, err = utils.NewLogger(true); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}
	return buildApp(cfg, logger, nil)
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolved, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	a, err := buildApp(cfg, logger, metrics.New())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tenants := cfg.Knowledge.Tenants
	if len(tenants) == 0 {
		if found, err := a.loader.Tenants(); err == nil {
			tenants = found
		}
	}
	a.service.Warmup(ctx, tenants)
	logger.Info("tenants loaded", zap.Strings("tenants", a.service.Tenants()))

	if cfg.Watch.EnabledOrDefault() {
		w := watcher.NewWatcher(cfg.Knowledge.Dir, cfg.Knowledge.Extensions,
			func(ctx context.Context, tenant string) error {
				_, err := a.service.Reindex(ctx, tenant)
				return err
			},
			watcher.WithDebounce(cfg.Watch.Debounce),
			watcher.WithLogger(logger),
		)
		if err := w.Start(ctx); err != nil {
			logger.Warn("knowledge watcher disabled", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	srv := server.NewServer(a.service, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

// flagsFirst moves flags that appear after positional arguments to the front so that
// flag.Parse sees them ("karte get <id> -output json").
func flagsFirst(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// commonFlags are shared by the one-shot commands.
type commonFlags struct {
	configPath *string
	serverURL  *string
	output     *string
	debug      *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		serverURL:  fs.String("server", "", "server URL; empty runs the pipeline in-process"),
		output:     fs.String("output", "text", "output format: text or json"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
	}
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	common := addCommonFlags(fs)
	docType := fs.String("type", "", "document type (see 'karte types')")
	topic := fs.String("topic", "", "topic of the document")
	disease := fs.String("disease", "", "disease id, for disease-scoped types")
	patient := fs.String("patient", "", "patient id, for medical certificates")
	tenant := fs.String("tenant", "", "tenant id (default "+models.DefaultTenant+")")
	_ = fs.Parse(flagsFirst(args))
	if *topic == "" && fs.NArg() > 0 {
		*topic = strings.Join(fs.Args(), " ")
	}
	format, err := cli.ParseFormat(*common.output)
	if err != nil {
		return err
	}
	req := models.GenerationRequest{
		DocumentType: models.DocumentType(*docType),
		Topic:        *topic,
		Disease:      *disease,
		PatientID:    *patient,
		Tenant:       *tenant,
	}

	var res docgen.GenerateResult
	if *common.serverURL != "" {
		body := map[string]string{
			"document_type": string(req.DocumentType),
			"topic":         req.Topic,
			"disease_id":    req.Disease,
			"patient_id":    req.PatientID,
			"tenant_id":     req.Tenant,
		}
		if err := callAPI(http.MethodPost, *common.serverURL+"/api/v1/generate", body, &res); err != nil {
			return err
		}
	} else {
		a, err := openApp(*common.configPath, *common.debug)
		if err != nil {
			return err
		}
		defer a.Close()
		out, err := a.service.Generate(context.Background(), req)
		if err != nil {
			return err
		}
		res = *out
	}
	return cli.WriteGenerated(os.Stdout, &res, format)
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(flagsFirst(args))
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: karte get [flags] <document-id>")
	}
	format, err := cli.ParseFormat(*common.output)
	if err != nil {
		return err
	}
	id := fs.Arg(0)

	var doc models.GeneratedDocument
	if *common.serverURL != "" {
		if err := callAPI(http.MethodGet, *common.serverURL+"/api/v1/documents/"+url.PathEscape(id), nil, &doc); err != nil {
			return err
		}
	} else {
		a, err := openApp(*common.configPath, *common.debug)
		if err != nil {
			return err
		}
		defer a.Close()
		got, err := a.service.Retrieve(context.Background(), id)
		if err != nil {
			return err
		}
		doc = *got
	}
	return cli.WriteDocument(os.Stdout, &doc, format)
}

func runTypes(args []string) error {
	fs := flag.NewFlagSet("types", flag.ExitOnError)
	common := addCommonFlags(fs)
	tenant := fs.String("tenant", models.DefaultTenant, "tenant id")
	_ = fs.Parse(args)
	format, err := cli.ParseFormat(*common.output)
	if err != nil {
		return err
	}

	var cat docgen.Catalog
	if *common.serverURL != "" {
		target := *common.serverURL + "/api/v1/document-types?tenant_id=" + url.QueryEscape(*tenant)
		if err := callAPI(http.MethodGet, target, nil, &cat); err != nil {
			return err
		}
	} else {
		a, err := openApp(*common.configPath, *common.debug)
		if err != nil {
			return err
		}
		defer a.Close()
		got, err := a.service.Catalog(context.Background(), *tenant)
		if err != nil {
			return err
		}
		cat = *got
	}
	return cli.WriteCatalog(os.Stdout, &cat, format)
}

func runReindex(args []string) error {
	return runTenantStats("reindex", args, func(a *app, tenant string) (models.IndexStats, error) {
		return a.service.Reindex(context.Background(), tenant)
	})
}

func runStats(args []string) error {
	return runTenantStats("stats", args, func(a *app, tenant string) (models.IndexStats, error) {
		return a.service.Stats(context.Background(), tenant)
	})
}

func runTenantStats(name string, args []string, local func(*app, string) (models.IndexStats, error)) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(flagsFirst(args))
	tenant := models.DefaultTenant
	if fs.NArg() > 0 {
		tenant = fs.Arg(0)
	}
	format, err := cli.ParseFormat(*common.output)
	if err != nil {
		return err
	}

	var stats models.IndexStats
	if *common.serverURL != "" {
		method := http.MethodGet
		if name == "reindex" {
			method = http.MethodPost
		}
		target := fmt.Sprintf("%s/api/v1/tenants/%s/%s", *common.serverURL, url.PathEscape(tenant), name)
		if err := callAPI(method, target, nil, &stats); err != nil {
			return err
		}
	} else {
		a, err := openApp(*common.configPath, *common.debug)
		if err != nil {
			return err
		}
		defer a.Close()
		if stats, err = local(a, tenant); err != nil {
			return err
		}
	}
	return cli.WriteStats(os.Stdout, stats, format)
}

func runPatient(args []string) error {
	if len(args) < 1 || args[0] != "add" {
		return fmt.Errorf("usage: karte patient add -id <patient-id> [-name <name>] [-tenant <tenant>]")
	}
	fs := flag.NewFlagSet("patient add", flag.ExitOnError)
	common := addCommonFlags(fs)
	id := fs.String("id", "", "patient id")
	name := fs.String("name", "", "patient name")
	tenant := fs.String("tenant", "", "tenant id (default "+models.DefaultTenant+")")
	_ = fs.Parse(args[1:])

	p := &models.Patient{ID: *id, Name: *name, Tenant: *tenant}
	if *common.serverURL != "" {
		body := map[string]string{"patient_id": p.ID, "name": p.Name, "tenant_id": p.Tenant}
		if err := callAPI(http.MethodPost, *common.serverURL+"/api/v1/patients", body, nil); err != nil {
			return err
		}
	} else {
		a, err := openApp(*common.configPath, *common.debug)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.service.AddPatient(context.Background(), p); err != nil {
			return err
		}
	}
	fmt.Printf("Patient %s registered\n", p.ID)
	return nil
}

// apiError is the error body returned by the server.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// callAPI sends body as JSON and decodes a 2xx response into out. Error responses are
// returned as *models.Error when the server supplied a code.
func callAPI(method, target string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Code != "" {
			return &models.Error{Code: models.ErrorCode(apiErr.Code), Message: apiErr.Error}
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func printUsage() {
	fmt.Println(`karte - Grounded medical document drafts from tenant knowledge bases

Usage:
  karte server [flags]                  Start the HTTP server
  karte generate [flags] [topic]        Generate a document
  karte get [flags] <document-id>       Show a stored document
  karte types [flags]                   List document types and diseases
  karte reindex [flags] [tenant]        Rebuild a tenant's index
  karte stats [flags] [tenant]          Show a tenant's index statistics
  karte patient add [flags]             Register a patient
  karte version                         Show version
  karte help                            Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/karte/config.yaml)
  --server string    Server URL; empty runs the pipeline in-process
  --output string    Output format: text or json (default: text)
  --debug            Enable debug logging

Generate Flags:
  --type string      disease_overview, health_suggestions, educational_notes or medical_certificate
  --topic string     Topic of the document (or pass it as arguments)
  --disease string   Disease id for disease-scoped types
  --patient string   Patient id for medical certificates
  --tenant string    Tenant id (default: demo_hospital)

Patient Flags:
  --id string        Patient id
  --name string      Patient name
  --tenant string    Tenant id

Examples:
  karte server
  karte generate --type disease_overview --disease hypertension "blood pressure basics"
  karte generate --type medical_certificate --patient P001 "rest after surgery"
  karte get 0b6f6a8e-5c1e-4c8e-9d2f-2f4f1c0e7a11
  karte reindex demo_hospital
  karte stats --output json demo_hospital
  karte patient add --id P001 --name "Demo Patient"`)
}
