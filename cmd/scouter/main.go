package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/scouter-app/scouter/internal/extract"
	"github.com/scouter-app/scouter/internal/pipeline"
	"github.com/scouter-app/scouter/internal/receipt"
	"github.com/scouter-app/scouter/internal/structure"
	"github.com/scouter-app/scouter/internal/upload"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Local .env files are optional
	godotenv.Load()

	fs := ff.NewFlagSet("scouter")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "scouter.db", "Database file path")
		uploaderType   = fs.StringLong("uploader", "gcs", "Uploader type: 'gcs' or 'local'")
		bucket         = fs.StringLong("bucket", "", "GCS bucket for receipt images")
		localPath      = fs.StringLong("local-storage", "./receipts", "Local storage directory (for --uploader local)")
		extractorType  = fs.StringLong("extractor", "vertex", "Extractor type: 'vertex', 'azure' or 'offline'")
		projectID      = fs.StringLong("project", "", "Google Cloud project ID")
		location       = fs.StringLong("location", "us-central1", "Vertex AI location")
		vertexModel    = fs.StringLong("vertex-model", "gemini-2.0-flash", "Vertex AI model name")
		azureEndpoint  = fs.StringLong("azure-endpoint", "", "Azure Computer Vision endpoint")
		azureKey       = fs.StringLong("azure-key", "", "Azure Computer Vision API key")
		structurerType = fs.StringLong("structurer", "gemini", "Structurer type: 'gemini', 'ollama' or 'offline'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llama3.1", "Ollama model name")
		authToken      = fs.StringLong("auth-token", "", "API bearer token (optional)")
		orgID          = fs.StringLong("org", "default", "Organization ID served by this instance")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SCOUTER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx := context.Background()

	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	creds := extract.CredentialsFromEnv()

	uploader := buildUploader(ctx, *uploaderType, *bucket, *localPath, creds)
	defer uploader.Close()

	extractor := buildExtractor(ctx, *extractorType, *projectID, *location, *vertexModel, *azureEndpoint, *azureKey, creds)
	defer extractor.Close()

	structurer := buildStructurer(ctx, *structurerType, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
	defer structurer.Close()

	processor := pipeline.New(uploader, extractor, structurer)
	service := receipt.NewService(db, processor)
	server := receipt.NewServer(service, receipt.StaticToken{
		Token: *authToken,
		OrgID: *orgID,
	})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authToken != "" {
		slog.Info("Bearer auth enabled")
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// buildUploader constructs the configured uploader, degrading to local
// storage when object storage is not usable.
func buildUploader(ctx context.Context, uploaderType, bucket, localPath string, creds extract.Credentials) upload.Uploader {
	switch uploaderType {
	case "gcs":
		if bucket == "" {
			slog.Warn("No GCS bucket configured, falling back to local storage")
			break
		}
		opts, source, err := creds.Resolve()
		if err != nil {
			slog.Warn("Could not resolve Google credentials, falling back to local storage", "error", err)
			break
		}
		slog.Info("Initializing GCS uploader...", "bucket", bucket, "credentials", source)
		gcs, err := upload.NewGCS(ctx, bucket, opts...)
		if err != nil {
			slog.Warn("Failed to initialize GCS uploader, falling back to local storage", "error", err)
			break
		}
		return gcs
	case "local":
	default:
		slog.Warn("Invalid uploader type, falling back to local storage", "type", uploaderType)
	}

	slog.Info("Initializing local storage uploader...", "path", localPath)
	local, err := upload.NewLocal(localPath)
	if err != nil {
		slog.Error("Failed to initialize local storage", "error", err)
		os.Exit(1)
	}
	return local
}

// buildExtractor constructs the configured document extractor, degrading to
// the offline backend when the chosen one is not usable.
func buildExtractor(ctx context.Context, extractorType, projectID, location, vertexModel, azureEndpoint, azureKey string, creds extract.Credentials) extract.Extractor {
	switch extractorType {
	case "vertex":
		if projectID == "" {
			slog.Warn("No Google Cloud project configured, falling back to offline extractor")
			break
		}
		slog.Info("Initializing Vertex AI extractor...", "project", projectID, "location", location, "model", vertexModel)
		vertex, err := extract.NewVertex(ctx, projectID, location, vertexModel, creds)
		if err != nil {
			slog.Warn("Failed to initialize Vertex AI extractor, falling back to offline", "error", err)
			break
		}
		return vertex
	case "azure":
		if azureEndpoint == "" || azureKey == "" {
			slog.Warn("Azure endpoint or key missing, falling back to offline extractor")
			break
		}
		slog.Info("Initializing Azure OCR extractor...", "endpoint", azureEndpoint)
		azure, err := extract.NewAzure(azureEndpoint, azureKey)
		if err != nil {
			slog.Warn("Failed to initialize Azure extractor, falling back to offline", "error", err)
			break
		}
		return azure
	case "offline":
	default:
		slog.Warn("Invalid extractor type, falling back to offline", "type", extractorType)
	}

	slog.Info("Initializing offline extractor...")
	return extract.NewOffline()
}

// buildStructurer constructs the configured structurer, degrading to the
// offline backend when the chosen one is not usable.
func buildStructurer(ctx context.Context, structurerType, geminiKey, geminiModel, ollamaURL, ollamaModel string) structure.Structurer {
	switch structurerType {
	case "gemini":
		apiKey := geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Warn("No Gemini API key configured, falling back to offline structurer")
			break
		}
		slog.Info("Initializing Gemini structurer...", "model", geminiModel)
		gemini, err := structure.NewGemini(ctx, apiKey, geminiModel)
		if err != nil {
			slog.Warn("Failed to initialize Gemini structurer, falling back to offline", "error", err)
			break
		}
		return gemini
	case "ollama":
		slog.Info("Initializing Ollama structurer...", "url", ollamaURL, "model", ollamaModel)
		ollama, err := structure.NewOllama(ollamaURL, ollamaModel)
		if err != nil {
			slog.Warn("Failed to initialize Ollama structurer, falling back to offline", "error", err)
			break
		}
		return ollama
	case "offline":
	default:
		slog.Warn("Invalid structurer type, falling back to offline", "type", structurerType)
	}

	slog.Info("Initializing offline structurer...")
	return structure.NewOffline()
}
