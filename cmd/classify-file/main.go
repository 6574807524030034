// classify-file sends a single PDF through rendering and classification and
// prints the parsed result plus the file name that would be built. Nothing is
// moved; useful for testing a model or prompt change against a known fax.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/faxfinity/faxsort/internal/classify"
	"github.com/faxfinity/faxsort/internal/fax"
	"github.com/faxfinity/faxsort/internal/naming"
)

func main() {
	apiKey := flag.String("key", "", "OpenAI API key (or set OPENAI_API_KEY)")
	baseURL := flag.String("base-url", "", "Override API base URL (or set OPENAI_BASE_URL)")
	model := flag.String("model", "gpt-4o", "Vision model to use")
	ownName := flag.String("own-name", "", "Operator name to exclude from results")
	timeout := flag.Duration("timeout", 120*time.Second, "Classification timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: classify-file [flags] <document.pdf>\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	pdfPath := flag.Arg(0)

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	_ = gotenv.Load()
	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if *apiKey == "" {
		fmt.Fprintf(os.Stderr, "ERROR: no API key (use --key or OPENAI_API_KEY)\n")
		os.Exit(1)
	}
	if *baseURL == "" {
		*baseURL = os.Getenv("OPENAI_BASE_URL")
	}

	client := classify.NewClient(classify.Config{
		APIKey:            *apiKey,
		BaseURL:           *baseURL,
		Model:             *model,
		Timeout:           *timeout,
		MaxAttempts:       1,
		RetryBackoff:      time.Second,
		RequestsPerMinute: 0,
		MaxPages:          2,
	}, *ownName, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+30*time.Second)
	defer cancel()

	result, err := client.Classify(ctx, pdfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Classification failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Classification ===")
	fmt.Printf("  Category: %s\n", result.Category)
	fmt.Printf("  Sender:   %s\n", result.Sender)
	fmt.Printf("  Patient:  %s\n", result.Patient)
	if !result.Date.IsZero() {
		fmt.Printf("  Date:     %s\n", result.Date.Format("2006-01-02"))
	} else {
		fmt.Printf("  Date:     (none)\n")
	}

	builder := naming.NewBuilder(naming.NewRegistry(), *ownName)
	record := fax.BackupRecord{
		OriginalName: filepath.Base(pdfPath),
		CreatedAt:    time.Now(),
	}
	fmt.Printf("\nWould rename to: %s\n", builder.BuildName(result, record))
}
