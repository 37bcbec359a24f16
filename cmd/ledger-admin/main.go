package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"casalfinance/internal/categorize"
	"casalfinance/internal/cli"
	"casalfinance/internal/log"
)

func main() {
	household := flag.String("household", "", "Household id (default HOUSEHOLD_ID)")
	exportPath := flag.String("export", "", "Write the household backup to this file (- for stdout)")
	importPath := flag.String("import", "", "Replace the household with this backup file")
	reset := flag.Bool("reset", false, "Delete every record of the household")
	confirm := flag.String("confirm", "", "Type RESET to proceed with -reset or -import")
	suggest := flag.String("suggest", "", "Describe an expense to get a categorized draft")
	receipt := flag.String("receipt", "", "Receipt image to categorize")
	add := flag.Bool("add", false, "Save the suggested draft")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	id := strings.TrimSpace(*household)
	if id == "" {
		id = cfg.HouseholdID
	}
	if (*reset || *importPath != "") && strings.TrimSpace(*confirm) != "RESET" {
		fmt.Fprintln(os.Stderr, "set -confirm=RESET to replace or delete household data")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	be := cli.InitBackend(ctx, logger, cfg)
	defer cli.CleanupLogger(logger, "backend", be.Cleanup)()

	h := be.Household(id)
	if err := h.Load(ctx); err != nil {
		fail(logger, "Failed to load household", err)
	}

	switch {
	case *exportPath != "":
		data, err := h.Export(ctx)
		if err != nil {
			fail(logger, "Export failed", err)
		}
		if *exportPath == "-" {
			os.Stdout.Write(append(data, '\n'))
			return
		}
		if err := os.WriteFile(*exportPath, data, 0600); err != nil {
			fail(logger, "Failed to write backup", err)
		}
		logger.Info("Backup written", log.FieldHousehold, id, "path", *exportPath)

	case *importPath != "":
		data, err := os.ReadFile(*importPath)
		if err != nil {
			fail(logger, "Failed to read backup", err)
		}
		n, err := h.Import(ctx, data)
		if err != nil {
			fail(logger, "Import failed", err)
		}
		logger.Info("Backup imported", log.FieldHousehold, id, log.FieldCount, n)

	case *reset:
		if err := h.Reset(ctx); err != nil {
			fail(logger, "Reset failed", err)
		}

	case *suggest != "" || *receipt != "":
		in := categorize.Input{Text: *suggest}
		if *receipt != "" {
			img, err := os.ReadFile(*receipt)
			if err != nil {
				fail(logger, "Failed to read receipt", err)
			}
			in.Image = img
			in.MIMEType = http.DetectContentType(img)
		}
		draft, err := h.SuggestExpense(ctx, be.Classifier, in)
		if err != nil {
			fail(logger, "Suggestion failed", err)
		}
		if *add {
			if draft, err = h.AddExpense(ctx, draft); err != nil {
				fail(logger, "Failed to save suggestion", err)
			}
		}
		fmt.Printf("%s\t%s\t%s/%s\t%s\n", draft.Name, draft.Amount, draft.Pillar, draft.SubCategory, draft.PurchaseDate)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func fail(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}
