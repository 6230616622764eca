// Command ords_probe exercises the legacy ORDS attendance summary
// endpoint for a list of scopes and reports normalization coverage.
// Useful when onboarding a school whose legacy data quality is
// unknown: it surfaces rows the client would drop before they show up
// as missing attendance in reports.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/classbridge/report-api/internal/models"
	"github.com/classbridge/report-api/internal/ords"
)

type probeResult struct {
	Scope    models.Scope
	Rows     int
	Scoped   int
	Duration time.Duration
	Err      error
}

func main() {
	var (
		baseURL    string
		scopesPath string
		timeout    time.Duration
	)

	flag.StringVar(&baseURL, "base-url", "http://localhost:9090/ords", "ORDS base URL")
	flag.StringVar(&scopesPath, "scopes", filepath.Join("scripts", "ords_probe", "scopes.json"), "Path to JSON scopes file")
	flag.DurationVar(&timeout, "timeout", 15*time.Second, "HTTP client timeout")
	flag.Parse()

	scopes, err := loadScopes(scopesPath)
	if err != nil {
		log.Fatalf("failed to load scopes: %v", err)
	}
	if len(scopes) == 0 {
		log.Fatal("no scopes to probe")
	}

	client := ords.NewClient(baseURL, timeout, nil)
	ctx := context.Background()

	failures := 0
	for _, scope := range scopes {
		res := probe(ctx, client, scope)
		if res.Err != nil {
			failures++
			fmt.Printf("FAIL  %-40s %v\n", scope.Key(), res.Err)
			continue
		}
		fmt.Printf("OK    %-40s rows=%d class_scoped=%d took=%s\n", scope.Key(), res.Rows, res.Scoped, res.Duration.Round(time.Millisecond))
	}

	fmt.Printf("\nprobed %d scopes, %d failed\n", len(scopes), failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func probe(ctx context.Context, client *ords.Client, scope models.Scope) probeResult {
	start := time.Now()
	rows, err := client.Summary(ctx, scope)
	res := probeResult{Scope: scope, Duration: time.Since(start), Err: err}
	if err != nil {
		return res
	}
	res.Rows = len(rows)
	for _, row := range rows {
		if row.ClassID != nil {
			res.Scoped++
		}
	}
	return res
}

func loadScopes(path string) ([]models.Scope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scopes []models.Scope
	if err := json.Unmarshal(data, &scopes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return scopes, nil
}
