// Command ireval runs a relevance-feedback experiment over a corpus and a
// judgment file, printing average interpolated precision at the standard
// recall levels.
//
// Each judgment line is a query, a tab, and a comma-separated list of
// relevant document IDs. In rated mode an ID may carry "=rating".
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/qquiche/ir/internal/corpus"
	"github.com/qquiche/ir/internal/eval"
	"github.com/qquiche/ir/internal/feedback"
	"github.com/qquiche/ir/internal/index"
	"github.com/qquiche/ir/pkg/logger"
)

func main() {
	var (
		corpusDir = flag.String("corpus", "corpus", "directory of corpus documents")
		judgFile  = flag.String("judgments", "judgments.tsv", "path to the judgment file")
		html      = flag.Bool("html", false, "strip HTML markup from documents")
		stem      = flag.Bool("stem", false, "apply snowball stemming")
		mode      = flag.String("mode", "control", "feedback mode: control, binary, or rated")
		numFb     = flag.Int("feedback-docs", 5, "number of top documents to simulate feedback on")
		logLevel  = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()
	logger.Setup(*logLevel, "text")

	fbMode, err := parseMode(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	docType := corpus.TypeText
	if *html {
		docType = corpus.TypeHTML
	}
	cfg := corpus.Config{DocType: docType, Stem: *stem}
	idx := index.New(corpus.DirSource{Dir: *corpusDir, DocType: docType}, cfg, index.DefaultOptions())

	ctx := context.Background()
	if err := idx.Build(ctx); err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}

	judgments, err := readJudgments(*judgFile)
	if err != nil {
		slog.Error("failed to read judgments", "error", err)
		os.Exit(1)
	}

	exp := &eval.Experiment{
		Index:           idx,
		Feedback:        feedback.DefaultOptions(),
		NumFeedbackDocs: *numFb,
		Mode:            fbMode,
	}
	precisions, err := exp.Run(ctx, judgments)
	if err != nil {
		slog.Error("experiment failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Mode %s over %d queries:\n", *mode, len(judgments))
	fmt.Println("recall\tprecision")
	for i, recall := range eval.StandardRecalls {
		fmt.Printf("%.1f\t%.4f\n", recall, precisions[i])
	}
}

func parseMode(s string) (eval.FeedbackMode, error) {
	switch s {
	case "control":
		return eval.ModeControl, nil
	case "binary":
		return eval.ModeBinary, nil
	case "rated":
		return eval.ModeRated, nil
	}
	return 0, fmt.Errorf("unknown mode %q: want control, binary, or rated", s)
}

// readJudgments parses one judgment per line: "query<TAB>id[=rating],id,...".
// Blank lines and lines starting with # are skipped.
func readJudgments(path string) ([]eval.Judgment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var judgments []eval.Judgment
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		query, rest, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: expected query<TAB>doc list", lineNo)
		}
		j := eval.Judgment{
			Query:    query,
			Relevant: make(map[string]struct{}),
			Ratings:  make(map[string]float64),
		}
		for _, entry := range strings.Split(rest, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			id, ratingStr, hasRating := strings.Cut(entry, "=")
			j.Relevant[id] = struct{}{}
			if hasRating {
				rating, err := strconv.ParseFloat(ratingStr, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad rating for %s: %w", lineNo, id, err)
				}
				j.Ratings[id] = rating
			}
		}
		judgments = append(judgments, j)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return judgments, nil
}
