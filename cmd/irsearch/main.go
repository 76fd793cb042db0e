// Command irsearch builds an index over a corpus directory and runs an
// interactive query loop, optionally with relevance feedback between
// retrievals.
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
	"github.com/qquiche/ir/internal/feedback"
	"github.com/qquiche/ir/internal/index"
	"github.com/qquiche/ir/internal/vector"
	"github.com/qquiche/ir/pkg/logger"
)

const pageSize = 10

func main() {
	var (
		corpusDir = flag.String("corpus", "corpus", "directory of corpus documents")
		html      = flag.Bool("html", false, "strip HTML markup from documents")
		stem      = flag.Bool("stem", false, "apply snowball stemming")
		strategy  = flag.String("strategy", "nearest-pair", "proximity strategy: nearest-pair or cover-span")
		useFb     = flag.Bool("feedback", false, "enable binary relevance feedback")
		rated     = flag.Bool("rated", false, "enable rated relevance feedback (implies -feedback)")
		logLevel  = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()
	logger.Setup(*logLevel, "text")

	docType := corpus.TypeText
	if *html {
		docType = corpus.TypeHTML
	}
	cfg := corpus.Config{DocType: docType, Stem: *stem}
	opts := index.DefaultOptions()
	opts.Proximity = index.ProximityStrategy(*strategy)

	idx := index.New(corpus.DirSource{Dir: *corpusDir, DocType: docType}, cfg, opts)
	ctx := context.Background()
	if err := idx.Build(ctx); err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d documents, %d distinct terms.\n", idx.DocCount(), idx.Size())

	session := &session{
		idx:   idx,
		useFb: *useFb || *rated,
		rated: *rated,
		input: bufio.NewScanner(os.Stdin),
	}
	session.run(ctx)
}

type session struct {
	idx   *index.Index
	useFb bool
	rated bool
	input *bufio.Scanner
}

func (s *session) run(ctx context.Context) {
	for {
		query, ok := s.prompt("\nEnter query (empty to quit): ")
		if !ok || query == "" {
			return
		}
		q := s.idx.ParseQuery(query)
		results, err := s.idx.RetrieveQuery(q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "retrieval failed: %v\n", err)
			continue
		}

		var reform *feedback.Reformulator
		if s.useFb {
			reform = feedback.New(q.Vector, s.idx, feedback.DefaultOptions())
		}
		s.present(ctx, results, reform)
	}
}

// present pages through results. After each page the user can ask for more
// ("m"), reformulate from recorded feedback ("r"), or return to the query
// prompt (empty line).
func (s *session) present(ctx context.Context, results []index.Result, reform *feedback.Reformulator) {
	shown := 0
	for {
		if len(results) == 0 {
			fmt.Println("No matching documents.")
			return
		}
		end := shown + pageSize
		if end > len(results) {
			end = len(results)
		}
		for i := shown; i < end; i++ {
			r := results[i]
			fmt.Printf("%3d. %-30s score=%.4f cosine=%.4f proximity=%.1f\n",
				i+1, r.DocID, r.Score, r.Cosine, r.Proximity)
			if reform != nil && !reform.HasFeedback(r.Doc) {
				s.collectFeedback(r, reform)
			}
		}
		shown = end

		cmd, ok := s.prompt("[m]ore, [r]eformulate, empty for new query: ")
		if !ok {
			return
		}
		switch cmd {
		case "m":
			if shown >= len(results) {
				fmt.Println("No further results.")
			}
		case "r":
			if reform == nil {
				fmt.Println("Feedback is disabled; run with -feedback or -rated.")
				continue
			}
			if reform.IsEmpty() {
				fmt.Println("No feedback recorded yet.")
				continue
			}
			newVec, err := reform.NewQuery(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "reformulation failed: %v\n", err)
				continue
			}
			reranked, err := s.retrieveVector(newVec)
			if err != nil {
				fmt.Fprintf(os.Stderr, "retrieval failed: %v\n", err)
				continue
			}
			fmt.Println("Reformulated retrieval:")
			results = reranked
			shown = 0
		default:
			return
		}
	}
}

func (s *session) retrieveVector(qv vector.TermVector) ([]index.Result, error) {
	return s.idx.RetrieveVector(qv)
}

// collectFeedback asks for one judgment. In rated mode the answer is a number
// in [-1, 1]; otherwise y/n/u for relevant, non-relevant, or undecided.
func (s *session) collectFeedback(r index.Result, reform *feedback.Reformulator) {
	if s.rated {
		answer, ok := s.prompt(fmt.Sprintf("     rate %s in [-1,1], empty to skip: ", r.DocID))
		if !ok || answer == "" {
			return
		}
		rating, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			fmt.Println("     not a number, skipping")
			return
		}
		if rating >= 0 {
			err = reform.AddGoodRated(r.Doc, rating)
		} else {
			err = reform.AddBadRated(r.Doc, rating)
		}
		if err != nil {
			fmt.Printf("     %v (recorded as neutral)\n", err)
		}
		return
	}

	answer, ok := s.prompt(fmt.Sprintf("     relevant %s? [y/n/u]: ", r.DocID))
	if !ok {
		return
	}
	switch answer {
	case "y":
		reform.AddGood(r.Doc)
	case "n":
		reform.AddBad(r.Doc)
	}
}

func (s *session) prompt(msg string) (string, bool) {
	fmt.Print(msg)
	if !s.input.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.input.Text()), true
}
