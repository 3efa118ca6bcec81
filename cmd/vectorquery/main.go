// Command vectorquery prints the scenarios closest to a free-text query.
//
//	vectorquery angry buyer pushing back on price
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mastertrainer/mt/internal/adapters/vector"
	"github.com/mastertrainer/mt/internal/scriptenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "vectorquery:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return errors.New("usage: vectorquery <text>")
	}

	if err := scriptenv.Load(scriptenv.DotEnvFile); err != nil {
		return err
	}

	indexer, err := scriptenv.Indexer(scriptenv.Logger())
	if err != nil {
		return err
	}

	hits, err := indexer.Search(ctx, text, vector.DefaultTopK)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("No matching scenarios")
		return nil
	}

	for i, hit := range hits {
		fmt.Printf("%d. %.4f  %s  %v [%v, %v]\n", i+1, hit.Score, hit.ID,
			hit.Fields["title"], hit.Fields["category"], hit.Fields["difficulty"])
	}
	return nil
}
