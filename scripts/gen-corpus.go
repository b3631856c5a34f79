//go:build ignore

// Command gen-corpus writes a synthetic multi-language repository for
// exercising the indexer and retrieval pipeline at scale.
// Usage: go run scripts/gen-corpus.go -files 500 -out testdata/corpus
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numFiles = flag.Int("files", 500, "number of files to generate")
	outDir   = flag.String("out", "testdata/corpus", "output directory")
	seed     = flag.Int64("seed", 1, "random seed")
)

const goTemplate = `package %s

import (
	"context"
	"fmt"
)

// %s resolves %s requests against the local store.
type %s struct {
	name  string
	limit int
}

// New%s returns a %s with default limits.
func New%s(name string) *%s {
	return &%s{name: name, limit: 32}
}

// %s runs a single %s pass and reports the outcome.
func (r *%s) %s(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if input == "" {
		return "", fmt.Errorf("%%s: empty input", r.name)
	}
	return fmt.Sprintf("%%s handled %%s", r.name, input), nil
}
`

const pyTemplate = `"""%s helpers for %s."""

from dataclasses import dataclass, field
from typing import Any, Dict, Optional


@dataclass
class %sOptions:
    name: str
    limit: int = 32
    extras: Dict[str, Any] = field(default_factory=dict)


class %s:
    """Runs %s passes against the local store."""

    def __init__(self, options: %sOptions):
        self.options = options
        self._seen: Dict[str, int] = {}

    def %s(self, query: str) -> Optional[str]:
        if not query:
            return None
        self._seen[query] = self._seen.get(query, 0) + 1
        return f"{self.options.name}: {query}"

    def stats(self) -> Dict[str, int]:
        return dict(self._seen)
`

const mdTemplate = `# %s

%s support for %s. Queries are scored against the chunk store and the
top results are returned with file citations.

## Usage

` + "```go" + `
r := %s.New%s("default")
out, err := r.%s(ctx, "example query")
` + "```" + `

## Notes

Results are ranked by a blended lexical and vector score. Empty queries
return no results rather than an error.
`

var (
	components = []string{
		"Retriever", "Ranker", "Chunker", "Embedder", "Indexer",
		"Planner", "Router", "Scorer", "Resolver", "Collector",
		"Merger", "Splitter", "Matcher", "Walker", "Reducer",
	}
	concerns = []string{
		"lexical search", "vector search", "query expansion", "chunk merging",
		"score fusion", "citation tracking", "cache lookup", "path filtering",
		"symbol extraction", "snippet assembly", "index compaction",
	}
	verbs = []string{
		"Search", "Rank", "Resolve", "Collect", "Merge",
		"Score", "Expand", "Filter", "Assemble", "Compact",
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	for _, sub := range []string{"go", "python", "docs"} {
		if err := os.MkdirAll(filepath.Join(*outDir, sub), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "gen-corpus: %v\n", err)
			os.Exit(1)
		}
	}

	goFiles := *numFiles * 50 / 100
	pyFiles := *numFiles * 30 / 100
	mdFiles := *numFiles - goFiles - pyFiles

	written := 0
	for i := 0; i < goFiles; i++ {
		if err := writeGoFile(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "gen-corpus: %v\n", err)
			os.Exit(1)
		}
		written++
	}
	for i := 0; i < pyFiles; i++ {
		if err := writePyFile(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "gen-corpus: %v\n", err)
			os.Exit(1)
		}
		written++
	}
	for i := 0; i < mdFiles; i++ {
		if err := writeMdFile(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "gen-corpus: %v\n", err)
			os.Exit(1)
		}
		written++
	}

	fmt.Printf("wrote %d files under %s\n", written, *outDir)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func writeGoFile(rng *rand.Rand, i int) error {
	comp := pick(rng, components)
	concern := pick(rng, concerns)
	verb := pick(rng, verbs)
	pkg := fmt.Sprintf("corpus%d", i)

	content := fmt.Sprintf(goTemplate,
		pkg,
		comp, concern, comp,
		comp, comp, comp, comp, comp,
		verb, concern, comp, verb,
	)
	name := filepath.Join(*outDir, "go", fmt.Sprintf("%s_%d.go", comp, i))
	return os.WriteFile(name, []byte(content), 0o644)
}

func writePyFile(rng *rand.Rand, i int) error {
	comp := pick(rng, components)
	concern := pick(rng, concerns)
	verb := pick(rng, verbs)

	content := fmt.Sprintf(pyTemplate,
		comp, concern,
		comp,
		comp, concern, comp,
		verb,
	)
	name := filepath.Join(*outDir, "python", fmt.Sprintf("%s_%d.py", comp, i))
	return os.WriteFile(name, []byte(content), 0o644)
}

func writeMdFile(rng *rand.Rand, i int) error {
	comp := pick(rng, components)
	concern := pick(rng, concerns)
	verb := pick(rng, verbs)

	content := fmt.Sprintf(mdTemplate,
		comp,
		comp, concern,
		"corpus", comp, verb,
	)
	name := filepath.Join(*outDir, "docs", fmt.Sprintf("%s_%d.md", comp, i))
	return os.WriteFile(name, []byte(content), 0o644)
}
