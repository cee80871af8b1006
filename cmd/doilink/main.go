// Command doilink rewrites the DOI of every bibliography paragraph in a
// .docx document into a "(link)" hyperlink to a DOI resolver.
//
// Usage:
//
//	doilink <input-file> <output-file>
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"github.com/dgallion1/doilink/internal/config"
	"github.com/dgallion1/doilink/internal/docx"
	"github.com/dgallion1/doilink/internal/linker"
	"github.com/dgallion1/doilink/internal/parser"
	"github.com/dgallion1/doilink/internal/report"
)

const usage = "usage: doilink <input file> <output file>"

// CLI defines the command line: two positional paths and nothing else.
type CLI struct {
	Input  string `arg:"" name:"input-file" help:"Document to read." type:"path"`
	Output string `arg:"" name:"output-file" help:"Document to write." type:"path"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	log := slog.New(slog.NewTextHandler(stderr, nil))

	if len(args) != 2 {
		fmt.Fprintln(stderr, usage)
		return 1
	}

	var cli CLI
	exited := false
	k, err := kong.New(&cli,
		kong.Name("doilink"),
		kong.Description("Turn DOI references in a .docx bibliography into hyperlinks."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) { exited = true }),
	)
	if err != nil {
		log.Error("build command line", "error", err)
		return 1
	}
	// Both arguments are paths, even when they start with "-".
	if _, err := k.Parse(append([]string{"--"}, args...)); err != nil {
		fmt.Fprintln(stderr, usage)
		fmt.Fprintln(stderr, err)
		return 1
	}
	if exited {
		return 1
	}

	cfg := config.Default()
	l, err := linker.New(cfg, log)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		return 1
	}

	pkg, err := docx.Open(cli.Input)
	if err != nil {
		log.Error("open document", "path", cli.Input, "error", err)
		return 1
	}
	doc := pkg.Document()

	res, err := l.Process(doc, report.NewPrinter(stdout))
	if err != nil {
		log.Error("process document", "error", err)
		return 1
	}

	size, err := pkg.Save(cli.Output)
	if err != nil {
		log.Error("save document", "path", cli.Output, "error", err)
		return 1
	}

	if err := parser.Verify(cli.Output, len(doc.Paragraphs())); err != nil {
		log.Warn("output verification failed", "path", cli.Output, "error", err)
	}

	log.Info("wrote document",
		"path", cli.Output,
		"size", humanize.Bytes(uint64(size)),
		"candidates", res.Candidates,
		"linked", res.Linked,
		"skipped", res.Skipped,
	)
	return 0
}
