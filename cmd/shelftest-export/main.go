package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/shelftest/shelftest/internal/insight"
	"github.com/shelftest/shelftest/internal/report"
	"github.com/shelftest/shelftest/internal/store"
	"github.com/shelftest/shelftest/internal/xlsx"
)

func main() {
	dbPath := flag.String("db", "shelftest.db", "Path to the SQLite result store")
	testID := flag.String("test", "", "Test id to export")
	format := flag.String("format", "pdf", "Export format: pdf, xlsx, or md")
	outDir := flag.String("out", ".", "Output directory")
	flag.Parse()

	if *testID == "" {
		log.Fatal("missing required -test")
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	agg, err := insight.NewService(st).Aggregate(ctx, *testID)
	if err != nil {
		log.Fatalf("aggregate: %v", err)
	}
	sections := report.Compose(agg)

	switch *format {
	case "pdf":
		pdf, err := report.NewPDFRenderer().Render(ctx, agg, sections)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		writeArtifact(*outDir, report.PDFFileName(agg.Test.Name), pdf)
	case "xlsx":
		book, err := xlsx.Export(agg)
		if err != nil {
			log.Fatalf("export workbook: %v", err)
		}
		writeArtifact(*outDir, xlsx.FileName(agg.Test.Skin, agg.Test.Name), book)
	case "md":
		fmt.Print(report.BuildDocumentMarkdown(agg, sections))
	default:
		log.Fatalf("unknown format %q (want pdf, xlsx, or md)", *format)
	}
}

func writeArtifact(dir, name string, data []byte) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("write %s: %v", path, err)
	}
	log.Printf("shelftest-export wrote path=%s bytes=%d", path, len(data))
}
