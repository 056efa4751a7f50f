// Command parquet-inspect prints the structure of a Parquet file: schema,
// row groups, column chunk metadata and, optionally, per-page index
// entries.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/parquet/pkg/file"
	"github.com/grafana/parquet/pkg/format"
)

func main() {
	var (
		verbose = flag.Bool("v", false, "log debug detail while reading")
		pages   = flag.Bool("pages", false, "print offset index entries per chunk")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: parquet-inspect [-v] [-pages] <file>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *verbose, *pages); err != nil {
		fmt.Fprintln(os.Stderr, "parquet-inspect:", err)
		os.Exit(1)
	}
}

func run(path string, verbose, pages bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}

	logger := log.NewNopLogger()
	if verbose {
		logger = level.NewFilter(log.NewLogfmtLogger(os.Stderr), level.AllowDebug())
	}

	r, err := file.OpenReader(f, st.Size(), file.WithReaderLogger(logger))
	if err != nil {
		return err
	}

	meta := r.Metadata()
	fmt.Printf("file: %s (%d bytes)\n", path, st.Size())
	if meta.CreatedBy != nil {
		fmt.Printf("created by: %s\n", *meta.CreatedBy)
	}
	fmt.Printf("rows: %d, row groups: %d\n", r.NumRows(), r.NumRowGroups())
	for _, kv := range meta.KeyValueMetadata {
		if kv.Value != nil {
			fmt.Printf("metadata: %s=%s\n", kv.Key, *kv.Value)
		}
	}
	fmt.Printf("\nschema:\n%s\n", r.Schema())

	for i := 0; i < r.NumRowGroups(); i++ {
		g, err := r.RowGroup(i)
		if err != nil {
			return err
		}
		fmt.Printf("row group %d: %d rows\n", i, g.NumRows())

		for j := 0; j < g.NumColumns(); j++ {
			c, err := g.Column(j)
			if err != nil {
				return err
			}
			cm := c.Column()
			chunk := meta.RowGroups[i].Columns[j].MetaData
			fmt.Printf("  column %s (%s): codec=%s values=%d compressed=%d uncompressed=%d\n",
				strings.Join(cm.Path, "."), cm.PhysicalType, chunk.Codec,
				chunk.NumValues, chunk.TotalCompressedSize, chunk.TotalUncompressedSize)
			printStatistics(chunk.Statistics)

			if pages {
				if err := printPages(c); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func printStatistics(stats *format.Statistics) {
	if stats == nil {
		return
	}
	var parts []string
	if stats.NullCount != nil {
		parts = append(parts, fmt.Sprintf("nulls=%d", *stats.NullCount))
	}
	if stats.DistinctCount != nil {
		parts = append(parts, fmt.Sprintf("distinct=%d", *stats.DistinctCount))
	}
	if stats.MinValue != nil {
		parts = append(parts, fmt.Sprintf("min=%x", stats.MinValue))
	}
	if stats.MaxValue != nil {
		parts = append(parts, fmt.Sprintf("max=%x", stats.MaxValue))
	}
	if len(parts) > 0 {
		fmt.Printf("    stats: %s\n", strings.Join(parts, " "))
	}
}

func printPages(c *file.ColumnChunkReader) error {
	idx, err := c.ReadOffsetIndex()
	if err != nil {
		return nil // chunk written without page indexes
	}
	for k, loc := range idx.PageLocations {
		fmt.Printf("    page %d: offset=%d size=%d first_row=%d\n",
			k, loc.Offset, loc.CompressedPageSize, loc.FirstRowIndex)
	}
	return nil
}
