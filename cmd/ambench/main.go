// ambench benchmarks the three index-construction methods against the same
// text data source and prints one CSV row per method.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"toydb/internal/am"
	"toydb/internal/pf"
)

type config struct {
	Data     string `yaml:"data"`
	Index    string `yaml:"index"`
	Buffers  int    `yaml:"buffers"`
	AttrLen  int    `yaml:"attrLen"`
	DirectIO bool   `yaml:"directIO"`
}

func loadConfig(path string) (config, error) {
	cfg := config{Index: "student", Buffers: 50, AttrLen: 4}
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "YAML config file (flags override it)")
	data := flag.String("data", "", "semicolon-separated data file; key is the second field")
	index := flag.String("index", "", "index base name")
	buffers := flag.Int("buffers", 0, "buffer pool capacity in pages")
	attrLen := flag.Int("attrlen", 0, "key width in bytes")
	directIO := flag.Bool("directio", false, "open index files with O_DIRECT")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("ambench: %v", err)
	}
	if *data != "" {
		cfg.Data = *data
	}
	if *index != "" {
		cfg.Index = *index
	}
	if *buffers != 0 {
		cfg.Buffers = *buffers
	}
	if *attrLen != 0 {
		cfg.AttrLen = *attrLen
	}
	if *directIO {
		cfg.DirectIO = true
	}
	if cfg.Data == "" {
		log.Fatalf("ambench: no data file (use -data or the config file)")
	}

	pool := pf.NewPool(cfg.Buffers, pf.DiskFS{Dir: ".", DirectIO: cfg.DirectIO})
	logger := log.New(os.Stderr, "", log.LstdFlags)

	type run struct {
		name    string
		indexNo int
		build   func(src am.PairSource, indexNo int) (am.BuildStats, error)
	}
	runs := []run{
		{"Incremental", 1, func(src am.PairSource, indexNo int) (am.BuildStats, error) {
			return am.BuildIndexIncremental(pool, src, am.AttrInt, cfg.AttrLen, cfg.Index, indexNo, logger)
		}},
		{"SortedInsert", 2, func(src am.PairSource, indexNo int) (am.BuildStats, error) {
			return am.BuildIndexFromExistingFile(pool, src, am.AttrInt, cfg.AttrLen, cfg.Index, indexNo, am.MethodSortedInsert)
		}},
		{"BulkLoad", 3, func(src am.PairSource, indexNo int) (am.BuildStats, error) {
			return am.BuildIndexFromExistingFile(pool, src, am.AttrInt, cfg.AttrLen, cfg.Index, indexNo, am.MethodBulk)
		}},
	}

	fmt.Println("Method,Time_ms,LogicalReads,LogicalWrites,PhysicalReads,PhysicalWrites")
	for _, r := range runs {
		f, err := os.Open(cfg.Data)
		if err != nil {
			log.Fatalf("ambench: open data file: %v", err)
		}
		os.Remove(am.IndexName(cfg.Index, r.indexNo))

		src := am.NewTextSource(f, am.AttrInt, cfg.AttrLen)
		stats, err := r.build(src, r.indexNo)
		f.Close()
		if err != nil {
			log.Fatalf("ambench: %s build failed: %v", r.name, err)
		}
		fmt.Printf("%s,%.2f,%d,%d,%d,%d\n",
			r.name, stats.TimeMS,
			stats.LogicalReads, stats.LogicalWrites,
			stats.PhysicalReads, stats.PhysicalWrites)
	}
}
