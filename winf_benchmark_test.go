package winf

import (
	"io"
	"os"
	"testing"
	"time"
)

// Benchmark data - a reasonably complex winf file content.
var benchmarkWinfData, _ = os.ReadFile("testfile/example.winf")

// BenchmarkLexer measures the performance of tokenizing a winf file.
func BenchmarkLexer(b *testing.B) {
	if benchmarkWinfData == nil {
		b.Skip("Cannot read benchmark data file")
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l := NewLexer(benchmarkWinfData)
		for {
			tok := l.NextToken()
			if tok.Type == EOF {
				break
			}
		}
	}
}

// BenchmarkParser measures the performance of parsing a winf file (lexing + parsing).
func BenchmarkParser(b *testing.B) {
	if benchmarkWinfData == nil {
		b.Skip("Cannot read benchmark data file")
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l := NewLexer(benchmarkWinfData)
		p := NewParser(l)
		doc := p.ParseDocument()
		ReleaseDocument(doc)
	}
}

// BenchmarkFormat measures the end-to-end performance of linting and formatting.
func BenchmarkFormat(b *testing.B) {
	if benchmarkWinfData == nil {
		b.Skip("Cannot read benchmark data file")
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		doc, _ := Lint(benchmarkWinfData)
		Format(doc, FormatOptions{Style: StyleBlockSorted, EmptyLines: true})
	}
}

// unified benchmark struct, matching testfile/example.winf
type benchmarkConfig struct {
	Name           string        `winf:"name"`
	Version        string        `winf:"version"`
	Debug          bool          `winf:"debug"`
	MaxConnections int           `winf:"max_connections"`
	BufferSize     int           `winf:"buffer_size"`
	Ratio          float64       `winf:"ratio"`
	Timeout        time.Duration `winf:"timeout"`
	Server         struct {
		Host           string        `winf:"host"`
		Port           int           `winf:"port"`
		ReadTimeout    time.Duration `winf:"read_timeout"`
		AllowedOrigins []string      `winf:"allowed_origins"`
		Limits         struct {
			CPU    int   `winf:"cpu"`
			Memory int64 `winf:"memory"`
		} `winf:"limits"`
	} `winf:"server"`
	Database struct {
		Driver string         `winf:"driver"`
		DSN    string         `winf:"dsn"`
		Pool   map[string]int `winf:"pool"`
	} `winf:"database"`
	Endpoints []struct {
		Path   string `winf:"path"`
		Public bool   `winf:"public"`
	} `winf:"endpoints"`
	Banner      string `winf:"banner"`
	Description string `winf:"description"`
}

// BenchmarkDecode measures decoding into a typed struct.
func BenchmarkDecode(b *testing.B) {
	if benchmarkWinfData == nil {
		b.Skip("Cannot read benchmark data file")
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var cfg benchmarkConfig
		if err := Decode(benchmarkWinfData, &cfg); err != nil {
			b.Fatalf("Decode failed: %v", err)
		}
	}
}

// BenchmarkEncode measures re-encoding the decoded struct.
func BenchmarkEncode(b *testing.B) {
	if benchmarkWinfData == nil {
		b.Skip("Cannot read benchmark data file")
	}
	var cfg benchmarkConfig
	if err := Decode(benchmarkWinfData, &cfg); err != nil {
		b.Fatalf("Decode failed: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		enc := NewEncoder(io.Discard)
		if err := enc.Encode(cfg); err != nil {
			b.Fatalf("Encode failed: %v", err)
		}
	}
}

// TestBenchmarkDataDecodes keeps the benchmark fixture honest.
func TestBenchmarkDataDecodes(t *testing.T) {
	if benchmarkWinfData == nil {
		t.Skip("Cannot read benchmark data file")
	}
	doc, errs := Lint(benchmarkWinfData)
	if len(errs) != 0 {
		t.Fatalf("fixture has lint errors: %v", errs)
	}
	if HasErrorMarkers(doc) {
		t.Fatal("fixture tree has error markers")
	}

	var cfg benchmarkConfig
	if err := Decode(benchmarkWinfData, &cfg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cfg.Name != "orion-gateway" || cfg.Server.Port != 8443 {
		t.Errorf("fixture decode mismatch: %+v", cfg)
	}
	if cfg.MaxConnections != 10000 || cfg.BufferSize != 0x4000 {
		t.Errorf("numeric fields mismatch: %+v", cfg)
	}
	if cfg.Timeout != 45*time.Second || cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("duration fields mismatch: %+v", cfg)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || len(cfg.Endpoints) != 2 {
		t.Errorf("collection fields mismatch: %+v", cfg)
	}
	if cfg.Database.Pool["max"] != 20 {
		t.Errorf("map field mismatch: %+v", cfg.Database.Pool)
	}
	if cfg.Banner != "Orion Gateway\nall systems nominal" {
		t.Errorf("banner mismatch: %q", cfg.Banner)
	}
	if cfg.Description != "The gateway terminates TLS and forwards requests to the upstream pool." {
		t.Errorf("description mismatch: %q", cfg.Description)
	}
}
