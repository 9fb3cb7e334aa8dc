// Package config loads and validates the mapping document that drives a
// run. The document is parsed once, normalized, hashed, and treated as
// immutable afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/dataveil/dataveil/generator"
)

// ConfigError is fatal: the run never starts.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...any) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

type Document struct {
	Metadata             Metadata            `json:"Metadata"`
	Global               Global              `json:"Global"`
	DataTypes            map[string]DataType `json:"DataTypes"`
	ReferentialIntegrity []Relationship      `json:"ReferentialIntegrity"`
	PostProcessing       PostProcessing      `json:"PostProcessing"`
	Tables               []Table             `json:"Tables"`

	// Hash identifies this mapping for checkpointing. It is computed over
	// the canonical JSON rendering of the file before environment
	// overrides, so the same file resumes the same run regardless of the
	// shell it is launched from.
	Hash string `json:"-"`
}

type Metadata struct {
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Locale      string `json:"Locale"` // "" or "AU" (default), "UK"
	Version     string `json:"Version"`
}

type Global struct {
	ConnectionString      string `json:"ConnectionString"`
	GlobalSeed            string `json:"GlobalSeed"`
	BatchSize             int    `json:"BatchSize"`
	SqlBatchSize          int    `json:"SqlBatchSize"`
	ParallelThreads       int    `json:"ParallelThreads"`
	MaxCacheSize          int    `json:"MaxCacheSize"`
	CommandTimeoutSeconds int    `json:"CommandTimeoutSeconds"`
	MappingCacheDirectory string `json:"MappingCacheDirectory"`
	CheckpointDirectory   string `json:"CheckpointDirectory"`
	DryRun                bool   `json:"DryRun"`
	StrictMode            bool   `json:"StrictMode"`
}

type DataType struct {
	BaseType       string                `json:"BaseType"`
	CustomSeed     string                `json:"CustomSeed"`
	PreserveLength bool                  `json:"PreserveLength"`
	Cache          *bool                 `json:"Cache"` // overrides the built-in cardinality policy
	Validation     *generator.Validation `json:"Validation"`
	Formatting     *generator.Formatting `json:"Formatting"`
}

type Relationship struct {
	Name            string           `json:"Name"`
	PrimaryTable    string           `json:"PrimaryTable"`
	PrimaryColumn   string           `json:"PrimaryColumn"`
	RelatedMappings []RelatedMapping `json:"RelatedMappings"`
}

type RelatedMapping struct {
	Table        string `json:"Table"`
	Column       string `json:"Column"`
	Relationship string `json:"Relationship"` // exact, derived
}

type PostProcessing struct {
	ReportPath string `json:"ReportPath"`
}

type Table struct {
	FullName        string           `json:"FullName"`
	PrimaryKey      []string         `json:"PrimaryKey"`
	Columns         []Column         `json:"Columns"`
	CustomBatchSize int              `json:"CustomBatchSize"`
	Conditions      *TableConditions `json:"Conditions"`
	Enabled         *bool            `json:"Enabled"` // nil means enabled
	Priority        int              `json:"Priority"`
}

type TableConditions struct {
	WhereClause string `json:"WhereClause"`
	MaxRows     int64  `json:"MaxRows"`
}

type Column struct {
	Name           string                `json:"Name"`
	DataType       string                `json:"DataType"`
	Enabled        *bool                 `json:"Enabled"`
	PreserveLength bool                  `json:"PreserveLength"`
	IsNullable     bool                  `json:"IsNullable"`
	Fallback       *Fallback             `json:"Fallback"`
	Conditions     *ColumnConditions     `json:"Conditions"`
	Validation     *generator.Validation `json:"Validation"`
}

type ColumnConditions struct {
	OnlyIfNotNull bool `json:"OnlyIfNotNull"`
}

const (
	FallbackUseOriginal = "useOriginal"
	FallbackUseDefault  = "useDefault"
	FallbackSkip        = "skip"
)

type Fallback struct {
	OnError      string `json:"OnError"`
	DefaultValue string `json:"DefaultValue"`
}

func (t *Table) IsEnabled() bool  { return t.Enabled == nil || *t.Enabled }
func (c *Column) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// EnabledColumns returns the columns the engine will rewrite.
func (t *Table) EnabledColumns() []Column {
	var cols []Column
	for _, c := range t.Columns {
		if c.IsEnabled() {
			cols = append(cols, c)
		}
	}
	return cols
}

// BatchSize resolves the per-table override against the global default.
func (t *Table) BatchSize(global int) int {
	if t.CustomBatchSize > 0 {
		return t.CustomBatchSize
	}
	return global
}

// Load reads, parses, validates and hashes a mapping document. Files ending
// .yaml or .yml are accepted and normalized to the same canonical form, so
// the hash does not depend on the input syntax.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("cannot read mapping file %s: %s", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, configErrorf("cannot parse YAML mapping %s: %s", path, err)
		}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, configErrorf("cannot parse mapping %s: %s", path, err)
	}

	hash, err := HashMapping(raw)
	if err != nil {
		return nil, configErrorf("cannot hash mapping %s: %s", path, err)
	}
	doc.Hash = hash

	doc.applyDefaults()
	doc.applyEnv()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := doc.ResolveReferentialIntegrity(); err != nil {
		return nil, err
	}
	doc.sortTables()
	return &doc, nil
}

func (d *Document) applyDefaults() {
	g := &d.Global
	if g.BatchSize == 0 {
		g.BatchSize = 1000
	}
	if g.SqlBatchSize == 0 {
		g.SqlBatchSize = 100
	}
	if g.ParallelThreads == 0 {
		g.ParallelThreads = 4
	}
	if g.MaxCacheSize == 0 {
		g.MaxCacheSize = 100000
	}
	if g.CommandTimeoutSeconds == 0 {
		g.CommandTimeoutSeconds = 30
	}
	if g.MappingCacheDirectory == "" {
		g.MappingCacheDirectory = "mapping-cache"
	}
	if g.CheckpointDirectory == "" {
		g.CheckpointDirectory = "checkpoints"
	}
}

func (d *Document) applyEnv() {
	g := &d.Global
	if v, ok := os.LookupEnv("CONNECTION_STRING"); ok {
		g.ConnectionString = v
	}
	if v, ok := os.LookupEnv("GLOBAL_SEED"); ok {
		g.GlobalSeed = v
	}
	if v, ok := os.LookupEnv("DRY_RUN"); ok {
		g.DryRun = v == "1" || strings.EqualFold(v, "true")
	}
	envInt := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envInt("PARALLEL_THREADS", &g.ParallelThreads)
	envInt("BATCH_SIZE", &g.BatchSize)
	envInt("MAX_CACHE_SIZE", &g.MaxCacheSize)
	envInt("COMMAND_TIMEOUT", &g.CommandTimeoutSeconds)
}

// sortTables orders by Priority ascending; ties keep declaration order.
func (d *Document) sortTables() {
	sort.SliceStable(d.Tables, func(i, j int) bool {
		return d.Tables[i].Priority < d.Tables[j].Priority
	})
}

func (d *Document) Validate() error {
	g := &d.Global
	if g.ConnectionString == "" {
		return configErrorf("Global.ConnectionString is required (or set CONNECTION_STRING)")
	}
	if g.BatchSize < 1 {
		return configErrorf("Global.BatchSize must be >= 1, got %d", g.BatchSize)
	}
	if g.SqlBatchSize < 1 {
		return configErrorf("Global.SqlBatchSize must be >= 1, got %d", g.SqlBatchSize)
	}
	if g.ParallelThreads < 1 {
		return configErrorf("Global.ParallelThreads must be >= 1, got %d", g.ParallelThreads)
	}
	if g.MaxCacheSize < 0 {
		return configErrorf("Global.MaxCacheSize must be >= 0, got %d", g.MaxCacheSize)
	}
	if g.CommandTimeoutSeconds < 1 {
		return configErrorf("Global.CommandTimeoutSeconds must be >= 1, got %d", g.CommandTimeoutSeconds)
	}

	for name, dt := range d.DataTypes {
		base := dt.BaseType
		if base == "" {
			base = name
		}
		if !generator.IsStandard(base) {
			return configErrorf("custom data type %q resolves to unknown base type %q", name, base)
		}
	}

	seen := map[string]bool{}
	for ti := range d.Tables {
		t := &d.Tables[ti]
		if t.FullName == "" {
			return configErrorf("table %d has no FullName", ti)
		}
		if seen[t.FullName] {
			return configErrorf("table %s is declared twice", t.FullName)
		}
		seen[t.FullName] = true
		if !t.IsEnabled() {
			continue
		}
		if len(t.EnabledColumns()) > 0 && len(t.PrimaryKey) == 0 {
			return configErrorf("table %s has enabled columns but no PrimaryKey", t.FullName)
		}
		for _, c := range t.Columns {
			if !c.IsEnabled() {
				continue
			}
			if _, _, err := d.ResolveType(c.DataType); err != nil {
				return configErrorf("table %s column %s: %s", t.FullName, c.Name, err)
			}
			if c.Fallback != nil {
				switch c.Fallback.OnError {
				case FallbackUseOriginal, FallbackUseDefault, FallbackSkip:
				default:
					return configErrorf("table %s column %s: unknown Fallback.OnError %q",
						t.FullName, c.Name, c.Fallback.OnError)
				}
			}
		}
	}
	return nil
}

// ResolveType follows a single level of custom-type indirection and returns
// the base type name plus the custom entry, if any. Standard type names
// resolve to themselves.
func (d *Document) ResolveType(name string) (string, *DataType, error) {
	if dt, ok := d.DataTypes[name]; ok {
		base := dt.BaseType
		if base == "" {
			base = name
		}
		base = generator.BaseType(base)
		if !generator.IsStandard(base) {
			return "", nil, fmt.Errorf("custom data type %q resolves to unknown base type %q", name, base)
		}
		return base, &dt, nil
	}
	base := generator.BaseType(name)
	if !generator.IsStandard(base) {
		return "", nil, fmt.Errorf("unknown data type %q", name)
	}
	return base, nil, nil
}

// EffectiveSeed is the custom seed of the column's data type if set, else
// the global seed.
func (d *Document) EffectiveSeed(dataType string) string {
	if dt, ok := d.DataTypes[dataType]; ok && dt.CustomSeed != "" {
		return dt.CustomSeed
	}
	return d.Global.GlobalSeed
}

// CachePolicy precomputes, for every data type referenced by the mapping,
// whether generated values are cached. Custom entries may override the
// built-in cardinality classification.
func (d *Document) CachePolicy() map[string]bool {
	policy := map[string]bool{}
	record := func(name string) {
		// custom types keep their own cache namespace; standard names
		// collapse aliases so Suburb and City share one policy entry
		key := name
		dt, custom := d.DataTypes[name]
		if !custom {
			key = generator.BaseType(name)
		}
		if _, done := policy[key]; done {
			return
		}
		if custom && dt.Cache != nil {
			policy[key] = *dt.Cache
			return
		}
		base, _, err := d.ResolveType(name)
		if err != nil {
			policy[key] = false
			return
		}
		policy[key] = generator.CachedByDefault(base)
	}
	for _, t := range d.Tables {
		for _, c := range t.Columns {
			record(c.DataType)
		}
	}
	for name := range d.DataTypes {
		record(name)
	}
	return policy
}

// Table returns the declaration for a table name, or nil.
func (d *Document) Table(fullName string) *Table {
	for i := range d.Tables {
		if d.Tables[i].FullName == fullName {
			return &d.Tables[i]
		}
	}
	return nil
}

// yamlToJSON renders a YAML document as JSON bytes so both syntaxes flow
// through the same (case-insensitive) JSON decoding path.
func yamlToJSON(raw []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(yamlValue(v))
}

func yamlValue(v any) any {
	switch x := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[fmt.Sprintf("%v", k)] = yamlValue(val)
		}
		return m
	case []any:
		for i := range x {
			x[i] = yamlValue(x[i])
		}
		return x
	default:
		return v
	}
}
