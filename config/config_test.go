package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMapping(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalMapping = `{
  "Global": {
    "ConnectionString": "sqlite3://test.db",
    "GlobalSeed": "seed-1"
  },
  "Tables": [
    {
      "FullName": "dbo.Customers",
      "PrimaryKey": ["Id"],
      "Priority": 2,
      "Columns": [
        {"Name": "Email", "DataType": "Email"},
        {"Name": "FirstName", "DataType": "FirstName"}
      ]
    },
    {
      "FullName": "dbo.Drivers",
      "PrimaryKey": ["Id"],
      "Priority": 1,
      "Columns": [
        {"Name": "DriverName", "DataType": "FullName"}
      ]
    }
  ]
}`

func TestLoadAppliesDefaultsAndSorts(t *testing.T) {
	doc, err := Load(writeMapping(t, "m.json", minimalMapping))
	require.NoError(t, err)

	assert.Equal(t, 1000, doc.Global.BatchSize)
	assert.Equal(t, 100, doc.Global.SqlBatchSize)
	assert.Equal(t, 4, doc.Global.ParallelThreads)
	assert.Equal(t, 30, doc.Global.CommandTimeoutSeconds)
	assert.Len(t, doc.Hash, 16)

	// priority ascending
	require.Len(t, doc.Tables, 2)
	assert.Equal(t, "dbo.Drivers", doc.Tables[0].FullName)
	assert.Equal(t, "dbo.Customers", doc.Tables[1].FullName)
}

func TestLoadIsCaseInsensitiveOnKeys(t *testing.T) {
	doc, err := Load(writeMapping(t, "m.json", `{
	  "global": {"connectionString": "sqlite3://t.db", "globalSeed": "s", "batchSize": 50},
	  "tables": [{"fullName": "T", "primaryKey": ["id"], "columns": [{"name": "e", "dataType": "Email"}]}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 50, doc.Global.BatchSize)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, "T", doc.Tables[0].FullName)
}

func TestUnknownDataTypeIsConfigError(t *testing.T) {
	_, err := Load(writeMapping(t, "m.json", `{
	  "Global": {"ConnectionString": "sqlite3://t.db"},
	  "Tables": [{"FullName": "T", "PrimaryKey": ["id"], "Columns": [{"Name": "e", "DataType": "EmailAdress"}]}]
	}`))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "EmailAdress")
}

func TestEnabledColumnsRequirePrimaryKey(t *testing.T) {
	_, err := Load(writeMapping(t, "m.json", `{
	  "Global": {"ConnectionString": "sqlite3://t.db"},
	  "Tables": [{"FullName": "T", "Columns": [{"Name": "e", "DataType": "Email"}]}]
	}`))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "PrimaryKey")
}

func TestInvalidFallbackIsConfigError(t *testing.T) {
	_, err := Load(writeMapping(t, "m.json", `{
	  "Global": {"ConnectionString": "sqlite3://t.db"},
	  "Tables": [{"FullName": "T", "PrimaryKey": ["id"],
	    "Columns": [{"Name": "e", "DataType": "Email", "Fallback": {"OnError": "explode"}}]}]
	}`))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCustomDataTypeResolution(t *testing.T) {
	doc, err := Load(writeMapping(t, "m.json", `{
	  "Global": {"ConnectionString": "sqlite3://t.db", "GlobalSeed": "g"},
	  "DataTypes": {
	    "CrmEmail": {"BaseType": "Email", "CustomSeed": "crm-seed"},
	    "DriverName": {"BaseType": "FullName"}
	  },
	  "Tables": [{"FullName": "T", "PrimaryKey": ["id"],
	    "Columns": [{"Name": "e", "DataType": "CrmEmail"}, {"Name": "n", "DataType": "DriverName"}]}]
	}`))
	require.NoError(t, err)

	base, custom, err := doc.ResolveType("CrmEmail")
	require.NoError(t, err)
	assert.Equal(t, "Email", base)
	require.NotNil(t, custom)
	assert.Equal(t, "crm-seed", doc.EffectiveSeed("CrmEmail"))
	assert.Equal(t, "g", doc.EffectiveSeed("DriverName"))
}

func TestCachePolicy(t *testing.T) {
	cached := true
	doc := &Document{
		DataTypes: map[string]DataType{
			"CachedEmail": {BaseType: "Email", Cache: &cached},
		},
		Tables: []Table{{
			FullName:   "T",
			PrimaryKey: []string{"id"},
			Columns: []Column{
				{Name: "a", DataType: "FirstName"},
				{Name: "b", DataType: "Email"},
				{Name: "c", DataType: "Suburb"},
				{Name: "d", DataType: "CachedEmail"},
			},
		}},
	}
	policy := doc.CachePolicy()
	assert.True(t, policy["FirstName"])
	assert.False(t, policy["Email"])
	assert.True(t, policy["City"], "Suburb collapses onto City")
	assert.True(t, policy["CachedEmail"], "explicit override wins")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BATCH_SIZE", "7")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("GLOBAL_SEED", "env-seed")
	doc, err := Load(writeMapping(t, "m.json", minimalMapping))
	require.NoError(t, err)
	assert.Equal(t, 7, doc.Global.BatchSize)
	assert.True(t, doc.Global.DryRun)
	assert.Equal(t, "env-seed", doc.Global.GlobalSeed)
}

func TestYAMLMappingLoads(t *testing.T) {
	doc, err := Load(writeMapping(t, "m.yaml", `
Global:
  ConnectionString: sqlite3://t.db
  GlobalSeed: seed-1
Tables:
  - FullName: T
    PrimaryKey: [id]
    Columns:
      - Name: e
        DataType: Email
`))
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, "Email", doc.Tables[0].Columns[0].DataType)
}

func TestTableBatchSizeOverride(t *testing.T) {
	table := Table{CustomBatchSize: 25}
	assert.Equal(t, 25, table.BatchSize(1000))
	table = Table{}
	assert.Equal(t, 1000, table.BatchSize(1000))
}
