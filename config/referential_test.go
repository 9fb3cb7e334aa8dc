package config

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const relationshipMapping = `{
  "Global": {"ConnectionString": "sqlite3://t.db", "GlobalSeed": "s"%s},
  "ReferentialIntegrity": [
    {
      "Name": "DriverConsistency",
      "PrimaryTable": "dbo.Drivers",
      "PrimaryColumn": "DriverName",
      "RelatedMappings": [
        {"Table": "dbo.Assignments", "Column": "DriverName", "Relationship": "exact"}
      ]
    }
  ],
  "Tables": [
    {
      "FullName": "dbo.Drivers",
      "PrimaryKey": ["Id"],
      "Columns": [{"Name": "DriverName", "DataType": "FullName"}]
    },
    {
      "FullName": "dbo.Assignments",
      "PrimaryKey": ["Id"],
      "Columns": [{"Name": "DriverName", "DataType": "FirstName"}]
    }
  ]
}`

func TestResolverRewritesRelatedColumn(t *testing.T) {
	doc, err := Load(writeMapping(t, "m.json", fmt.Sprintf(relationshipMapping, "")))
	require.NoError(t, err)

	related := findColumn(doc.Table("dbo.Assignments"), "DriverName")
	require.NotNil(t, related)
	assert.Equal(t, "FullName", related.DataType,
		"related column must resolve to the primary's data type")
}

func TestResolverStrictModeFailsOnMismatch(t *testing.T) {
	_, err := Load(writeMapping(t, "m.json", fmt.Sprintf(relationshipMapping, `, "StrictMode": true`)))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "StrictMode")
}

func TestResolverMatchingColumnUntouchedInStrictMode(t *testing.T) {
	doc, err := Load(writeMapping(t, "m.json", `{
	  "Global": {"ConnectionString": "sqlite3://t.db", "StrictMode": true},
	  "ReferentialIntegrity": [
	    {"Name": "R", "PrimaryTable": "A", "PrimaryColumn": "c",
	     "RelatedMappings": [{"Table": "B", "Column": "c", "Relationship": "exact"}]}
	  ],
	  "Tables": [
	    {"FullName": "A", "PrimaryKey": ["id"], "Columns": [{"Name": "c", "DataType": "Email"}]},
	    {"FullName": "B", "PrimaryKey": ["id"], "Columns": [{"Name": "c", "DataType": "Email"}]}
	  ]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Email", findColumn(doc.Table("B"), "c").DataType)
}

func TestResolverUnknownTableIsConfigError(t *testing.T) {
	_, err := Load(writeMapping(t, "m.json", `{
	  "Global": {"ConnectionString": "sqlite3://t.db"},
	  "ReferentialIntegrity": [
	    {"Name": "R", "PrimaryTable": "Missing", "PrimaryColumn": "c", "RelatedMappings": []}
	  ],
	  "Tables": [
	    {"FullName": "A", "PrimaryKey": ["id"], "Columns": [{"Name": "c", "DataType": "Email"}]}
	  ]
	}`))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResolverUnknownKindIsConfigError(t *testing.T) {
	_, err := Load(writeMapping(t, "m.json", `{
	  "Global": {"ConnectionString": "sqlite3://t.db"},
	  "ReferentialIntegrity": [
	    {"Name": "R", "PrimaryTable": "A", "PrimaryColumn": "c",
	     "RelatedMappings": [{"Table": "A", "Column": "c", "Relationship": "fuzzy"}]}
	  ],
	  "Tables": [
	    {"FullName": "A", "PrimaryKey": ["id"], "Columns": [{"Name": "c", "DataType": "Email"}]}
	  ]
	}`))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
