package config

import (
	"log/slog"
)

// ResolveReferentialIntegrity rewrites every related column so it resolves
// to the same (dataType, effectiveSeed) as its relationship's primary
// column. The generator is pure, so equal originals then produce
// byte-identical synthetics in both places without any pre-pass mapping
// being materialized.
//
// A related column whose declared type already matches is left alone. A
// mismatch is logged and rewritten, or fatal under Global.StrictMode.
func (d *Document) ResolveReferentialIntegrity() error {
	for _, rel := range d.ReferentialIntegrity {
		primaryTable := d.Table(rel.PrimaryTable)
		if primaryTable == nil {
			return configErrorf("relationship %s: primary table %s is not in the mapping",
				rel.Name, rel.PrimaryTable)
		}
		primaryCol := findColumn(primaryTable, rel.PrimaryColumn)
		if primaryCol == nil {
			return configErrorf("relationship %s: column %s.%s is not in the mapping",
				rel.Name, rel.PrimaryTable, rel.PrimaryColumn)
		}

		for _, rm := range rel.RelatedMappings {
			switch rm.Relationship {
			case "", "exact", "derived":
			default:
				return configErrorf("relationship %s: unknown relationship kind %q", rel.Name, rm.Relationship)
			}
			relTable := d.Table(rm.Table)
			if relTable == nil {
				return configErrorf("relationship %s: related table %s is not in the mapping",
					rel.Name, rm.Table)
			}
			relCol := findColumn(relTable, rm.Column)
			if relCol == nil {
				return configErrorf("relationship %s: column %s.%s is not in the mapping",
					rel.Name, rm.Table, rm.Column)
			}

			if relCol.DataType == primaryCol.DataType {
				continue
			}
			if d.Global.StrictMode {
				return configErrorf(
					"relationship %s: %s.%s has data type %s but primary %s.%s has %s (StrictMode)",
					rel.Name, rm.Table, rm.Column, relCol.DataType,
					rel.PrimaryTable, rel.PrimaryColumn, primaryCol.DataType)
			}
			slog.Warn("referential integrity: rewriting related column data type to match primary",
				"relationship", rel.Name,
				"column", rm.Table+"."+rm.Column,
				"from", relCol.DataType,
				"to", primaryCol.DataType)
			relCol.DataType = primaryCol.DataType
			relCol.PreserveLength = primaryCol.PreserveLength
		}
	}
	return nil
}

func findColumn(t *Table, name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
