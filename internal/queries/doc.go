// Package queries is the registry of file-backed SQL queries, grouped by
// pipeline name.
//
// A registry document is keyed by pipeline name at the top level. Below that
// each pipeline is an arbitrarily nested mapping; any mapping node carrying a
// "path" key is a query leaf:
//
//	docdb:
//	  objects:
//	    tables:
//	      path: sqlserver/01_tables.sql
//	      description: user tables
//	      order: 10
//
// Every leaf's file must exist when the registry is loaded. SQL text itself is
// read on each access, so edits to a query file are picked up without a restart.
//
// Ordering: queries are sorted ascending by their explicit order value. Every
// leaf must carry one. Equal order values keep document order, which the
// loader preserves by walking the YAML node tree rather than a decoded map.
package queries
