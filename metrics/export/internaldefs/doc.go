// Package internaldefs holds the exported metric names, help strings and
// bucket bounds so every exporter renders the same series.
package internaldefs
