// Package dataset provides the in-memory tabular model shared by the readers,
// writers and the audit engine.
//
// # Records
//
// A Dataset is an ordered list of column names and an ordered list of records.
// Each Record holds one Value per column, aligned by position, so both the
// original field order and the original row order survive a read/write cycle.
//
// # Absent values
//
// Whether a cell is "absent" is decided once, by the reader, through a
// NullPolicy. The decision is stored on the Value itself:
//
//	v := dataset.Text("N/A", policy) // v.IsNull() == true, v.String() == "N/A"
//
// Values classified as null keep their raw text so that writers reproduce the
// original cell unchanged.
package dataset
