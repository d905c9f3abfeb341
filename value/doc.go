// Package value models the host's array cells and the conversions the
// dispatcher needs at the boundary.
//
// A Cell is one of Empty, String, Double, Vector, Uint64, Bool, *Struct or
// *Object. Handle tokens travel as Uint64 scalars:
//
//	tok, err := value.ReadHandleToken(cell)
//	cell := value.MakeHandleCell(tok)
//
// Wire gives every cell a tagged JSON form used by the WASM bridge, and
// Parse/Format convert between cells and console text.
package value
