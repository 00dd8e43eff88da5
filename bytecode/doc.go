// Package bytecode reads and writes SSB containers, the compiled form of the
// game's event scripts.
//
// A container holds a routine table, one operation stream shared by all
// routines, a constant string pool and one localized string pool per
// supported language. The exact layout depends on the ROM region:
//
//	header (12 or 18 bytes, see Region)
//	stream header      [const-table word offset][routine count]
//	routine table      [start word offset][kind][link target] per routine
//	operation stream   [opcode][count if variable][argument words...]
//	constant table     [offset + 2*#strings] per constant, then NUL-terminated bytes, padded
//	per language       [offset] per string, then NUL-terminated bytes, padded
//
// All integers are little-endian 16-bit words. Word offsets in the stream
// header, routine table and jump arguments are relative to the start of the
// stream header.
//
// # Key Types
//
//   - [Container]: the decoded model (routines, operations, pools)
//   - [Operation]: one instruction bound to its [schema.Opcode]
//   - [Param]: a typed argument (closed set of [ParamKind] variants)
//   - [Region]: header variant and language set
//
// # Usage
//
//	c, err := bytecode.Decode(raw, provider, bytecode.WithRegion(bytecode.RegionEU))
//	if err != nil {
//	    return err
//	}
//	out, err := bytecode.Encode(c)
//	// bytes.Equal(raw, out) holds for every buffer Decode accepts.
//
// Decode and Encode are pure functions of their inputs. A Container is not
// safe for concurrent mutation.
package bytecode
