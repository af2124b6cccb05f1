// Package flowgraph converts linear, label-annotated instruction streams
// into control-flow graphs of basic blocks and back.
//
// The pipeline has three representations:
//
//   - Bytecode: an ordered pseudo-instruction stream whose elements are
//     real instructions (Instr), bare position markers (Label), and
//     line-number markers (SetLineno). This is what front ends produce.
//
//   - ControlFlowGraph: an ordered arena of BasicBlocks where every jump
//     operand references another block of the same graph. Labels no
//     longer exist at this level; FromBytecode consumes them and
//     ToBytecode synthesizes fresh ones.
//
//   - The concrete byte sequence, produced from either form by the
//     assemble package.
//
// Basic-block invariants (no labels inside a block, control transfers
// only in last position, jump operands linked to member blocks) are
// checked lazily: the mutation API is unchecked so edits may pass
// through transient invalid states, and the validating read entry
// points (BasicBlock.Elems, ControlFlowGraph.Validate, equality,
// flattening) report violations as StructuralError.
//
// Graphs are not safe for concurrent mutation; callers that need
// concurrent access must work on separate graphs.
package flowgraph
