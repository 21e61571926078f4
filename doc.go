// Package bsync synchronizes a single file between two peers
// using block-level delta transfer.
//
// A file is divided into fixed-size blocks,
// and each block is summarized by a signature:
// the sha2-256 hash of its content.
// The sending peer walks its blocks in order.
// For each block it decides whether the receiver must already hold the right bytes
// (because the block has not changed since the receiver last acknowledged it)
// or whether the bytes must be sent.
// The first case produces a Reference instruction,
// the second a Literal instruction carrying the block's data.
//
// The sender never learns the receiver's content.
// It decides between Reference and Literal purely from its own history of acknowledged signatures.
// The receiver's only check on a Reference is that the block still exists
// (and has the expected length).
// If it does not,
// because the receiver's file was truncated since the sender last looked,
// the receiver answers with a "block unavailable" reply,
// and the sender "upgrades" the reference to a literal and tries again.
//
// Instructions travel as single lines of text
// (see the codec subpackage),
// one instruction per TCP connection
// (see the session subpackage).
// The peer subpackage composes all of this into a client,
// which always opens connections,
// and a server,
// which accepts them.
// Whether the client pushes its file to the server or pulls the server's file
// is decided by the direction given in the initial handshake.
//
// The sender does not stop after one pass over the file.
// When its cursor reaches the last block it wraps around to the first one,
// so that changes made later are picked up on the next pass.
// A watcher (see the watcher subpackage) periodically rescans the file
// so that local edits become visible to the sender.
package bsync
