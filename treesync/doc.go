// Package treesync builds a canonical, hashable model of a directory
// subtree and computes the minimal set of changes between two such
// trees.
//
// A Node is either a File, carrying a size and an on-demand SHA-256
// digest, or a Directory, carrying an ordered slice of child Nodes.
// Within a Directory, children are always sorted directories-first, then
// lexicographically by name — this is the "canonical order" referred to
// throughout this package, and every function here assumes it holds.
//
// Scan walks a filesystem subtree into a DirectoryTree in that order.
// Diff merge-walks two such trees and reports what changed, hashing file
// content only when two files agree in size and might therefore be
// byte-identical.
//
// Content hashing is sha2-256. bigger files are streamed through the
// hasher rather than read whole into memory, and a Scanner may carry a
// bounded cache so an unchanged file is never rehashed across scans.
package treesync
