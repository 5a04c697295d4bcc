// Package session implements the connection-level protocol that moves a
// treesync.DirectoryTree and its files between two peers: a Session
// wraps one net.Conn and serializes the four exchange operations on it;
// a Peer owns a listener, a dialer, and the set of live Sessions.
//
// Wire framing is a thin layer over the wire and treesync packages: a
// tree message is a big-endian u64 length followed by a treesync-encoded
// tree; a file message is a big-endian-length header followed by
// big-endian-length chunks. Frame lengths are big-endian, while every
// integer inside a frame uses wire's little-endian codecs.
package session
