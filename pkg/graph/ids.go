package graph

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// NodeID computes the deterministic id for a symbol or file node: a hash of
// (label, "filePath:name"). Re-ingesting identical content always produces
// the same id, independent of worker scheduling order.
func NodeID(label NodeLabel, filePath, name string) string {
	key := string(label) + ":" + filePath + ":" + name
	sum := xxhash.Sum64String(key)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	return hex.EncodeToString(buf[:])
}

// FileNodeID computes the id of the File node for a given path: hash("File",
// filePath).
func FileNodeID(filePath string) string {
	return NodeID(LabelFile, filePath, filePath)
}

// RelationshipID computes a deterministic id for a relationship from its
// source, target, type and reason, using blake3 so relationship ids are
// distinguishable from node ids by construction (different hash family,
// different length) without ever colliding with one in practice.
func RelationshipID(relType RelationshipType, sourceID, targetID, reason string) string {
	data := fmt.Sprintf("%s|%s|%s|%s", relType, sourceID, targetID, reason)
	hash := blake3.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// DefinesRelationshipID computes the id of the DEFINES edge from a file node
// to a symbol node.
func DefinesRelationshipID(fileID, symbolID string) string {
	return RelationshipID(RelDefines, fileID, symbolID, "file defines symbol")
}
