package giphy

import (
	"fmt"
	"strings"
)

// IDPrefix marks media identifiers that refer to externally-hosted Giphy
// content instead of local storage.
const IDPrefix = "giphy_"

func IsGiphyID(id string) bool {
	return strings.HasPrefix(id, IDPrefix)
}

// EncodeID wraps a raw Giphy id in the local marker.
func EncodeID(giphyID string) string {
	return IDPrefix + giphyID
}

// DecodeID strips the marker. An id without the marker is rejected outright;
// decoding must be symmetric with EncodeID, never a best-effort pass-through.
func DecodeID(id string) (string, error) {
	if !IsGiphyID(id) {
		return "", fmt.Errorf("not a giphy id: %s", id)
	}
	return id[len(IDPrefix):], nil
}
