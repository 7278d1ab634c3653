package kvstore

const keySep = "\x00"

func nodeIDKey(id string) []byte {
	return []byte("n/id/" + id)
}

func nodePathKey(path string) []byte {
	return []byte("n/path/" + path)
}

func childPrefix(parentID string) []byte {
	return []byte("n/child/" + parentID + keySep)
}

func childKey(parentID, name string) []byte {
	return append(childPrefix(parentID), name...)
}

func propPrefix(nodeID string) []byte {
	return []byte("p/" + nodeID + keySep)
}

func propKey(nodeID, key string) []byte {
	return append(propPrefix(nodeID), key...)
}
