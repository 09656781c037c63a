package autocomplete

// DefaultNamespace prefixes every key when Config.Namespace is empty. A
// namespace must not contain ':', or its keys could collide with another
// namespace's; config.Validate enforces this.
const DefaultNamespace = "rtrie"

// DefaultLimit is the result count used by Complete when Config.DefaultLimit
// is unset.
const DefaultLimit = 20

func rankKey(namespace, prefix string) string {
	return namespace + ":index:" + prefix
}

func metadataKey(namespace string) string {
	return namespace + ":metadata"
}
