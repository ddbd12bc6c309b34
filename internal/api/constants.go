package api

const (
	// defaultHomeListSize is the length of each home page list when unset.
	defaultHomeListSize = 10

	// maxQueryLength bounds search and filter queries.
	maxQueryLength = 200
)

// Operation tags.
const (
	tagHealth      = "Health"
	tagCatalog     = "Catalog"
	tagSearch      = "Search"
	tagCollections = "Collections"
	tagProfile     = "Profile"
)

// bearerSecurity marks an operation as requiring a bearer token.
var bearerSecurity = []map[string][]string{{"bearer": {}}}
