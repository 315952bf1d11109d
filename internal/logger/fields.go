package logger

// Standard field keys for structured logging. Use these consistently so
// sync runs can be filtered and correlated from the log output.
const (
	// HTTP / PLM client
	KeyMethod     = "method"      // HTTP verb
	KeyPath       = "path"        // request path (no query)
	KeyHTTPStatus = "http_status" // response status code
	KeyWorkspace  = "workspace"   // PLM workspace identifier
	KeyError      = "error"       // error text

	// Domain entities
	KeyRack       = "rack"        // rack number
	KeyItemNumber = "item_number" // PLM item number
	KeyItemGUID   = "item_guid"   // PLM opaque item id
	KeyLineGUID   = "line_guid"   // PLM opaque BOM line id
	KeyQuantity   = "quantity"
	KeySheet      = "sheet"  // workbook sheet name
	KeyStatus     = "status" // sync status

	// Cache
	KeyShard      = "shard"       // cache shard index
	KeyShardCount = "shard_count" // total shards in manifest
	KeyCacheSize  = "cache_size"  // entries in cache

	// Push pipeline
	KeyPhase   = "phase"   // leaf, row, top
	KeyCreated = "created" // creation context length
)
