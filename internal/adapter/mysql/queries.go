package mysql

// queryIndexRows returns one row per (index, key part) in key order. Functional
// key parts have no column name.
// ? = schema, table_name.
const queryIndexRows = `
	SELECT INDEX_NAME, INDEX_TYPE, NON_UNIQUE, COALESCE(COLUMN_NAME, '')
	FROM information_schema.STATISTICS
	WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
	ORDER BY INDEX_NAME = 'PRIMARY' DESC, INDEX_NAME, SEQ_IN_INDEX`

// queryTableStats: TABLE_ROWS is an estimate for InnoDB. INDEX_LENGTH covers
// secondary indexes only; the clustered primary key lives in DATA_LENGTH.
const queryTableStats = `
	SELECT COALESCE(TABLE_ROWS, 0), COALESCE(DATA_LENGTH, 0), COALESCE(INDEX_LENGTH, 0)
	FROM information_schema.TABLES
	WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`

// queryIndexUsage reads per-index I/O counters since server start.
const queryIndexUsage = `
	SELECT INDEX_NAME, COUNT_STAR
	FROM performance_schema.table_io_waits_summary_by_index_usage
	WHERE OBJECT_SCHEMA = ? AND OBJECT_NAME = ? AND INDEX_NAME IS NOT NULL
	ORDER BY INDEX_NAME`

// queryIndexSizes converts persistent statistics pages to bytes.
const queryIndexSizes = `
	SELECT index_name, stat_value * @@innodb_page_size
	FROM mysql.innodb_index_stats
	WHERE database_name = ? AND table_name = ? AND stat_name = 'size'
	ORDER BY index_name`

const queryUnusedIndexes = `
	SELECT index_name
	FROM sys.schema_unused_indexes
	WHERE object_schema = ? AND object_name = ?
	ORDER BY index_name`

// queryLeadingColumnCardinality returns the estimated distinct count of every
// index's first column.
const queryLeadingColumnCardinality = `
	SELECT COLUMN_NAME, MAX(COALESCE(CARDINALITY, 0))
	FROM information_schema.STATISTICS
	WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND SEQ_IN_INDEX = 1 AND COLUMN_NAME IS NOT NULL
	GROUP BY COLUMN_NAME
	ORDER BY COLUMN_NAME`

// queryResolveSchema prefers the connection's default database.
const queryResolveSchema = `
	SELECT TABLE_SCHEMA
	FROM information_schema.TABLES
	WHERE TABLE_NAME = ?
		AND TABLE_TYPE = 'BASE TABLE'
		AND TABLE_SCHEMA NOT IN ('mysql', 'sys', 'performance_schema', 'information_schema')
	ORDER BY TABLE_SCHEMA = DATABASE() DESC, TABLE_SCHEMA
	LIMIT 1`
