package postgres

// queryIndexRows returns one row per (index, key column) in key order.
// Expression keys have no attribute and come back with an empty column name.
// INCLUDE columns are not keys and are skipped.
// $1 = schema, $2 = table_name.
const queryIndexRows = `
	SELECT
		ic.relname,
		am.amname,
		NOT i.indisunique,
		COALESCE(a.attname, ''),
		i.indisprimary
	FROM pg_index i
	JOIN pg_class ic ON ic.oid = i.indexrelid
	JOIN pg_class t ON t.oid = i.indrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	JOIN pg_am am ON am.oid = ic.relam
	CROSS JOIN LATERAL unnest(i.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
	LEFT JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
	WHERE n.nspname = $1 AND t.relname = $2 AND k.ord <= i.indnkeyatts
	ORDER BY ic.relname, k.ord`

// queryTableStats fetches row estimate, heap size and total index size.
// $1 = schema, $2 = table_name.
const queryTableStats = `
	SELECT
		GREATEST(COALESCE(c.reltuples::bigint, 0), 0),
		COALESCE(pg_relation_size(c.oid), 0),
		COALESCE(pg_indexes_size(c.oid), 0)
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE n.nspname = $1 AND c.relname = $2`

// queryIndexUsage fetches scan counters since the last statistics reset.
// $1 = schema, $2 = table_name.
const queryIndexUsage = `
	SELECT s.indexrelname, COALESCE(s.idx_scan, 0)
	FROM pg_stat_user_indexes s
	WHERE s.schemaname = $1 AND s.relname = $2
	ORDER BY s.indexrelname`

// queryIndexSizes fetches the on-disk size of every index on a table.
// $1 = schema, $2 = table_name.
const queryIndexSizes = `
	SELECT ic.relname, COALESCE(pg_relation_size(ic.oid), 0)
	FROM pg_index i
	JOIN pg_class ic ON ic.oid = i.indexrelid
	JOIN pg_class t ON t.oid = i.indrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	WHERE n.nspname = $1 AND t.relname = $2
	ORDER BY ic.relname`

// queryNeverScanned lists non-unique, non-primary indexes with no recorded scans.
// $1 = schema, $2 = table_name.
const queryNeverScanned = `
	SELECT s.indexrelname
	FROM pg_stat_user_indexes s
	JOIN pg_index i ON i.indexrelid = s.indexrelid
	WHERE s.schemaname = $1 AND s.relname = $2
		AND COALESCE(s.idx_scan, 0) = 0
		AND NOT i.indisunique
		AND NOT i.indisprimary
	ORDER BY s.indexrelname`

// queryColumnDistinct fetches pg_stats n_distinct for every analyzed column.
// $1 = schema, $2 = table_name.
const queryColumnDistinct = `
	SELECT s.attname, s.n_distinct
	FROM pg_stats s
	WHERE s.schemaname = $1 AND s.tablename = $2
	ORDER BY s.attname`

// queryResolveSchema resolves the schema for a table by name.
// $1 = table_name; schema filter placeholder at %s starts at $2.
const queryResolveSchema = `
	SELECT n.nspname
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relname = $1 AND c.relkind IN ('r', 'p') AND %s
	ORDER BY n.nspname
	LIMIT 1`

// --- Simulation queries ---

// queryIndexOID resolves an index and its definition for hiding and rollback.
// $1 = schema, $2 = index name.
const queryIndexOID = `
	SELECT c.oid, pg_get_indexdef(c.oid)
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind = 'i'`

// queryWorkload fetches the most frequently called statements that mention
// the table, from the current database only.
// $1 = table_name, $2 = limit.
const queryWorkload = `
	SELECT s.query, s.calls
	FROM pg_stat_statements s
	JOIN pg_database d ON d.oid = s.dbid
	WHERE d.datname = current_database()
		AND s.query ILIKE '%' || $1 || '%'
	ORDER BY s.calls DESC
	LIMIT $2`

const queryHideIndex = `SELECT hypopg_hide_index($1)`

const queryUnhideAll = `SELECT hypopg_unhide_all_indexes()`
