// medal builds a layered set of versioned tables (bronze, silver, gold) from
// raw retail transaction CSVs.
//
// The pipeline has five stages, each a one-shot transformation from one
// committed table snapshot to the next:
//
// 1. Ingest
//
//	Reads one directory of delimited files per sales channel, tags every
//	record with its channel, unions the channels by column name, and
//	commits the result as the bronze table. Sources may be local
//	directories or S3 prefixes.
//
// 2. Enrich
//
//	Left joins the latest bronze snapshot against the product catalog on
//	product_id and keeps only rows that found a catalog match. Commits the
//	result as the silver table.
//
// 3. Quality
//
//	Re-reads the committed silver snapshot and reports null counts, amount
//	range violations, product id format violations, and duplicate
//	transaction ids. Observational by default; strict mode fails the run.
//
// 4. Aggregate
//
//	Rolls silver up by (channel, category) into revenue, distinct customer,
//	and row counts. Commits the result as the gold table and registers its
//	name in the metastore.
//
// 5. Maintain
//
//	Lists gold's commit history, demonstrates reading an old version,
//	compacts small part files, and vacuums data files outside the
//	retention window.
//
// Stages never pass data to each other in memory: every stage reads the
// latest committed snapshot of its input table, so any stage can be re-run
// on its own. Table storage lives in the lake package; the relational
// operations the stages share live in this package.
package medal
