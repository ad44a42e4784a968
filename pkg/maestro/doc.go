// Package maestro is a client for Maestro table pipeline servers.
//
// A Client speaks the Maestro REST API, authenticating with an API
// token. A Table is a handle on one table: it caches the table's
// status snapshot and provides the higher-level operations built on
// top of the API:
//
//   - [Table.Wait] blocks until an external table starts running or an
//     internal table completes a new successful run, polling with
//     decaying, jittered intervals.
//   - [Table.Reader] streams the table's gzip-compressed export files
//     as one logical line sequence (see package export).
//   - [Table.Fetch] downloads export files into a gocloud.dev blob
//     bucket; [Table.Upload] pushes external table data to the signed
//     upload URL and confirms the load.
//   - [Table.Schema] and [Table.PostgresDDL] expose the BigQuery
//     schema and a matching CREATE TABLE statement.
//
// A Table handle is not safe for concurrent use: one caller drives one
// handle at a time. Waits have no built-in deadline; bound them with a
// context.
//
//	client, err := maestro.New("https://maestro.example.com/", token)
//	t, err := client.TableByName(ctx, "analytics.daily_users")
//	if err := t.Wait(ctx); err != nil {
//	    // *RemoteError when the table's run failed
//	}
//	r, err := t.Reader(ctx)
package maestro
