// Package export streams a table's export files as one logical line
// sequence.
//
// An export is an ordered list of signed URLs, each pointing at an
// independently gzip-compressed, line-oriented file (CSV or
// newline-delimited JSON). A Reader opens the sources one at a time,
// decompresses them, and yields lines as if the export were a single
// file: every source after the first repeats the first source's
// header line, so the Reader discards one line whenever it opens a
// source beyond the first.
//
// The stream is lazy, single-pass and forward-only. No network request
// is made until the first read, and nothing is buffered beyond the
// current line. Row and byte counts accumulate as lines are yielded;
// on natural exhaustion the Reader logs a throughput summary once.
//
// # Usage
//
//	r, err := export.NewReader(ctx, status.Extracts.URLs)
//	if err != nil {
//	    // export.ErrNoData when the table has no export files
//	}
//	defer r.Close()
//
//	for {
//	    line, err := r.ReadLine()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    process(line)
//	}
package export
