// Package progress provides transfer accounting for downloads, uploads
// and export streaming.
//
// A Meter accumulates row and byte counts for one transfer and produces
// a Summary with elapsed time and throughput rates. The package also
// provides human-readable byte formatting and parsing used by the CLI
// configuration.
//
// # Usage
//
//	meter := progress.NewMeter()
//	// ... as data moves:
//	meter.AddBytes(n)
//	meter.AddRows(1)
//	// when the transfer completes:
//	fmt.Println(meter.Summary())
//
// # Output Format
//
//	transferred 104857 rows (12.50 MB) in 3s (34952.3 row/s, 4.17 MB/s)
package progress
