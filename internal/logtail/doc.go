// Package logtail reads the tail of vitrine's own JSON log file for the
// in-app log view.
//
// Read keeps a ring buffer of the last N lines, so memory stays bounded by N
// however large the file grows. Each line is decoded into an Entry; lines that
// are not zap JSON are kept verbatim:
//
//	entries, err := logtail.Read(cfg.LogFile, 200)
//	for _, e := range entries {
//		fmt.Println(e) // 14:02:11 WARN sync failed generation=4 error=...
//	}
package logtail
