// Package log provides batch-friendly logging built on top of the standard
// slog package.
//
// A batch run logs one or more lines per page, and every line carries the
// page's source image path. Scan directories tend to be deep
// (/home/user/scans/book-title/tiff/0001.tif), which makes progress output
// unreadable on a terminal. The PathHandler shortens well-known path
// attributes to their base name unless verbose output is requested, while
// leaving every other attribute untouched.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Info("page processed",
//	    "image", "/home/user/scans/book/tiff/0001.tif", // logged as "0001.tif"
//	    "stage", "deskew",
//	)
package log
